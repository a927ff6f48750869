// Package investigation holds the domain types shared by the fetcher, the
// closure dispatcher and the interactive session.
package investigation

// Source tags reported by InsightIDR.
const (
	SourceAlert   = "ALERT"
	SourceManual  = "MANUAL"
	SourceUnknown = "UNKNOWN_SOURCE"
)

// StatusOpen is the only investigation status the tool acts on.
const StatusOpen = "OPEN"

// Investigation is an open investigation as classified after a fetch.
type Investigation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	AlertType string `json:"alert_type,omitempty"`
}

// HasAlertType reports whether the investigation carried at least one nested
// alert record.
func (i Investigation) HasAlertType() bool {
	return i.AlertType != ""
}

// ClosureResult records the outcome of one bulk close call.
type ClosureResult struct {
	Source    string
	AlertType string
	NumClosed int
	Err       error
}

// Failed reports whether the closure call did not succeed.
func (r ClosureResult) Failed() bool {
	return r.Err != nil
}

// Group is a set of investigations closed by a single bulk close call.
type Group struct {
	Source    string
	AlertType string
	Items     []Investigation
}

// GroupBySource partitions investigations by source tag in first-seen order.
// For ALERT groups the alert type of the first member is used for the whole
// group.
func GroupBySource(invs []Investigation) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, inv := range invs {
		i, ok := index[inv.Source]
		if !ok {
			g := Group{Source: inv.Source}
			if inv.Source == SourceAlert {
				g.AlertType = inv.AlertType
			}
			index[inv.Source] = len(groups)
			groups = append(groups, g)
			i = len(groups) - 1
		}
		groups[i].Items = append(groups[i].Items, inv)
	}

	return groups
}

// GroupBySourceAndType partitions investigations by (source, alert type) so
// every distinct ALERT type gets its own closure call. Non-ALERT sources are
// grouped by source alone since the alert type is never sent for them.
func GroupBySourceAndType(invs []Investigation) []Group {
	type key struct{ source, alertType string }

	var groups []Group
	index := make(map[key]int)

	for _, inv := range invs {
		k := key{source: inv.Source}
		if inv.Source == SourceAlert {
			k.alertType = inv.AlertType
		}

		i, ok := index[k]
		if !ok {
			index[k] = len(groups)
			groups = append(groups, Group{Source: k.source, AlertType: k.alertType})
			i = len(groups) - 1
		}
		groups[i].Items = append(groups[i].Items, inv)
	}

	return groups
}
