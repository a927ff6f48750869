package service

import (
	"context"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
)

// InvestigationLister reads investigations from the platform.
type InvestigationLister interface {
	ListInvestigations(ctx context.Context, apiKey string, r investigation.DateRange) (*client.InvestigationsResponse, error)
}

// SnapshotSaver persists a raw listing response.
type SnapshotSaver interface {
	Save(raw []byte) error
}

// FetchState tells an empty result apart from a failed fetch.
type FetchState int

const (
	FetchFound FetchState = iota
	FetchEmpty
	FetchFailed
)

func (s FetchState) String() string {
	switch s {
	case FetchFound:
		return "found"
	case FetchEmpty:
		return "empty"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of one fetch. Investigations is empty unless
// State is FetchFound; Err is set only when State is FetchFailed.
type FetchResult struct {
	State          FetchState
	Investigations []investigation.Investigation
	Err            error
}

// Fetcher retrieves and classifies open investigations.
type Fetcher struct {
	api    InvestigationLister
	snap   SnapshotSaver
	logger *logging.Logger
}

// NewFetcher creates a Fetcher. snap may be nil to skip snapshots.
func NewFetcher(api InvestigationLister, snap SnapshotSaver, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{api: api, snap: snap, logger: logger}
}

// Fetch issues one listing request for r. Failures are logged and reported
// through the result, never returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, apiKey string, r investigation.DateRange) FetchResult {
	f.logger.InfoContext(ctx, "Fetching new alerts...",
		logging.FieldFrom, r.WireFrom(),
		logging.FieldTo, r.WireTo(),
	)

	resp, err := f.api.ListInvestigations(ctx, apiKey, r)
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to get investigations from InsightIDR", logging.Error(err))
		return FetchResult{State: FetchFailed, Err: err}
	}

	if f.snap != nil {
		if err := f.snap.Save(resp.Raw); err != nil {
			f.logger.ErrorContext(ctx, "Failed to save raw alerts snapshot", logging.Error(err))
		}
	}

	invs := Classify(resp.Data)
	f.logger.InfoContext(ctx, "Number of open alerts found", logging.Count(len(invs)))

	if len(invs) == 0 {
		return FetchResult{State: FetchEmpty}
	}
	return FetchResult{State: FetchFound, Investigations: invs}
}

// Classify keeps OPEN investigations in response order, defaulting a missing
// source and taking the alert type from the first nested alert.
func Classify(raw []client.RawInvestigation) []investigation.Investigation {
	var out []investigation.Investigation

	for _, r := range raw {
		if r.Status != investigation.StatusOpen {
			continue
		}

		inv := investigation.Investigation{
			ID:     r.ID,
			Title:  r.Title,
			Source: r.Source,
		}
		if inv.Source == "" {
			inv.Source = investigation.SourceUnknown
		}
		if len(r.Alerts) > 0 {
			inv.AlertType = r.Alerts[0].Type
		}

		out = append(out, inv)
	}

	return out
}
