package service

import (
	"context"
	"fmt"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
)

// BulkCloser issues bulk close calls.
type BulkCloser interface {
	BulkClose(ctx context.Context, apiKey string, req client.BulkCloseRequest) (*client.Response, error)
}

// Closer dispatches closure calls, either one per source group or one per
// selected investigation.
type Closer struct {
	api             BulkCloser
	logger          *logging.Logger
	splitAlertTypes bool
}

// CloserOption configures a Closer.
type CloserOption func(*Closer)

// WithSplitAlertTypes makes grouped closure issue one call per distinct
// (source, alert type) pair instead of one per source.
func WithSplitAlertTypes(split bool) CloserOption {
	return func(c *Closer) {
		c.splitAlertTypes = split
	}
}

func NewCloser(api BulkCloser, logger *logging.Logger, opts ...CloserOption) *Closer {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Closer{api: api, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close issues a single bulk close call and logs its outcome.
func (c *Closer) Close(ctx context.Context, apiKey string, r investigation.DateRange, source, alertType string) (*client.Response, error) {
	req := client.NewBulkCloseRequest(r, source, alertType)

	target := []any{logging.Source(source)}
	if req.AlertType != "" {
		target = append(target, logging.AlertType(req.AlertType))
	}

	resp, err := c.api.BulkClose(ctx, apiKey, req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Bulk close request failed", append(target, logging.Error(err))...)
		return nil, err
	}

	c.logger.InfoContext(ctx, "Bulk close response", append(target,
		logging.Status(resp.StatusCode),
		logging.Reason(resp.Reason),
		logging.Body(string(resp.Body)),
	)...)
	return resp, nil
}

// GroupedSummary accumulates the outcome of a grouped closure.
type GroupedSummary struct {
	Results []investigation.ClosureResult
	Total   int
}

// Failures counts groups whose closure did not succeed.
func (s GroupedSummary) Failures() int {
	n := 0
	for _, r := range s.Results {
		if r.Failed() {
			n++
		}
	}
	return n
}

// CloseGrouped issues one closure call per group of invs. A body that cannot
// be parsed counts as zero closed for that group.
func (c *Closer) CloseGrouped(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation) GroupedSummary {
	groups := investigation.GroupBySource(invs)
	if c.splitAlertTypes {
		groups = investigation.GroupBySourceAndType(invs)
	}

	var summary GroupedSummary
	for _, g := range groups {
		result := c.closeGroup(ctx, apiKey, r, g)
		summary.Results = append(summary.Results, result)
		summary.Total += result.NumClosed
	}

	c.logger.InfoContext(ctx, fmt.Sprintf("Total closed alerts: %d", summary.Total), logging.Count(summary.Total))
	return summary
}

func (c *Closer) closeGroup(ctx context.Context, apiKey string, r investigation.DateRange, g investigation.Group) investigation.ClosureResult {
	result := investigation.ClosureResult{Source: g.Source, AlertType: g.AlertType}

	resp, err := c.Close(ctx, apiKey, r, g.Source, g.AlertType)
	if err != nil {
		result.Err = err
		return result
	}

	if !resp.OK() {
		result.Err = &client.APIError{StatusCode: resp.StatusCode, Reason: resp.Reason, Body: string(resp.Body)}
		c.logger.ErrorContext(ctx, fmt.Sprintf("Failed to close %s source investigations.", g.Source), logging.Source(g.Source))
		return result
	}

	decoded, err := resp.DecodeBulkClose()
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to parse response JSON.", logging.Source(g.Source), logging.Error(err))
		return result
	}

	result.NumClosed = decoded.NumClosed
	c.logger.InfoContext(ctx, fmt.Sprintf("Closed %d %s source investigations.", decoded.NumClosed, g.Source),
		logging.Source(g.Source),
		logging.Count(decoded.NumClosed),
	)
	return result
}

// SelectionStatus is the outcome for one selected investigation.
type SelectionStatus int

const (
	SelectionClosed SelectionStatus = iota
	SelectionFailed
	SelectionSkipped
)

// SelectionOutcome pairs a selected investigation with what happened to it.
type SelectionOutcome struct {
	Investigation investigation.Investigation
	Status        SelectionStatus
	Err           error
}

// CloseSelected closes each selected investigation with its own source and
// alert type. Investigations without an alert type are skipped.
func (c *Closer) CloseSelected(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation, sel investigation.Selection) []SelectionOutcome {
	c.logger.InfoContext(ctx, "Processing specific alert closures...", logging.Count(len(sel.Indices)))

	var outcomes []SelectionOutcome
	for _, idx := range sel.Indices {
		if idx < 0 || idx >= len(invs) {
			continue
		}
		inv := invs[idx]

		if !inv.HasAlertType() {
			c.logger.WarnContext(ctx, "Alert type missing for investigation", logging.Title(inv.Title))
			outcomes = append(outcomes, SelectionOutcome{Investigation: inv, Status: SelectionSkipped})
			continue
		}

		resp, err := c.Close(ctx, apiKey, r, inv.Source, inv.AlertType)
		switch {
		case err != nil:
			outcomes = append(outcomes, SelectionOutcome{Investigation: inv, Status: SelectionFailed, Err: err})
		case !resp.OK():
			outcomes = append(outcomes, SelectionOutcome{
				Investigation: inv,
				Status:        SelectionFailed,
				Err:           &client.APIError{StatusCode: resp.StatusCode, Reason: resp.Reason, Body: string(resp.Body)},
			})
		default:
			outcomes = append(outcomes, SelectionOutcome{Investigation: inv, Status: SelectionClosed})
		}
	}

	return outcomes
}
