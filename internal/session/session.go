// Package session drives the interactive closure workflow: API key entry,
// date range collection, fetching, and the closure menus.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
	"github.com/telhawk-systems/idrclose/internal/service"
	"github.com/telhawk-systems/idrclose/pkg/output"
)

// Prompter collects answers from the analyst.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadSecret(prompt string) (string, error)
}

// Fetcher retrieves open investigations for a date range.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey string, r investigation.DateRange) service.FetchResult
}

// Closer closes investigations grouped by source or one at a time.
type Closer interface {
	CloseGrouped(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation) service.GroupedSummary
	CloseSelected(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation, sel investigation.Selection) []service.SelectionOutcome
}

type state int

const (
	stateAwaitAPIKey state = iota
	stateAwaitDateRange
	stateFetching
	stateNoResults
	stateHasResults
	stateGroupedClose
	stateSelectiveClose
	statePostClose
	stateDone
)

func (s state) String() string {
	switch s {
	case stateAwaitAPIKey:
		return "await_api_key"
	case stateAwaitDateRange:
		return "await_date_range"
	case stateFetching:
		return "fetching"
	case stateNoResults:
		return "no_results"
	case stateHasResults:
		return "has_results"
	case stateGroupedClose:
		return "grouped_close"
	case stateSelectiveClose:
		return "selective_close"
	case statePostClose:
		return "post_close"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Session holds the state of one interactive run. The API key is kept for
// the lifetime of the Session once entered.
type Session struct {
	prompter Prompter
	fetcher  Fetcher
	closer   Closer
	printer  *output.Printer
	logger   *logging.Logger

	apiKey     string
	dates      investigation.DateRange
	invs       []investigation.Investigation
	lastAction state
}

func New(prompter Prompter, fetcher Fetcher, closer Closer, printer *output.Printer, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		prompter: prompter,
		fetcher:  fetcher,
		closer:   closer,
		printer:  printer,
		logger:   logger,
	}
}

// WithAPIKey pre-seeds the API key so the session starts at date entry.
func (s *Session) WithAPIKey(key string) *Session {
	s.apiKey = key
	return s
}

// Run drives the session until the analyst exits, input ends, or ctx is
// cancelled. End of input is treated as an exit.
func (s *Session) Run(ctx context.Context) error {
	if logging.SessionIDFrom(ctx) == "" {
		ctx = logging.WithSessionID(ctx, logging.NewSessionID())
	}
	s.logger.InfoContext(ctx, "Session started")

	st := stateAwaitAPIKey
	if s.apiKey != "" {
		st = stateAwaitDateRange
	}

	for st != stateDone {
		if err := ctx.Err(); err != nil {
			s.logger.WarnContext(ctx, "Session interrupted", logging.Error(err))
			return err
		}

		next, err := s.step(ctx, st)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.InfoContext(ctx, "Input closed, exiting.")
				return nil
			}
			return err
		}

		s.logger.DebugContext(ctx, "State transition", "from", st.String(), "to", next.String())
		st = next
	}

	s.logger.InfoContext(ctx, "Exiting the script.")
	return nil
}

func (s *Session) step(ctx context.Context, st state) (state, error) {
	switch st {
	case stateAwaitAPIKey:
		return s.awaitAPIKey(ctx)
	case stateAwaitDateRange:
		return s.awaitDateRange(ctx)
	case stateFetching:
		return s.fetch(ctx), nil
	case stateNoResults:
		return s.noResults(ctx)
	case stateHasResults:
		return s.hasResults(ctx)
	case stateGroupedClose:
		return s.groupedClose(ctx), nil
	case stateSelectiveClose:
		return s.selectiveClose(ctx)
	case statePostClose:
		return s.postClose(ctx)
	default:
		return stateDone, nil
	}
}
