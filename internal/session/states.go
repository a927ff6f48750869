package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
	"github.com/telhawk-systems/idrclose/internal/service"
)

const (
	promptAPIKey    = "Enter your API Key: "
	promptStartDate = "Enter the start date (YYYY-MM-DD e.g., 2018-06-06): "
	promptEndDate   = "Enter the end date (YYYY-MM-DD e.g., 2018-06-07): "
	promptSelection = "Enter alert numbers to close (comma-separated, 0 to return to the main menu): "

	menuNoResults = "Do you want to: \n1. Enter a different date range\n2. Exit\nEnter your choice (1 or 2): "
	menuActions   = "Menu: Do you want to close alerts?\n1. Close all listed alerts, grouped by source\n2. Close specific alerts\n3. Exit\nEnter your choice (1, 2, or 3): "
	menuPostClose = "\nDo you want to:\n1. Close other alerts\n2. Enter a different date range\n3. Exit\nEnter your choice (1, 2, or 3): "
)

func (s *Session) awaitAPIKey(ctx context.Context) (state, error) {
	key, err := s.prompter.ReadSecret(promptAPIKey)
	if err != nil {
		return stateAwaitAPIKey, err
	}
	if key == "" {
		s.printer.Error("API Key cannot be blank. Please try again.")
		s.logger.WarnContext(ctx, "Blank API key entered")
		return stateAwaitAPIKey, nil
	}

	s.apiKey = key
	return stateAwaitDateRange, nil
}

func (s *Session) awaitDateRange(ctx context.Context) (state, error) {
	for {
		from, err := s.readDate(ctx, promptStartDate)
		if err != nil {
			return stateAwaitDateRange, err
		}
		to, err := s.readDate(ctx, promptEndDate)
		if err != nil {
			return stateAwaitDateRange, err
		}

		r, err := investigation.NewDateRange(from, to)
		if err != nil {
			s.printer.Error("%s", err)
			s.logger.WarnContext(ctx, err.Error())
			continue
		}

		s.dates = r
		return stateFetching, nil
	}
}

// readDate re-prompts the same field until it parses.
func (s *Session) readDate(ctx context.Context, prompt string) (time.Time, error) {
	for {
		input, err := s.prompter.ReadLine(prompt)
		if err != nil {
			return time.Time{}, err
		}

		d, err := investigation.ParseDate(input)
		if err != nil {
			s.printer.Error("%s", err)
			s.logger.WarnContext(ctx, err.Error())
			continue
		}
		return d, nil
	}
}

func (s *Session) fetch(ctx context.Context) state {
	result := s.fetcher.Fetch(ctx, s.apiKey, s.dates)

	switch result.State {
	case service.FetchFound:
		s.invs = result.Investigations
		s.printer.Info("Number of open alerts found: %d", len(s.invs))
		return stateHasResults
	case service.FetchFailed:
		s.invs = nil
		s.printer.Error("Could not fetch investigations: %v", result.Err)
		return stateNoResults
	default:
		s.invs = nil
		s.printer.Info("No open investigations found.")
		return stateNoResults
	}
}

func (s *Session) noResults(ctx context.Context) (state, error) {
	choice, err := s.choose(ctx, menuNoResults, 2)
	if err != nil {
		return stateNoResults, err
	}
	if choice == 1 {
		return stateAwaitDateRange, nil
	}
	return stateDone, nil
}

func (s *Session) hasResults(ctx context.Context) (state, error) {
	s.showInvestigations()

	choice, err := s.choose(ctx, menuActions, 3)
	if err != nil {
		return stateHasResults, err
	}

	switch choice {
	case 1:
		return stateGroupedClose, nil
	case 2:
		return stateSelectiveClose, nil
	default:
		return stateDone, nil
	}
}

func (s *Session) showInvestigations() {
	table := s.printer.NewTable([]string{"#", "Title", "Source", "Alert Type"})
	for i, inv := range s.invs {
		table.AddRow([]string{strconv.Itoa(i + 1), inv.Title, inv.Source, inv.AlertType})
	}
	table.Render()
}

func (s *Session) groupedClose(ctx context.Context) state {
	summary := s.closer.CloseGrouped(ctx, s.apiKey, s.dates, s.invs)

	for _, r := range summary.Results {
		if r.Failed() {
			s.printer.Error("Failed to close %s source investigations: %v", r.Source, r.Err)
			continue
		}
		s.printer.Success("Closed %d %s source investigations.", r.NumClosed, r.Source)
	}
	s.printer.Info("Total closed alerts: %d", summary.Total)

	s.lastAction = stateGroupedClose
	return statePostClose
}

func (s *Session) selectiveClose(ctx context.Context) (state, error) {
	for i, inv := range s.invs {
		s.printer.Plain("%d. %s\n", i+1, inv.Title)
	}

	input, err := s.prompter.ReadLine(promptSelection)
	if err != nil {
		return stateSelectiveClose, err
	}

	sel := investigation.ParseSelection(input, len(s.invs))
	outcomes := s.closer.CloseSelected(ctx, s.apiKey, s.dates, s.invs, sel)

	for _, o := range outcomes {
		switch o.Status {
		case service.SelectionClosed:
			s.printer.Success("Successfully closed alert: %s", o.Investigation.Title)
		case service.SelectionFailed:
			s.printer.Error("Failed to close alert: %s", o.Investigation.Title)
		case service.SelectionSkipped:
			s.printer.Warn("Alert type missing for investigation: %s", o.Investigation.Title)
		}
	}

	if sel.Return {
		return stateHasResults, nil
	}

	s.lastAction = stateSelectiveClose
	return statePostClose, nil
}

func (s *Session) postClose(ctx context.Context) (state, error) {
	choice, err := s.choose(ctx, menuPostClose, 3)
	if err != nil {
		return statePostClose, err
	}

	switch choice {
	case 1:
		if s.lastAction == stateSelectiveClose {
			return stateSelectiveClose, nil
		}
		return stateHasResults, nil
	case 2:
		return stateAwaitDateRange, nil
	default:
		return stateDone, nil
	}
}

var errInvalidChoice = errors.New("invalid choice")

// choose shows menu until the answer is a number in 1..n.
func (s *Session) choose(ctx context.Context, menu string, n int) (int, error) {
	for {
		input, err := s.prompter.ReadLine(menu)
		if err != nil {
			return 0, err
		}

		choice, err := parseChoice(input, n)
		if err != nil {
			s.printer.Error("%s", invalidChoiceMessage(n))
			s.logger.WarnContext(ctx, "Invalid menu choice", "input", input)
			continue
		}
		s.logger.DebugContext(ctx, "Menu choice", logging.Count(choice))
		return choice, nil
	}
}

func parseChoice(input string, n int) (int, error) {
	v, err := strconv.Atoi(input)
	if err != nil || v < 1 || v > n || strconv.Itoa(v) != input {
		return 0, errInvalidChoice
	}
	return v, nil
}

func invalidChoiceMessage(n int) string {
	if n == 2 {
		return "Invalid choice. Please enter 1 or 2."
	}
	return "Invalid choice. Please enter 1, 2, or 3."
}
