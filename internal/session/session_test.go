package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
	"github.com/telhawk-systems/idrclose/internal/service"
	"github.com/telhawk-systems/idrclose/pkg/output"
)

// scriptedPrompter answers prompts from a fixed list and returns io.EOF once
// the list is exhausted.
type scriptedPrompter struct {
	answers []string
	prompts []string
	secrets int
}

func (p *scriptedPrompter) next(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func (p *scriptedPrompter) ReadLine(prompt string) (string, error) {
	return p.next(prompt)
}

func (p *scriptedPrompter) ReadSecret(prompt string) (string, error) {
	p.secrets++
	return p.next(prompt)
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, apiKey string, r investigation.DateRange) service.FetchResult
	calls     []investigation.DateRange
	keys      []string
}

func (m *mockFetcher) Fetch(ctx context.Context, apiKey string, r investigation.DateRange) service.FetchResult {
	m.calls = append(m.calls, r)
	m.keys = append(m.keys, apiKey)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, apiKey, r)
	}
	return service.FetchResult{State: service.FetchEmpty}
}

type mockCloser struct {
	groupedFunc  func(invs []investigation.Investigation) service.GroupedSummary
	selectedFunc func(invs []investigation.Investigation, sel investigation.Selection) []service.SelectionOutcome
	grouped      int
	selections   []investigation.Selection
}

func (m *mockCloser) CloseGrouped(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation) service.GroupedSummary {
	m.grouped++
	if m.groupedFunc != nil {
		return m.groupedFunc(invs)
	}
	return service.GroupedSummary{}
}

func (m *mockCloser) CloseSelected(ctx context.Context, apiKey string, r investigation.DateRange, invs []investigation.Investigation, sel investigation.Selection) []service.SelectionOutcome {
	m.selections = append(m.selections, sel)
	if m.selectedFunc != nil {
		return m.selectedFunc(invs, sel)
	}
	return nil
}

var sampleInvestigations = []investigation.Investigation{
	{ID: "1", Title: "Phishing email reported", Source: "ALERT", AlertType: "phishing"},
	{ID: "2", Title: "Manual case", Source: "MANUAL"},
	{ID: "3", Title: "Malware beacon", Source: "ALERT", AlertType: "malware"},
	{ID: "4", Title: "Lateral movement", Source: "ALERT", AlertType: "lateral"},
}

func foundFetcher() *mockFetcher {
	return &mockFetcher{
		fetchFunc: func(ctx context.Context, apiKey string, r investigation.DateRange) service.FetchResult {
			return service.FetchResult{State: service.FetchFound, Investigations: sampleInvestigations}
		},
	}
}

type harness struct {
	prompter *scriptedPrompter
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	log      *bytes.Buffer
}

func newSession(answers []string, f Fetcher, c Closer) (*Session, *harness) {
	output.DisableColor()
	h := &harness{
		prompter: &scriptedPrompter{answers: answers},
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
		log:      &bytes.Buffer{},
	}
	logger := logging.New(slog.LevelDebug, "text", h.log)
	return New(h.prompter, f, c, output.New(h.out, h.errOut), logger), h
}

func TestRun_BlankAPIKeyReprompts(t *testing.T) {
	f := &mockFetcher{}
	s, h := newSession([]string{"", "key-1", "2018-06-06", "2018-06-07", "2"}, f, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 2, h.prompter.secrets)
	assert.Contains(t, h.errOut.String(), "API Key cannot be blank. Please try again.")
	assert.Equal(t, []string{"key-1"}, f.keys)
}

func TestRun_InvalidDateRepromptsSameField(t *testing.T) {
	f := &mockFetcher{}
	s, h := newSession([]string{"key", "", "2018/06/06", "2018-06-06", "nope", "2018-06-07", "2"}, f, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, h.errOut.String(), "Date cannot be blank.")
	assert.Equal(t, 2, strings.Count(h.errOut.String(), "Invalid date format. Please use the format YYYY-MM-DD."))
	require.Len(t, f.calls, 1)
	assert.Equal(t, "2018-06-06T00:00:00Z", f.calls[0].WireFrom())
	assert.Equal(t, "2018-06-07T00:00:00Z", f.calls[0].WireTo())

	// start, start, start, end, end
	assert.Equal(t, []string{promptAPIKey, promptStartDate, promptStartDate, promptStartDate, promptEndDate, promptEndDate, menuNoResults}, h.prompter.prompts)
}

func TestRun_ReversedRangeRepromptsPair(t *testing.T) {
	f := &mockFetcher{}
	s, h := newSession([]string{"key", "2018-06-07", "2018-06-06", "2018-06-01", "2018-06-02", "2"}, f, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, h.errOut.String(), "Start date must be before the end date. Please try again.")
	require.Len(t, f.calls, 1)
	assert.Equal(t, "2018-06-01T00:00:00Z", f.calls[0].WireFrom())
}

func TestRun_NoResultsNewRangeKeepsAPIKey(t *testing.T) {
	f := &mockFetcher{}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "5", "1", "2019-01-01", "2019-01-02", "2"}, f, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, h.prompter.secrets)
	assert.Equal(t, []string{"key", "key"}, f.keys)
	assert.Contains(t, h.out.String(), "No open investigations found.")
	assert.Contains(t, h.errOut.String(), "Invalid choice. Please enter 1 or 2.")
	assert.Contains(t, h.log.String(), "Exiting the script.")
}

func TestRun_FetchFailureIsDistinct(t *testing.T) {
	f := &mockFetcher{
		fetchFunc: func(ctx context.Context, apiKey string, r investigation.DateRange) service.FetchResult {
			return service.FetchResult{State: service.FetchFailed, Err: &client.APIError{StatusCode: 401, Reason: "Unauthorized"}}
		},
	}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "2"}, f, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, h.errOut.String(), "Could not fetch investigations: api returned 401 Unauthorized")
	assert.NotContains(t, h.out.String(), "No open investigations found.")
}

func TestRun_GroupedCloseThenExit(t *testing.T) {
	c := &mockCloser{
		groupedFunc: func(invs []investigation.Investigation) service.GroupedSummary {
			return service.GroupedSummary{
				Results: []investigation.ClosureResult{
					{Source: "ALERT", AlertType: "phishing", NumClosed: 3},
					{Source: "MANUAL", NumClosed: 1},
				},
				Total: 4,
			}
		},
	}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "7", "1", "3"}, foundFetcher(), c)

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, c.grouped)
	out := h.out.String()
	assert.Contains(t, out, "Number of open alerts found: 4")
	assert.Contains(t, out, "Phishing email reported")
	assert.Contains(t, out, "Closed 3 ALERT source investigations.")
	assert.Contains(t, out, "Total closed alerts: 4")
	assert.Contains(t, h.errOut.String(), "Invalid choice. Please enter 1, 2, or 3.")
}

func TestRun_GroupedCloseMoreReturnsToMenu(t *testing.T) {
	c := &mockCloser{}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "1", "1", "3"}, foundFetcher(), c)

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 1, c.grouped)
	assert.Equal(t, []string{promptAPIKey, promptStartDate, promptEndDate, menuActions, menuPostClose, menuActions}, h.prompter.prompts)
}

func TestRun_SelectiveCloseStopsAtZero(t *testing.T) {
	c := &mockCloser{
		selectedFunc: func(invs []investigation.Investigation, sel investigation.Selection) []service.SelectionOutcome {
			var out []service.SelectionOutcome
			for _, idx := range sel.Indices {
				out = append(out, service.SelectionOutcome{Investigation: invs[idx], Status: service.SelectionClosed})
			}
			return out
		},
	}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "2", "1,3,0,5", "3"}, foundFetcher(), c)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, c.selections, 1)
	assert.Equal(t, []int{0, 2}, c.selections[0].Indices)
	assert.True(t, c.selections[0].Return)
	assert.Contains(t, h.out.String(), "Successfully closed alert: Phishing email reported")
	assert.Contains(t, h.out.String(), "Successfully closed alert: Malware beacon")
	assert.NotContains(t, h.out.String(), "Successfully closed alert: Lateral movement")
	// 0 returns to the action menu, where 3 exits.
	assert.Equal(t, menuActions, h.prompter.prompts[len(h.prompter.prompts)-1])
}

func TestRun_SelectiveCloseMoreReshowsList(t *testing.T) {
	c := &mockCloser{
		selectedFunc: func(invs []investigation.Investigation, sel investigation.Selection) []service.SelectionOutcome {
			return []service.SelectionOutcome{
				{Investigation: invs[1], Status: service.SelectionSkipped},
				{Investigation: invs[0], Status: service.SelectionFailed},
			}
		},
	}
	s, h := newSession([]string{"key", "2018-06-06", "2018-06-07", "2", "2,1", "1", "4", "2", "2019-01-01", "2019-01-01", "3"}, foundFetcher(), c)

	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, c.selections, 2)
	assert.Equal(t, 2, strings.Count(h.out.String(), "1. Phishing email reported\n"))
	assert.Contains(t, h.out.String(), "Alert type missing for investigation: Manual case")
	assert.Contains(t, h.errOut.String(), "Failed to close alert: Phishing email reported")
}

func TestRun_EOFExitsCleanly(t *testing.T) {
	s, h := newSession([]string{"key", "2018-06-06"}, &mockFetcher{}, &mockCloser{})

	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, h.log.String(), "Input closed")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newSession([]string{"key"}, &mockFetcher{}, &mockCloser{})
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
}

func TestRun_WithAPIKeySkipsPrompt(t *testing.T) {
	f := &mockFetcher{}
	s, h := newSession([]string{"2018-06-06", "2018-06-07", "2"}, f, &mockCloser{})

	require.NoError(t, s.WithAPIKey("preset").Run(context.Background()))

	assert.Zero(t, h.prompter.secrets)
	assert.Equal(t, []string{"preset"}, f.keys)
}

func TestRun_LogsSessionID(t *testing.T) {
	s, h := newSession(nil, &mockFetcher{}, &mockCloser{})

	ctx := logging.WithSessionID(context.Background(), "sess-42")
	require.NoError(t, s.Run(ctx))

	assert.Contains(t, h.log.String(), "session_id=sess-42")
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  int
		ok    bool
	}{
		{"1", 2, 1, true},
		{"2", 2, 2, true},
		{"3", 2, 0, false},
		{"3", 3, 3, true},
		{"0", 3, 0, false},
		{" 1", 3, 0, false},
		{"01", 3, 0, false},
		{"+1", 3, 0, false},
		{"", 3, 0, false},
		{"one", 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseChoice(tt.input, tt.n)
			if !tt.ok {
				assert.ErrorIs(t, err, errInvalidChoice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "await_api_key", stateAwaitAPIKey.String())
	assert.Equal(t, "post_close", statePostClose.String())
	assert.Equal(t, "unknown", state(99).String())
}

// fakeIDR is a minimal in-memory InsightIDR used for end-to-end runs.
type fakeIDR struct {
	mu      sync.Mutex
	list    string
	posts   []map[string]interface{}
	listErr int
}

func (f *fakeIDR) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /idr/v1/investigations", func(w http.ResponseWriter, r *http.Request) {
		if f.listErr != 0 {
			w.WriteHeader(f.listErr)
			return
		}
		_, _ = w.Write([]byte(f.list))
	})
	mux.HandleFunc("POST /idr/v1/investigations/bulk_close", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.posts = append(f.posts, body)
		f.mu.Unlock()

		n := 2
		if body["source"] == "MANUAL" {
			n = 5
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"num_closed": n})
	})
	return mux
}

func TestRun_EndToEndGroupedClose(t *testing.T) {
	idr := &fakeIDR{list: `{"data":[
		{"id":"a","title":"Phish 1","status":"OPEN","source":"ALERT","alerts":[{"type":"phishing"}]},
		{"id":"b","title":"Phish 2","status":"OPEN","source":"ALERT","alerts":[{"type":"malware"}]},
		{"id":"c","title":"Case","status":"OPEN","source":"MANUAL"},
		{"id":"d","title":"Old","status":"CLOSED","source":"MANUAL"}
	]}`}
	server := httptest.NewServer(idr.handler(t))
	defer server.Close()

	api := client.NewIDRClient(server.URL)
	var logBuf bytes.Buffer
	logger := logging.New(slog.LevelInfo, "text", &logBuf)

	output.DisableColor()
	var out bytes.Buffer
	prompter := &scriptedPrompter{answers: []string{"key", "2018-06-06", "2018-06-07", "1", "3"}}
	s := New(prompter, service.NewFetcher(api, nil, logger), service.NewCloser(api, logger), output.New(&out, &out), logger)

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, idr.posts, 2)
	assert.Equal(t, map[string]interface{}{"from": "2018-06-06T00:00:00Z", "to": "2018-06-07T00:00:00Z", "source": "ALERT", "alert_type": "phishing"}, idr.posts[0])
	assert.Equal(t, map[string]interface{}{"from": "2018-06-06T00:00:00Z", "to": "2018-06-07T00:00:00Z", "source": "MANUAL"}, idr.posts[1])
	assert.Contains(t, out.String(), "Total closed alerts: 7")
	assert.Contains(t, logBuf.String(), "Total closed alerts: 7")
}

func TestRun_EndToEndFetchServerError(t *testing.T) {
	idr := &fakeIDR{listErr: http.StatusInternalServerError}
	server := httptest.NewServer(idr.handler(t))
	defer server.Close()

	api := client.NewIDRClient(server.URL)
	var logBuf bytes.Buffer
	logger := logging.New(slog.LevelInfo, "text", &logBuf)

	output.DisableColor()
	var out bytes.Buffer
	prompter := &scriptedPrompter{answers: []string{"key", "2018-06-06", "2018-06-07", "2"}}
	s := New(prompter, service.NewFetcher(api, nil, logger), service.NewCloser(api, logger), output.New(&out, &out), logger)

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, idr.posts)
	assert.Contains(t, logBuf.String(), "level=ERROR")
	assert.Contains(t, out.String(), "Could not fetch investigations")
}
