package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/telhawk-systems/idrclose/internal/investigation"
)

const (
	// DefaultBaseURL is the InsightIDR API host for the us2 region.
	DefaultBaseURL = "https://us2.api.insight.rapid7.com"

	investigationsPath = "/idr/v1/investigations"
	bulkClosePath      = "/idr/v1/investigations/bulk_close"

	// APIKeyHeader carries the static platform API key.
	APIKeyHeader = "X-Api-Key"
)

// IDRClient talks to the InsightIDR investigations API.
type IDRClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures an IDRClient.
type Option func(*IDRClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *IDRClient) {
		c.client.Timeout = d
	}
}

// WithRateLimit throttles outgoing requests to rps per second.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *IDRClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *IDRClient) {
		c.client = hc
	}
}

// RegionURL returns the API base URL for a platform region such as "us2".
func RegionURL(region string) string {
	return fmt.Sprintf("https://%s.api.insight.rapid7.com", region)
}

func NewIDRClient(baseURL string, opts ...Option) *IDRClient {
	c := &IDRClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// InvestigationAlert is one nested alert record of an investigation.
type InvestigationAlert struct {
	Type string `json:"type"`
}

// RawInvestigation is an investigation as returned by the listing endpoint.
type RawInvestigation struct {
	ID     string               `json:"id"`
	Title  string               `json:"title"`
	Status string               `json:"status"`
	Source string               `json:"source,omitempty"`
	Alerts []InvestigationAlert `json:"alerts,omitempty"`
}

// InvestigationsResponse is the decoded listing response. Raw holds the body
// exactly as received.
type InvestigationsResponse struct {
	Data []RawInvestigation `json:"data"`
	Raw  json.RawMessage    `json:"-"`
}

// BulkCloseRequest is the body of a bulk close call.
type BulkCloseRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Source    string `json:"source"`
	AlertType string `json:"alert_type,omitempty"`
}

// NewBulkCloseRequest builds a closure body for one source. The alert type is
// only sent for ALERT sources.
func NewBulkCloseRequest(r investigation.DateRange, source, alertType string) BulkCloseRequest {
	req := BulkCloseRequest{
		From:   r.WireFrom(),
		To:     r.WireTo(),
		Source: source,
	}
	if source == investigation.SourceAlert && alertType != "" {
		req.AlertType = alertType
	}
	return req
}

// Response is the raw outcome of an API call.
type Response struct {
	StatusCode int
	Reason     string
	Body       []byte
}

// OK reports whether the call returned a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BulkCloseResponse is the decoded body of a successful bulk close call.
type BulkCloseResponse struct {
	NumClosed int `json:"num_closed"`
}

// DecodeBulkClose parses the num_closed count from a bulk close body.
func (r *Response) DecodeBulkClose() (*BulkCloseResponse, error) {
	var out BulkCloseResponse
	if err := json.Unmarshal(r.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return &out, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Reason     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api returned %d %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("api returned %d %s: %s", e.StatusCode, e.Reason, e.Body)
}

func (c *IDRClient) doRequest(ctx context.Context, method, path, apiKey string, query url.Values, body interface{}) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(bodyBytes)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(APIKeyHeader, apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     reason(resp),
		Body:       respBody,
	}, nil
}

// reason extracts the status text, e.g. "Not Found" from "404 Not Found".
func reason(resp *http.Response) string {
	if text, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// ListInvestigations fetches investigations with status OPEN created in r.
func (c *IDRClient) ListInvestigations(ctx context.Context, apiKey string, r investigation.DateRange) (*InvestigationsResponse, error) {
	query := url.Values{}
	query.Set("start_time", r.WireFrom())
	query.Set("end_time", r.WireTo())
	query.Set("statuses", investigation.StatusOpen)

	resp, err := c.doRequest(ctx, http.MethodGet, investigationsPath, apiKey, query, nil)
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		return nil, &APIError{StatusCode: resp.StatusCode, Reason: resp.Reason, Body: string(resp.Body)}
	}

	var out InvestigationsResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode investigations: %w", err)
	}
	out.Raw = resp.Body

	return &out, nil
}

// BulkClose closes every investigation matching req. The raw outcome is
// returned for any HTTP status; err is only set when no response was received.
func (c *IDRClient) BulkClose(ctx context.Context, apiKey string, req BulkCloseRequest) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, bulkClosePath, apiKey, nil, req)
}
