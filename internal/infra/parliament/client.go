// internal/infra/parliament/client.go
package parliament

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"parties_snapshot_fetcher/internal/domain/snapshot"
)

const (
	DefaultBaseURL = "https://members-api.parliament.uk"
	DefaultTimeout = 10 * time.Second

	// House 1 is the House of Commons.
	stateOfThePartiesPath = "/api/Parties/StateOfTheParties/1/"
)

// ErrInvalidPayload is returned when a 200 response body is not valid JSON.
var ErrInvalidPayload = errors.New("response body is not valid JSON")

// StatusError is returned when the API answers with anything other than 200.
type StatusError struct {
	Date       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("no data for %s (status %d)", e.Date, e.StatusCode)
}

// Client fetches State of the Parties snapshots from the Members API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client against baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// URLFor returns the endpoint for the given date.
func (c *Client) URLFor(date time.Time) string {
	return c.baseURL + stateOfThePartiesPath + date.Format(snapshot.DateLayout)
}

// FetchStateOfTheParties issues a single GET for date. It never retries.
// A non-200 answer yields *StatusError; anything else is a transport or payload error.
func (c *Client) FetchStateOfTheParties(ctx context.Context, date time.Time) (*snapshot.Snapshot, error) {
	dateStr := date.Format(snapshot.DateLayout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URLFor(date), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body) // Drain so the connection can be reused
		return nil, &StatusError{Date: dateStr, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}

	return &snapshot.Snapshot{
		Date:      snapshot.FirstOfMonth(date),
		Payload:   json.RawMessage(body),
		FetchedAt: c.now().UTC(),
	}, nil
}
