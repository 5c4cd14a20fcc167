// Package backend implements the REST client for the external audio-generation
// backend: the system that owns script generation, audio synthesis,
// transcription, and reprocessing.
//
// Revisor only ever reads request state and submits retry documents; it never
// mutates scripts directly. Calls are wrapped in a [CircuitBreaker] so a
// flapping backend is bypassed quickly instead of hammered, and submission
// failures are surfaced to the operator while their local ledger state stays
// untouched (the ledger is the retry buffer).
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hipnotiq/revisor/pkg/retry"
	"github.com/hipnotiq/revisor/pkg/script"
)

// ErrNotFound is returned when the backend reports no audio request with the
// given ID.
var ErrNotFound = errors.New("audio request not found")

// AudioRequest is the backend's view of one generation request.
type AudioRequest struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Status   string           `json:"status"`
	Sections []script.Section `json:"sections"`
}

// StatusError is returned for non-2xx backend responses that are not plain
// not-found. Body holds the backend's raw error text, stored opaquely — the
// dashboard displays it verbatim rather than scraping fields out of it.
type StatusError struct {
	Code int
	Body string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Option is a functional option for configuring a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Useful in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout caps each backend request. Default: 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) {
		c.breaker = cb
	}
}

// Client talks to the generation backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *CircuitBreaker
}

// New constructs a backend client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: baseURL must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("backend: parse baseURL: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: NewCircuitBreaker(CircuitBreakerConfig{Name: "generation-backend"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchRequest retrieves the full section/audio state for requestID.
// Returns [ErrNotFound] when the backend has no such request and
// [ErrCircuitOpen] when the breaker is rejecting calls.
func (c *Client) FetchRequest(ctx context.Context, requestID string) (*AudioRequest, error) {
	var out *AudioRequest
	var notFound bool
	err := c.breaker.Execute(func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/requests/"+url.PathEscape(requestID), nil)
		if err != nil {
			return err
		}
		body, err := c.do(req)
		if errors.Is(err, ErrNotFound) {
			// A clean 404 is a healthy backend answering; it must not trip
			// the breaker.
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}

		ar := &AudioRequest{}
		if err := json.Unmarshal(body, ar); err != nil {
			return fmt.Errorf("backend: decode request %s: %w", requestID, err)
		}
		out = ar
		return nil
	})
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, ErrNotFound
	}
	return out, nil
}

// SubmitReprocess sends the retry document for requestID to the backend's
// reprocess endpoint as a PUT. The document's JSON shape (sectionId,
// remakeALL, textToUse, regen) is the wire contract; the backend consumes the
// body directly.
//
// The call has whole-request semantics: either the backend accepts the
// complete document or the submission failed. The caller's ledger must not be
// cleared in either case.
func (c *Client) SubmitReprocess(ctx context.Context, requestID string, doc retry.Document) error {
	return c.breaker.Execute(func() error {
		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("backend: encode retry document: %w", err)
		}

		req, err := c.newRequest(ctx, http.MethodPut, "/requests/"+url.PathEscape(requestID)+"/retry", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		_, err = c.do(req)
		return err
	})
}

// Ping probes backend reachability for readiness checks. Any parseable HTTP
// response counts as reachable; the breaker is deliberately bypassed so a
// tripped breaker doesn't mask recovery.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: ping: %w", err)
	}
	resp.Body.Close()
	return nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() State {
	return c.breaker.State()
}

// newRequest builds an authenticated request for the given API path.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and returns the response body for 2xx responses. 404 maps
// to [ErrNotFound]; other non-2xx codes map to [StatusError] with the raw
// body preserved.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
