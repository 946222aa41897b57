// Package apiclient talks to the prescription backend (prescriptions, presets
// and the AI draft endpoints) and to the rxpad suggestion service. Every call
// goes through a circuit breaker so a failing backend is not hammered.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/rxpad/logging"
	"github.com/giygas/rxpad/metrics"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

const maxErrorBody = 64 * 1024

// BreakerConfig tunes the circuit breaker
type BreakerConfig struct {
	MaxRequests         uint32        // allowed in half-open state
	Interval            time.Duration // counts reset period while closed
	Timeout             time.Duration // open period before half-open
	ConsecutiveFailures uint32        // failures that open the circuit
}

// DefaultBreakerConfig returns the settings used by New
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// Client is a JSON client for one base URL
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// Option customizes a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	breaker    BreakerConfig
	name       string
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithBreaker replaces the default breaker settings
func WithBreaker(cfg BreakerConfig) Option {
	return func(o *clientOptions) { o.breaker = cfg }
}

// New creates a client for baseURL
func New(baseURL string, opts ...Option) *Client {
	o := clientOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    DefaultBreakerConfig(),
		name:       "backend",
	}
	for _, opt := range opts {
		opt(&o)
	}

	settings := gobreaker.Settings{
		Name:        o.name,
		MaxRequests: o.breaker.MaxRequests,
		Interval:    o.breaker.Interval,
		Timeout:     o.breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.breaker.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err) || errors.Is(err, context.Canceled)
		},
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.httpClient,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// BreakerState returns the current breaker state name
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// do sends one request. in is encoded as JSON when not nil, out is decoded when not nil.
func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, operation, method, path, in, out)
	})

	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			// Rejected by the breaker without a request
			apiErr = newAPIError(operation, http.StatusServiceUnavailable, "circuit open: "+err.Error(), err)
			err = apiErr
		}
		metrics.BackendRequestsTotal.WithLabelValues(operation, string(apiErr.Kind)).Inc()
		return err
	}

	metrics.BackendRequestsTotal.WithLabelValues(operation, "ok").Inc()
	return nil
}

func (c *Client) roundTrip(ctx context.Context, operation, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &APIError{Operation: operation, Message: "failed to encode request", Kind: KindGeneric, Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Operation: operation, Message: "failed to build request", Kind: KindGeneric, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return newAPIError(operation, 0, err.Error(), err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(operation, resp.StatusCode, errorMessage(data), nil)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: "invalid response body", Kind: KindGeneric, Err: err}
	}
	return nil
}

// errorMessage extracts the message of an error body: {"error": ...},
// {"message": ...} or plain text
func errorMessage(data []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Error != "" && body.Message != "":
			return fmt.Sprintf("%s: %s", body.Error, body.Message)
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	return strings.TrimSpace(string(data))
}
