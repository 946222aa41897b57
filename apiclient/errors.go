package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

// Kind classifies backend failures for the user-facing banner
type Kind string

const (
	KindGeneric     Kind = "generic"
	KindUnavailable Kind = "unavailable" // database or connectivity problem
)

// unavailableMarkers are matched case-insensitively against error messages
var unavailableMarkers = []string{"database", "connection", "econnrefused", "connect:"}

// APIError is a failed backend call
type APIError struct {
	Operation  string
	StatusCode int // 0 when no response was received
	Message    string
	Kind       Kind
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage returns the banner text for the error
func (e *APIError) UserMessage() string {
	if e.Kind == KindUnavailable {
		return "The prescription service is temporarily unavailable. Please try again in a moment."
	}
	if e.Message != "" && e.StatusCode >= 400 && e.StatusCode < 500 {
		return e.Message
	}
	return "The request failed. Please try again."
}

// IsUnavailable reports whether err is a backend availability problem
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnavailable
}

// classify applies the substring heuristic to a server or transport message
func classify(message string) Kind {
	lower := strings.ToLower(message)
	for _, marker := range unavailableMarkers {
		if strings.Contains(lower, marker) {
			return KindUnavailable
		}
	}
	return KindGeneric
}

func newAPIError(operation string, status int, message string, err error) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	kind := classify(message)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		kind = KindUnavailable
	}
	return &APIError{Operation: operation, StatusCode: status, Message: message, Kind: kind, Err: err}
}

// isClientError tells the breaker which failures are not the backend's fault
func isClientError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
}
