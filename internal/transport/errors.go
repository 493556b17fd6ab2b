package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType categorizes transport failures.
type ErrorType string

const (
	ErrorTypeNetwork   ErrorType = "network"
	ErrorTypeTimeout   ErrorType = "timeout"
	ErrorTypeStatus    ErrorType = "status"
	ErrorTypeDecode    ErrorType = "decode"
	ErrorTypeCancelled ErrorType = "cancelled"
)

// Error is returned for every failed upstream call.
type Error struct {
	Type       ErrorType
	Message    string
	URL        string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return redact(msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether repeating the call may succeed.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	case ErrorTypeStatus:
		return e.StatusCode >= 500
	default:
		return false
	}
}

func newStatusError(url string, code int, body string) *Error {
	return &Error{
		Type:       ErrorTypeStatus,
		Message:    fmt.Sprintf("unexpected status %d: %s", code, body),
		URL:        url,
		StatusCode: code,
	}
}

func newDecodeError(url string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeDecode,
		Message: "invalid response body",
		URL:     url,
		Cause:   cause,
	}
}

// classify wraps an error returned by http.Client.Do.
func classify(url string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Type: ErrorTypeCancelled, Message: "request cancelled", URL: url, Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", URL: url, Cause: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", URL: url, Cause: err}
	default:
		return &Error{Type: ErrorTypeNetwork, Message: "request failed", URL: url, Cause: err}
	}
}
