package models

import (
	"errors"
	"fmt"
)

// Access errors surfaced by the persistence layer and mapped directly to
// HTTP outcomes by the server.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// ValidationError rejects a request before any network or database work.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolError means the response stream violated the framing contract.
// The stream is aborted; no silent recovery is attempted.
type ProtocolError struct {
	Frame  string
	Reason string
}

func (e *ProtocolError) Error() string {
	if e.Frame == "" {
		return "protocol: " + e.Reason
	}
	return fmt.Sprintf("protocol: %s frame: %s", e.Frame, e.Reason)
}

// UpstreamError is a non-success response from the model provider. The
// server renders it inline as message content instead of failing the
// connection.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, e.Body)
}
