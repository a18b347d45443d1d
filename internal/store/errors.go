package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a workout id is not present on the backend.
var ErrNotFound = errors.New("workout not found")

// NetworkError is a transport-level failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("store: %s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response. Message holds the backend's
// human-readable message when one was sent.
type ServerError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store: %s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("store: %s: server returned %d: %s", e.Op, e.Status, e.Message)
}

// ValidationError is a non-2xx upload response carrying a structured message.
type ValidationError struct {
	Op      string
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("store: %s: rejected (%d): %s", e.Op, e.Status, e.Message)
}

// MalformedResponse is a body that could not be decoded into the expected
// shape. It also matches errors.As(err, **ServerError).
type MalformedResponse struct {
	Op     string
	Status int
	Err    error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("store: %s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

// As lets callers handle a malformed body as a ServerError.
func (e *MalformedResponse) As(target any) bool {
	t, ok := target.(**ServerError)
	if !ok {
		return false
	}
	*t = &ServerError{Op: e.Op, Status: e.Status, Message: "malformed response"}
	return true
}

// UserMessage returns the backend-provided message carried by err, or
// fallback when the error has none.
func UserMessage(err error, fallback string) string {
	var verr *ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}
	var serr *ServerError
	if errors.As(err, &serr) && serr.Message != "" && !isMalformed(err) {
		return serr.Message
	}
	return fallback
}

func isMalformed(err error) bool {
	var merr *MalformedResponse
	return errors.As(err, &merr)
}
