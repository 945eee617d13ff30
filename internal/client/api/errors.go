package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnavailable  = errors.New("server unavailable")
)

// HTTPError is a failed call. Status is 0 when no response was received.
type HTTPError struct {
	Status  int
	Message string
	err     error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

// NewHTTPError builds the error for a non-2xx response. A 401 matches
// ErrUnauthorized.
func NewHTTPError(status int, message string) *HTTPError {
	e := &HTTPError{Status: status, Message: message}
	if status == http.StatusUnauthorized {
		e.err = ErrUnauthorized
	}
	return e
}

// UserMessage is the server's message, suitable for showing as is.
func (e *HTTPError) UserMessage() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}
