package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by operations that need a session user
	// when nobody is logged in. No network call is made.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("validation error")

	// ErrSuperseded is returned when a response was discarded because a newer
	// request for the same view had been issued in the meantime.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// ValidationError wraps ErrValidation with a human-readable message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid builds a ValidationError from a format string.
func Invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// userMessager is implemented by errors that carry a message meant for the
// person in front of the screen.
type userMessager interface {
	UserMessage() string
}

// UserMessage implements userMessager.
func (e *ValidationError) UserMessage() string {
	return e.Message
}

// Message returns the human-readable text for err: the first message found in
// the chain that was meant for the user, or err.Error() otherwise.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}
