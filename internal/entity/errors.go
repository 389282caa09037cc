package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by Remove when the confirmation step is declined.
	ErrCancelled = errors.New("cancelled")
	// ErrNotFound means the id is not in the controller's current list.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned by operations on a controller after Close.
	ErrClosed = errors.New("controller closed")
)

// ValidationError rejects input before any request is sent.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
