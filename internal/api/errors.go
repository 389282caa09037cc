package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for every failed request. Status is 0 when no response arrived.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string

	err error
}

func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.err != nil:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.err)
	case e.Message != "":
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	case e.err != nil:
		return fmt.Sprintf("%s %s: %d: %v", e.Method, e.Path, e.Status, e.err)
	default:
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
}

func (e *Error) Unwrap() error { return e.err }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }
func IsNotFound(err error) bool     { return StatusOf(err) == http.StatusNotFound }

// Message returns display text for err: the server-supplied message when present,
// otherwise fallback.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
