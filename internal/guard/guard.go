// Package guard decides what a protected view may render for a given session state.
package guard

import (
	"errors"

	"freelanceflow/internal/session"
)

type Decision int

const (
	// RenderLoading: the session is still resolving. Never redirect here.
	RenderLoading Decision = iota
	RenderChild
	RedirectToLogin
)

func (d Decision) String() string {
	switch d {
	case RenderLoading:
		return "loading"
	case RenderChild:
		return "render"
	case RedirectToLogin:
		return "redirect"
	default:
		return "unknown"
	}
}

var ErrNotAuthenticated = errors.New("not signed in (run `flow login`)")

func Decide(s session.Snapshot) Decision {
	switch s.State {
	case session.Authenticated:
		return RenderChild
	case session.Anonymous:
		return RedirectToLogin
	default:
		return RenderLoading
	}
}

// Require is the command-line form of Decide: anything but an authenticated session
// is an error.
func Require(s session.Snapshot) error {
	if Decide(s) != RenderChild {
		return ErrNotAuthenticated
	}
	return nil
}
