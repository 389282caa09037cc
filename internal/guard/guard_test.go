package guard

import (
	"errors"
	"testing"

	"freelanceflow/internal/model"
	"freelanceflow/internal/session"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		snap session.Snapshot
		want Decision
	}{
		{"booting", session.Snapshot{State: session.Booting}, RenderLoading},
		{"authenticated", session.Snapshot{State: session.Authenticated, User: model.User{ID: 1, Email: "a@b.com"}}, RenderChild},
		{"anonymous", session.Snapshot{State: session.Anonymous}, RedirectToLogin},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(tc.snap); got != tc.want {
				t.Fatalf("Decide(%v) = %v, want %v", tc.snap.State, got, tc.want)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	t.Parallel()

	if err := Require(session.Snapshot{State: session.Authenticated}); err != nil {
		t.Fatalf("authenticated: %v", err)
	}
	for _, st := range []session.State{session.Booting, session.Anonymous} {
		if err := Require(session.Snapshot{State: st}); !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("%v: expected ErrNotAuthenticated, got %v", st, err)
		}
	}
}
