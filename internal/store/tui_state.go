package store

import (
	"context"
	"encoding/json"
)

const tuiStateKey = "tui_state"

// TUIState stores small, user-facing UI state for restoring the last screen on relaunch.
//
// It is intentionally "best effort": callers should tolerate missing/invalid data.
type TUIState struct {
	Version int `json:"version"`

	// View is one of: dashboard|clients|client|project
	View string `json:"view,omitempty"`

	ClientID  int64 `json:"clientId,omitempty"`
	ProjectID int64 `json:"projectId,omitempty"`

	// ClientQuery and ClientStage restore the clients list filters.
	ClientQuery string `json:"clientQuery,omitempty"`
	ClientStage string `json:"clientStage,omitempty"`
}

func (d *DB) LoadTUIState(ctx context.Context) (*TUIState, error) {
	raw, ok, err := d.get(ctx, tuiStateKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &TUIState{Version: 1}, nil
	}
	var st TUIState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		// Best-effort; if corrupted, treat as missing.
		return &TUIState{Version: 1}, nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	return &st, nil
}

func (d *DB) SaveTUIState(ctx context.Context, st *TUIState) error {
	if st == nil {
		return nil
	}
	if st.Version == 0 {
		st.Version = 1
	}
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return d.put(ctx, tuiStateKey, string(b))
}
