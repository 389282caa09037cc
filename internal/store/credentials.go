package store

import (
	"context"
	"strings"
)

const credentialKey = "access_token"

// LoadCredential returns the stored bearer credential, or "" when none is stored.
func (d *DB) LoadCredential(ctx context.Context) (string, error) {
	v, _, err := d.get(ctx, credentialKey)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(v), nil
}

// SaveCredential replaces the stored credential. Blank values clear it.
func (d *DB) SaveCredential(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return d.ClearCredential(ctx)
	}
	return d.put(ctx, credentialKey, token)
}

func (d *DB) ClearCredential(ctx context.Context) error {
	return d.del(ctx, credentialKey)
}

// Token reads the current credential for outbound requests.
// The database is consulted on every call so it stays the single source of truth;
// read errors degrade to "no credential".
func (d *DB) Token() string {
	tok, err := d.LoadCredential(context.Background())
	if err != nil {
		return ""
	}
	return tok
}
