package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sessionDBFileName = "session.sqlite"

// Store points at the local state directory (config.yaml + session.sqlite).
type Store struct {
	Dir string
}

// ConfigDir is ~/.freelanceflow unless FLOW_CONFIG_DIR overrides it.
func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.freelanceflow).
	if v := strings.TrimSpace(os.Getenv("FLOW_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".freelanceflow"), nil
}

// Default returns a Store rooted at ConfigDir.
func Default() (Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: dir}, nil
}

func (s Store) Ensure() error {
	if strings.TrimSpace(s.Dir) == "" {
		return errors.New("store dir is empty")
	}
	return os.MkdirAll(s.Dir, 0o700)
}

func (s Store) sessionDBPath() string {
	return filepath.Join(s.Dir, sessionDBFileName)
}

// DB is the durable local key/value state: the bearer credential and UI restore state.
// It is safe for concurrent use.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the session database.
func (s Store) Open(ctx context.Context) (*DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sessionDBPath())
	if err != nil {
		return nil, err
	}
	// WAL lets the CLI read the credential while a TUI holds the file open.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// get returns ("", false, nil) for a missing key.
func (d *DB) get(ctx context.Context, k string) (string, bool, error) {
	var v string
	err := d.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (d *DB) put(ctx context.Context, k, v string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO kv(k, v, updated_at_unixms) VALUES(?, ?, ?)
		 ON CONFLICT(k) DO UPDATE SET v = excluded.v, updated_at_unixms = excluded.updated_at_unixms`,
		k, v, time.Now().UTC().UnixMilli())
	return err
}

func (d *DB) del(ctx context.Context, k string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, k)
	return err
}
