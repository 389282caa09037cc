package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"freelanceflow/internal/api"
	"freelanceflow/internal/entity"
	"freelanceflow/internal/format"
	"freelanceflow/internal/guard"
	"freelanceflow/internal/session"
	"freelanceflow/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigDir  string
	APIURL     string
	PrettyJSON bool
	Format     string

	store   store.Store
	cfg     *store.Config
	db      *store.DB
	client  *api.Client
	session *session.Manager
	closers []func()
}

// resolve fills flag defaults from config.yaml. It does not touch the network.
func (app *App) resolve(cmd *cobra.Command) error {
	dir := strings.TrimSpace(app.ConfigDir)
	if dir == "" {
		d, err := store.ConfigDir()
		if err != nil {
			return writeErr(cmd, err)
		}
		dir = d
	}
	app.ConfigDir = dir
	app.store = store.Store{Dir: dir}

	cfg, err := app.store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	if strings.TrimSpace(app.APIURL) == "" {
		app.APIURL = cfg.APIURL
	}
	if strings.TrimSpace(app.Format) == "" {
		app.Format = cfg.Format
	}
	switch app.Format {
	case "json", "table":
	default:
		return writeErr(cmd, fmt.Errorf("unknown format: %s (want one of: %s)", app.Format, strings.Join(format.Formats, ", ")))
	}
	return nil
}

// open prepares the credential store, API client and session manager.
func (app *App) open(ctx context.Context) error {
	if app.session != nil {
		return nil
	}
	db, err := app.store.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, func() { _ = db.Close() })

	app.client = api.New(app.APIURL, db, api.WithUnauthorizedHandler(func() {
		app.session.Expire()
	}))
	app.session = session.NewManager(app.client, db)
	return nil
}

// requireSession bootstraps the stored session and rejects anonymous callers.
func (app *App) requireSession(cmd *cobra.Command) error {
	if err := app.open(cmd.Context()); err != nil {
		return err
	}
	return guard.Require(app.session.Bootstrap(cmd.Context()))
}

func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, s)
	}
	return id, nil
}

// confirmer asks on stderr and reads the answer from stdin unless yes is set.
func confirmer(cmd *cobra.Command, yes bool) entity.Confirm {
	if yes {
		return entity.Yes
	}
	return func(prompt string) bool {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", prompt)
		answer, _ := readLine(cmd.InOrStdin())
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true
		default:
			return false
		}
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// fields collects the flags the user actually set, so unset optional flags stay absent.
func fields(cmd *cobra.Command, names map[string]string) entity.Fields {
	out := entity.Fields{}
	for flag, key := range names {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		out[key] = f.Value.String()
	}
	return out
}
