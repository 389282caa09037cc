package cli

import (
	"errors"
	"fmt"
	"strings"

	"freelanceflow/internal/api"
	"freelanceflow/internal/model"
	"freelanceflow/internal/session"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	return newAuthCmd(app, "login", "Sign in and store the session credential", "login failed", false)
}

func newRegisterCmd(app *App) *cobra.Command {
	return newAuthCmd(app, "register", "Create an account and sign in", "registration failed", true)
}

func newAuthCmd(app *App, use, short, failure string, register bool) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: strings.TrimSpace(`
When --password is omitted the password is read from the first line of stdin,
so it can be piped from a secret manager.
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			pw := password
			if pw == "" {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				pw = line
			}
			var u model.User
			var err error
			if register {
				u, err = app.session.Register(cmd.Context(), email, pw)
			} else {
				u, err = app.session.Login(cmd.Context(), email, pw)
			}
			if err != nil {
				if errors.Is(err, session.ErrEmailRequired) || errors.Is(err, session.ErrPasswordRequired) {
					return writeErr(cmd, err)
				}
				return writeErr(cmd, fmt.Errorf("%s: %s", failure, api.Message(err, err.Error())))
			}
			return writeOut(cmd, app, userResult(u))
		},
	}
	cmd.Flags().StringVar(&email, "email", envOr("FLOW_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (default: read from stdin)")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session credential (local only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			app.session.Logout()
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"signedIn": false}})
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireSession(cmd); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, userResult(app.session.Current().User))
		},
	}
}
