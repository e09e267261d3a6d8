package cli

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/spf13/cobra"
)

func newLoginCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in with a one-time code sent to your e-mail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := args[0]

			stop := a.startSpinner("Sending code...")
			if err := a.api.RequestCode(ctx, email); err != nil {
				stop("")
				return err
			}
			stop(fmt.Sprintf("%s Code sent to %s", successText.Sprint("✓"), highlightText.Sprint(email)))

			code, err := GetCode(a.reader, a.out)
			if err != nil {
				return err
			}

			sess, err := a.api.VerifyCode(ctx, email, code)
			if err != nil {
				return err
			}
			a.printf("%s Logged in as %s\n", successText.Sprint("✓"), highlightText.Sprint(sess.Email))

			// remember an explicit --server for later commands
			if a.serverURL != "" && a.configPath != "" {
				if err := config.SaveConfig(a.configPath, a.config); err != nil {
					return err
				}
				a.log.Debug(ctx, "server saved", "path", a.configPath, "server", a.config.ServerURL)
			}
			return nil
		},
	}
}

func newLogoutCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session and revoke it on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.sessions.Load(); errors.Is(err, config.ErrNoSession) {
				a.printf("Not logged in\n")
				return nil
			}
			if err := a.api.Logout(cmd.Context()); err != nil {
				a.log.Warn(cmd.Context(), "server logout failed", "error", err)
				a.printf("%s could not reach the server, the local session is removed anyway\n", mutedText.Sprint("warning"))
			}
			if err := a.sessions.Clear(); err != nil {
				return err
			}
			a.printf("%s Logged out\n", successText.Sprint("✓"))
			return nil
		},
	}
}

func newWhoamiCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			a.printf("%s %s\n", highlightText.Sprint(id.Email), mutedText.Sprint(id.UserID))
			return nil
		},
	}
}
