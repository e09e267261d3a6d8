package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lockbox/internal/client/client"
	"github.com/dmitrijs2005/lockbox/internal/client/config"
	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/spf13/cobra"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "lockbox",
		Short:         "End-to-end encrypted file storage",
		Long:          `Encrypts files on this machine before upload; the server only ever stores ciphertext.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init()
		},
	}

	root.PersistentFlags().StringVarP(&app.configPath, "config", "c", app.configPath, "config file (default $XDG_CONFIG_HOME/lockbox/config.toml)")
	root.PersistentFlags().StringVar(&app.serverURL, "server", app.serverURL, "server URL, overrides the config file")
	root.PersistentFlags().BoolVarP(&app.debug, "debug", "d", app.debug, "enable debug output")

	root.AddCommand(newLoginCommand(app))
	root.AddCommand(newLogoutCommand(app))
	root.AddCommand(newWhoamiCommand(app))
	root.AddCommand(newUploadCommand(app))
	root.AddCommand(newDownloadCommand(app))
	root.AddCommand(newListCommand(app))
	root.AddCommand(newDeleteCommand(app))

	return root
}

// explain adds the next step to errors users can fix themselves.
func explain(err error) error {
	switch {
	case errors.Is(err, config.ErrNoSession):
		return fmt.Errorf("%w: run `lockbox login <email>` first", err)
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("%w; run `lockbox login <email>`", err)
	case errors.Is(err, common.ErrAuthenticationFailure):
		return fmt.Errorf("%w: the stored file does not match its key and cannot be decrypted", err)
	}
	return err
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	app := newApp()
	root := newRootCommand(app)
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(app.errOut, explain(err))
		return 1
	}
	return 0
}
