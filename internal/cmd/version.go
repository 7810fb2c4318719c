package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/restclient/restclient/internal/api"
	"github.com/restclient/restclient/internal/config"
	"github.com/restclient/restclient/internal/transport"
	"github.com/restclient/restclient/internal/update"
)

// version is set at build time via ldflags
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if isJSON(cmd) {
				_ = printJSON(cmd, map[string]string{"version": version, "user_agent": api.UserAgent("", version)})
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "restclient version %s\n", version)
			}

			env, err := config.LoadEnv()
			if err != nil {
				slog.Debug("skipping update check", "error", err)
				return
			}
			if env.NoUpdateCheck {
				return
			}

			// Check for updates; waits up to update.CheckTimeout and fails silently.
			client := api.New(api.Options{Transport: transport.NewHTTP(), AppVersion: version})
			update.CheckForUpdate(cmd.Context(), client, version).WriteNotice(cmd.ErrOrStderr())
		},
	}
}
