package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/version"
)

func versionCmd(app *appContext) *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if short {
				fmt.Println(version.GetVersion())
				return nil
			}

			payload := map[string]string{
				"version": version.GetVersion(),
				"commit":  version.Commit,
				"built":   version.Date,
				"go":      runtime.Version(),
			}
			text := fmt.Sprintf("skillsync %s\n  commit: %s\n  built: %s\n  go: %s\n",
				version.GetVersion(), version.Commit, version.Date, runtime.Version())
			app.emit(payload, text)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")

	return cmd
}
