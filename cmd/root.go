// Package cmd implements the skillsync command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/logger"
)

// Execute builds the command tree and runs it. Returns the process exit code.
func Execute() int {
	app := &appContext{}

	rootCmd := &cobra.Command{
		Use:   "skillsync",
		Short: "Manage third-party skill packages safely",
		Long: `skillsync installs, scans, and continuously reconciles third-party
skill packages from GitHub and the skill marketplace.

Every install is content-scanned against a threat signature catalog
before anything touches disk, and subscriptions keep a scope in sync
with saved marketplace queries under a per-scope lock file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Initialize()
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.scope, "scope", "default", "Scope (isolated skill collection) to operate on")
	rootCmd.PersistentFlags().BoolVar(&app.jsonOut, "json", false, "Emit structured JSON output")

	rootCmd.AddCommand(
		installCmd(app),
		uninstallCmd(app),
		listCmd(app),
		scanCmd(app),
		searchCmd(app),
		subscribeCmd(app),
		unsubscribeCmd(app),
		subscriptionsCmd(app),
		syncCmd(app),
		policyCmd(app),
		statusCmd(app),
		sbomCmd(app),
		versionCmd(app),
	)

	defer app.shutdown()

	if err := rootCmd.Execute(); err != nil {
		return app.fail(err)
	}
	return app.exitCode
}

// printErr writes a plain error line to stderr for non-JSON mode.
func printErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
}
