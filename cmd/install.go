package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/core"
	"github.com/skillsync-dev/skillsync/internal/tui"
)

func installCmd(app *appContext) *cobra.Command {
	var name string
	var force bool

	cmd := &cobra.Command{
		Use:   "install <source-url>",
		Short: "Fetch, scan, and install a skill from a GitHub tree URL",
		Long: `Install fetches a skill's files from a GitHub directory URL, scans the
combined content against the threat signature catalog, and writes the
files to the scope only if the scan passes the risk gate.

Critical risk always blocks the install. High and medium risk block
unless --force is given; low risk installs with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := app.registry()
			if err != nil {
				return err
			}

			result, err := app.installer().Install(cmd.Context(), core.InstallOptions{
				SourceURL: args[0],
				Name:      name,
				Force:     force,
			})
			if err != nil {
				return err
			}

			// Index the new directory right away instead of waiting for the
			// watch debounce.
			if _, err := registry.ScanPackage(result.Name); err != nil {
				return fmt.Errorf("installed but failed to index %q: %w", result.Name, err)
			}

			var b strings.Builder
			b.WriteString(tui.Success("installed %s (%d files)", result.Name, result.FilesCount))
			b.WriteString("\n")
			for _, w := range result.Warnings {
				b.WriteString(tui.Warning("%s", w))
				b.WriteString("\n")
			}
			for _, s := range result.Skipped {
				b.WriteString(tui.Warning("skipped %s", s))
				b.WriteString("\n")
			}
			b.WriteString(tui.RenderScanResult(result.Name, result.Scan))

			app.emit(result, b.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Install under this name instead of the source directory name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing skill and override non-critical risk blocks")

	return cmd
}
