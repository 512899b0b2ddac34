package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
)

func scanCmd(app *appContext) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "scan [name]",
		Short: "Re-scan an installed skill, or scan a local file with --file",
		Long: `Scan re-reads an installed skill from disk and runs the full threat
scan, refreshing its registry entry. With --file it scans an arbitrary
local file instead, without touching the registry.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				if len(args) > 0 {
					return fmt.Errorf("pass either a skill name or --file, not both")
				}
				var data []byte
				var err error
				label := filepath.Base(file)
				if file == "-" {
					data, err = io.ReadAll(os.Stdin)
					label = "stdin"
				} else {
					data, err = os.ReadFile(file)
				}
				if err != nil {
					return fmt.Errorf("read %s: %w", file, err)
				}
				result := app.scanner().Scan(string(data))
				app.emit(result, tui.RenderScanResult(label, result))
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("a skill name or --file is required")
			}

			registry, err := app.registry()
			if err != nil {
				return err
			}

			skill, err := registry.ScanPackage(args[0])
			if err != nil {
				return err
			}
			app.emit(skill, tui.RenderScanResult(skill.Name, skill.Scan))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Scan this local file instead of an installed skill (- for stdin)")

	return cmd
}
