package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/core"
)

func sbomCmd(app *appContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "sbom",
		Short: "Generate a CycloneDX SBOM for the scope's synced skills",
		Long: `Sbom renders the scope's lock file as a CycloneDX 1.5 JSON Software
Bill of Materials. Only sync-managed skills appear; manually installed
skills carry no lock entry and are omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			generator := core.NewSBOMGenerator(app.lockStore(), app.scope)
			data, err := generator.Generate()
			if err != nil {
				return err
			}

			// Output is already JSON; --json changes nothing here.
			if output != "" {
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				return nil
			}
			fmt.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the SBOM to this file instead of stdout")

	return cmd
}
