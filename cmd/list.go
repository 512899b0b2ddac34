package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
)

func listCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed skills with their scan status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := app.registry()
			if err != nil {
				return err
			}

			skills := registry.List()
			app.emit(skills, tui.RenderSkillList(skills))
			return nil
		},
	}
	return cmd
}
