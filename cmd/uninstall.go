package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
)

func uninstallCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove an installed skill from the scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			registry, err := app.registry()
			if err != nil {
				return err
			}

			if err := app.installer().Uninstall(name); err != nil {
				return err
			}
			registry.Forget(name)

			app.emit(map[string]string{"name": name, "scope": app.scope},
				tui.Success("uninstalled %s", name))
			return nil
		},
	}
	return cmd
}
