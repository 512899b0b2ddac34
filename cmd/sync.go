package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
	"github.com/skillsync-dev/skillsync/internal/types"
)

func syncCmd(app *appContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile subscriptions against the installed and locked state",
		Long: `Sync queries every enabled subscription, deduplicates the discovered
skills, and diffs them against the scope's lock file: new skills are
installed, changed upstreams are updated, and (with autoRemove) skills
no longer discovered are removed. Locally modified skills are handled
per the configured conflict policy.

With --dry-run the full plan is computed and reported but nothing is
installed, removed, or written to the lock file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := app.syncService()
			if err != nil {
				return err
			}

			report := service.Sync(cmd.Context(), dryRun)
			app.emit(report, tui.RenderSyncReport(report))

			if len(report.Errors()) > 0 {
				app.exitCode = 1
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only; make no changes")

	return cmd
}

func policyCmd(app *appContext) *cobra.Command {
	var enable, disable bool
	var intervalHours int
	var maxRisk string
	var conflict string
	var autoRemove string

	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show or change the scope's sync policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := app.policyStore()
			policy := store.Load()

			changed := false
			if enable && disable {
				return fmt.Errorf("--enable and --disable are mutually exclusive")
			}
			if enable {
				policy.Enabled = true
				changed = true
			}
			if disable {
				policy.Enabled = false
				changed = true
			}
			if intervalHours > 0 {
				policy.IntervalHours = intervalHours
				changed = true
			}
			if maxRisk != "" {
				level := types.RiskLevel(maxRisk)
				if _, ok := types.RiskRank[level]; !ok {
					return fmt.Errorf("unknown risk level %q", maxRisk)
				}
				policy.MaxRiskLevel = level
				changed = true
			}
			if conflict != "" {
				switch types.ConflictPolicy(conflict) {
				case types.ConflictSkip, types.ConflictOverwrite, types.ConflictUnmanage:
					policy.ConflictPolicy = types.ConflictPolicy(conflict)
					changed = true
				default:
					return fmt.Errorf("unknown conflict policy %q (skip, overwrite, unmanage)", conflict)
				}
			}
			if autoRemove != "" {
				switch autoRemove {
				case "true":
					policy.AutoRemove = true
				case "false":
					policy.AutoRemove = false
				default:
					return fmt.Errorf("--auto-remove takes true or false")
				}
				changed = true
			}

			if changed {
				if err := store.Save(policy); err != nil {
					return err
				}
			}

			text := fmt.Sprintf(
				"enabled: %t\ninterval: %dh\nmax risk: %s\nconflict policy: %s\nauto-remove: %t\nsubscriptions: %d\n",
				policy.Enabled, policy.IntervalHours, policy.MaxRiskLevel,
				policy.ConflictPolicy, policy.AutoRemove, len(policy.Subscriptions))
			app.emit(policy, text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&enable, "enable", false, "Enable sync for the scope")
	cmd.Flags().BoolVar(&disable, "disable", false, "Disable sync for the scope")
	cmd.Flags().IntVar(&intervalHours, "interval-hours", 0, "Periodic sync interval in hours")
	cmd.Flags().StringVar(&maxRisk, "max-risk", "", "Risk ceiling enforced after each sync install (safe, low, medium, high)")
	cmd.Flags().StringVar(&conflict, "conflict", "", "Conflict policy for locally modified skills (skip, overwrite, unmanage)")
	cmd.Flags().StringVar(&autoRemove, "auto-remove", "", "Remove skills no longer discovered (true or false)")

	return cmd
}
