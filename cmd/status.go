package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
)

// scopeStatus is the status command's JSON payload.
type scopeStatus struct {
	Scope         string    `json:"scope"`
	SkillsRoot    string    `json:"skills_root"`
	Installed     int       `json:"installed"`
	Locked        int       `json:"locked"`
	SyncEnabled   bool      `json:"sync_enabled"`
	Subscriptions int       `json:"subscriptions"`
	SyncCount     int       `json:"sync_count"`
	LastSyncRun   time.Time `json:"last_sync_run,omitempty"`
}

func statusCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the scope: installed skills, lock state, sync policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := app.registry()
			if err != nil {
				return err
			}

			policy := app.policyStore().Load()
			lock := app.lockStore().Load()

			status := scopeStatus{
				Scope:         app.scope,
				SkillsRoot:    registry.RootDir(),
				Installed:     len(registry.List()),
				Locked:        len(lock.Skills),
				SyncEnabled:   policy.Enabled,
				Subscriptions: len(policy.Subscriptions),
				SyncCount:     lock.SyncCount,
				LastSyncRun:   lock.LastSyncRun,
			}

			var b strings.Builder
			b.WriteString(tui.Title(fmt.Sprintf("Scope: %s", status.Scope)))
			b.WriteString("\n")
			b.WriteString(fmt.Sprintf("  skills root: %s\n", status.SkillsRoot))
			b.WriteString(fmt.Sprintf("  installed: %d (locked: %d)\n", status.Installed, status.Locked))
			b.WriteString(fmt.Sprintf("  sync: enabled=%t, subscriptions=%d, runs=%d\n",
				status.SyncEnabled, status.Subscriptions, status.SyncCount))
			if !status.LastSyncRun.IsZero() {
				b.WriteString(fmt.Sprintf("  last sync: %s\n", status.LastSyncRun.Format(time.RFC3339)))
			}

			app.emit(status, b.String())
			return nil
		},
	}
	return cmd
}
