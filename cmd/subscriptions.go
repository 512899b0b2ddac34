package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/tui"
	"github.com/skillsync-dev/skillsync/internal/types"
)

func subscribeCmd(app *appContext) *cobra.Command {
	var authors []string
	var tags []string
	var limit int
	var sortOrder string

	cmd := &cobra.Command{
		Use:   "subscribe <query>",
		Short: "Save a marketplace query to sync on every cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := app.policyStore().AddSubscription(types.Subscription{
				Query:     args[0],
				Authors:   authors,
				Tags:      tags,
				Limit:     limit,
				SortOrder: sortOrder,
			})
			if err != nil {
				return err
			}

			app.emit(sub, tui.Success("subscribed %s: %q", sub.ID, sub.Query))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&authors, "author", nil, "Keep only these authors (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Keep only skills with one of these tags (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results per cycle (0 means the endpoint cap)")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Sort order: stars or recent")

	return cmd
}

func unsubscribeCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unsubscribe <id>",
		Short: "Remove a saved subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.policyStore().RemoveSubscription(args[0]); err != nil {
				return err
			}
			app.emit(map[string]string{"id": args[0]}, tui.Success("unsubscribed %s", args[0]))
			return nil
		},
	}
	return cmd
}

func subscriptionsCmd(app *appContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscriptions",
		Short: "List saved subscriptions for the scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := app.policyStore().Load()
			app.emit(policy.Subscriptions, tui.RenderSubscriptions(policy.Subscriptions))
			return nil
		},
	}
	return cmd
}
