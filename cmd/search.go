package cmd

import (
	"github.com/spf13/cobra"

	"github.com/skillsync-dev/skillsync/internal/core"
	"github.com/skillsync-dev/skillsync/internal/tui"
	"github.com/skillsync-dev/skillsync/internal/types"
)

func searchCmd(app *appContext) *cobra.Command {
	var limit int
	var sortOrder string
	var semantic bool
	var authors []string
	var tags []string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the skill marketplace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := app.searchClient().Search(cmd.Context(), core.SearchRequest{
				Query:     args[0],
				Limit:     limit,
				SortOrder: sortOrder,
				Semantic:  semantic,
			})
			if err != nil {
				return err
			}

			filtered := &types.SearchResponse{
				Skills: core.FilterSkills(resp.Skills, authors, tags),
				Total:  resp.Total,
			}
			app.emit(filtered, tui.RenderSearchResults(filtered))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (0 means the endpoint cap)")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Sort order: stars or recent")
	cmd.Flags().BoolVar(&semantic, "semantic", false, "Use the AI-semantic search endpoint")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "Keep only these authors (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Keep only skills with one of these tags (repeatable)")

	return cmd
}
