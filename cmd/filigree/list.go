package main

import (
	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
)

// issueFilterFromFlags builds the shared filter used by list and search.
func issueFilterFromFlags(cmd *cobra.Command) types.IssueFilter {
	var filter types.IssueFilter
	if s, _ := cmd.Flags().GetString("status"); s != "" {
		filter.Status = &s
	}
	if t, _ := cmd.Flags().GetString("type"); t != "" {
		filter.IssueType = &t
	}
	if cmd.Flags().Changed("priority") {
		p, _ := cmd.Flags().GetInt("priority")
		filter.Priority = &p
	}
	if a, _ := cmd.Flags().GetString("assignee"); a != "" {
		filter.Assignee = &a
	}
	if l, _ := cmd.Flags().GetString("label"); l != "" {
		filter.Label = &l
	}
	if p, _ := cmd.Flags().GetString("parent"); p != "" {
		filter.ParentID = &p
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	filter.Offset, _ = cmd.Flags().GetInt("offset")
	return filter
}

func registerFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("status", "s", "", "Filter by status name (names 'archived' to include archived issues)")
	cmd.Flags().StringP("type", "t", "", "Filter by issue type")
	cmd.Flags().IntP("priority", "p", 0, "Filter by priority")
	cmd.Flags().StringP("assignee", "a", "", "Filter by assignee")
	cmd.Flags().StringP("label", "l", "", "Filter by label")
	cmd.Flags().String("parent", "", "Filter by parent issue id")
	cmd.Flags().Int("limit", 0, "Maximum number of results")
	cmd.Flags().Int("offset", 0, "Skip this many results")
}

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "issues",
	Short:   "List issues",
	Long: `List issues, highest priority first.

Archived issues are hidden unless --status archived is given.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		issues, err := store.ListIssues(rootCtx, issueFilterFromFlags(cmd))
		if err != nil {
			fatalf("%v", err)
		}
		printIssueList(issues)
	},
}

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	GroupID: "issues",
	Short:   "Full-text search over titles, descriptions, and notes",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := args[0]
		for _, a := range args[1:] {
			query += " " + a
		}
		issues, err := store.SearchIssues(rootCtx, query, issueFilterFromFlags(cmd))
		if err != nil {
			fatalf("%v", err)
		}
		printIssueList(issues)
	},
}

func init() {
	registerFilterFlags(listCmd)
	registerFilterFlags(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
}
