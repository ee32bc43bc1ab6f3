package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create <title>",
	GroupID: "issues",
	Short:   "Create a new issue",
	Long: `Create a new issue.

The issue type selects a workflow template; the new issue starts in that
template's initial state. Type-specific fields are set with repeated
--field key=value flags.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		issueType, _ := cmd.Flags().GetString("type")
		priority, _ := cmd.Flags().GetInt("priority")
		description, _ := cmd.Flags().GetString("description")
		assignee, _ := cmd.Flags().GetString("assignee")
		parent, _ := cmd.Flags().GetString("parent")
		labels, _ := cmd.Flags().GetStringSlice("label")
		deps, _ := cmd.Flags().GetStringSlice("depends-on")
		fieldPairs, _ := cmd.Flags().GetStringSlice("field")

		fields, err := parseFields(fieldPairs)
		if err != nil {
			fatalf("%v", err)
		}

		issue := &types.Issue{
			Title:       title,
			Description: description,
			Priority:    priority,
			IssueType:   issueType,
			Assignee:    assignee,
			Labels:      labels,
			Fields:      fields,
		}
		if parent != "" {
			issue.ParentID = &parent
		}
		for _, dep := range deps {
			issue.Dependencies = append(issue.Dependencies, &types.Dependency{DependsOnID: dep})
		}

		if err := store.CreateIssue(rootCtx, issue, getActor()); err != nil {
			fatalf("%v", err)
		}

		created, err := store.GetIssue(rootCtx, issue.ID)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(created)
			return
		}
		fmt.Printf("%s Created %s: %s\n", ui.RenderPassIcon(), ui.RenderAccent(created.ID), created.Title)
	},
}

func init() {
	createCmd.Flags().StringP("type", "t", "task", "Issue type (task, bug, epic, ...)")
	createCmd.Flags().IntP("priority", "p", 2, "Priority 0-4 (0 is most urgent)")
	createCmd.Flags().StringP("description", "d", "", "Issue description")
	createCmd.Flags().StringP("assignee", "a", "", "Assignee")
	createCmd.Flags().String("parent", "", "Parent issue id")
	createCmd.Flags().StringSliceP("label", "l", nil, "Labels (repeatable)")
	createCmd.Flags().StringSlice("depends-on", nil, "Blocker issue ids (repeatable)")
	createCmd.Flags().StringSlice("field", nil, "Type-specific field, key=value (repeatable)")
	rootCmd.AddCommand(createCmd)
}
