package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "issues",
	Short:   "Show an issue in detail",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		full, _ := cmd.Flags().GetBool("full")

		issue, err := store.GetIssue(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(issue)
			return
		}
		printIssueDetail(issue, full)

		comments, err := store.GetComments(rootCtx, issue.ID)
		if err != nil {
			fatalf("%v", err)
		}
		if len(comments) > 0 {
			fmt.Println()
			fmt.Println(ui.RenderCategory("comments"))
			for _, c := range comments {
				fmt.Printf("  %s %s\n", ui.RenderMuted(c.CreatedAt.Format("2006-01-02 15:04")), ui.RenderAccent(c.Author))
				fmt.Printf("  %s\n", ui.WrapText(c.Text, 76))
			}
		}
	},
}

func printIssueDetail(issue *types.Issue, full bool) {
	fmt.Printf("%s %s %s\n", statusGlyph(issue.StatusCategory), ui.RenderAccent(issue.ID), issue.Title)
	fmt.Printf("  %s: %s (%s)   %s: P%d   %s: %s\n",
		ui.RenderMuted("status"), issue.Status, issue.StatusCategory,
		ui.RenderMuted("priority"), issue.Priority,
		ui.RenderMuted("type"), issue.IssueType)
	if issue.Assignee != "" {
		fmt.Printf("  %s: %s\n", ui.RenderMuted("assignee"), issue.Assignee)
	}
	if issue.ParentID != nil {
		fmt.Printf("  %s: %s\n", ui.RenderMuted("parent"), *issue.ParentID)
	}
	if len(issue.Labels) > 0 {
		fmt.Printf("  %s: %s\n", ui.RenderMuted("labels"), strings.Join(issue.Labels, ", "))
	}
	if len(issue.BlockedBy) > 0 {
		fmt.Printf("  %s: %s\n", ui.RenderFail("blocked by"), strings.Join(issue.BlockedBy, ", "))
	}
	if len(issue.Blocks) > 0 {
		fmt.Printf("  %s: %s\n", ui.RenderMuted("blocks"), strings.Join(issue.Blocks, ", "))
	}
	if len(issue.Children) > 0 {
		fmt.Printf("  %s: %s\n", ui.RenderMuted("children"), strings.Join(issue.Children, ", "))
	}
	fmt.Printf("  %s: %s", ui.RenderMuted("created"), issue.CreatedAt.Format(time.RFC3339))
	if issue.ClosedAt != nil {
		fmt.Printf("   %s: %s", ui.RenderMuted("closed"), issue.ClosedAt.Format(time.RFC3339))
	}
	fmt.Println()

	if len(issue.Fields) > 0 {
		fmt.Println(ui.RenderCategory("fields"))
		for key, value := range issue.Fields {
			fmt.Printf("  %s: %v\n", ui.RenderMuted(key), value)
		}
	}
	if issue.Description != "" {
		fmt.Println()
		text := issue.Description
		if !full {
			text = ui.TruncateLines(text, ui.DefaultMaxLines, ui.DefaultContextLines)
		}
		fmt.Println(ui.WrapText(text, 78))
	}
	if issue.Notes != "" {
		fmt.Println()
		fmt.Println(ui.RenderCategory("notes"))
		fmt.Println(ui.WrapText(issue.Notes, 78))
	}
}

func init() {
	showCmd.Flags().Bool("full", false, "Show full description without truncation")
	rootCmd.AddCommand(showCmd)
}
