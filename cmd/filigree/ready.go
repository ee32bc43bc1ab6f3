package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var readyCmd = &cobra.Command{
	Use:     "ready",
	GroupID: "views",
	Short:   "List issues that are ready to work on",
	Long: `List open issues with no live blockers, highest priority first.

An issue is ready when its status category is open and every blocker it
depends on is in a done-category status.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var filter types.WorkFilter
		filter.Type, _ = cmd.Flags().GetString("type")
		if cmd.Flags().Changed("priority-min") {
			p, _ := cmd.Flags().GetInt("priority-min")
			filter.PriorityMin = &p
		}
		if cmd.Flags().Changed("priority-max") {
			p, _ := cmd.Flags().GetInt("priority-max")
			filter.PriorityMax = &p
		}
		filter.Unassigned, _ = cmd.Flags().GetBool("unassigned")
		if a, _ := cmd.Flags().GetString("assignee"); a != "" {
			filter.Assignee = &a
		}
		filter.Limit, _ = cmd.Flags().GetInt("limit")

		issues, err := store.GetReadyWork(rootCtx, filter)
		if err != nil {
			fatalf("%v", err)
		}
		printIssueList(issues)
	},
}

var blockedCmd = &cobra.Command{
	Use:     "blocked",
	GroupID: "views",
	Short:   "List issues waiting on blockers",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		blocked, err := store.GetBlockedIssues(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(blocked)
			return
		}
		if len(blocked) == 0 {
			fmt.Println("Nothing is blocked.")
			return
		}
		for _, b := range blocked {
			fmt.Printf("%s %s [P%d] %s\n  %s %s\n",
				statusGlyph(b.StatusCategory), ui.RenderAccent(b.ID), b.Priority,
				ui.TruncateSimple(b.Title, 70),
				ui.RenderFail("waiting on:"), strings.Join(b.BlockedByIDs, ", "))
		}
	},
}

var pathCmd = &cobra.Command{
	Use:     "path",
	GroupID: "views",
	Short:   "Show the critical path through open work",
	Long: `Show the longest blocker chain over open issues, deepest blocker
first. Clearing these in order unblocks the most downstream work.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := store.GetCriticalPath(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(path)
			return
		}
		if len(path) == 0 {
			fmt.Println("No blocker chains among open issues.")
			return
		}
		for i, issue := range path {
			prefix := "  "
			if i == 0 {
				prefix = ui.RenderAccent("▶ ")
			}
			fmt.Printf("%s%s [P%d] %s (%s)\n", prefix, ui.RenderAccent(issue.ID),
				issue.Priority, ui.TruncateSimple(issue.Title, 60), issue.Status)
			if i < len(path)-1 {
				fmt.Println(ui.RenderMuted("  │ blocks"))
			}
		}
	},
}

func init() {
	readyCmd.Flags().StringP("type", "t", "", "Restrict to an issue type")
	readyCmd.Flags().Int("priority-min", 0, "Minimum priority value")
	readyCmd.Flags().Int("priority-max", 4, "Maximum priority value")
	readyCmd.Flags().Bool("unassigned", false, "Only unassigned issues")
	readyCmd.Flags().StringP("assignee", "a", "", "Only issues assigned to this name")
	readyCmd.Flags().Int("limit", 0, "Maximum number of results")
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(pathCmd)
}
