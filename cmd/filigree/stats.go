package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/config"
	"github.com/filigree-dev/filigree/internal/ui"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "views",
	Short:   "Show aggregate statistics",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := store.GetStatistics(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(stats)
			return
		}
		fmt.Println(ui.RenderCategory("issues"))
		fmt.Printf("  total: %d   open: %d   in progress: %d   done: %d\n",
			stats.TotalIssues, stats.OpenIssues, stats.InProgressIssues, stats.ClosedIssues)
		fmt.Println(ui.RenderCategory("flow"))
		fmt.Printf("  ready: %d   blocked: %d\n", stats.ReadyIssues, stats.BlockedIssues)
		if stats.AverageLeadTime > 0 {
			fmt.Printf("  average lead time: %.1fh\n", stats.AverageLeadTime)
		}
	},
}

var staleCmd = &cobra.Command{
	Use:     "stale",
	GroupID: "views",
	Short:   "List in-progress issues that have gone quiet",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		idle := config.GetDuration("stale.threshold")
		if cmd.Flags().Changed("idle") {
			idle, _ = cmd.Flags().GetDuration("idle")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		issues, err := store.GetStaleIssues(rootCtx, idle, limit)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("Nothing is stale.")
			return
		}
		for _, issue := range issues {
			idleFor := time.Since(issue.UpdatedAt).Truncate(time.Hour)
			fmt.Printf("%s %s %s %s\n", statusGlyph(issue.StatusCategory),
				ui.RenderAccent(issue.ID), ui.TruncateSimple(issue.Title, 60),
				ui.RenderMuted(fmt.Sprintf("(idle %s)", idleFor)))
		}
	},
}

var epicsCmd = &cobra.Command{
	Use:     "epics",
	GroupID: "views",
	Short:   "Show child completion per epic and milestone",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		progress, err := store.GetEpicProgress(rootCtx, limit)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(progress)
			return
		}
		if len(progress) == 0 {
			fmt.Println("No parent issues with children.")
			return
		}
		for _, p := range progress {
			bar := progressBar(p.ClosedChildren, p.TotalChildren, 20)
			fmt.Printf("%s %s %s %d/%d\n", ui.RenderAccent(p.Epic.ID),
				ui.TruncateSimple(p.Epic.Title, 40), bar, p.ClosedChildren, p.TotalChildren)
		}
	},
}

func progressBar(done, total, width int) string {
	if total == 0 {
		return ""
	}
	filled := done * width / total
	return ui.RenderPass(strings.Repeat("█", filled)) + ui.RenderMuted(strings.Repeat("░", width-filled))
}

func init() {
	staleCmd.Flags().Duration("idle", 72*time.Hour, "Idle threshold")
	staleCmd.Flags().Int("limit", 0, "Maximum results (default 20)")
	epicsCmd.Flags().Int("limit", 0, "Maximum results")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(staleCmd)
	rootCmd.AddCommand(epicsCmd)
}
