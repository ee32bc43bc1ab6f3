package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var eventsCmd = &cobra.Command{
	Use:     "events <id>",
	GroupID: "views",
	Short:   "Show the event log for an issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		events, err := store.GetEvents(rootCtx, args[0], limit)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Println("No events.")
			return
		}
		for _, e := range events {
			printEventLine(e, false)
		}
	},
}

var activityCmd = &cobra.Command{
	Use:     "activity",
	GroupID: "views",
	Short:   "Show recent activity across all issues",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		events, err := store.GetRecentEvents(rootCtx, limit)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(events)
			return
		}
		if len(events) == 0 {
			fmt.Println("No activity yet.")
			return
		}
		for _, e := range events {
			printEventLine(e, true)
		}
	},
}

func printEventLine(e *types.Event, withIssue bool) {
	line := ui.RenderMuted(e.CreatedAt.Format("2006-01-02 15:04")) + " "
	if withIssue {
		line += ui.RenderAccent(e.IssueID) + " "
	}
	line += string(e.EventType)
	if e.OldValue != nil && e.NewValue != nil {
		line += fmt.Sprintf(": %s → %s",
			ui.TruncateSimple(*e.OldValue, 30), ui.TruncateSimple(*e.NewValue, 30))
	} else if e.NewValue != nil {
		line += ": " + ui.TruncateSimple(*e.NewValue, 50)
	}
	if e.Actor != "" {
		line += ui.RenderMuted(" (" + e.Actor + ")")
	}
	fmt.Println(line)
	if e.Comment != nil && *e.Comment != "" {
		fmt.Printf("  %s\n", ui.RenderMuted(ui.TruncateSimple(*e.Comment, 76)))
	}
}

func init() {
	eventsCmd.Flags().Int("limit", 0, "Maximum events to show (default 100)")
	activityCmd.Flags().Int("limit", 0, "Maximum events to show (default 20)")
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(activityCmd)
}
