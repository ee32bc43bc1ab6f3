package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
)

var undoCmd = &cobra.Command{
	Use:     "undo <id>",
	GroupID: "issues",
	Short:   "Undo the last reversible change to an issue",
	Long: `Revert the most recent reversible event on an issue: status changes,
edits to title/description/notes/priority, claims, and dependency
changes. Each event can only be undone once.

The reverted status is restored verbatim, bypassing workflow transition
validation.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		event, err := store.UndoLast(rootCtx, args[0], getActor())
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(event)
			return
		}
		fmt.Printf("%s Undid %s on %s", ui.RenderPassIcon(), event.EventType, ui.RenderAccent(args[0]))
		if event.OldValue != nil && event.NewValue != nil {
			fmt.Printf(" (%s → %s restored)", *event.NewValue, *event.OldValue)
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(undoCmd)
}
