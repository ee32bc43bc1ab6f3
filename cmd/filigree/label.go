package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
)

var labelCmd = &cobra.Command{
	Use:     "label",
	GroupID: "issues",
	Short:   "Manage labels on issues",
}

var labelAddCmd = &cobra.Command{
	Use:   "add <label> <id> [id...]",
	Short: "Add a label to one or more issues",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		label, ids := args[0], args[1:]
		if len(ids) > 1 {
			result, err := store.BatchAddLabel(rootCtx, ids, label, getActor())
			if err != nil {
				fatalf("%v", err)
			}
			printBatchResult("Labeled", result)
			return
		}
		if err := store.AddLabel(rootCtx, ids[0], label, getActor()); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": ids[0], "label": label})
			return
		}
		fmt.Printf("%s Labeled %s with %q\n", ui.RenderPassIcon(), ui.RenderAccent(ids[0]), label)
	},
}

var labelRemoveCmd = &cobra.Command{
	Use:   "remove <label> <id>",
	Short: "Remove a label from an issue",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		label, id := args[0], args[1]
		if err := store.RemoveLabel(rootCtx, id, label, getActor()); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"id": id, "label": label})
			return
		}
		fmt.Printf("%s Removed %q from %s\n", ui.RenderPassIcon(), label, ui.RenderAccent(id))
	},
}

func init() {
	labelCmd.AddCommand(labelAddCmd)
	labelCmd.AddCommand(labelRemoveCmd)
	rootCmd.AddCommand(labelCmd)
}
