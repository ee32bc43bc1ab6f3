package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
)

var commentCmd = &cobra.Command{
	Use:     "comment <id> <text>",
	GroupID: "issues",
	Short:   "Add a comment to one or more issues",
	Long: `Add a comment. With --on, the same comment is added to several issues
at once (for cross-cutting notes like "superseded by the v2 design").`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids, _ := cmd.Flags().GetStringSlice("on")

		var text string
		if len(ids) > 0 {
			text = strings.Join(args, " ")
		} else {
			if len(args) < 2 {
				fatalf("usage: filigree comment <id> <text>")
			}
			ids = []string{args[0]}
			text = strings.Join(args[1:], " ")
		}

		if len(ids) > 1 {
			result, err := store.BatchAddComment(rootCtx, ids, text, getActor())
			if err != nil {
				fatalf("%v", err)
			}
			printBatchResult("Commented on", result)
			return
		}

		comment, err := store.AddComment(rootCtx, ids[0], getActor(), text)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(comment)
			return
		}
		fmt.Printf("%s Commented on %s\n", ui.RenderPassIcon(), ui.RenderAccent(ids[0]))
	},
}

func init() {
	commentCmd.Flags().StringSlice("on", nil, "Issue ids to comment on (all args become the text)")
	rootCmd.AddCommand(commentCmd)
}
