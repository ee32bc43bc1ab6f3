package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/ui"
)

var closeCmd = &cobra.Command{
	Use:     "close <id> [id...]",
	GroupID: "issues",
	Short:   "Close one or more issues",
	Long: `Close issues by moving them to a done-category status.

Without --status the issue type's terminal state is used. Hard-enforced
transitions with missing required fields are rejected; supply them with
--field first or pick a different target status.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		status, _ := cmd.Flags().GetString("status")
		fieldPairs, _ := cmd.Flags().GetStringSlice("field")

		fields, err := parseFields(fieldPairs)
		if err != nil {
			fatalf("%v", err)
		}

		if len(args) > 1 && (status != "" || len(fields) > 0) {
			fatalf("--status and --field only work when closing a single issue")
		}

		if len(args) > 1 {
			result, err := store.BatchClose(rootCtx, args, reason, getActor())
			if err != nil {
				fatalf("%v", err)
			}
			printBatchResult("Closed", result)
			return
		}

		id := args[0]
		if err := store.CloseIssue(rootCtx, id, status, fields, reason, getActor()); err != nil {
			var te *storage.TransitionError
			if errors.As(err, &te) && !jsonOutput {
				printTransitionError(te)
				fatalf("close rejected")
			}
			fatalf("%v", err)
		}
		if jsonOutput {
			issue, err := store.GetIssue(rootCtx, id)
			if err != nil {
				fatalf("%v", err)
			}
			outputJSON(issue)
			return
		}
		fmt.Printf("%s Closed %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>",
	GroupID: "issues",
	Short:   "Reopen a closed issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		if err := store.ReopenIssue(rootCtx, id, getActor()); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			issue, err := store.GetIssue(rootCtx, id)
			if err != nil {
				fatalf("%v", err)
			}
			outputJSON(issue)
			return
		}
		fmt.Printf("%s Reopened %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
	},
}

func init() {
	closeCmd.Flags().StringP("reason", "r", "", "Reason for closing (recorded on the status event)")
	closeCmd.Flags().StringP("status", "s", "", "Done-category status to land in (default: the type's terminal state)")
	closeCmd.Flags().StringSlice("field", nil, "Type-specific field, key=value, applied before the transition (repeatable)")
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(reopenCmd)
}
