package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var claimCmd = &cobra.Command{
	Use:     "claim [id]",
	GroupID: "issues",
	Short:   "Claim an issue (atomic, loses gracefully)",
	Long: `Assign an issue to yourself with a compare-and-set: if someone else
claimed it first, the command fails naming the holder.

With --next and no id, claims the highest-priority unassigned ready
issue instead.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		next, _ := cmd.Flags().GetBool("next")
		issueType, _ := cmd.Flags().GetString("type")
		who := getActor()

		if len(args) == 0 {
			if !next {
				fatalf("provide an issue id or use --next")
			}
			issue, err := store.ClaimNext(rootCtx, who, types.WorkFilter{Type: issueType})
			if err != nil {
				fatalf("%v", err)
			}
			if issue == nil {
				if jsonOutput {
					outputJSON(nil)
				} else {
					fmt.Println("No ready unassigned work to claim.")
				}
				return
			}
			if jsonOutput {
				outputJSON(issue)
				return
			}
			fmt.Printf("%s Claimed %s: %s\n", ui.RenderPassIcon(), ui.RenderAccent(issue.ID), issue.Title)
			return
		}

		id := args[0]
		if err := store.ClaimIssue(rootCtx, id, who); err != nil {
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
		fmt.Printf("%s Claimed %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
	},
}

var releaseCmd = &cobra.Command{
	Use:     "release <id>",
	GroupID: "issues",
	Short:   "Release a claimed issue",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		if err := store.ReleaseIssue(rootCtx, id, getActor()); err != nil {
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
		fmt.Printf("%s Released %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
	},
}

func init() {
	claimCmd.Flags().Bool("next", false, "Claim the highest-priority unassigned ready issue")
	claimCmd.Flags().StringP("type", "t", "", "With --next, restrict to an issue type")
	rootCmd.AddCommand(claimCmd)
	rootCmd.AddCommand(releaseCmd)
}
