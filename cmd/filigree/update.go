package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var updateCmd = &cobra.Command{
	Use:     "update <id> [id...]",
	GroupID: "issues",
	Short:   "Update one or more issues",
	Long: `Update issue fields. With multiple ids the same update is applied to
each; per-issue failures are reported without aborting the rest.

Status changes are validated against the issue type's workflow template.
A rejected transition lists the states reachable from the current one.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		upd, err := updateFromFlags(cmd)
		if err != nil {
			fatalf("%v", err)
		}
		if upd.IsEmpty() {
			fatalf("nothing to update (see --help for flags)")
		}

		if len(args) > 1 {
			result, err := store.BatchUpdate(rootCtx, args, upd, getActor())
			if err != nil {
				fatalf("%v", err)
			}
			printBatchResult("Updated", result)
			return
		}

		id := args[0]
		if err := store.UpdateIssue(rootCtx, id, upd, getActor()); err != nil {
			var te *storage.TransitionError
			if errors.As(err, &te) && !jsonOutput {
				printTransitionError(te)
				fatalf("update rejected")
			}
			fatalf("%v", err)
		}
		issue, err := store.GetIssue(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(issue)
			return
		}
		fmt.Printf("%s Updated %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
	},
}

func updateFromFlags(cmd *cobra.Command) (types.IssueUpdate, error) {
	var upd types.IssueUpdate
	strFlag := func(name string) *string {
		if cmd.Flags().Changed(name) {
			s, _ := cmd.Flags().GetString(name)
			return &s
		}
		return nil
	}
	upd.Title = strFlag("title")
	upd.Description = strFlag("description")
	upd.Notes = strFlag("notes")
	upd.Status = strFlag("status")
	upd.Assignee = strFlag("assignee")
	if cmd.Flags().Changed("priority") {
		p, _ := cmd.Flags().GetInt("priority")
		upd.Priority = &p
	}
	if cmd.Flags().Changed("parent") {
		upd.ParentID = strFlag("parent")
	}
	upd.ClearParent, _ = cmd.Flags().GetBool("clear-parent")

	pairs, _ := cmd.Flags().GetStringSlice("field")
	fields, err := parseFields(pairs)
	if err != nil {
		return upd, err
	}
	upd.Fields = fields
	return upd, nil
}

// printTransitionError shows where the issue can actually go.
func printTransitionError(te *storage.TransitionError) {
	fmt.Printf("%s %s: cannot move %s from %s to %s\n",
		ui.RenderFailIcon(), te.IssueID, te.IssueType, te.From, te.To)
	if len(te.MissingFields) > 0 {
		fmt.Printf("  missing required fields: %s\n", ui.RenderWarn(strings.Join(te.MissingFields, ", ")))
	}
	if len(te.Valid) > 0 {
		fmt.Println("  valid transitions:")
		for _, opt := range te.Valid {
			line := "    → " + opt.To
			if len(opt.MissingFields) > 0 {
				line += ui.RenderMuted(fmt.Sprintf(" (needs %s)", strings.Join(opt.MissingFields, ", ")))
			}
			fmt.Println(line)
		}
	}
}

func init() {
	updateCmd.Flags().String("title", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().String("notes", "", "New notes")
	updateCmd.Flags().StringP("status", "s", "", "New status (validated against the workflow template)")
	updateCmd.Flags().IntP("priority", "p", 0, "New priority 0-4")
	updateCmd.Flags().StringP("assignee", "a", "", "New assignee (empty string to unassign)")
	updateCmd.Flags().String("parent", "", "New parent issue id")
	updateCmd.Flags().Bool("clear-parent", false, "Remove the parent link")
	updateCmd.Flags().StringSlice("field", nil, "Type-specific field, key=value; a key with JSON null deletes it (repeatable)")
	rootCmd.AddCommand(updateCmd)
}
