package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
	"github.com/filigree-dev/filigree/internal/workflow"
)

var transitionsCmd = &cobra.Command{
	Use:     "transitions <id>",
	GroupID: "views",
	Short:   "Show where an issue can go from its current status",
	Long: `List the transitions declared for the issue's current status, with
per-target readiness: a target needing unpopulated required fields is
shown with what is missing.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		issue, err := store.GetIssue(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		opts := registry.ValidTransitions(issue.IssueType, issue.Status, issue.Fields)
		if jsonOutput {
			outputJSON(opts)
			return
		}
		if len(opts) == 0 {
			fmt.Printf("%s is terminal for type %s (or the type is unknown).\n", issue.Status, issue.IssueType)
			return
		}
		fmt.Printf("%s %s (%s, %s)\n", ui.RenderAccent(issue.ID), issue.Title, issue.IssueType, issue.Status)
		for _, opt := range opts {
			marker := ui.RenderPassIcon()
			note := ""
			if !opt.Ready {
				switch opt.Enforcement {
				case workflow.EnforcementHard:
					marker = ui.RenderFailIcon()
				default:
					marker = ui.RenderWarnIcon()
				}
				note = ui.RenderMuted(fmt.Sprintf(" needs %s (%s)", strings.Join(opt.MissingFields, ", "), opt.Enforcement))
			}
			fmt.Printf("  %s → %s (%s)%s\n", marker, opt.To, opt.Category, note)
		}
	},
}

var typesCmd = &cobra.Command{
	Use:     "types",
	GroupID: "views",
	Short:   "List registered issue types and their workflows",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		names := registry.TypeNames()
		if jsonOutput {
			out := make([]map[string]any, 0, len(names))
			for _, name := range names {
				out = append(out, map[string]any{
					"name":    name,
					"states":  registry.ValidStates(name),
					"initial": registry.InitialState(name),
				})
			}
			outputJSON(out)
			return
		}
		for _, name := range names {
			fmt.Printf("%s: %s\n", ui.RenderAccent(name), strings.Join(registry.ValidStates(name), " → "))
		}
		for _, w := range registry.Warnings() {
			fmt.Printf("%s %s\n", ui.RenderWarnIcon(), w)
		}
	},
}

func init() {
	rootCmd.AddCommand(transitionsCmd)
	rootCmd.AddCommand(typesCmd)
}
