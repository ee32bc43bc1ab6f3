package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var planCmd = &cobra.Command{
	Use:     "plan <plan.json>",
	GroupID: "deps",
	Short:   "Create a milestone with phases and steps atomically",
	Long: `Create a whole plan in one transaction: a milestone, its phases, and
each phase's steps, with dependency edges between steps.

The plan file is JSON:

  {
    "milestone": "Ship v2",
    "phases": [
      {"title": "Design", "steps": [{"title": "Write RFC"}]},
      {"title": "Build", "steps": [
        {"title": "Implement", "deps": ["0.0"]},
        {"title": "Test", "deps": [0]}
      ]}
    ]
  }

A step dep that is a number refers to a step in the same phase by index;
a "phase.step" string crosses phases. Any invalid reference or cycle
rolls the whole plan back.

Use "-" to read the plan from stdin.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			fatalf("reading plan: %v", err)
		}

		var spec types.PlanSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			fatalf("parsing plan: %v", err)
		}

		result, err := store.CreatePlan(rootCtx, spec, getActor())
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("%s Created milestone %s: %s\n", ui.RenderPassIcon(),
			ui.RenderAccent(result.MilestoneID), spec.Milestone)
		for i, phaseID := range result.PhaseIDs {
			fmt.Printf("  %s %s\n", ui.RenderAccent(phaseID), spec.Phases[i].Title)
			for j, stepID := range result.StepIDs[i] {
				fmt.Printf("    %s %s\n", ui.RenderAccent(stepID), spec.Phases[i].Steps[j].Title)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
