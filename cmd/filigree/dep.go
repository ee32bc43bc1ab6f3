package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	GroupID: "deps",
	Short:   "Manage dependencies between issues",
}

var depAddCmd = &cobra.Command{
	Use:   "add <id> <depends-on-id>",
	Short: "Add a dependency (id is blocked by depends-on-id)",
	Long: `Add a directed dependency edge. The edge is rejected if it would
create a cycle.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		if err := store.AddDependency(rootCtx, args[0], args[1], kind, getActor()); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]string{"issue_id": args[0], "depends_on_id": args[1]})
			return
		}
		fmt.Printf("%s %s now depends on %s\n", ui.RenderPassIcon(),
			ui.RenderAccent(args[0]), ui.RenderAccent(args[1]))
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <id> <depends-on-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		removed, err := store.RemoveDependency(rootCtx, args[0], args[1], getActor())
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]bool{"removed": removed})
			return
		}
		if !removed {
			fmt.Printf("No dependency from %s to %s.\n", args[0], args[1])
			return
		}
		fmt.Printf("%s Removed dependency %s → %s\n", ui.RenderPassIcon(), args[0], args[1])
	},
}

func init() {
	depAddCmd.Flags().String("kind", "", "Dependency kind (default: blocks)")
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	rootCmd.AddCommand(depCmd)
}
