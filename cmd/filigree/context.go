package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/configfile"
	"github.com/filigree-dev/filigree/internal/summary"
	"github.com/filigree-dev/filigree/internal/ui"
)

var contextCmd = &cobra.Command{
	Use:     "context",
	GroupID: "views",
	Short:   "Show the project summary",
	Long: `Render the markdown summary projection: vitals, ready and blocked
work, stale issues, the critical path, and recent activity.

With --refresh the projection file is also rewritten; otherwise the
summary is computed from the live database without touching disk.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		refresh, _ := cmd.Flags().GetBool("refresh")
		raw, _ := cmd.Flags().GetBool("raw")

		path := ""
		if projectDir != "" {
			path = configfile.SummaryPath(projectDir)
		}
		writer := summary.New(store, registry, path)

		content, err := writer.Render(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if refresh {
			if path == "" {
				fatalf("--refresh requires a .filigree project")
			}
			if err := writer.Refresh(rootCtx); err != nil {
				fatalf("%v", err)
			}
		}

		if raw || jsonOutput {
			fmt.Print(content)
			return
		}
		fmt.Print(ui.RenderMarkdown(content))
	},
}

func init() {
	contextCmd.Flags().Bool("refresh", false, "Also rewrite .filigree/context.md")
	contextCmd.Flags().Bool("raw", false, "Print raw markdown without terminal rendering")
	rootCmd.AddCommand(contextCmd)
}
