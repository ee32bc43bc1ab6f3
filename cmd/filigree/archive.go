package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/config"
	"github.com/filigree-dev/filigree/internal/timeparsing"
	"github.com/filigree-dev/filigree/internal/ui"
)

var archiveCmd = &cobra.Command{
	Use:     "archive",
	GroupID: "data",
	Short:   "Archive closed issues older than a cutoff",
	Long: `Move long-closed issues to the archived status so they drop out of
default listings. Archived issues keep their history and remain
searchable with --status archived.

The cutoff accepts a duration ("720h") or a natural expression
("30 days ago") via --before.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		olderThan := config.GetDuration("archive.older-than")
		if cmd.Flags().Changed("older-than") {
			olderThan, _ = cmd.Flags().GetDuration("older-than")
		}
		if before, _ := cmd.Flags().GetString("before"); before != "" {
			at, err := timeparsing.Parse(before, time.Now())
			if err != nil {
				fatalf("parsing --before: %v", err)
			}
			olderThan = time.Since(at)
		}
		if olderThan <= 0 {
			fatalf("cutoff must be in the past")
		}

		ids, err := store.ArchiveClosed(rootCtx, olderThan, getActor())
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]any{"archived": ids})
			return
		}
		if len(ids) == 0 {
			fmt.Println("Nothing to archive.")
			return
		}
		for _, id := range ids {
			fmt.Printf("%s Archived %s\n", ui.RenderPassIcon(), ui.RenderAccent(id))
		}
	},
}

var compactCmd = &cobra.Command{
	Use:     "compact",
	GroupID: "data",
	Short:   "Compact event history for archived issues",
	Long: `Delete old events for archived issues, keeping the most recent few
per issue. Events on live issues are never touched.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		keep := config.GetInt("compact.keep-recent")
		if cmd.Flags().Changed("keep") {
			keep, _ = cmd.Flags().GetInt("keep")
		}
		removed, err := store.CompactEvents(rootCtx, keep)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]int64{"removed_events": removed})
			return
		}
		fmt.Printf("%s Removed %d events\n", ui.RenderPassIcon(), removed)
	},
}

func init() {
	archiveCmd.Flags().Duration("older-than", 30*24*time.Hour, "Archive issues closed longer ago than this")
	archiveCmd.Flags().String("before", "", "Archive issues closed before this time (natural language ok)")
	compactCmd.Flags().Int("keep", 50, "Events to keep per archived issue")
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(compactCmd)
}
