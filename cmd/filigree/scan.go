package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/config"
	"github.com/filigree-dev/filigree/internal/configfile"
	"github.com/filigree-dev/filigree/internal/scan"
	"github.com/filigree-dev/filigree/internal/ui"
)

var scanCmd = &cobra.Command{
	Use:     "scan",
	GroupID: "files",
	Short:   "Ingest and manage scanner findings",
}

var scanIngestCmd = &cobra.Command{
	Use:   "ingest <results.json>",
	Short: "Ingest a scanner run",
	Long: `Ingest scan results from a JSON file (or stdin with "-").

The file is either a full request ({"scan_source": ..., "findings":
[...]}) or a bare findings array combined with --source. Repeat
observations of a known finding bump its seen count instead of creating
duplicates. With --mark-unseen, open findings from the same source that
this run did not report are moved to unseen_in_latest.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		source, _ := cmd.Flags().GetString("source")
		runID, _ := cmd.Flags().GetString("run-id")
		markUnseen, _ := cmd.Flags().GetBool("mark-unseen")

		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			fatalf("reading results: %v", err)
		}

		var req scan.Request
		if strings.HasPrefix(strings.TrimSpace(string(data)), "[") {
			if err := json.Unmarshal(data, &req.Findings); err != nil {
				fatalf("parsing findings array: %v", err)
			}
		} else if err := json.Unmarshal(data, &req); err != nil {
			fatalf("parsing request: %v", err)
		}
		if source != "" {
			req.ScanSource = source
		}
		if runID != "" {
			req.ScanRunID = runID
		}
		if markUnseen {
			req.MarkUnseen = true
		}

		result, err := store.IngestScanResults(rootCtx, req)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("%s Ingested %s run: %d files, %d new, %d updated, %d marked unseen\n",
			ui.RenderPassIcon(), req.ScanSource, result.FilesSeen,
			result.FindingsNew, result.FindingsUpdated, result.FindingsMarkedUnseen)
		for _, w := range result.Warnings {
			fmt.Printf("%s %s\n", ui.RenderWarnIcon(), w)
		}
	},
}

var scanCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Resolve findings that scanners stopped reporting",
	Long: `Mark stale unseen_in_latest findings as fixed. A finding is stale when
it has stayed unseen longer than the cutoff.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		source, _ := cmd.Flags().GetString("source")
		olderThan := config.GetDuration("scan.stale-after")
		if cmd.Flags().Changed("older-than") {
			olderThan, _ = cmd.Flags().GetDuration("older-than")
		}

		cleaned, err := store.CleanStaleFindings(rootCtx, olderThan, source)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]int64{"cleaned": cleaned})
			return
		}
		fmt.Printf("%s Resolved %d stale findings\n", ui.RenderPassIcon(), cleaned)
	},
}

var scannersCmd = &cobra.Command{
	Use:   "scanners",
	Short: "List scanners registered with the project",
	Long: `List scanner definitions from .filigree/scanners/*.toml. The tracker
never runs these commands itself; the registry tells agents and scripts
what to run and which source name to ingest under.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if projectDir == "" {
			fatalf("no project directory (scanners require a .filigree project)")
		}
		defs, err := scan.LoadScanners(filepath.Join(projectDir, configfile.ScannersDir))
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(defs)
			return
		}
		if len(defs) == 0 {
			fmt.Println("No scanners registered.")
			return
		}
		for _, def := range defs {
			fmt.Printf("%s (source %s)\n", ui.RenderAccent(def.Name), def.Source)
			if def.Description != "" {
				fmt.Printf("  %s\n", def.Description)
			}
			if len(def.Command) > 0 {
				fmt.Printf("  %s %s\n", ui.RenderMuted("command:"), strings.Join(def.Command, " "))
			}
		}
	},
}

func init() {
	scanIngestCmd.Flags().String("source", "", "Scanner source name (overrides the file's scan_source)")
	scanIngestCmd.Flags().String("run-id", "", "Identifier for this scanner run")
	scanIngestCmd.Flags().Bool("mark-unseen", false, "Mark findings missing from this run as unseen_in_latest")
	scanCleanCmd.Flags().String("source", "", "Restrict to one scanner source")
	scanCleanCmd.Flags().Duration("older-than", 14*24*time.Hour, "Resolve findings unseen longer than this")
	scanCmd.AddCommand(scanIngestCmd)
	scanCmd.AddCommand(scanCleanCmd)
	scanCmd.AddCommand(scannersCmd)
	rootCmd.AddCommand(scanCmd)
}
