package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export [file.jsonl]",
	GroupID: "data",
	Short:   "Export all issues as JSONL",
	Long: `Write every issue as one JSON object per line, with labels,
dependencies, comments, and events embedded. Without a file argument
the stream goes to stdout.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var w io.Writer = os.Stdout
		toFile := len(args) == 1 && args[0] != "-"
		if toFile {
			f, err := os.Create(args[0])
			if err != nil {
				fatalf("creating %s: %v", args[0], err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}

		count, err := store.ExportJSONL(rootCtx, w)
		if err != nil {
			fatalf("%v", err)
		}
		if toFile {
			fmt.Printf("%s Exported %d issues to %s\n", ui.RenderPassIcon(), count, args[0])
		}
	},
}

var importCmd = &cobra.Command{
	Use:     "import [file.jsonl]",
	GroupID: "data",
	Short:   "Import issues from a JSONL stream",
	Long: `Re-ingest an export stream. Existing ids are skipped unless --merge
overwrites them. The whole import is one transaction: a malformed line
rolls everything back. Replaying the same stream is idempotent.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		merge, _ := cmd.Flags().GetBool("merge")

		var r io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fatalf("opening %s: %v", args[0], err)
			}
			defer func() { _ = f.Close() }()
			r = f
		}

		count, err := store.ImportJSONL(rootCtx, r, merge, getActor())
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]int{"imported": count})
			return
		}
		fmt.Printf("%s Imported %d issues\n", ui.RenderPassIcon(), count)
	},
}

func init() {
	importCmd.Flags().Bool("merge", false, "Overwrite existing issues instead of skipping them")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
