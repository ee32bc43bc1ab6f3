package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

var filesCmd = &cobra.Command{
	Use:     "files",
	GroupID: "files",
	Short:   "Inspect tracked files and their findings",
}

var filesRegisterCmd = &cobra.Command{
	Use:   "register <path>",
	Short: "Register a file (or update its metadata)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		language, _ := cmd.Flags().GetString("language")
		fileType, _ := cmd.Flags().GetString("file-type")

		file, err := store.RegisterFile(rootCtx, args[0], language, fileType, nil)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(file)
			return
		}
		fmt.Printf("%s Registered %s (id %d)\n", ui.RenderPassIcon(), file.Path, file.ID)
	},
}

var filesFindingsCmd = &cobra.Command{
	Use:   "findings <path>",
	Short: "List scan findings for a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		file, err := store.GetFileByPath(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		findings, err := store.ListFindings(rootCtx, file.ID, types.FindingStatus(status))
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(findings)
			return
		}
		if len(findings) == 0 {
			fmt.Println("No findings.")
			return
		}
		for _, f := range findings {
			loc := ""
			if f.LineStart != nil {
				loc = fmt.Sprintf(":%d", *f.LineStart)
			}
			fmt.Printf("%s %s%s %s [%s] %s (seen %dx)\n",
				severityGlyph(f.Severity), file.Path, loc,
				ui.RenderAccent(f.RuleID), f.Status,
				ui.TruncateSimple(f.Message, 60), f.SeenCount)
			if f.Suggestion != "" {
				fmt.Printf("  %s %s\n", ui.RenderMuted("suggestion:"), ui.TruncateSimple(f.Suggestion, 70))
			}
		}
	},
}

var filesAssociateCmd = &cobra.Command{
	Use:   "associate <path> <issue-id>",
	Short: "Link a file to an issue",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		assocType, _ := cmd.Flags().GetString("type")

		file, err := store.GetFileByPath(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if err := store.AddFileAssociation(rootCtx, file.ID, args[1], types.AssocType(assocType)); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(map[string]any{"file_id": file.ID, "issue_id": args[1], "assoc_type": assocType})
			return
		}
		fmt.Printf("%s Linked %s to %s (%s)\n", ui.RenderPassIcon(), file.Path, ui.RenderAccent(args[1]), assocType)
	},
}

var filesTimelineCmd = &cobra.Command{
	Use:   "timeline <path>",
	Short: "Show the merged history of a file",
	Long: `Show file metadata events, scan findings, and events from associated
issues, newest first.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eventType, _ := cmd.Flags().GetString("event-type")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		file, err := store.GetFileByPath(rootCtx, args[0])
		if err != nil {
			fatalf("%v", err)
		}
		entries, err := store.GetFileTimeline(rootCtx, file.ID, eventType, limit, offset)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(entries)
			return
		}
		if len(entries) == 0 {
			fmt.Println("No history.")
			return
		}
		for _, e := range entries {
			line := fmt.Sprintf("%s %s %s",
				ui.RenderMuted(e.CreatedAt.Format("2006-01-02 15:04")),
				e.EventType, ui.TruncateSimple(e.Detail, 60))
			if e.IssueID != "" {
				line += " " + ui.RenderAccent(e.IssueID)
			}
			fmt.Println(line)
		}
	},
}

var filesHotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Rank files by open finding weight",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		hotspots, err := store.GetFileHotspots(rootCtx, limit)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			outputJSON(hotspots)
			return
		}
		if len(hotspots) == 0 {
			fmt.Println("No open findings.")
			return
		}
		for _, h := range hotspots {
			fmt.Printf("%4d  %s (%d open", h.Score, ui.RenderAccent(h.Path), h.OpenFindings)
			if h.Critical > 0 {
				fmt.Printf(", %s", ui.RenderFail(fmt.Sprintf("%d critical", h.Critical)))
			}
			if h.High > 0 {
				fmt.Printf(", %s", ui.RenderWarn(fmt.Sprintf("%d high", h.High)))
			}
			fmt.Println(")")
		}
	},
}

func severityGlyph(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return ui.RenderFail("‼")
	case types.SeverityHigh:
		return ui.RenderFail("!")
	case types.SeverityMedium:
		return ui.RenderWarn("!")
	default:
		return ui.RenderMuted("·")
	}
}

func init() {
	filesRegisterCmd.Flags().String("language", "", "Source language")
	filesRegisterCmd.Flags().String("file-type", "", "File kind (source, config, doc, ...)")
	filesFindingsCmd.Flags().StringP("status", "s", "", "Filter by finding status")
	filesAssociateCmd.Flags().StringP("type", "t", string(types.AssocMentionedIn), "Association type (bug_in, task_for, scan_finding, mentioned_in)")
	filesTimelineCmd.Flags().String("event-type", "", "Filter by event type")
	filesTimelineCmd.Flags().Int("limit", 50, "Maximum entries")
	filesTimelineCmd.Flags().Int("offset", 0, "Skip this many entries")
	filesHotspotsCmd.Flags().Int("limit", 10, "Maximum files")
	filesCmd.AddCommand(filesRegisterCmd)
	filesCmd.AddCommand(filesFindingsCmd)
	filesCmd.AddCommand(filesAssociateCmd)
	filesCmd.AddCommand(filesTimelineCmd)
	filesCmd.AddCommand(filesHotspotsCmd)
	rootCmd.AddCommand(filesCmd)
}
