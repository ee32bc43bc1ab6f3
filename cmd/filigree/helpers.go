package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/ui"
)

func fatalf(format string, args ...any) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{"error": fmt.Sprintf(format, args...)})
		fmt.Fprintln(os.Stderr, string(out))
	} else {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding output: %v\n", err)
		os.Exit(1)
	}
}

// getActor returns the name recorded in the event log.
// Priority: --actor flag / FILIGREE_ACTOR > git user.name > $USER > "unknown".
func getActor() string {
	if actor != "" {
		return actor
	}
	if out, err := exec.Command("git", "config", "user.name").Output(); err == nil {
		if gitUser := strings.TrimSpace(string(out)); gitUser != "" {
			return gitUser
		}
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "unknown"
}

// parseFields turns repeated --field key=value flags into a field bag.
// Values that parse as JSON keep their type; everything else is a string.
func parseFields(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q (want key=value)", pair)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err == nil {
			fields[key] = parsed
		} else {
			fields[key] = value
		}
	}
	return fields, nil
}

// statusGlyph returns a colored one-character marker for a status category.
func statusGlyph(cat types.Category) string {
	switch cat {
	case types.CategoryDone:
		return ui.RenderPass("●")
	case types.CategoryWIP:
		return ui.RenderWarn("◐")
	default:
		return ui.RenderMuted("○")
	}
}

// printIssueLine prints the one-line list representation of an issue.
func printIssueLine(issue *types.Issue) {
	marker := statusGlyph(issue.StatusCategory)
	title := ui.TruncateSimple(issue.Title, 70)
	line := fmt.Sprintf("%s %s [P%d] %s", marker, ui.RenderAccent(issue.ID), issue.Priority, title)
	if issue.Assignee != "" {
		line += ui.RenderMuted(" @" + issue.Assignee)
	}
	if len(issue.Labels) > 0 {
		line += ui.RenderMuted(" [" + strings.Join(issue.Labels, ",") + "]")
	}
	if len(issue.BlockedBy) > 0 {
		line += ui.RenderFail(" ⊘" + strconv.Itoa(len(issue.BlockedBy)))
	}
	fmt.Println(line)
}

func printIssueList(issues []*types.Issue) {
	if jsonOutput {
		outputJSON(issues)
		return
	}
	if len(issues) == 0 {
		fmt.Println("No issues found.")
		return
	}
	for _, issue := range issues {
		printIssueLine(issue)
	}
}

// printBatchResult reports a batch outcome and exits non-zero when every
// item failed.
func printBatchResult(verb string, result *types.BatchResult) {
	if jsonOutput {
		outputJSON(result)
	} else {
		for _, id := range result.Succeeded {
			fmt.Printf("%s %s %s\n", ui.RenderPassIcon(), verb, id)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "%s %s: %s\n", ui.RenderFailIcon(), e.ID, e.Err)
		}
	}
	if len(result.Succeeded) == 0 && len(result.Errors) > 0 {
		os.Exit(1)
	}
}
