// Package summary renders the context.md projection: a markdown snapshot
// of the store rewritten atomically after every mutation.
package summary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/utils"
	"github.com/filigree-dev/filigree/internal/workflow"
)

// Policy constants. Surfaceable as configuration, but these are the
// defaults consumers rely on.
const (
	ReadyCap       = 12
	BlockedCap     = 10
	EpicCap        = 10
	RecentCap      = 10
	StaleThreshold = 3 * 24 * time.Hour
)

// Writer recomputes and writes the summary projection. Concurrent
// refreshes collapse into one: a burst of mutations produces a single
// write with the latest data.
type Writer struct {
	store    storage.Store
	registry *workflow.Registry
	path     string
	group    singleflight.Group
}

// New returns a Writer targeting the given file path.
func New(store storage.Store, registry *workflow.Registry, path string) *Writer {
	return &Writer{store: store, registry: registry, path: path}
}

// Hook adapts the writer for the store's mutation hook. The projection is
// a pure read; its failure is logged, never surfaced to the mutation.
func (w *Writer) Hook() func() {
	return func() {
		if err := w.Refresh(context.Background()); err != nil {
			debug.Warnf("summary: refresh failed: %v\n", err)
		}
	}
}

// Refresh recomputes the projection and atomically replaces the file.
func (w *Writer) Refresh(ctx context.Context) error {
	_, err, _ := w.group.Do("refresh", func() (any, error) {
		content, err := w.Render(ctx)
		if err != nil {
			return nil, err
		}
		return nil, utils.WriteFileAtomic(w.path, []byte(content), 0o644)
	})
	return err
}

// Render produces the markdown without writing it.
func (w *Writer) Render(ctx context.Context) (string, error) {
	var b strings.Builder
	now := time.Now().UTC()
	fmt.Fprintf(&b, "# Project Context\n\n")
	fmt.Fprintf(&b, "_Updated %s_\n\n", now.Format(time.RFC3339))

	if err := w.writeVitals(ctx, &b); err != nil {
		return "", err
	}
	if err := w.writeMilestones(ctx, &b); err != nil {
		return "", err
	}

	issues, err := w.store.ListIssues(ctx, types.IssueFilter{})
	if err != nil {
		return "", err
	}

	if err := w.writeReady(ctx, &b); err != nil {
		return "", err
	}
	w.writeInProgress(&b, issues)
	w.writeNeedsAttention(&b, issues)
	if err := w.writeStale(ctx, &b); err != nil {
		return "", err
	}
	if err := w.writeBlocked(ctx, &b); err != nil {
		return "", err
	}
	if err := w.writeEpics(ctx, &b); err != nil {
		return "", err
	}
	if err := w.writeCriticalPath(ctx, &b); err != nil {
		return "", err
	}
	if err := w.writeRecentActivity(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (w *Writer) writeVitals(ctx context.Context, b *strings.Builder) error {
	stats, err := w.store.GetStatistics(ctx)
	if err != nil {
		return err
	}
	b.WriteString("## Vitals\n\n")
	fmt.Fprintf(b, "- **Total:** %d issues (%d open, %d in progress, %d done)\n",
		stats.TotalIssues, stats.OpenIssues, stats.InProgressIssues, stats.ClosedIssues)
	fmt.Fprintf(b, "- **Ready:** %d · **Blocked:** %d\n", stats.ReadyIssues, stats.BlockedIssues)
	if stats.AverageLeadTime > 0 {
		fmt.Fprintf(b, "- **Average lead time:** %.1fh\n", stats.AverageLeadTime)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeMilestones(ctx context.Context, b *strings.Builder) error {
	progress, err := w.store.GetEpicProgress(ctx, 0)
	if err != nil {
		return err
	}
	var milestones []*types.EpicProgress
	for _, p := range progress {
		if p.Epic.IssueType == "milestone" && p.Epic.StatusCategory != types.CategoryDone {
			milestones = append(milestones, p)
		}
	}
	if len(milestones) == 0 {
		return nil
	}
	b.WriteString("## Active Milestones\n\n")
	for _, m := range milestones {
		fmt.Fprintf(b, "- %s **%s** — %d/%d steps done\n",
			m.Epic.ID, m.Epic.Title, m.ClosedChildren, m.TotalChildren)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeReady(ctx context.Context, b *strings.Builder) error {
	ready, err := w.store.GetReadyWork(ctx, types.WorkFilter{Limit: ReadyCap})
	if err != nil {
		return err
	}
	b.WriteString("## Ready\n\n")
	if len(ready) == 0 {
		b.WriteString("_Nothing is ready to start._\n\n")
		return nil
	}
	for _, issue := range ready {
		fmt.Fprintf(b, "- [P%d] %s %s\n", issue.Priority, issue.ID, issue.Title)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeInProgress(b *strings.Builder, issues []*types.Issue) {
	var wip []*types.Issue
	for _, issue := range issues {
		if issue.StatusCategory == types.CategoryWIP {
			wip = append(wip, issue)
		}
	}
	b.WriteString("## In Progress\n\n")
	if len(wip) == 0 {
		b.WriteString("_Nothing in progress._\n\n")
		return
	}
	for _, issue := range wip {
		who := issue.Assignee
		if who == "" {
			who = "unassigned"
		}
		fmt.Fprintf(b, "- %s %s (%s, %s)\n", issue.ID, issue.Title, issue.Status, who)
	}
	b.WriteString("\n")
}

// writeNeedsAttention lists wip issues whose current state has
// unpopulated required fields; they will hit a wall at their next
// transition.
func (w *Writer) writeNeedsAttention(b *strings.Builder, issues []*types.Issue) {
	type gap struct {
		issue   *types.Issue
		missing []string
	}
	var gaps []gap
	for _, issue := range issues {
		if issue.StatusCategory != types.CategoryWIP {
			continue
		}
		missing := w.registry.MissingFieldsForState(issue.IssueType, issue.Status, issue.Fields)
		if len(missing) > 0 {
			gaps = append(gaps, gap{issue, missing})
		}
	}
	if len(gaps) == 0 {
		return
	}
	b.WriteString("## Needs Attention\n\n")
	for _, g := range gaps {
		fmt.Fprintf(b, "- %s %s — missing %s\n", g.issue.ID, g.issue.Title, strings.Join(g.missing, ", "))
	}
	b.WriteString("\n")
}

func (w *Writer) writeStale(ctx context.Context, b *strings.Builder) error {
	stale, err := w.store.GetStaleIssues(ctx, StaleThreshold, 0)
	if err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	b.WriteString("## Stale\n\n")
	for _, issue := range stale {
		idle := time.Since(issue.UpdatedAt).Truncate(time.Hour)
		fmt.Fprintf(b, "- %s %s — idle %s\n", issue.ID, issue.Title, idle)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeBlocked(ctx context.Context, b *strings.Builder) error {
	blocked, err := w.store.GetBlockedIssues(ctx)
	if err != nil {
		return err
	}
	if len(blocked) == 0 {
		return nil
	}
	if len(blocked) > BlockedCap {
		blocked = blocked[:BlockedCap]
	}
	b.WriteString("## Blocked\n\n")
	for _, issue := range blocked {
		fmt.Fprintf(b, "- %s %s — waiting on %s\n",
			issue.ID, issue.Title, strings.Join(issue.BlockedByIDs, ", "))
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeEpics(ctx context.Context, b *strings.Builder) error {
	progress, err := w.store.GetEpicProgress(ctx, 0)
	if err != nil {
		return err
	}
	var epics []*types.EpicProgress
	for _, p := range progress {
		if p.Epic.IssueType == "epic" {
			epics = append(epics, p)
		}
	}
	if len(epics) == 0 {
		return nil
	}
	if len(epics) > EpicCap {
		epics = epics[:EpicCap]
	}
	b.WriteString("## Epic Progress\n\n")
	for _, p := range epics {
		fmt.Fprintf(b, "- %s %s — %d/%d children done\n",
			p.Epic.ID, p.Epic.Title, p.ClosedChildren, p.TotalChildren)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeCriticalPath(ctx context.Context, b *strings.Builder) error {
	path, err := w.store.GetCriticalPath(ctx)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return nil
	}
	b.WriteString("## Critical Path\n\n")
	ids := make([]string, len(path))
	for i, issue := range path {
		ids[i] = issue.ID
	}
	fmt.Fprintf(b, "%s\n\n", strings.Join(ids, " → "))
	for _, issue := range path {
		fmt.Fprintf(b, "- %s %s (%s)\n", issue.ID, issue.Title, issue.Status)
	}
	b.WriteString("\n")
	return nil
}

func (w *Writer) writeRecentActivity(ctx context.Context, b *strings.Builder) error {
	events, err := w.store.GetRecentEvents(ctx, RecentCap)
	if err != nil {
		return err
	}
	b.WriteString("## Recent Activity\n\n")
	if len(events) == 0 {
		b.WriteString("_No activity yet._\n")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("- %s %s %s", e.CreatedAt.Format("2006-01-02 15:04"), e.IssueID, e.EventType)
		if e.Actor != "" {
			line += " (" + e.Actor + ")"
		}
		b.WriteString(line + "\n")
	}
	return nil
}
