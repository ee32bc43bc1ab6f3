package summary

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/filigree-dev/filigree/internal/storage/sqlite"
	"github.com/filigree-dev/filigree/internal/types"
	"github.com/filigree-dev/filigree/internal/workflow"
)

func setupWriter(t *testing.T) (*sqlite.FiligreeStore, *Writer, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(dir, "test.db"), sqlite.Options{Prefix: "test"})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	path := filepath.Join(dir, "context.md")
	return store, New(store, workflow.Builtin(), path), path
}

func create(t *testing.T, s *sqlite.FiligreeStore, title string, mutate ...func(*types.Issue)) string {
	t.Helper()
	issue := &types.Issue{Title: title, Priority: 2}
	for _, m := range mutate {
		m(issue)
	}
	if err := s.CreateIssue(context.Background(), issue, "tester"); err != nil {
		t.Fatalf("CreateIssue(%q) failed: %v", title, err)
	}
	return issue.ID
}

// TestRenderEmpty verifies the projection renders on an empty store with
// the placeholder sections.
func TestRenderEmpty(t *testing.T) {
	_, w, _ := setupWriter(t)

	content, err := w.Render(context.Background())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{
		"# Project Context",
		"## Vitals",
		"- **Total:** 0 issues",
		"_Nothing is ready to start._",
		"_Nothing in progress._",
		"_No activity yet._",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("expected %q in empty projection:\n%s", want, content)
		}
	}
	// Empty sections are omitted entirely, not rendered blank.
	for _, absent := range []string{"## Blocked", "## Epic Progress", "## Critical Path", "## Stale"} {
		if strings.Contains(content, absent) {
			t.Errorf("did not expect %q in empty projection", absent)
		}
	}
}

// TestRenderPopulated verifies each section against a small seeded project.
func TestRenderPopulated(t *testing.T) {
	s, w, _ := setupWriter(t)
	ctx := context.Background()

	// Dependency chain root <- mid <- tip drives Ready, Blocked, and
	// Critical Path at once.
	root := create(t, s, "Design schema", func(i *types.Issue) { i.Priority = 1 })
	mid := create(t, s, "Implement storage")
	tip := create(t, s, "Wire the API")
	if err := s.AddDependency(ctx, mid, root, "", "tester"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDependency(ctx, tip, mid, "", "tester"); err != nil {
		t.Fatal(err)
	}

	wip := create(t, s, "Ongoing refactor", func(i *types.Issue) { i.Assignee = "alice" })
	status := "in_progress"
	if err := s.UpdateIssue(ctx, wip, types.IssueUpdate{Status: &status}, "alice"); err != nil {
		t.Fatal(err)
	}

	epic := create(t, s, "Q3 epic", func(i *types.Issue) { i.IssueType = "epic" })
	done := create(t, s, "Done child", func(i *types.Issue) { i.ParentID = &epic })
	create(t, s, "Open child", func(i *types.Issue) { i.ParentID = &epic })
	if err := s.CloseIssue(ctx, done, "", nil, "", "tester"); err != nil {
		t.Fatal(err)
	}

	content, err := w.Render(ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if !strings.Contains(content, "[P1] "+root) {
		t.Errorf("expected %s in Ready:\n%s", root, content)
	}
	if !strings.Contains(content, wip+" Ongoing refactor (in_progress, alice)") {
		t.Errorf("expected the wip line:\n%s", content)
	}
	if !strings.Contains(content, "## Blocked") || !strings.Contains(content, mid+" Implement storage — waiting on "+root) {
		t.Errorf("expected blocked section naming the blocker:\n%s", content)
	}
	if !strings.Contains(content, epic+" Q3 epic — 1/2 children done") {
		t.Errorf("expected epic rollup:\n%s", content)
	}
	if !strings.Contains(content, root+" → "+mid+" → "+tip) {
		t.Errorf("expected the critical path chain:\n%s", content)
	}
	if !strings.Contains(content, "## Recent Activity") || !strings.Contains(content, "created (tester)") {
		t.Errorf("expected recent activity lines:\n%s", content)
	}
}

// TestRenderNeedsAttention verifies wip issues with unpopulated required
// fields are called out.
func TestRenderNeedsAttention(t *testing.T) {
	s, w, _ := setupWriter(t)
	ctx := context.Background()

	bug := &types.Issue{Title: "Crash on resize", Priority: 1, IssueType: "bug"}
	if err := s.CreateIssue(ctx, bug, "tester"); err != nil {
		t.Fatal(err)
	}
	// Ride the soft gates into fixing without supplying any fields.
	for _, status := range []string{"confirmed", "fixing"} {
		st := status
		if err := s.UpdateIssue(ctx, bug.ID, types.IssueUpdate{Status: &st}, "tester"); err != nil {
			t.Fatalf("advancing to %s: %v", status, err)
		}
	}

	content, err := w.Render(ctx)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(content, "## Needs Attention") {
		t.Fatalf("expected a needs-attention section:\n%s", content)
	}
	if !strings.Contains(content, bug.ID+" Crash on resize — missing severity, root_cause") {
		t.Errorf("expected the missing fields named:\n%s", content)
	}
}

// TestRefreshWritesFile verifies the atomic write lands on disk.
func TestRefreshWritesFile(t *testing.T) {
	s, w, path := setupWriter(t)
	ctx := context.Background()
	create(t, s, "Something")

	if err := w.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading projection: %v", err)
	}
	if !strings.Contains(string(data), "# Project Context") {
		t.Errorf("unexpected projection content:\n%s", data)
	}
	if !strings.Contains(string(data), "- **Total:** 1 issues") {
		t.Errorf("expected the created issue counted:\n%s", data)
	}
}

// TestHookRefreshesOnMutation verifies wiring the writer into the store's
// mutation hook keeps the file current.
func TestHookRefreshesOnMutation(t *testing.T) {
	s, w, path := setupWriter(t)
	s.SetMutationHook(w.Hook())

	id := create(t, s, "Triggers the hook")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("projection not written by hook: %v", err)
	}
	if !strings.Contains(string(data), id) {
		t.Errorf("expected %s in hooked projection:\n%s", id, data)
	}
}
