package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/filigree-dev/filigree/internal/types"
)

// TestGetStatistics verifies the category counts and the blocked/ready
// split over a small mixed graph.
func TestGetStatistics(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ready := mustCreate(t, s, "Ready")
	blocked := mustCreate(t, s, "Blocked")
	if err := s.AddDependency(ctx, blocked, ready, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	wip := mustCreate(t, s, "Working")
	status := "in_progress"
	if err := s.UpdateIssue(ctx, wip, types.IssueUpdate{Status: &status}, "alice"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
	done := mustCreate(t, s, "Done")
	if err := s.CloseIssue(ctx, done, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	stats, err := s.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalIssues != 4 {
		t.Errorf("expected 4 total, got %d", stats.TotalIssues)
	}
	if stats.OpenIssues != 2 || stats.InProgressIssues != 1 || stats.ClosedIssues != 1 {
		t.Errorf("unexpected category split: %+v", stats)
	}
	if stats.ReadyIssues != 1 {
		t.Errorf("expected 1 ready, got %d", stats.ReadyIssues)
	}
	if stats.BlockedIssues != 1 {
		t.Errorf("expected 1 blocked, got %d", stats.BlockedIssues)
	}
	if stats.AverageLeadTime < 0 {
		t.Errorf("lead time must not be negative, got %f", stats.AverageLeadTime)
	}
}

// TestGetStatisticsEmpty verifies the zero state does not trip on NULL
// aggregates.
func TestGetStatisticsEmpty(t *testing.T) {
	s := setupTestStore(t)

	stats, err := s.GetStatistics(context.Background())
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalIssues != 0 || stats.OpenIssues != 0 || stats.AverageLeadTime != 0 {
		t.Errorf("expected zeroes, got %+v", stats)
	}
}

// TestGetStaleIssues verifies only quiet wip issues come back, oldest
// first.
func TestGetStaleIssues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	stale := mustCreate(t, s, "Forgotten")
	fresh := mustCreate(t, s, "Active")
	status := "in_progress"
	for _, id := range []string{stale, fresh} {
		if err := s.UpdateIssue(ctx, id, types.IssueUpdate{Status: &status}, "alice"); err != nil {
			t.Fatalf("UpdateIssue failed: %v", err)
		}
	}
	idleOpen := mustCreate(t, s, "Old but open")

	past := utcNow().Add(-10 * 24 * time.Hour)
	for _, id := range []string{stale, idleOpen} {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE issues SET updated_at = ? WHERE id = ?`, past, id); err != nil {
			t.Fatalf("backdating %s: %v", id, err)
		}
	}

	issues, err := s.GetStaleIssues(ctx, 72*time.Hour, 0)
	if err != nil {
		t.Fatalf("GetStaleIssues failed: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != stale {
		t.Errorf("expected only %s stale, got %v", stale, issueIDs(issues))
	}
}

// TestGetEpicProgress verifies child rollups count done children per
// parent.
func TestGetEpicProgress(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	epic := mustCreate(t, s, "Epic", func(i *types.Issue) { i.IssueType = "epic" })
	childA := mustCreate(t, s, "Child A", func(i *types.Issue) { i.ParentID = &epic })
	mustCreate(t, s, "Child B", func(i *types.Issue) { i.ParentID = &epic })
	mustCreate(t, s, "No children")
	if err := s.CloseIssue(ctx, childA, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	progress, err := s.GetEpicProgress(ctx, 0)
	if err != nil {
		t.Fatalf("GetEpicProgress failed: %v", err)
	}
	if len(progress) != 1 {
		t.Fatalf("expected one parent with children, got %d", len(progress))
	}
	p := progress[0]
	if p.Epic.ID != epic || p.TotalChildren != 2 || p.ClosedChildren != 1 {
		t.Errorf("unexpected rollup: %s %d/%d", p.Epic.ID, p.ClosedChildren, p.TotalChildren)
	}
}
