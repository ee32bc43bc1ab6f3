package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// TestAddDependencyBlocksReadiness verifies an edge on an open blocker
// takes an issue out of the ready set and RemoveDependency restores it.
func TestAddDependencyBlocksReadiness(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	blocker := mustCreate(t, s, "Do first")
	blocked := mustCreate(t, s, "Do second")

	if err := s.AddDependency(ctx, blocked, blocker, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	ready, err := s.GetReadyWork(ctx, types.WorkFilter{})
	if err != nil {
		t.Fatalf("GetReadyWork failed: %v", err)
	}
	if len(ready) != 1 || ready[0].ID != blocker {
		t.Errorf("expected only %s ready, got %v", blocker, issueIDs(ready))
	}

	removed, err := s.RemoveDependency(ctx, blocked, blocker, "alice")
	if err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}
	if !removed {
		t.Error("expected RemoveDependency to report a removed edge")
	}

	ready, err = s.GetReadyWork(ctx, types.WorkFilter{})
	if err != nil {
		t.Fatalf("GetReadyWork failed: %v", err)
	}
	if len(ready) != 2 {
		t.Errorf("expected both issues ready after removal, got %v", issueIDs(ready))
	}
}

// TestRemoveDependencyAbsent verifies removing a missing edge reports
// false without error.
func TestRemoveDependencyAbsent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")

	removed, err := s.RemoveDependency(ctx, a, b, "alice")
	if err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}
	if removed {
		t.Error("expected false for an absent edge")
	}
}

// TestAddDependencySelf verifies self-edges are rejected.
func TestAddDependencySelf(t *testing.T) {
	s := setupTestStore(t)
	a := mustCreate(t, s, "Self")

	err := s.AddDependency(context.Background(), a, a, "", "alice")
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for self-dependency, got %v", err)
	}
}

// TestAddDependencyCycle verifies closing a three-node cycle is refused
// and leaves the graph untouched.
func TestAddDependencyCycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	c := mustCreate(t, s, "C")

	if err := s.AddDependency(ctx, b, a, "", "alice"); err != nil {
		t.Fatalf("AddDependency b->a failed: %v", err)
	}
	if err := s.AddDependency(ctx, c, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency c->b failed: %v", err)
	}

	// a -> c would close a cycle a -> c -> b -> a.
	err := s.AddDependency(ctx, a, c, "", "alice")
	if !errors.Is(err, storage.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}

	got, err := s.GetIssue(ctx, a)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if len(got.BlockedBy) != 0 {
		t.Errorf("refused edge must not persist, got blockers %v", got.BlockedBy)
	}
}

// TestAddDependencyMissingEndpoint verifies both sides must exist.
func TestAddDependencyMissingEndpoint(t *testing.T) {
	s := setupTestStore(t)
	a := mustCreate(t, s, "A")

	if err := s.AddDependency(context.Background(), a, "test-ghost", "", "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestAddDependencyIdempotent verifies re-adding an edge is a no-op that
// records no second event.
func TestAddDependencyIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")

	if err := s.AddDependency(ctx, a, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.AddDependency(ctx, a, b, "", "alice"); err != nil {
		t.Fatalf("repeated AddDependency failed: %v", err)
	}

	events, err := s.GetEvents(ctx, a, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	count := 0
	for _, e := range events {
		if e.EventType == types.EventDependencyAdded {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one dependency_added event, got %d", count)
	}
}

// TestClosedBlockerDoesNotBlock verifies readiness only counts blockers
// outside the done category.
func TestClosedBlockerDoesNotBlock(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	blocker := mustCreate(t, s, "Almost done")
	blocked := mustCreate(t, s, "Waiting")
	if err := s.AddDependency(ctx, blocked, blocker, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.CloseIssue(ctx, blocker, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	got, err := s.GetIssue(ctx, blocked)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if len(got.BlockedBy) != 0 {
		t.Errorf("closed blocker should not appear in BlockedBy, got %v", got.BlockedBy)
	}
	if !got.IsReady {
		t.Error("issue should be ready once its blocker closes")
	}
}

// TestGetBlockedIssues verifies blocked listing carries blocker ids.
func TestGetBlockedIssues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	b1 := mustCreate(t, s, "Blocker one")
	b2 := mustCreate(t, s, "Blocker two")
	blocked := mustCreate(t, s, "Stuck")
	for _, b := range []string{b1, b2} {
		if err := s.AddDependency(ctx, blocked, b, "", "alice"); err != nil {
			t.Fatalf("AddDependency failed: %v", err)
		}
	}

	list, err := s.GetBlockedIssues(ctx)
	if err != nil {
		t.Fatalf("GetBlockedIssues failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one blocked issue, got %d", len(list))
	}
	if list[0].ID != blocked || list[0].BlockedByCount != 2 {
		t.Errorf("expected %s blocked by 2, got %s blocked by %d",
			blocked, list[0].ID, list[0].BlockedByCount)
	}
}

// TestGetReadyWorkFilters exercises the work filter dimensions.
func TestGetReadyWorkFilters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "Urgent bug", func(i *types.Issue) {
		i.IssueType = "bug"
		i.Priority = 0
	})
	assigned := mustCreate(t, s, "Taken", func(i *types.Issue) { i.Assignee = "bob" })
	mustCreate(t, s, "Free", func(i *types.Issue) { i.Priority = 3 })

	ready, err := s.GetReadyWork(ctx, types.WorkFilter{Type: "bug"})
	if err != nil {
		t.Fatalf("GetReadyWork(type) failed: %v", err)
	}
	if len(ready) != 1 || ready[0].IssueType != "bug" {
		t.Errorf("type filter: got %v", issueIDs(ready))
	}

	ready, err = s.GetReadyWork(ctx, types.WorkFilter{Unassigned: true})
	if err != nil {
		t.Fatalf("GetReadyWork(unassigned) failed: %v", err)
	}
	for _, issue := range ready {
		if issue.ID == assigned {
			t.Errorf("unassigned filter returned assigned issue %s", assigned)
		}
	}

	ready, err = s.GetReadyWork(ctx, types.WorkFilter{PriorityMax: intPtr(1)})
	if err != nil {
		t.Fatalf("GetReadyWork(priority) failed: %v", err)
	}
	if len(ready) != 1 || ready[0].Priority != 0 {
		t.Errorf("priority filter: got %v", issueIDs(ready))
	}
}

// TestGetCriticalPath verifies the longest chain comes back deepest
// blocker first, and short graphs return nothing.
func TestGetCriticalPath(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// No edges: no path.
	mustCreate(t, s, "Loner")
	path, err := s.GetCriticalPath(ctx)
	if err != nil {
		t.Fatalf("GetCriticalPath failed: %v", err)
	}
	if path != nil {
		t.Errorf("expected no path without edges, got %v", issueIDs(path))
	}

	// Chain: c depends on b depends on a, plus a short side branch.
	a := mustCreate(t, s, "Foundation")
	b := mustCreate(t, s, "Middle")
	c := mustCreate(t, s, "Top")
	side := mustCreate(t, s, "Side")
	if err := s.AddDependency(ctx, b, a, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.AddDependency(ctx, c, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.AddDependency(ctx, side, a, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	path, err = s.GetCriticalPath(ctx)
	if err != nil {
		t.Fatalf("GetCriticalPath failed: %v", err)
	}
	want := []string{a, b, c}
	if len(path) != len(want) {
		t.Fatalf("expected path %v, got %v", want, issueIDs(path))
	}
	for i, id := range want {
		if path[i].ID != id {
			t.Errorf("path[%d]: expected %s, got %s", i, id, path[i].ID)
		}
	}
}

// TestGetCriticalPathIgnoresClosed verifies done issues drop out of the
// chain computation.
func TestGetCriticalPathIgnoresClosed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	c := mustCreate(t, s, "C")
	if err := s.AddDependency(ctx, b, a, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.AddDependency(ctx, c, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.CloseIssue(ctx, a, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	// Remaining open chain is b <- c, depth 2.
	path, err := s.GetCriticalPath(ctx)
	if err != nil {
		t.Fatalf("GetCriticalPath failed: %v", err)
	}
	if len(path) != 2 || path[0].ID != b || path[1].ID != c {
		t.Errorf("expected [%s %s], got %v", b, c, issueIDs(path))
	}
}
