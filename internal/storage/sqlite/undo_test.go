package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// TestUndoStatusChange verifies undo restores the previous status and the
// closed_at column follows the restored category.
func TestUndoStatusChange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Reversible")

	if err := s.CloseIssue(ctx, id, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	event, err := s.UndoLast(ctx, id, "alice")
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if event.EventType != types.EventStatusChanged {
		t.Errorf("expected the status event reverted, got %s", event.EventType)
	}

	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Status != "open" {
		t.Errorf("expected status restored to open, got %q", got.Status)
	}
	if got.ClosedAt != nil {
		t.Error("closed_at must clear when the restored status is not done")
	}
}

// TestUndoTitleChange verifies column-level undo.
func TestUndoTitleChange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Before")

	if err := s.UpdateIssue(ctx, id, types.IssueUpdate{Title: strPtr("After")}, "alice"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
	if _, err := s.UndoLast(ctx, id, "alice"); err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}

	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Title != "Before" {
		t.Errorf("expected title restored, got %q", got.Title)
	}
}

// TestUndoDependencyAdded verifies undoing an added edge removes it.
func TestUndoDependencyAdded(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	if err := s.AddDependency(ctx, a, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}

	event, err := s.UndoLast(ctx, a, "alice")
	if err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	if event.EventType != types.EventDependencyAdded {
		t.Errorf("expected dependency_added reverted, got %s", event.EventType)
	}

	got, err := s.GetIssue(ctx, a)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if len(got.BlockedBy) != 0 {
		t.Errorf("expected the edge removed, got %v", got.BlockedBy)
	}
}

// TestUndoDependencyRemoved verifies undoing a removal restores the edge.
func TestUndoDependencyRemoved(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "A")
	b := mustCreate(t, s, "B")
	if err := s.AddDependency(ctx, a, b, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if _, err := s.RemoveDependency(ctx, a, b, "alice"); err != nil {
		t.Fatalf("RemoveDependency failed: %v", err)
	}

	if _, err := s.UndoLast(ctx, a, "alice"); err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	got, err := s.GetIssue(ctx, a)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if len(got.BlockedBy) != 1 || got.BlockedBy[0] != b {
		t.Errorf("expected the edge restored, got %v", got.BlockedBy)
	}
}

// TestUndoNothingToUndo verifies the sentinel on a fresh issue: created
// is not reversible.
func TestUndoNothingToUndo(t *testing.T) {
	s := setupTestStore(t)
	id := mustCreate(t, s, "Untouched")

	if _, err := s.UndoLast(context.Background(), id, "alice"); !errors.Is(err, storage.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

// TestUndoDoubleUndoBlocked verifies the same event cannot be undone
// twice: the second call reports nothing to undo rather than replaying.
func TestUndoDoubleUndoBlocked(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Once only")

	if err := s.UpdateIssue(ctx, id, types.IssueUpdate{Priority: intPtr(0)}, "alice"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}
	if _, err := s.UndoLast(ctx, id, "alice"); err != nil {
		t.Fatalf("first UndoLast failed: %v", err)
	}
	if _, err := s.UndoLast(ctx, id, "alice"); !errors.Is(err, storage.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo on second undo, got %v", err)
	}
}

// TestUndoClaim verifies undoing a claim restores the previous assignee.
func TestUndoClaim(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Claimed then undone")

	if err := s.ClaimIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("ClaimIssue failed: %v", err)
	}
	if _, err := s.UndoLast(ctx, id, "alice"); err != nil {
		t.Fatalf("UndoLast failed: %v", err)
	}
	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Assignee != "" {
		t.Errorf("expected assignee cleared, got %q", got.Assignee)
	}
}
