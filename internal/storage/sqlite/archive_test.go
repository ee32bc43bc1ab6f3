package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// backdateClose closes an issue and pushes its closed_at into the past.
func backdateClose(t *testing.T, s *FiligreeStore, id string, age time.Duration) {
	t.Helper()
	ctx := context.Background()
	if err := s.CloseIssue(ctx, id, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue(%s) failed: %v", id, err)
	}
	past := utcNow().Add(-age)
	if _, err := s.db.ExecContext(ctx,
		`UPDATE issues SET closed_at = ? WHERE id = ?`, past, id); err != nil {
		t.Fatalf("backdating %s: %v", id, err)
	}
}

// TestArchiveClosed verifies only long-closed issues get archived, with
// closed_at preserved and an archived event recorded.
func TestArchiveClosed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	old := mustCreate(t, s, "Ancient")
	recent := mustCreate(t, s, "Fresh close")
	open := mustCreate(t, s, "Still open")
	backdateClose(t, s, old, 60*24*time.Hour)
	if err := s.CloseIssue(ctx, recent, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}

	archived, err := s.ArchiveClosed(ctx, 30*24*time.Hour, "alice")
	if err != nil {
		t.Fatalf("ArchiveClosed failed: %v", err)
	}
	if len(archived) != 1 || archived[0] != old {
		t.Fatalf("expected only %s archived, got %v", old, archived)
	}

	got, err := s.GetIssue(ctx, old)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Status != "archived" {
		t.Errorf("expected status archived, got %q", got.Status)
	}
	if got.ClosedAt == nil {
		t.Error("archiving must preserve closed_at")
	}

	for _, id := range []string{recent, open} {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			t.Fatalf("GetIssue(%s) failed: %v", id, err)
		}
		if issue.Status == "archived" {
			t.Errorf("%s should not have been archived", id)
		}
	}

	events, err := s.GetEvents(ctx, old, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if events[0].EventType != types.EventArchived {
		t.Errorf("expected the newest event to be archived, got %s", events[0].EventType)
	}
}

// TestArchiveClosedIdempotent verifies a second run finds nothing.
func TestArchiveClosedIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, "Done long ago")
	backdateClose(t, s, id, 60*24*time.Hour)

	if _, err := s.ArchiveClosed(ctx, time.Hour, "alice"); err != nil {
		t.Fatalf("first ArchiveClosed failed: %v", err)
	}
	archived, err := s.ArchiveClosed(ctx, time.Hour, "alice")
	if err != nil {
		t.Fatalf("second ArchiveClosed failed: %v", err)
	}
	if len(archived) != 0 {
		t.Errorf("expected nothing on the second pass, got %v", archived)
	}
}

// TestArchiveClosedRejectsNegativeCutoff verifies input validation.
func TestArchiveClosedRejectsNegativeCutoff(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.ArchiveClosed(context.Background(), -time.Hour, "alice"); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// TestCompactEvents verifies compaction trims only archived issues'
// histories, keeping the newest events per issue.
func TestCompactEvents(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	archived := mustCreate(t, s, "Noisy history")
	live := mustCreate(t, s, "Live")
	for i := 0; i < 5; i++ {
		if err := s.UpdateIssue(ctx, archived, types.IssueUpdate{Priority: intPtr(i % 5)}, "alice"); err != nil {
			t.Fatalf("UpdateIssue failed: %v", err)
		}
		if err := s.UpdateIssue(ctx, live, types.IssueUpdate{Priority: intPtr(i % 5)}, "alice"); err != nil {
			t.Fatalf("UpdateIssue failed: %v", err)
		}
	}
	backdateClose(t, s, archived, 60*24*time.Hour)
	if _, err := s.ArchiveClosed(ctx, time.Hour, "alice"); err != nil {
		t.Fatalf("ArchiveClosed failed: %v", err)
	}

	liveEventsBefore, err := s.GetEvents(ctx, live, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}

	deleted, err := s.CompactEvents(ctx, 2)
	if err != nil {
		t.Fatalf("CompactEvents failed: %v", err)
	}
	if deleted == 0 {
		t.Fatal("expected compaction to delete rows")
	}

	events, err := s.GetEvents(ctx, archived, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events kept for the archived issue, got %d", len(events))
	}

	liveEventsAfter, err := s.GetEvents(ctx, live, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(liveEventsAfter) != len(liveEventsBefore) {
		t.Errorf("live issue history must be untouched: %d -> %d",
			len(liveEventsBefore), len(liveEventsAfter))
	}
}

// TestCompactEventsRejectsNegativeKeep verifies input validation.
func TestCompactEventsRejectsNegativeKeep(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.CompactEvents(context.Background(), -1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
