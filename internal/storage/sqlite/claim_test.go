package sqlite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// TestClaimIssueBasic verifies a simple claim sets the assignee and
// records a claimed event.
func TestClaimIssueBasic(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Claimable")

	if err := s.ClaimIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("ClaimIssue failed: %v", err)
	}

	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Assignee != "alice" {
		t.Errorf("expected assignee alice, got %q", got.Assignee)
	}

	events, err := s.GetEvents(ctx, id, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	found := false
	for _, e := range events {
		if e.EventType == types.EventClaimed {
			found = true
		}
	}
	if !found {
		t.Error("expected a claimed event")
	}
}

// TestClaimIssueAlreadyClaimed verifies a second claimant is refused and
// told who holds the issue.
func TestClaimIssueAlreadyClaimed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Contested")

	if err := s.ClaimIssue(ctx, id, "first-claimer"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	err := s.ClaimIssue(ctx, id, "second-claimer")
	if !errors.Is(err, storage.ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	if !strings.Contains(err.Error(), "first-claimer") {
		t.Errorf("error should name the holder, got: %v", err)
	}
}

// TestClaimIssueReclaimByHolder verifies the holder can claim again
// without error and without a duplicate event.
func TestClaimIssueReclaimByHolder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Mine already")

	if err := s.ClaimIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if err := s.ClaimIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("re-claim by holder failed: %v", err)
	}

	events, err := s.GetEvents(ctx, id, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	count := 0
	for _, e := range events {
		if e.EventType == types.EventClaimed {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected one claimed event, got %d", count)
	}
}

// TestClaimIssueNotClaimable verifies claims on non-open issues fail with
// the status in the error.
func TestClaimIssueNotClaimable(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Finished")

	if err := s.CloseIssue(ctx, id, "", nil, "", "alice"); err != nil {
		t.Fatalf("CloseIssue failed: %v", err)
	}
	err := s.ClaimIssue(ctx, id, "bob")
	if !errors.Is(err, storage.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable, got %v", err)
	}
	if !strings.Contains(err.Error(), "closed") {
		t.Errorf("error should carry the status, got: %v", err)
	}
}

// TestClaimIssueConcurrent races ten claimants at one issue: exactly one
// wins and the rest see ErrAlreadyClaimed.
func TestClaimIssueConcurrent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "One winner")

	const claimants = 10
	var (
		wg     sync.WaitGroup
		wins   atomic.Int32
		losses atomic.Int32
		winner atomic.Value
	)
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := "claimant-" + string(rune('a'+n))
			err := s.ClaimIssue(ctx, id, name)
			switch {
			case err == nil:
				wins.Add(1)
				winner.Store(name)
			case errors.Is(err, storage.ErrAlreadyClaimed):
				losses.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
	if losses.Load() != claimants-1 {
		t.Errorf("expected %d losers, got %d", claimants-1, losses.Load())
	}

	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Assignee != winner.Load().(string) {
		t.Errorf("assignee %q does not match winner %q", got.Assignee, winner.Load())
	}
}

// TestClaimNext verifies the highest-priority ready unassigned issue is
// picked, skipping blocked and assigned ones.
func TestClaimNext(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	blocker := mustCreate(t, s, "Block", func(i *types.Issue) { i.Priority = 3 })
	urgentButBlocked := mustCreate(t, s, "Urgent but blocked", func(i *types.Issue) { i.Priority = 0 })
	if err := s.AddDependency(ctx, urgentButBlocked, blocker, "", "alice"); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	mustCreate(t, s, "Taken", func(i *types.Issue) {
		i.Priority = 0
		i.Assignee = "bob"
	})
	want := mustCreate(t, s, "Best free", func(i *types.Issue) { i.Priority = 1 })

	got, err := s.ClaimNext(ctx, "alice", types.WorkFilter{})
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if got == nil || got.ID != want {
		t.Fatalf("expected ClaimNext to pick %s, got %v", want, got)
	}
	if got.Assignee != "alice" {
		t.Errorf("expected assignee alice, got %q", got.Assignee)
	}
}

// TestClaimNextNothingReady verifies nil-without-error when no candidate
// is claimable.
func TestClaimNextNothingReady(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "Taken", func(i *types.Issue) { i.Assignee = "bob" })

	got, err := s.ClaimNext(ctx, "alice", types.WorkFilter{})
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil when nothing is claimable, got %s", got.ID)
	}
}

// TestReleaseIssue verifies release clears the assignee and that the
// event is not reversible.
func TestReleaseIssue(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Let go")

	if err := s.ClaimIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("ClaimIssue failed: %v", err)
	}
	if err := s.ReleaseIssue(ctx, id, "alice"); err != nil {
		t.Fatalf("ReleaseIssue failed: %v", err)
	}

	got, err := s.GetIssue(ctx, id)
	if err != nil {
		t.Fatalf("GetIssue failed: %v", err)
	}
	if got.Assignee != "" {
		t.Errorf("expected empty assignee after release, got %q", got.Assignee)
	}

	// Releasing an unassigned issue is a quiet no-op.
	if err := s.ReleaseIssue(ctx, id, "alice"); err != nil {
		t.Errorf("release of unassigned issue should be a no-op, got %v", err)
	}
}
