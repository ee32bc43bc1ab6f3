package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// TestSearchIssues verifies full-text matching across title, description,
// and notes.
func TestSearchIssues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	title := mustCreate(t, s, "Fix the websocket reconnect loop")
	desc := mustCreate(t, s, "Other work", func(i *types.Issue) {
		i.Description = "the websocket handshake times out under load"
	})
	notes := mustCreate(t, s, "Unrelated title", func(i *types.Issue) {
		i.Notes = "investigated the websocket buffers"
	})
	mustCreate(t, s, "Completely different")

	issues, err := s.SearchIssues(ctx, "websocket", types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(issues) != 3 {
		t.Fatalf("expected 3 matches, got %v", issueIDs(issues))
	}
	found := map[string]bool{}
	for _, issue := range issues {
		found[issue.ID] = true
	}
	for _, id := range []string{title, desc, notes} {
		if !found[id] {
			t.Errorf("expected %s in results", id)
		}
	}
}

// TestSearchIssuesAllTokensRequired verifies multi-token queries AND
// their terms.
func TestSearchIssuesAllTokensRequired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	both := mustCreate(t, s, "websocket reconnect storm")
	mustCreate(t, s, "websocket only")
	mustCreate(t, s, "reconnect only")

	issues, err := s.SearchIssues(ctx, "websocket reconnect", types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != both {
		t.Errorf("expected only %s, got %v", both, issueIDs(issues))
	}
}

// TestSearchIssuesQuotedSyntax verifies FTS metacharacters in the query
// are treated as text, not syntax.
func TestSearchIssuesQuotedSyntax(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	mustCreate(t, s, "Parser handles AND tokens")

	// Bare AND/OR/NEAR would be FTS operators; quoting must neutralize them.
	issues, err := s.SearchIssues(ctx, "AND", types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues with operator-like token failed: %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("expected the AND token to match as text, got %v", issueIDs(issues))
	}
}

// TestSearchIssuesWithFilter verifies the filter narrows FTS results.
func TestSearchIssuesWithFilter(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	bug := mustCreate(t, s, "websocket bug", func(i *types.Issue) { i.IssueType = "bug" })
	mustCreate(t, s, "websocket task")

	issues, err := s.SearchIssues(ctx, "websocket", types.IssueFilter{IssueType: strPtr("bug")})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != bug {
		t.Errorf("expected only %s, got %v", bug, issueIDs(issues))
	}
}

// TestSearchIssuesEmptyQuery verifies the input guard.
func TestSearchIssuesEmptyQuery(t *testing.T) {
	s := setupTestStore(t)

	if _, err := s.SearchIssues(context.Background(), "   ", types.IssueFilter{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// TestSearchIssuesSeesUpdates verifies the FTS mirror tracks edits.
func TestSearchIssuesSeesUpdates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := mustCreate(t, s, "Old wording")

	if err := s.UpdateIssue(ctx, id, types.IssueUpdate{Title: strPtr("Fresh phrasing")}, "alice"); err != nil {
		t.Fatalf("UpdateIssue failed: %v", err)
	}

	issues, err := s.SearchIssues(ctx, "phrasing", types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(issues) != 1 || issues[0].ID != id {
		t.Errorf("expected the updated title indexed, got %v", issueIDs(issues))
	}
	issues, err = s.SearchIssues(ctx, "wording", types.IssueFilter{})
	if err != nil {
		t.Fatalf("SearchIssues failed: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("expected the old title de-indexed, got %v", issueIDs(issues))
	}
}
