package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// ClaimIssue assigns an issue to assignee with an optimistic
// compare-and-set: the update only lands when the issue is in an
// open-category state and is unassigned (or already the caller's). The
// claim does not change the issue's status.
func (s *FiligreeStore) ClaimIssue(ctx context.Context, id, assignee string) error {
	if assignee == "" {
		return fmt.Errorf("%w: assignee must not be empty", storage.ErrInvalidInput)
	}
	if err := validateIssueID(id); err != nil {
		return err
	}

	err := s.inTx(ctx, func(conn *sql.Conn) error {
		cur, err := s.loadIssueTx(ctx, conn, id)
		if err != nil {
			return err
		}
		now := utcNow()

		res, err := conn.ExecContext(ctx, `
            UPDATE issues SET assignee = ?, updated_at = ?
            WHERE id = ? AND (assignee = '' OR assignee = ?)
              AND `+categoryExpr("issues")+` = 'open'`,
			assignee, now, id, assignee)
		if err != nil {
			return wrapDBErrorf(err, "claiming issue %s", id)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBErrorf(err, "claiming issue %s", id)
		}
		if n == 0 {
			// Lost the race or never eligible. The row we loaded tells
			// the caller which, and who holds it.
			if s.registry.CategoryOrHeuristic(cur.IssueType, cur.Status) != types.CategoryOpen {
				return fmt.Errorf("issue %s is %s: %w", id, cur.Status, storage.ErrNotClaimable)
			}
			return fmt.Errorf("issue %s is assigned to %s: %w", id, cur.Assignee, storage.ErrAlreadyClaimed)
		}
		if cur.Assignee == assignee {
			return nil // re-claim by the same caller, nothing to record
		}
		return recordEvent(ctx, conn, id, types.EventClaimed, assignee,
			strPtr(cur.Assignee), strPtr(assignee), nil, now)
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// ClaimNext claims the highest-priority ready issue matching the filter.
// Candidates that lose a claim race are skipped; when every candidate
// loses, returns nil without error.
func (s *FiligreeStore) ClaimNext(ctx context.Context, assignee string, filter types.WorkFilter) (*types.Issue, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	filter.Unassigned = true

	candidates, err := s.GetReadyWork(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		err := s.ClaimIssue(ctx, candidate.ID, assignee)
		if err == nil {
			return s.GetIssue(ctx, candidate.ID)
		}
		if errorsIsAny(err, storage.ErrAlreadyClaimed, storage.ErrNotClaimable, storage.ErrNotFound) {
			continue
		}
		return nil, err
	}
	debug.Logf("claim_next: no claimable candidate for %s (%d tried)\n", assignee, len(candidates))
	return nil, nil
}

// ReleaseIssue clears the assignee. The released event is deliberately
// not reversible: undo never resurrects a stale assignee.
func (s *FiligreeStore) ReleaseIssue(ctx context.Context, id, actor string) error {
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		cur, err := s.loadIssueTx(ctx, conn, id)
		if err != nil {
			return err
		}
		if cur.Assignee == "" {
			return nil
		}
		now := utcNow()
		if _, err := conn.ExecContext(ctx,
			`UPDATE issues SET assignee = '', updated_at = ? WHERE id = ?`, now, id); err != nil {
			return wrapDBErrorf(err, "releasing issue %s", id)
		}
		return recordEvent(ctx, conn, id, types.EventReleased, actor,
			strPtr(cur.Assignee), strPtr(""), nil, now)
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}
