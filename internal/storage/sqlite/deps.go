package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// AddDependency records that issueID is blocked by dependsOnID. Both
// endpoints must exist; self-edges and edges that would close a cycle are
// rejected before anything is written.
func (s *FiligreeStore) AddDependency(ctx context.Context, issueID, dependsOnID, kind, actor string) error {
	if err := validateIssueID(issueID); err != nil {
		return err
	}
	if err := validateIssueID(dependsOnID); err != nil {
		return err
	}
	if issueID == dependsOnID {
		return fmt.Errorf("%w: issue %s cannot depend on itself", storage.ErrInvalidInput, issueID)
	}
	if kind == "" {
		kind = types.DepKindBlocks
	}

	err := s.inTx(ctx, func(conn *sql.Conn) error {
		if err := requireIssue(ctx, conn, issueID); err != nil {
			return err
		}
		if err := requireIssue(ctx, conn, dependsOnID); err != nil {
			return err
		}
		cycle, err := wouldCycle(ctx, conn, issueID, dependsOnID)
		if err != nil {
			return err
		}
		if cycle {
			return fmt.Errorf("%s -> %s: %w", issueID, dependsOnID, storage.ErrCycle)
		}

		now := utcNow()
		res, err := conn.ExecContext(ctx, `
            INSERT OR IGNORE INTO dependencies (issue_id, depends_on_id, kind, created_at)
            VALUES (?, ?, ?, ?)`, issueID, dependsOnID, kind, now)
		if err != nil {
			return wrapDBErrorf(err, "adding dependency %s -> %s", issueID, dependsOnID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil // edge already present
		}
		return recordEvent(ctx, conn, issueID, types.EventDependencyAdded, actor,
			nil, strPtr(kind+":"+dependsOnID), nil, now)
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// wouldCycle reports whether dependsOnID already transitively depends on
// issueID, which adding the edge issueID -> dependsOnID would close into
// a cycle. The walk is bounded; real graphs stay in the low thousands of
// issues with chains far shorter than the cap.
func wouldCycle(ctx context.Context, q dbtx, issueID, dependsOnID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
        WITH RECURSIVE reach(id, depth) AS (
            SELECT ?, 0
            UNION ALL
            SELECT d.depends_on_id, r.depth + 1
            FROM dependencies d JOIN reach r ON d.issue_id = r.id
            WHERE r.depth < 100
        )
        SELECT COUNT(*) FROM reach WHERE id = ?`, dependsOnID, issueID).Scan(&count)
	if err != nil {
		return false, wrapDBErrorf(err, "probing cycle %s -> %s", issueID, dependsOnID)
	}
	return count > 0, nil
}

// RemoveDependency deletes the edge when present and reports whether a
// row was removed.
func (s *FiligreeStore) RemoveDependency(ctx context.Context, issueID, dependsOnID, actor string) (bool, error) {
	var removed bool
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ?`,
			issueID, dependsOnID)
		if err != nil {
			return wrapDBErrorf(err, "removing dependency %s -> %s", issueID, dependsOnID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBErrorf(err, "removing dependency %s -> %s", issueID, dependsOnID)
		}
		if n == 0 {
			return nil
		}
		removed = true
		return recordEvent(ctx, conn, issueID, types.EventDependencyRemoved, actor,
			strPtr(dependsOnID), nil, nil, utcNow())
	})
	if err != nil {
		return false, err
	}
	if removed {
		s.notifyMutation()
	}
	return removed, nil
}
