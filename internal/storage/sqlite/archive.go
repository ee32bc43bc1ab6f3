package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// ArchiveClosed rewrites the status of long-closed issues to "archived",
// preserving closed_at. Returns the ids archived. Archived issues drop
// out of listings and become eligible for event compaction.
func (s *FiligreeStore) ArchiveClosed(ctx context.Context, olderThan time.Duration, actor string) ([]string, error) {
	if olderThan < 0 {
		return nil, fmt.Errorf("%w: archive cutoff must not be negative", storage.ErrInvalidInput)
	}
	cutoff := utcNow().Add(-olderThan)

	var archived []string
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
            SELECT id, status FROM issues i
            WHERE i.status != 'archived'
              AND i.closed_at IS NOT NULL AND i.closed_at < ?
              AND `+categoryExpr("i")+` = 'done'
            ORDER BY i.closed_at`, cutoff)
		if err != nil {
			return wrapDBError("querying archivable issues", err)
		}
		type target struct{ id, status string }
		var targets []target
		if err := collect(rows, func(scan rowScanner) error {
			var t target
			if err := scan.Scan(&t.id, &t.status); err != nil {
				return err
			}
			targets = append(targets, t)
			return nil
		}); err != nil {
			return err
		}

		now := utcNow()
		for _, t := range targets {
			if _, err := conn.ExecContext(ctx,
				`UPDATE issues SET status = 'archived', updated_at = ? WHERE id = ?`,
				now, t.id); err != nil {
				return wrapDBErrorf(err, "archiving issue %s", t.id)
			}
			if err := recordEvent(ctx, conn, t.id, types.EventArchived, actor,
				strPtr(t.status), strPtr("archived"), nil, now); err != nil {
				return err
			}
			archived = append(archived, t.id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(archived) > 0 {
		s.notifyMutation()
	}
	return archived, nil
}

// CompactEvents trims event history for archived issues only, keeping the
// keepRecent newest events per issue. Returns the number of rows deleted.
// Reclaiming the file space (VACUUM) is a separate concern left to the
// caller.
func (s *FiligreeStore) CompactEvents(ctx context.Context, keepRecent int) (int64, error) {
	if keepRecent < 0 {
		return 0, fmt.Errorf("%w: keepRecent must not be negative", storage.ErrInvalidInput)
	}

	var deleted int64
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
            DELETE FROM events
            WHERE issue_id IN (SELECT id FROM issues WHERE status = 'archived')
              AND id NOT IN (
                  SELECT keep.id FROM events AS keep
                  WHERE keep.issue_id = events.issue_id
                  ORDER BY keep.id DESC LIMIT ?)`, keepRecent)
		if err != nil {
			return wrapDBError("compacting events", err)
		}
		deleted, err = res.RowsAffected()
		return wrapDBError("compacting events", err)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
