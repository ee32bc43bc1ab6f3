package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// AddLabel attaches a label to an issue. Type names are reserved and
// rejected case-insensitively.
func (s *FiligreeStore) AddLabel(ctx context.Context, issueID, label, actor string) error {
	if err := s.validateLabel(label); err != nil {
		return err
	}
	var added bool
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		if err := requireIssue(ctx, conn, issueID); err != nil {
			return err
		}
		res, err := conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`, issueID, label)
		if err != nil {
			return wrapDBErrorf(err, "adding label %s to %s", label, issueID)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil // already labeled
		}
		added = true
		return recordEvent(ctx, conn, issueID, types.EventLabelAdded, actor, nil, strPtr(label), nil, utcNow())
	})
	if err != nil {
		return err
	}
	if added {
		s.notifyMutation()
	}
	return nil
}

// RemoveLabel detaches a label from an issue.
func (s *FiligreeStore) RemoveLabel(ctx context.Context, issueID, label, actor string) error {
	var removed bool
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		if err := requireIssue(ctx, conn, issueID); err != nil {
			return err
		}
		res, err := conn.ExecContext(ctx,
			`DELETE FROM labels WHERE issue_id = ? AND label = ?`, issueID, label)
		if err != nil {
			return wrapDBErrorf(err, "removing label %s from %s", label, issueID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return wrapDBErrorf(err, "removing label %s from %s", label, issueID)
		}
		if n == 0 {
			return fmt.Errorf("label %s on %s: %w", label, issueID, storage.ErrNotFound)
		}
		removed = true
		return recordEvent(ctx, conn, issueID, types.EventLabelRemoved, actor, strPtr(label), nil, nil, utcNow())
	})
	if err != nil {
		return err
	}
	if removed {
		s.notifyMutation()
	}
	return nil
}
