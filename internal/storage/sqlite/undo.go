package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// UndoLast reverts the newest reversible event on an issue and returns
// the event that was reverted.
//
// The inverse mutation runs as raw SQL on purpose: undo must be able to
// restore any prior state even when the reverse is not a declared
// transition. Double-undo is blocked by checking for a later undone event
// that references the candidate; undone events themselves are never
// reversible, so history cannot be replayed back and forth.
func (s *FiligreeStore) UndoLast(ctx context.Context, issueID, actor string) (*types.Event, error) {
	var reverted *types.Event
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		issue, err := s.loadIssueTx(ctx, conn, issueID)
		if err != nil {
			return err
		}

		event, err := latestReversibleEvent(ctx, conn, issueID)
		if err != nil {
			return err
		}

		var already int
		err = conn.QueryRowContext(ctx, `
            SELECT COUNT(*) FROM events
            WHERE issue_id = ? AND event_type = ? AND new_value = ? AND created_at >= ?`,
			issueID, string(types.EventUndone), strconv.FormatInt(event.ID, 10), event.CreatedAt).Scan(&already)
		if err != nil {
			return wrapDBErrorf(err, "checking undo history for %s", issueID)
		}
		if already > 0 {
			return fmt.Errorf("event %d (%s) was already undone: %w",
				event.ID, event.EventType, storage.ErrNothingToUndo)
		}

		if err := s.revertEvent(ctx, conn, issue, event); err != nil {
			return err
		}

		if err := recordEvent(ctx, conn, issueID, types.EventUndone, actor,
			strPtr(string(event.EventType)), strPtr(strconv.FormatInt(event.ID, 10)), nil, utcNow()); err != nil {
			return err
		}
		reverted = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyMutation()
	return reverted, nil
}

// latestReversibleEvent finds the newest event whose type undo can invert.
func latestReversibleEvent(ctx context.Context, q dbtx, issueID string) (*types.Event, error) {
	reversible := types.ReversibleEventTypes()
	args := make([]any, 0, len(reversible)+1)
	args = append(args, issueID)
	for _, et := range reversible {
		args = append(args, string(et))
	}
	row := q.QueryRowContext(ctx, `
        SELECT `+eventColumns+` FROM events
        WHERE issue_id = ? AND event_type IN (`+placeholders(len(reversible))+`)
        ORDER BY id DESC LIMIT 1`, args...)

	var (
		e       types.Event
		eType   string
		oldV    sql.NullString
		newV    sql.NullString
		comment sql.NullString
	)
	err := row.Scan(&e.ID, &e.IssueID, &eType, &e.Actor, &oldV, &newV, &comment, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %s: %w", issueID, storage.ErrNothingToUndo)
	}
	if err != nil {
		return nil, wrapDBErrorf(err, "finding reversible event for %s", issueID)
	}
	e.EventType = types.EventType(eType)
	if oldV.Valid {
		e.OldValue = &oldV.String
	}
	if newV.Valid {
		e.NewValue = &newV.String
	}
	if comment.Valid {
		e.Comment = &comment.String
	}
	return &e, nil
}

func (s *FiligreeStore) revertEvent(ctx context.Context, conn *sql.Conn, issue *types.Issue, event *types.Event) error {
	oldValue := ""
	if event.OldValue != nil {
		oldValue = *event.OldValue
	}
	now := utcNow()

	setColumn := func(column string, value any) error {
		_, err := conn.ExecContext(ctx,
			`UPDATE issues SET `+column+` = ?, updated_at = ? WHERE id = ?`,
			value, now, issue.ID)
		return wrapDBErrorf(err, "reverting %s on %s", event.EventType, issue.ID)
	}

	switch event.EventType {
	case types.EventStatusChanged:
		// closed_at follows the RESTORED status's category.
		var closedAt any
		if s.registry.CategoryOrHeuristic(issue.IssueType, oldValue) == types.CategoryDone {
			if issue.ClosedAt != nil {
				closedAt = *issue.ClosedAt
			} else {
				closedAt = now
			}
		}
		_, err := conn.ExecContext(ctx,
			`UPDATE issues SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?`,
			oldValue, closedAt, now, issue.ID)
		return wrapDBErrorf(err, "reverting status on %s", issue.ID)
	case types.EventTitleChanged:
		return setColumn("title", oldValue)
	case types.EventDescriptionChanged:
		return setColumn("description", oldValue)
	case types.EventNotesChanged:
		return setColumn("notes", oldValue)
	case types.EventPriorityChanged:
		p, err := strconv.Atoi(oldValue)
		if err != nil {
			return fmt.Errorf("event %d has a non-numeric priority %q", event.ID, oldValue)
		}
		return setColumn("priority", p)
	case types.EventAssigneeChanged, types.EventClaimed:
		return setColumn("assignee", oldValue)
	case types.EventDependencyAdded:
		// new_value is "<kind>:<to_id>".
		target := ""
		if event.NewValue != nil {
			target = *event.NewValue
			if i := strings.IndexByte(target, ':'); i >= 0 {
				target = target[i+1:]
			}
		}
		if target == "" {
			return fmt.Errorf("event %d has no dependency target", event.ID)
		}
		_, err := conn.ExecContext(ctx,
			`DELETE FROM dependencies WHERE issue_id = ? AND depends_on_id = ?`,
			issue.ID, target)
		return wrapDBErrorf(err, "reverting dependency on %s", issue.ID)
	case types.EventDependencyRemoved:
		if oldValue == "" {
			return fmt.Errorf("event %d has no dependency target", event.ID)
		}
		_, err := conn.ExecContext(ctx, `
            INSERT OR IGNORE INTO dependencies (issue_id, depends_on_id, kind, created_at)
            VALUES (?, ?, ?, ?)`, issue.ID, oldValue, types.DepKindBlocks, now)
		return wrapDBErrorf(err, "restoring dependency on %s", issue.ID)
	default:
		return fmt.Errorf("event type %s is not reversible", event.EventType)
	}
}
