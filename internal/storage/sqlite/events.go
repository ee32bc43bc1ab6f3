package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/filigree-dev/filigree/internal/types"
)

// recordEvent appends one event row inside the caller's transaction.
// OR IGNORE makes exact replays (JSONL import, retried ingest) no-ops via
// the dedup index instead of errors.
func recordEvent(ctx context.Context, q dbtx, issueID string, et types.EventType, actor string, oldValue, newValue, comment *string, at time.Time) error {
	_, err := q.ExecContext(ctx, `
        INSERT OR IGNORE INTO events (issue_id, event_type, actor, old_value, new_value, comment, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		issueID, string(et), actor, nullStr(oldValue), nullStr(newValue), nullStr(comment), at)
	return wrapDBErrorf(err, "recording %s event for %s", et, issueID)
}

func scanEvents(rows *sql.Rows) ([]*types.Event, error) {
	defer func() { _ = rows.Close() }()
	var events []*types.Event
	for rows.Next() {
		var (
			e       types.Event
			eType   string
			oldV    sql.NullString
			newV    sql.NullString
			comment sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.IssueID, &eType, &e.Actor, &oldV, &newV, &comment, &e.CreatedAt); err != nil {
			return nil, wrapDBError("scanning event", err)
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
		events = append(events, &e)
	}
	return events, rows.Err()
}

const eventColumns = `id, issue_id, event_type, actor, old_value, new_value, comment, created_at`

// GetEvents returns an issue's events, newest first.
func (s *FiligreeStore) GetEvents(ctx context.Context, issueID string, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+eventColumns+` FROM events
        WHERE issue_id = ? ORDER BY id DESC LIMIT ?`, issueID, limit)
	if err != nil {
		return nil, wrapDBErrorf(err, "querying events for %s", issueID)
	}
	return scanEvents(rows)
}

// GetRecentEvents returns the newest events across all issues.
func (s *FiligreeStore) GetRecentEvents(ctx context.Context, limit int) ([]*types.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+eventColumns+` FROM events
        ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrapDBError("querying recent events", err)
	}
	return scanEvents(rows)
}
