package sqlite

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// ExportJSONL writes every issue as one JSON object per line, with its
// labels, dependencies, comments, and events embedded. Computed read-side
// fields are left out; they are derivable and would churn diffs.
func (s *FiligreeStore) ExportJSONL(ctx context.Context, w io.Writer) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+issueColumns+` FROM issues ORDER BY id`)
	if err != nil {
		return 0, wrapDBError("exporting issues", err)
	}
	issues, err := scanIssueRows(rows)
	if err != nil {
		return 0, err
	}

	enc := json.NewEncoder(w)
	count := 0
	for _, issue := range issues {
		if err := s.attachExportData(ctx, issue); err != nil {
			return count, err
		}
		if err := enc.Encode(issue); err != nil {
			return count, fmt.Errorf("encoding issue %s: %w", issue.ID, err)
		}
		count++
	}
	return count, nil
}

func (s *FiligreeStore) attachExportData(ctx context.Context, issue *types.Issue) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label FROM labels WHERE issue_id = ? ORDER BY label`, issue.ID)
	if err != nil {
		return wrapDBErrorf(err, "exporting labels for %s", issue.ID)
	}
	if err := collect(rows, func(row rowScanner) error {
		var label string
		if err := row.Scan(&label); err != nil {
			return err
		}
		issue.Labels = append(issue.Labels, label)
		return nil
	}); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
        SELECT issue_id, depends_on_id, kind, created_at FROM dependencies
        WHERE issue_id = ? ORDER BY depends_on_id`, issue.ID)
	if err != nil {
		return wrapDBErrorf(err, "exporting dependencies for %s", issue.ID)
	}
	if err := collect(rows, func(row rowScanner) error {
		var d types.Dependency
		if err := row.Scan(&d.IssueID, &d.DependsOnID, &d.Kind, &d.CreatedAt); err != nil {
			return err
		}
		issue.Dependencies = append(issue.Dependencies, &d)
		return nil
	}); err != nil {
		return err
	}

	issue.Comments, err = s.GetComments(ctx, issue.ID)
	if err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
        SELECT `+eventColumns+` FROM events WHERE issue_id = ? ORDER BY id`, issue.ID)
	if err != nil {
		return wrapDBErrorf(err, "exporting events for %s", issue.ID)
	}
	issue.Events, err = scanEvents(rows)
	return err
}

// ImportJSONL re-ingests an export stream. With merge set, rows for
// existing ids are overwritten; without it they are skipped. Replaying
// the same stream is idempotent: labels, dependencies, and events all
// land with OR IGNORE, and comments are matched before insert.
func (s *FiligreeStore) ImportJSONL(ctx context.Context, r io.Reader, merge bool, actor string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	count := 0
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var issue types.Issue
			if err := json.Unmarshal(line, &issue); err != nil {
				return fmt.Errorf("%w: line %d: %s", storage.ErrInvalidInput, lineNo, err)
			}
			if issue.ID == "" {
				return fmt.Errorf("%w: line %d: issue id is required", storage.ErrInvalidInput, lineNo)
			}
			issue.SetDefaults()
			if err := issue.Validate(); err != nil {
				return fmt.Errorf("%w: line %d (%s): %s", storage.ErrInvalidInput, lineNo, issue.ID, err)
			}

			imported, err := s.importIssue(ctx, conn, &issue, merge)
			if err != nil {
				return fmt.Errorf("line %d (%s): %w", lineNo, issue.ID, err)
			}
			if imported {
				count++
			}
		}
		return scanner.Err()
	})
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.notifyMutation()
	}
	return count, nil
}

func (s *FiligreeStore) importIssue(ctx context.Context, conn *sql.Conn, issue *types.Issue, merge bool) (bool, error) {
	fields, err := marshalFields(issue.Fields)
	if err != nil {
		return false, fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
	}

	exists, err := issueExists(ctx, conn, issue.ID)
	if err != nil {
		return false, err
	}
	switch {
	case !exists:
		_, err = conn.ExecContext(ctx, `
            INSERT INTO issues (`+issueColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			issue.ID, issue.Title, issue.Description, issue.Notes,
			issue.Status, issue.Priority, issue.IssueType, nullStr(issue.ParentID),
			issue.Assignee, fields, issue.CreatedAt, issue.UpdatedAt, nullTime(issue.ClosedAt))
		if err != nil {
			return false, wrapDBErrorf(err, "importing issue %s", issue.ID)
		}
	case merge:
		_, err = conn.ExecContext(ctx, `
            UPDATE issues SET title = ?, description = ?, notes = ?, status = ?,
                priority = ?, issue_type = ?, parent_id = ?, assignee = ?, fields = ?,
                created_at = ?, updated_at = ?, closed_at = ?
            WHERE id = ?`,
			issue.Title, issue.Description, issue.Notes, issue.Status,
			issue.Priority, issue.IssueType, nullStr(issue.ParentID), issue.Assignee, fields,
			issue.CreatedAt, issue.UpdatedAt, nullTime(issue.ClosedAt), issue.ID)
		if err != nil {
			return false, wrapDBErrorf(err, "merging issue %s", issue.ID)
		}
	default:
		debug.Logf("import: skipping existing issue %s (merge disabled)\n", issue.ID)
		return false, nil
	}

	for _, label := range issue.Labels {
		if _, err := conn.ExecContext(ctx,
			`INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`,
			issue.ID, label); err != nil {
			return false, wrapDBErrorf(err, "importing label %s", label)
		}
	}
	for _, dep := range issue.Dependencies {
		kind := dep.Kind
		if kind == "" {
			kind = types.DepKindBlocks
		}
		if _, err := conn.ExecContext(ctx, `
            INSERT OR IGNORE INTO dependencies (issue_id, depends_on_id, kind, created_at)
            VALUES (?, ?, ?, ?)`, issue.ID, dep.DependsOnID, kind, dep.CreatedAt); err != nil {
			return false, wrapDBErrorf(err, "importing dependency on %s", dep.DependsOnID)
		}
	}
	for _, c := range issue.Comments {
		var one int
		err := conn.QueryRowContext(ctx, `
            SELECT 1 FROM comments
            WHERE issue_id = ? AND author = ? AND text = ? AND created_at = ?`,
			issue.ID, c.Author, c.Text, c.CreatedAt).Scan(&one)
		if err == nil {
			continue // already imported
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return false, wrapDBErrorf(err, "matching comment on %s", issue.ID)
		}
		if _, err := conn.ExecContext(ctx, `
            INSERT INTO comments (issue_id, author, text, created_at)
            VALUES (?, ?, ?, ?)`, issue.ID, c.Author, c.Text, c.CreatedAt); err != nil {
			return false, wrapDBErrorf(err, "importing comment on %s", issue.ID)
		}
	}
	for _, e := range issue.Events {
		if _, err := conn.ExecContext(ctx, `
            INSERT OR IGNORE INTO events (issue_id, event_type, actor, old_value, new_value, comment, created_at)
            VALUES (?, ?, ?, ?, ?, ?, ?)`,
			issue.ID, string(e.EventType), e.Actor,
			nullStr(e.OldValue), nullStr(e.NewValue), nullStr(e.Comment), e.CreatedAt); err != nil {
			return false, wrapDBErrorf(err, "importing event %s", e.EventType)
		}
	}
	return true, nil
}
