package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// AddComment appends a comment and its commented event. The text must be
// non-empty after trimming.
func (s *FiligreeStore) AddComment(ctx context.Context, issueID, author, text string) (*types.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: comment text must not be empty", storage.ErrInvalidInput)
	}

	comment := &types.Comment{IssueID: issueID, Author: author, Text: text}
	err := s.inTx(ctx, func(conn *sql.Conn) error {
		if err := requireIssue(ctx, conn, issueID); err != nil {
			return err
		}
		now := utcNow()
		res, err := conn.ExecContext(ctx, `
            INSERT INTO comments (issue_id, author, text, created_at)
            VALUES (?, ?, ?, ?)`, issueID, author, text, now)
		if err != nil {
			return wrapDBErrorf(err, "inserting comment on %s", issueID)
		}
		comment.ID, err = res.LastInsertId()
		if err != nil {
			return wrapDBErrorf(err, "inserting comment on %s", issueID)
		}
		comment.CreatedAt = now
		return recordEvent(ctx, conn, issueID, types.EventCommented, author, nil, nil, strPtr(text), now)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMutation()
	return comment, nil
}

// GetComments returns an issue's comments, oldest first.
func (s *FiligreeStore) GetComments(ctx context.Context, issueID string) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, issue_id, author, text, created_at FROM comments
        WHERE issue_id = ? ORDER BY id`, issueID)
	if err != nil {
		return nil, wrapDBErrorf(err, "querying comments for %s", issueID)
	}
	var comments []*types.Comment
	if err := collect(rows, func(scan rowScanner) error {
		var c types.Comment
		if err := scan.Scan(&c.ID, &c.IssueID, &c.Author, &c.Text, &c.CreatedAt); err != nil {
			return err
		}
		comments = append(comments, &c)
		return nil
	}); err != nil {
		return nil, err
	}
	return comments, nil
}
