package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

// SearchIssues matches query against title, description, and notes.
//
// The FTS5 mirror is tried first. A missing mirror (older file, user
// damage) downgrades to case-insensitive LIKE; every other error
// propagates rather than masquerading as an empty result.
func (s *FiligreeStore) SearchIssues(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", storage.ErrInvalidInput)
	}

	issues, err := s.searchFTS(ctx, query, filter)
	if err == nil {
		return issues, nil
	}
	if !isMissingFTS(err) {
		return nil, err
	}
	debug.Warnf("search: FTS mirror missing, falling back to LIKE\n")
	return s.searchLike(ctx, query, filter)
}

func (s *FiligreeStore) searchFTS(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error) {
	where, args := issueFilterSQL(filter)
	args = append([]any{ftsQuery(query)}, args...)

	qualifiedColumns := "i." + strings.ReplaceAll(issueColumns, ", ", ", i.")
	sqlQuery := `
        SELECT ` + qualifiedColumns + ` FROM issues i
        JOIN issues_fts ON issues_fts.rowid = i.rowid
        WHERE issues_fts MATCH ? AND ` + strings.Join(where, " AND ") + `
        ORDER BY rank, i.priority`
	if filter.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	issues, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.decorateIssues(ctx, s.db, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ftsQuery turns free text into an FTS5 match expression: each token
// quoted, all tokens required. Quoting keeps user input from being parsed
// as FTS syntax.
func ftsQuery(query string) string {
	tokens := strings.Fields(query)
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

func (s *FiligreeStore) searchLike(ctx context.Context, query string, filter types.IssueFilter) ([]*types.Issue, error) {
	where, args := issueFilterSQL(filter)
	pattern := "%" + strings.ToLower(query) + "%"
	where = append(where,
		"(LOWER(i.title) LIKE ? OR LOWER(i.description) LIKE ? OR LOWER(i.notes) LIKE ?)")
	args = append(args, pattern, pattern, pattern)

	sqlQuery := `
        SELECT ` + issueColumns + ` FROM issues i
        WHERE ` + strings.Join(where, " AND ") + `
        ORDER BY i.priority, i.created_at`
	if filter.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			sqlQuery += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, wrapDBError("searching issues", err)
	}
	issues, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.decorateIssues(ctx, s.db, issues); err != nil {
		return nil, err
	}
	return issues, nil
}
