package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/filigree-dev/filigree/internal/idgen"
	"github.com/filigree-dev/filigree/internal/storage"
	"github.com/filigree-dev/filigree/internal/types"
)

const issueColumns = `id, title, description, notes, status, priority, issue_type, parent_id, assignee, fields, created_at, updated_at, closed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*types.Issue, error) {
	var (
		issue    types.Issue
		parentID sql.NullString
		fields   string
		closedAt sql.NullTime
	)
	err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &issue.Notes,
		&issue.Status, &issue.Priority, &issue.IssueType, &parentID,
		&issue.Assignee, &fields, &issue.CreatedAt, &issue.UpdatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		issue.ParentID = &parentID.String
	}
	if closedAt.Valid {
		t := closedAt.Time
		issue.ClosedAt = &t
	}
	issue.Fields, err = unmarshalFields(fields)
	if err != nil {
		return nil, fmt.Errorf("issue %s: %w", issue.ID, err)
	}
	return &issue, nil
}

func scanIssueRows(rows *sql.Rows) ([]*types.Issue, error) {
	defer func() { _ = rows.Close() }()
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, wrapDBError("scanning issue", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// placeholders renders "?, ?, ?" for n bound values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// decorateIssues fills the computed read-side fields: status category,
// labels, children, forward edges, and open-category blockers (which
// decide readiness). Batched so list queries stay at a fixed statement
// count instead of N+1.
func (s *FiligreeStore) decorateIssues(ctx context.Context, q dbtx, issues []*types.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	byID := make(map[string]*types.Issue, len(issues))
	args := make([]any, 0, len(issues))
	for _, issue := range issues {
		issue.StatusCategory = s.registry.CategoryOrHeuristic(issue.IssueType, issue.Status)
		byID[issue.ID] = issue
		args = append(args, issue.ID)
	}
	in := placeholders(len(issues))

	rows, err := q.QueryContext(ctx, `
        SELECT issue_id, label FROM labels
        WHERE issue_id IN (`+in+`) ORDER BY label`, args...)
	if err != nil {
		return wrapDBError("querying labels", err)
	}
	if err := collect(rows, func(scan rowScanner) error {
		var id, label string
		if err := scan.Scan(&id, &label); err != nil {
			return err
		}
		byID[id].Labels = append(byID[id].Labels, label)
		return nil
	}); err != nil {
		return err
	}

	rows, err = q.QueryContext(ctx, `
        SELECT parent_id, id FROM issues
        WHERE parent_id IN (`+in+`) ORDER BY created_at`, args...)
	if err != nil {
		return wrapDBError("querying children", err)
	}
	if err := collect(rows, func(scan rowScanner) error {
		var parentID, childID string
		if err := scan.Scan(&parentID, &childID); err != nil {
			return err
		}
		byID[parentID].Children = append(byID[parentID].Children, childID)
		return nil
	}); err != nil {
		return err
	}

	// Forward edges: listed regardless of the other side's state, for audit.
	rows, err = q.QueryContext(ctx, `
        SELECT depends_on_id, issue_id FROM dependencies
        WHERE depends_on_id IN (`+in+`) ORDER BY issue_id`, args...)
	if err != nil {
		return wrapDBError("querying forward dependencies", err)
	}
	if err := collect(rows, func(scan rowScanner) error {
		var dependsOn, issueID string
		if err := scan.Scan(&dependsOn, &issueID); err != nil {
			return err
		}
		byID[dependsOn].Blocks = append(byID[dependsOn].Blocks, issueID)
		return nil
	}); err != nil {
		return err
	}

	// Blockers: only edges whose target is still in a non-done state count.
	rows, err = q.QueryContext(ctx, `
        SELECT d.issue_id, d.depends_on_id FROM dependencies d
        JOIN issues b ON b.id = d.depends_on_id
        WHERE d.issue_id IN (`+in+`) AND `+categoryExpr("b")+` != 'done'
        ORDER BY d.depends_on_id`, args...)
	if err != nil {
		return wrapDBError("querying blockers", err)
	}
	if err := collect(rows, func(scan rowScanner) error {
		var issueID, blockerID string
		if err := scan.Scan(&issueID, &blockerID); err != nil {
			return err
		}
		byID[issueID].BlockedBy = append(byID[issueID].BlockedBy, blockerID)
		return nil
	}); err != nil {
		return err
	}

	for _, issue := range issues {
		issue.IsReady = issue.StatusCategory == types.CategoryOpen && len(issue.BlockedBy) == 0
	}
	return nil
}

func collect(rows *sql.Rows, each func(rowScanner) error) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err := each(rows); err != nil {
			return wrapDBError("scanning row", err)
		}
	}
	return rows.Err()
}

// CreateIssue inserts a new issue with its labels, dependencies, and
// created event in one transaction. Any validation failure leaves nothing
// behind.
func (s *FiligreeStore) CreateIssue(ctx context.Context, issue *types.Issue, actor string) error {
	if issue.IssueType == "" {
		issue.IssueType = "task"
	}
	if issue.Status == "" {
		issue.Status = s.registry.InitialState(issue.IssueType)
	}
	if err := issue.Validate(); err != nil {
		return fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
	}
	if states := s.registry.ValidStates(issue.IssueType); states != nil {
		if !containsString(states, issue.Status) {
			return fmt.Errorf("%w: status %q is not a state of type %q (valid: %s)",
				storage.ErrInvalidInput, issue.Status, issue.IssueType, strings.Join(states, ", "))
		}
	}
	for _, label := range issue.Labels {
		if err := s.validateLabel(label); err != nil {
			return err
		}
	}
	for _, dep := range issue.Dependencies {
		if strings.TrimSpace(dep.DependsOnID) == "" {
			return fmt.Errorf("%w: dependency id must not be empty", storage.ErrInvalidInput)
		}
	}

	now := utcNow()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	fields, err := marshalFields(issue.Fields)
	if err != nil {
		return fmt.Errorf("%w: %s", storage.ErrInvalidInput, err)
	}

	err = s.inTx(ctx, func(conn *sql.Conn) error {
		if issue.ParentID != nil {
			if err := requireIssue(ctx, conn, *issue.ParentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		for _, dep := range issue.Dependencies {
			if err := requireIssue(ctx, conn, dep.DependsOnID); err != nil {
				return fmt.Errorf("dependency: %w", err)
			}
		}

		if issue.ID == "" {
			id, err := s.generateID(ctx, conn)
			if err != nil {
				return err
			}
			issue.ID = id
		} else if err := validateIssueID(issue.ID); err != nil {
			return err
		}

		_, err := conn.ExecContext(ctx, `
            INSERT INTO issues (`+issueColumns+`)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			issue.ID, issue.Title, issue.Description, issue.Notes,
			issue.Status, issue.Priority, issue.IssueType, nullStr(issue.ParentID),
			issue.Assignee, fields, issue.CreatedAt, issue.UpdatedAt, nullTime(issue.ClosedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: issue %s already exists", storage.ErrInvalidInput, issue.ID)
			}
			return wrapDBErrorf(err, "inserting issue %s", issue.ID)
		}

		for _, label := range issue.Labels {
			if _, err := conn.ExecContext(ctx,
				`INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)`,
				issue.ID, label); err != nil {
				return wrapDBErrorf(err, "inserting label %s", label)
			}
		}
		for _, dep := range issue.Dependencies {
			kind := dep.Kind
			if kind == "" {
				kind = types.DepKindBlocks
			}
			if _, err := conn.ExecContext(ctx, `
                INSERT OR IGNORE INTO dependencies (issue_id, depends_on_id, kind, created_at)
                VALUES (?, ?, ?, ?)`,
				issue.ID, dep.DependsOnID, kind, now); err != nil {
				return wrapDBErrorf(err, "inserting dependency on %s", dep.DependsOnID)
			}
		}

		return recordEvent(ctx, conn, issue.ID, types.EventCreated, actor, nil, strPtr(issue.Title), nil, now)
	})
	if err != nil {
		return err
	}
	s.notifyMutation()
	return nil
}

// generateID draws random ids until one is free, widening once per
// collision so the id length adapts to how full the space is.
func (s *FiligreeStore) generateID(ctx context.Context, q dbtx) (string, error) {
	var prefix string
	err := q.QueryRowContext(ctx, `SELECT value FROM config WHERE key = 'issue_prefix'`).Scan(&prefix)
	if errors.Is(err, sql.ErrNoRows) || prefix == "" {
		return "", fmt.Errorf("database not initialized: issue prefix missing (run 'filigree init' first)")
	}
	if err != nil {
		return "", fmt.Errorf("reading issue prefix: %w", err)
	}

	for length := idgen.DefaultLength; length <= idgen.MaxLength; length++ {
		id, err := idgen.NewID(prefix, length)
		if err != nil {
			return "", err
		}
		exists, err := issueExists(ctx, q, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique issue id")
}

// GetIssue loads one issue with its computed fields.
func (s *FiligreeStore) GetIssue(ctx context.Context, id string) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, wrapDBErrorf(err, "loading issue %s", id)
	}
	if err := s.decorateIssues(ctx, s.db, []*types.Issue{issue}); err != nil {
		return nil, err
	}
	return issue, nil
}

// ListIssues applies the filter with limit/offset. Archived issues are
// hidden unless the status filter names them.
func (s *FiligreeStore) ListIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error) {
	where, args := issueFilterSQL(filter)
	query := `SELECT ` + issueColumns + ` FROM issues i WHERE ` + strings.Join(where, " AND ") +
		" ORDER BY i.priority, i.created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("listing issues", err)
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

// issueFilterSQL renders an IssueFilter into WHERE conditions on the
// issues table aliased as i. Archived issues are hidden unless the status
// filter names them.
func issueFilterSQL(filter types.IssueFilter) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		where = append(where, "i.status = ?")
		args = append(args, *filter.Status)
	} else {
		where = append(where, "i.status != 'archived'")
	}
	if filter.IssueType != nil {
		where = append(where, "i.issue_type = ?")
		args = append(args, *filter.IssueType)
	}
	if filter.Priority != nil {
		where = append(where, "i.priority = ?")
		args = append(args, *filter.Priority)
	}
	if filter.ParentID != nil {
		where = append(where, "i.parent_id = ?")
		args = append(args, *filter.ParentID)
	}
	if filter.Assignee != nil {
		where = append(where, "i.assignee = ?")
		args = append(args, *filter.Assignee)
	}
	if filter.Label != nil {
		where = append(where, "EXISTS (SELECT 1 FROM labels l WHERE l.issue_id = i.id AND l.label = ?)")
		args = append(args, *filter.Label)
	}
	return where, args
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
