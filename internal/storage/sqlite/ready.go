package sqlite

import (
	"context"

	"github.com/filigree-dev/filigree/internal/types"
)

// GetReadyWork lists open-category issues with no live blockers, highest
// priority first.
func (s *FiligreeStore) GetReadyWork(ctx context.Context, filter types.WorkFilter) ([]*types.Issue, error) {
	query := `
        SELECT ` + issueColumns + ` FROM issues i
        WHERE ` + categoryExpr("i") + ` = 'open'
          AND NOT EXISTS (
              SELECT 1 FROM dependencies d
              JOIN issues b ON b.id = d.depends_on_id
              WHERE d.issue_id = i.id AND ` + categoryExpr("b") + ` != 'done')`
	var args []any

	if filter.Type != "" {
		query += " AND i.issue_type = ?"
		args = append(args, filter.Type)
	}
	if filter.PriorityMin != nil {
		query += " AND i.priority >= ?"
		args = append(args, *filter.PriorityMin)
	}
	if filter.PriorityMax != nil {
		query += " AND i.priority <= ?"
		args = append(args, *filter.PriorityMax)
	}
	switch {
	case filter.Unassigned:
		query += " AND i.assignee = ''"
	case filter.Assignee != nil:
		query += " AND i.assignee = ?"
		args = append(args, *filter.Assignee)
	}

	query += " ORDER BY i.priority, i.created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("querying ready work", err)
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

// GetBlockedIssues lists non-done issues that have at least one live
// blocker, with the blocker ids attached.
func (s *FiligreeStore) GetBlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+issueColumns+` FROM issues i
        WHERE `+categoryExpr("i")+` != 'done'
          AND EXISTS (
              SELECT 1 FROM dependencies d
              JOIN issues b ON b.id = d.depends_on_id
              WHERE d.issue_id = i.id AND `+categoryExpr("b")+` != 'done')
        ORDER BY i.priority, i.created_at`)
	if err != nil {
		return nil, wrapDBError("querying blocked issues", err)
	}
	issues, err := scanIssueRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.decorateIssues(ctx, s.db, issues); err != nil {
		return nil, err
	}

	blocked := make([]*types.BlockedIssue, 0, len(issues))
	for _, issue := range issues {
		blocked = append(blocked, &types.BlockedIssue{
			Issue:          *issue,
			BlockedByCount: len(issue.BlockedBy),
			BlockedByIDs:   issue.BlockedBy,
		})
	}
	return blocked, nil
}

// GetCriticalPath returns the longest blocker chain over the subgraph of
// open-category issues, ordered from the deepest blocker to the issue it
// ultimately blocks. Empty when no edges connect open issues.
func (s *FiligreeStore) GetCriticalPath(ctx context.Context) ([]*types.Issue, error) {
	// The subgraph is small enough to walk in memory; the engine keeps it
	// acyclic, so plain memoized recursion terminates.
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM issues i WHERE `+categoryExpr("i")+` = 'open'`)
	if err != nil {
		return nil, wrapDBError("querying open issues", err)
	}
	open := map[string]bool{}
	if err := collect(rows, func(scan rowScanner) error {
		var id string
		if err := scan.Scan(&id); err != nil {
			return err
		}
		open[id] = true
		return nil
	}); err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	blockers := map[string][]string{} // issue -> blockers it depends on
	rows, err = s.db.QueryContext(ctx, `SELECT issue_id, depends_on_id FROM dependencies`)
	if err != nil {
		return nil, wrapDBError("querying dependency edges", err)
	}
	hasEdges := false
	if err := collect(rows, func(scan rowScanner) error {
		var from, to string
		if err := scan.Scan(&from, &to); err != nil {
			return err
		}
		if open[from] && open[to] {
			blockers[from] = append(blockers[from], to)
			hasEdges = true
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if !hasEdges {
		return nil, nil
	}

	// depth(x) = length of the longest blocker chain ending at x.
	depth := map[string]int{}
	deepestBlocker := map[string]string{}
	var chainDepth func(id string) int
	chainDepth = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		depth[id] = 1 // break unexpected cycles instead of recursing forever
		best := 1
		for _, b := range blockers[id] {
			if d := chainDepth(b) + 1; d > best {
				best = d
				deepestBlocker[id] = b
			}
		}
		depth[id] = best
		return best
	}

	tip, tipDepth := "", 0
	for id := range open {
		if d := chainDepth(id); d > tipDepth {
			tip, tipDepth = id, d
		}
	}
	if tipDepth < 2 {
		return nil, nil
	}

	var path []string
	for id := tip; id != ""; id = deepestBlocker[id] {
		path = append(path, id)
		if _, ok := deepestBlocker[id]; !ok {
			break
		}
	}
	// Deepest blocker first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	issues := make([]*types.Issue, 0, len(path))
	for _, id := range path {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}
