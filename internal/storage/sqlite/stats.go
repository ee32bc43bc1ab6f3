package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/filigree-dev/filigree/internal/types"
)

// GetStatistics aggregates category counts, blocked/ready counts, and the
// average lead time of finished work. Category resolution is per-type via
// the status_categories cache, never a global status bucket.
func (s *FiligreeStore) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	stats := &types.Statistics{}

	err := s.db.QueryRowContext(ctx, `
        SELECT
            COUNT(*),
            SUM(CASE WHEN `+categoryExpr("i")+` = 'open' THEN 1 ELSE 0 END),
            SUM(CASE WHEN `+categoryExpr("i")+` = 'wip' THEN 1 ELSE 0 END),
            SUM(CASE WHEN `+categoryExpr("i")+` = 'done' THEN 1 ELSE 0 END)
        FROM issues i`).Scan(&stats.TotalIssues, &nullInt{&stats.OpenIssues},
		&nullInt{&stats.InProgressIssues}, &nullInt{&stats.ClosedIssues})
	if err != nil {
		return nil, wrapDBError("aggregating issue counts", err)
	}

	err = s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM issues i
        WHERE `+categoryExpr("i")+` != 'done'
          AND EXISTS (
              SELECT 1 FROM dependencies d
              JOIN issues b ON b.id = d.depends_on_id
              WHERE d.issue_id = i.id AND `+categoryExpr("b")+` != 'done')`).Scan(&stats.BlockedIssues)
	if err != nil {
		return nil, wrapDBError("counting blocked issues", err)
	}

	err = s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM issues i
        WHERE `+categoryExpr("i")+` = 'open'
          AND NOT EXISTS (
              SELECT 1 FROM dependencies d
              JOIN issues b ON b.id = d.depends_on_id
              WHERE d.issue_id = i.id AND `+categoryExpr("b")+` != 'done')`).Scan(&stats.ReadyIssues)
	if err != nil {
		return nil, wrapDBError("counting ready issues", err)
	}

	var lead sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
        SELECT AVG((julianday(closed_at) - julianday(created_at)) * 24.0)
        FROM issues WHERE closed_at IS NOT NULL`).Scan(&lead)
	if err != nil {
		return nil, wrapDBError("computing lead time", err)
	}
	if lead.Valid {
		stats.AverageLeadTime = lead.Float64
	}
	return stats, nil
}

// nullInt scans a nullable aggregate into an int, treating NULL as zero.
type nullInt struct{ dst *int }

func (n *nullInt) Scan(src any) error {
	if src == nil {
		*n.dst = 0
		return nil
	}
	switch v := src.(type) {
	case int64:
		*n.dst = int(v)
	case float64:
		*n.dst = int(v)
	default:
		*n.dst = 0
	}
	return nil
}

// GetStaleIssues lists wip-category issues that have not been touched for
// the given idle duration, least recently touched first.
func (s *FiligreeStore) GetStaleIssues(ctx context.Context, idle time.Duration, limit int) ([]*types.Issue, error) {
	if limit <= 0 {
		limit = 20
	}
	cutoff := utcNow().Add(-idle)
	rows, err := s.db.QueryContext(ctx, `
        SELECT `+issueColumns+` FROM issues i
        WHERE `+categoryExpr("i")+` = 'wip' AND i.updated_at < ?
        ORDER BY i.updated_at LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, wrapDBError("querying stale issues", err)
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

// GetEpicProgress rolls up child completion for parent issues, largest
// families first.
func (s *FiligreeStore) GetEpicProgress(ctx context.Context, limit int) ([]*types.EpicProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT p.id, COUNT(c.id),
               SUM(CASE WHEN `+categoryExpr("c")+` = 'done' THEN 1 ELSE 0 END)
        FROM issues p JOIN issues c ON c.parent_id = p.id
        WHERE p.status != 'archived'
        GROUP BY p.id
        ORDER BY COUNT(c.id) DESC, p.id LIMIT ?`, limit)
	if err != nil {
		return nil, wrapDBError("querying epic progress", err)
	}

	type rollup struct {
		id            string
		total, closed int
	}
	var rollups []rollup
	if err := collect(rows, func(scan rowScanner) error {
		var r rollup
		if err := scan.Scan(&r.id, &r.total, &r.closed); err != nil {
			return err
		}
		rollups = append(rollups, r)
		return nil
	}); err != nil {
		return nil, err
	}

	progress := make([]*types.EpicProgress, 0, len(rollups))
	for _, r := range rollups {
		epic, err := s.GetIssue(ctx, r.id)
		if err != nil {
			return nil, err
		}
		progress = append(progress, &types.EpicProgress{
			Epic:           epic,
			TotalChildren:  r.total,
			ClosedChildren: r.closed,
		})
	}
	return progress, nil
}
