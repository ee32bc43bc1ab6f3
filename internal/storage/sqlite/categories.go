package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// categoryExpr yields the SQL expression resolving the status category of
// the issue row aliased by alias.
//
// Resolution is type-aware: the status_categories cache (rebuilt from the
// workflow registry at open) answers for registered types; unknown
// type/status pairs fall through to the same name heuristic the registry
// uses, so SQL and Go agree on every bucket.
func categoryExpr(alias string) string {
	return fmt.Sprintf(`COALESCE(
        (SELECT sc.category FROM status_categories sc
          WHERE sc.issue_type = %[1]s.issue_type AND sc.status = %[1]s.status),
        CASE
            WHEN %[1]s.status IN ('closed', 'done', 'fixed', 'resolved', 'archived', 'wont_fix') THEN 'done'
            WHEN %[1]s.status IN ('in_progress', 'wip', 'active', 'doing', 'review', 'verifying') THEN 'wip'
            ELSE 'open'
        END)`, alias)
}

// rebuildStatusCategories replaces the cache with the registry's current
// view. Runs on open; a registry reload requires a reopen or explicit call.
func (s *FiligreeStore) rebuildStatusCategories(ctx context.Context) error {
	return s.inTx(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `DELETE FROM status_categories`); err != nil {
			return fmt.Errorf("clearing status categories: %w", err)
		}
		for _, pack := range s.registry.Packs() {
			for _, t := range pack.Types {
				for _, st := range t.States {
					_, err := conn.ExecContext(ctx,
						`INSERT OR REPLACE INTO status_categories (issue_type, status, category)
                         VALUES (?, ?, ?)`,
						t.Name, st.Name, string(st.Category))
					if err != nil {
						return fmt.Errorf("caching category %s/%s: %w", t.Name, st.Name, err)
					}
				}
			}
		}
		return nil
	})
}
