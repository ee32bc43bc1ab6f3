package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/filigree-dev/filigree/internal/debug"
	"github.com/filigree-dev/filigree/internal/storage"
)

// migration upgrades the schema one version step. Keyed by the version it
// upgrades FROM. Each step manages its own transaction; steps that must
// rebuild FK-constrained tables use rebuildTable and its documented
// non-atomic region.
type migration struct {
	to   int
	name string
	run  func(ctx context.Context, s *FiligreeStore) error
}

var migrations = map[int]migration{
	1: {to: 2, name: "files, scan findings, event dedup", run: migrateV1ToV2},
	2: {to: 3, name: "dependencies kind column, drop depends_on FK", run: migrateV2ToV3},
}

// runMigrations applies every pending step from the given version up to
// the target, stamping user_version after each. Returns the number of
// steps applied; a failure leaves the database at the last stamped
// version.
func (s *FiligreeStore) runMigrations(ctx context.Context, from int) (int, error) {
	applied := 0
	for v := from; v < targetVersion; {
		m, ok := migrations[v]
		if !ok {
			return applied, &storage.MigrationError{
				FromVersion: v, ToVersion: v + 1,
				Err: fmt.Errorf("no migration registered from schema v%d", v),
			}
		}
		debug.Logf("sqlite: migrating v%d -> v%d (%s)\n", v, m.to, m.name)
		if err := m.run(ctx, s); err != nil {
			return applied, &storage.MigrationError{FromVersion: v, ToVersion: m.to, Err: err}
		}
		if err := s.stampVersion(ctx, m.to); err != nil {
			return applied, &storage.MigrationError{FromVersion: v, ToVersion: m.to, Err: err}
		}
		applied++
		v = m.to
	}
	return applied, nil
}

// migrateV1ToV2 adds the files / scan findings subsystem and the event
// dedup index. Duplicate events that predate the index are collapsed onto
// their earliest row first, otherwise creating the unique index would
// fail.
func migrateV1ToV2(ctx context.Context, s *FiligreeStore) error {
	return s.inTx(ctx, func(conn *sql.Conn) error {
		const dedupe = `
DELETE FROM events WHERE id NOT IN (
    SELECT MIN(id) FROM events
    GROUP BY issue_id, event_type, actor,
             COALESCE(old_value, ''), COALESCE(new_value, ''), created_at
)`
		if _, err := conn.ExecContext(ctx, dedupe); err != nil {
			return fmt.Errorf("collapsing duplicate events: %w", err)
		}

		const stmts = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_events_dedup ON events(
    issue_id, event_type, actor,
    COALESCE(old_value, ''), COALESCE(new_value, ''), created_at
);

CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    language TEXT NOT NULL DEFAULT '',
    file_type TEXT NOT NULL DEFAULT '',
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_findings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    issue_id TEXT REFERENCES issues(id) ON DELETE SET NULL,
    scan_source TEXT NOT NULL,
    rule_id TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'info',
    status TEXT NOT NULL DEFAULT 'open',
    message TEXT NOT NULL,
    suggestion TEXT NOT NULL DEFAULT '',
    scan_run_id TEXT NOT NULL DEFAULT '',
    line_start INTEGER,
    line_end INTEGER,
    seen_count INTEGER NOT NULL DEFAULT 1,
    first_seen TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_findings_dedup ON scan_findings(
    file_id, scan_source, rule_id, COALESCE(line_start, -1)
);
CREATE INDEX IF NOT EXISTS idx_findings_source_status ON scan_findings(scan_source, status);

CREATE TABLE IF NOT EXISTS file_associations (
    file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
    assoc_type TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (file_id, issue_id, assoc_type)
);

CREATE TABLE IF NOT EXISTS file_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_events_file ON file_events(file_id, id);

CREATE TABLE IF NOT EXISTS status_categories (
    issue_type TEXT NOT NULL,
    status TEXT NOT NULL,
    category TEXT NOT NULL,
    PRIMARY KEY (issue_type, status)
);
`
		if _, err := conn.ExecContext(ctx, stmts); err != nil {
			return fmt.Errorf("creating v2 tables: %w", err)
		}
		return nil
	})
}

// migrateV2ToV3 rebuilds the dependencies table: adds the kind column and
// drops the FK on depends_on_id so JSONL import can insert edges before
// their target rows. SQLite cannot alter constraints in place, so this is
// a rebuild; it runs last among the migrations because of its non-atomic
// FK-off region.
func migrateV2ToV3(ctx context.Context, s *FiligreeStore) error {
	const createNew = `
CREATE TABLE dependencies_new (
    issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
    depends_on_id TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'blocks',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (issue_id, depends_on_id)
)`
	const copyData = `
INSERT INTO dependencies_new (issue_id, depends_on_id, kind, created_at)
SELECT issue_id, depends_on_id, 'blocks', created_at FROM dependencies`

	return s.rebuildTable(ctx, "dependencies", createNew, copyData,
		`CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON dependencies(depends_on_id)`)
}
