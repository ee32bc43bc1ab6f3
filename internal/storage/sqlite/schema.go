package sqlite

// targetVersion is the schema version this build writes and requires.
// History:
//
//	v1  issues, dependencies, labels, comments, events, config, FTS mirror
//	v2  files / scan findings / associations / file events, event dedup index
//	v3  dependencies rebuilt: kind column, no FK on depends_on_id
const targetVersion = 3

// schema is the complete current schema, executed on fresh databases.
// Older databases reach the same shape through the migrations instead.
const schema = `
CREATE TABLE IF NOT EXISTS issues (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    description TEXT NOT NULL DEFAULT '',
    notes TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'open',
    priority INTEGER NOT NULL DEFAULT 2 CHECK(priority >= 0 AND priority <= 4),
    issue_type TEXT NOT NULL DEFAULT 'task',
    parent_id TEXT REFERENCES issues(id) ON DELETE SET NULL,
    assignee TEXT NOT NULL DEFAULT '',
    fields TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    closed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_type ON issues(issue_type);
CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(assignee);
CREATE INDEX IF NOT EXISTS idx_issues_parent ON issues(parent_id);
CREATE INDEX IF NOT EXISTS idx_issues_closed_at ON issues(closed_at);

-- depends_on_id deliberately carries no FK: imports may insert edges
-- before their target issue row arrives. The engine validates existence.
CREATE TABLE IF NOT EXISTS dependencies (
    issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
    depends_on_id TEXT NOT NULL,
    kind TEXT NOT NULL DEFAULT 'blocks',
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (issue_id, depends_on_id)
);

CREATE INDEX IF NOT EXISTS idx_dependencies_depends_on ON dependencies(depends_on_id);

CREATE TABLE IF NOT EXISTS labels (
    issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
    label TEXT NOT NULL,
    PRIMARY KEY (issue_id, label)
);

CREATE INDEX IF NOT EXISTS idx_labels_label ON labels(label);

CREATE TABLE IF NOT EXISTS comments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
    author TEXT NOT NULL DEFAULT '',
    text TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_issue ON comments(issue_id, id);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id TEXT NOT NULL,
    event_type TEXT NOT NULL,
    actor TEXT NOT NULL DEFAULT '',
    old_value TEXT,
    new_value TEXT,
    comment TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_issue ON events(issue_id, id);
CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);

-- Exact re-inserts (JSONL import replay) must be no-ops.
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

-- Repeat observations of the same finding collapse into one row.
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

CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

-- Per-type status -> category lookups, rebuilt from the workflow
-- registry on every open. Analytics queries join through this table so
-- category resolution stays type-aware inside SQL.
CREATE TABLE IF NOT EXISTS status_categories (
    issue_type TEXT NOT NULL,
    status TEXT NOT NULL,
    category TEXT NOT NULL,
    PRIMARY KEY (issue_type, status)
);

CREATE VIRTUAL TABLE IF NOT EXISTS issues_fts USING fts5(
    title, description, notes,
    content='issues',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS issues_fts_insert AFTER INSERT ON issues BEGIN
    INSERT INTO issues_fts(rowid, title, description, notes)
    VALUES (new.rowid, new.title, new.description, new.notes);
END;

CREATE TRIGGER IF NOT EXISTS issues_fts_delete AFTER DELETE ON issues BEGIN
    INSERT INTO issues_fts(issues_fts, rowid, title, description, notes)
    VALUES ('delete', old.rowid, old.title, old.description, old.notes);
END;

CREATE TRIGGER IF NOT EXISTS issues_fts_update AFTER UPDATE OF title, description, notes ON issues BEGIN
    INSERT INTO issues_fts(issues_fts, rowid, title, description, notes)
    VALUES ('delete', old.rowid, old.title, old.description, old.notes);
    INSERT INTO issues_fts(rowid, title, description, notes)
    VALUES (new.rowid, new.title, new.description, new.notes);
END;
`
