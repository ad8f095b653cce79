package sqlite

// SchemaVersion is this implementation's schema version. Open fails with
// beadserr.KindSchemaMismatch if an existing database's recorded version
// differs.
const SchemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS issues (
	id                  TEXT PRIMARY KEY,
	content_hash        TEXT NOT NULL,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	design              TEXT NOT NULL DEFAULT '',
	acceptance_criteria TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	issue_type          TEXT NOT NULL,
	priority            INTEGER NOT NULL,
	status              TEXT NOT NULL,
	close_reason        TEXT NOT NULL DEFAULT '',
	closed_by_session   TEXT NOT NULL DEFAULT '',
	created_by          TEXT NOT NULL DEFAULT '',
	assignee            TEXT NOT NULL DEFAULT '',
	owner               TEXT NOT NULL DEFAULT '',
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	due_at              TEXT,
	defer_until         TEXT,
	estimated_minutes   INTEGER,
	parent_id           TEXT NOT NULL DEFAULT '',
	external_ref        TEXT NOT NULL DEFAULT '',
	ephemeral           INTEGER NOT NULL DEFAULT 0,
	deleted_by          TEXT NOT NULL DEFAULT '',
	delete_reason       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_parent ON issues(parent_id);

CREATE TABLE IF NOT EXISTS dependencies (
	issue_id      TEXT NOT NULL,
	depends_on_id TEXT NOT NULL,
	dep_type      TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	created_by    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (issue_id, depends_on_id, dep_type),
	FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE,
	FOREIGN KEY (depends_on_id) REFERENCES issues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_deps_depends_on ON dependencies(depends_on_id);

CREATE TABLE IF NOT EXISTS labels (
	issue_id TEXT NOT NULL,
	label    TEXT NOT NULL,
	PRIMARY KEY (issue_id, label),
	FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS comments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	issue_id   TEXT NOT NULL,
	body       TEXT NOT NULL,
	author     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	FOREIGN KEY (issue_id) REFERENCES issues(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_comments_issue ON comments(issue_id);

CREATE TABLE IF NOT EXISTS events (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	ts       TEXT NOT NULL,
	actor    TEXT NOT NULL DEFAULT '',
	kind     TEXT NOT NULL,
	issue_id TEXT NOT NULL DEFAULT '',
	detail   TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_issue ON events(issue_id);

CREATE TABLE IF NOT EXISTS dirty_issues (
	issue_id TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS blocked_cache (
	issue_id          TEXT PRIMARY KEY,
	is_blocked        INTEGER NOT NULL,
	blocking_ids_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS config (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
