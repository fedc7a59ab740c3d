package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// sqliteMigrations is the ordered list of SQLite schema migrations.
// Each migration's version must be sequential starting from 1.
var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS todos (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TEXT NOT NULL DEFAULT '',
	completed   INTEGER NOT NULL DEFAULT 0,
	sort_order  INTEGER NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_sort_order ON todos(sort_order);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

// postgresMigrations mirrors sqliteMigrations for PostgreSQL and adds the
// NOTIFY trigger that feeds PostgresStore.Changes.
var postgresMigrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS todos (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date    TEXT NOT NULL DEFAULT '',
	completed   INTEGER NOT NULL DEFAULT 0,
	sort_order  BIGINT NOT NULL,
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_sort_order ON todos(sort_order);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE OR REPLACE FUNCTION todos_notify() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('` + notifyChannel + `', '');
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS todos_changed ON todos;

CREATE TRIGGER todos_changed
	AFTER INSERT OR UPDATE OR DELETE ON todos
	FOR EACH STATEMENT EXECUTE FUNCTION todos_notify();

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
