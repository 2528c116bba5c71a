package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// SchemaVersion is bumped whenever the DDL below changes shape.
const SchemaVersion = 1

// schema is applied on every open. Every statement is IF NOT EXISTS so
// reapplying it is a no-op.
//
// messages_fts is an external-content FTS5 table over messages.content and
// the three messages_* triggers are its only writers. Deletes go through the
// FTS5 'delete' command with the old content, since the row is already gone
// from messages when an AFTER trigger fires.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	provider   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	metadata   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       TEXT NOT NULL,
	metadata        TEXT NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
CREATE INDEX IF NOT EXISTS idx_conversations_provider ON conversations(provider);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
	content,
	content='messages',
	content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
	INSERT INTO messages_fts(messages_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
	INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TABLE IF NOT EXISTS schema_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;
`

const initMeta = "INSERT OR IGNORE INTO schema_meta (key, value) VALUES (?, ?)"

// EnsureSchema creates every table, index, search index and trigger that is
// missing. It is safe to call on every process start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	meta := [][2]string{
		{"schema_version", strconv.Itoa(SchemaVersion)},
		{"created_at", formatTime(now())},
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx, initMeta, kv[0], kv[1]); err != nil {
			return fmt.Errorf("init schema meta: %w", err)
		}
	}
	return tx.Commit()
}

// StoredSchemaVersion returns the version recorded when the file was first
// initialized.
func (d *DB) StoredSchemaVersion(ctx context.Context) (int, error) {
	var raw string
	err := d.sql.QueryRowContext(ctx,
		"SELECT value FROM schema_meta WHERE key = 'schema_version'",
	).Scan(&raw)
	if err != nil {
		return 0, classify("read schema version", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: schema version %q", ErrSerialization, raw)
	}
	return v, nil
}

// VerifyIndex runs the FTS5 integrity check, which fails if messages_fts has
// drifted from the messages table.
func (d *DB) VerifyIndex(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO messages_fts(messages_fts, rank) VALUES ('integrity-check', 1)",
	)
	if err != nil {
		return classify("verify search index", err)
	}
	return nil
}
