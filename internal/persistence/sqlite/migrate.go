package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one versioned schema step. Versions are applied in slice
// order and recorded in schema_migrations; a restarted process skips the
// versions it finds there.
type migration struct {
	version string
	script  string
}

var migrations = []migration{
	{
		version: "001_initial_schema",
		script: `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS calendars (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name         TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	color        TEXT NOT NULL DEFAULT '',
	import_url   TEXT,
	update_rule  TEXT,
	public_token TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calendars_owner ON calendars(owner_id);

CREATE TABLE IF NOT EXISTS appointments (
	id          TEXT PRIMARY KEY,
	calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
	owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	start_at    TEXT NOT NULL,
	end_at      TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_appointments_calendar ON appointments(calendar_id);

CREATE TABLE IF NOT EXISTS recurrent_appointments (
	id             TEXT PRIMARY KEY,
	calendar_id    TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
	owner_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	start_at       TEXT NOT NULL,
	end_at         TEXT NOT NULL,
	recursion_rule TEXT NOT NULL,
	recursion_end  TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recurrent_appointments_calendar ON recurrent_appointments(calendar_id);

CREATE TABLE IF NOT EXISTS pauses (
	id                       TEXT PRIMARY KEY,
	recurrent_appointment_id TEXT NOT NULL REFERENCES recurrent_appointments(id) ON DELETE CASCADE,
	start_at                 TEXT NOT NULL,
	end_at                   TEXT NOT NULL,
	created_at               TEXT NOT NULL,
	CHECK (end_at > start_at)
);
CREATE INDEX IF NOT EXISTS idx_pauses_recurrence ON pauses(recurrent_appointment_id);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL,
	created_by TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tags_created_by ON tags(created_by);

CREATE TABLE IF NOT EXISTS appointment_tags (
	appointment_id TEXT NOT NULL REFERENCES appointments(id) ON DELETE CASCADE,
	tag_id         TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (appointment_id, tag_id)
);

CREATE TABLE IF NOT EXISTS shares (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
	grantee_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	share_type  TEXT NOT NULL,
	link_token  TEXT,
	created_at  TEXT NOT NULL,
	UNIQUE (calendar_id, grantee_id)
);
CREATE INDEX IF NOT EXISTS idx_shares_grantee ON shares(grantee_id);
`,
	},
	{
		// The join table is shared by single and recurrent appointments, so
		// appointment_id cannot carry a column foreign key to one parent
		// table. Integrity moves to triggers: inserts must match either
		// parent, and deleting either parent clears its links.
		version: "002_appointment_tags_both_kinds",
		script: `
ALTER TABLE appointment_tags RENAME TO appointment_tags_old;

CREATE TABLE appointment_tags (
	appointment_id TEXT NOT NULL,
	tag_id         TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	PRIMARY KEY (appointment_id, tag_id)
);

INSERT INTO appointment_tags (appointment_id, tag_id)
	SELECT appointment_id, tag_id FROM appointment_tags_old;
DROP TABLE appointment_tags_old;

CREATE TRIGGER IF NOT EXISTS appointment_tags_target_check
BEFORE INSERT ON appointment_tags
FOR EACH ROW
WHEN NOT EXISTS (SELECT 1 FROM appointments WHERE id = NEW.appointment_id)
 AND NOT EXISTS (SELECT 1 FROM recurrent_appointments WHERE id = NEW.appointment_id)
BEGIN
	SELECT RAISE(ABORT, 'FOREIGN KEY constraint failed');
END;

CREATE TRIGGER IF NOT EXISTS appointment_tags_cascade_appointments
AFTER DELETE ON appointments
FOR EACH ROW
BEGIN
	DELETE FROM appointment_tags WHERE appointment_id = OLD.id;
END;

CREATE TRIGGER IF NOT EXISTS appointment_tags_cascade_recurrents
AFTER DELETE ON recurrent_appointments
FOR EACH ROW
BEGIN
	DELETE FROM appointment_tags WHERE appointment_id = OLD.id;
END;
`,
	},
}

// Migrate brings the database schema up to date. It is safe to call on
// every startup.
func Migrate(ctx context.Context, pool *ConnectionPool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := pool.DB().ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := pool.DB().QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("sqlite: read applied migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("sqlite: scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: read applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.script); err != nil {
				return fmt.Errorf("sqlite: apply migration %s: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
				return fmt.Errorf("sqlite: record migration %s: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.InfoContext(ctx, "migration applied", "version", m.version)
	}
	return nil
}
