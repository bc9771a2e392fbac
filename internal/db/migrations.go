package db

import "fmt"

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
    id          TEXT PRIMARY KEY,
    version     TEXT NOT NULL,
    action      TEXT NOT NULL DEFAULT '',
    work_items  INTEGER NOT NULL DEFAULT 0,
    details     INTEGER NOT NULL DEFAULT 0,
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_version ON sync_runs(version);
CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);

CREATE TABLE IF NOT EXISTS tickets (
    ticket_id      TEXT NOT NULL,
    version        TEXT NOT NULL,
    position       INTEGER NOT NULL DEFAULT 0,
    title          TEXT NOT NULL DEFAULT '',
    kind           TEXT NOT NULL DEFAULT '',
    tags           TEXT NOT NULL DEFAULT '',
    state          TEXT NOT NULL DEFAULT '',
    iteration_path TEXT NOT NULL DEFAULT '',
    area_path      TEXT NOT NULL DEFAULT '',
    synced_at      TEXT NOT NULL,
    PRIMARY KEY (ticket_id, version)
);

CREATE INDEX IF NOT EXISTS idx_tickets_version ON tickets(version);
`

func (d *DB) migrate() error {
	if _, err := d.Exec(schema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}
