package db

import (
	"context"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/model"
)

// RecordSyncRun stores one finished sync invocation.
func (d *DB) RecordSyncRun(ctx context.Context, run *model.SyncRun) error {
	_, err := d.ExecContext(ctx, `
		INSERT INTO sync_runs (id, version, action, work_items, details, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Version, run.Action, run.WorkItems, run.Details,
		formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Error)
	if err != nil {
		return microerror.Mask(err)
	}
	return nil
}

// ListSyncRuns returns the most recent runs first, optionally for a single
// version.
func (d *DB) ListSyncRuns(ctx context.Context, version string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, version, action, work_items, details, started_at, finished_at, error FROM sync_runs`
	args := []interface{}{}
	if version != "" {
		query += ` WHERE version = ?`
		args = append(args, version)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := d.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, microerror.Mask(err)
	}
	defer rows.Close()

	runs := []model.SyncRun{}
	for rows.Next() {
		var r model.SyncRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Version, &r.Action, &r.WorkItems, &r.Details, &started, &finished, &r.Error); err != nil {
			return nil, microerror.Mask(err)
		}
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
