package db

import (
	"context"
	"time"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/model"
)

// ReplaceTickets swaps the stored ticket set for version in one transaction.
// An empty slice clears the version.
func (d *DB) ReplaceTickets(ctx context.Context, version string, tickets []model.Ticket) error {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return microerror.Mask(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE version = ?`, version); err != nil {
		return microerror.Mask(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tickets (ticket_id, version, position, title, kind, tags, state, iteration_path, area_path, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id, version) DO UPDATE SET
			position = excluded.position,
			title = excluded.title,
			kind = excluded.kind,
			tags = excluded.tags,
			state = excluded.state,
			iteration_path = excluded.iteration_path,
			area_path = excluded.area_path,
			synced_at = excluded.synced_at`)
	if err != nil {
		return microerror.Mask(err)
	}
	defer stmt.Close()

	now := formatTime(time.Now())
	for i, t := range tickets {
		if _, err := stmt.ExecContext(ctx, t.ID, version, i, t.Title, t.Kind, t.Tags, t.State, t.IterationPath, t.AreaPath, now); err != nil {
			return microerror.Mask(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return microerror.Mask(err)
	}
	return nil
}

// ListTickets returns the tickets last synced for version in fetch order.
func (d *DB) ListTickets(ctx context.Context, version string) ([]model.TicketRecord, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT ticket_id, version, title, kind, tags, state, iteration_path, area_path, synced_at
		FROM tickets WHERE version = ? ORDER BY position`, version)
	if err != nil {
		return nil, microerror.Mask(err)
	}
	defer rows.Close()

	var out []model.TicketRecord
	for rows.Next() {
		var r model.TicketRecord
		var synced string
		if err := rows.Scan(&r.ID, &r.Version, &r.Title, &r.Kind, &r.Tags, &r.State,
			&r.IterationPath, &r.AreaPath, &synced); err != nil {
			return nil, microerror.Mask(err)
		}
		r.SyncedAt = parseTime(synced)
		out = append(out, r)
	}
	return out, rows.Err()
}
