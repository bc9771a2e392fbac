package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir-timeline/timeline/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestSyncRuns(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	base := time.Date(2025, 12, 17, 10, 0, 0, 0, time.UTC)
	runs := []model.SyncRun{
		{ID: "a", Version: "1.58", Action: "created", WorkItems: 2, Details: 3, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "b", Version: "1.59", Action: "noop", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute)},
		{ID: "c", Version: "1.58", Action: "failed", Error: "auth error", StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2 * time.Minute)},
	}
	for i := range runs {
		require.NoError(t, database.RecordSyncRun(ctx, &runs[i]))
	}

	all, err := database.ListSyncRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "auth error", all[0].Error)
	assert.True(t, all[2].StartedAt.Equal(base))

	only, err := database.ListSyncRuns(ctx, "1.58", 1)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "c", only[0].ID)
}

func TestReplaceTickets(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	require.NoError(t, database.ReplaceTickets(ctx, "1.58", []model.Ticket{
		{ID: "2", Title: "second"},
		{ID: "1", Title: "first", Tags: "ECU"},
	}))
	require.NoError(t, database.ReplaceTickets(ctx, "1.59", []model.Ticket{{ID: "3"}}))

	got, err := database.ListTickets(ctx, "1.58")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.Equal(t, "ECU", got[1].Tags)
	assert.Equal(t, "1.58", got[1].Version)
	assert.False(t, got[0].SyncedAt.IsZero())

	require.NoError(t, database.ReplaceTickets(ctx, "1.58", nil))
	got, err = database.ListTickets(ctx, "1.58")
	require.NoError(t, err)
	assert.Empty(t, got)

	other, err := database.ListTickets(ctx, "1.59")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
