package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir-timeline/timeline/internal/mapping"
	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/store"
	"github.com/sir-timeline/timeline/internal/transform"
)

type fakeGateway struct {
	mu      sync.Mutex
	tickets map[string][]model.Ticket
	err     error
	calls   []string
}

func (f *fakeGateway) FindByVersionTag(_ context.Context, tag string) ([]model.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, tag)
	if f.err != nil {
		return nil, f.err
	}
	return f.tickets[tag], nil
}

type fakeJournal struct {
	runs    []model.SyncRun
	tickets map[string][]model.Ticket
	err     error
}

func (f *fakeJournal) RecordSyncRun(_ context.Context, run *model.SyncRun) error {
	f.runs = append(f.runs, *run)
	return f.err
}

func (f *fakeJournal) ReplaceTickets(_ context.Context, version string, tickets []model.Ticket) error {
	if f.tickets == nil {
		f.tickets = map[string][]model.Ticket{}
	}
	f.tickets[version] = tickets
	return f.err
}

type fakePublisher struct {
	bodies [][]byte
	err    error
}

func (f *fakePublisher) PutDocument(_ context.Context, body []byte) error {
	f.bodies = append(f.bodies, body)
	return f.err
}

type fixture struct {
	pipeline  *Pipeline
	gateway   *fakeGateway
	store     *store.Store
	journal   *fakeJournal
	publisher *fakePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m, err := mapping.New(mapping.Config{})
	require.NoError(t, err)

	f := &fixture{
		gateway:   &fakeGateway{tickets: map[string][]model.Ticket{}},
		store:     store.New(filepath.Join(t.TempDir(), "document.json"), nil),
		journal:   &fakeJournal{},
		publisher: &fakePublisher{},
	}
	f.pipeline, err = New(Config{
		Gateway:     f.gateway,
		Store:       f.store,
		Transformer: transform.New(m),
		Journal:     f.journal,
		Publisher:   f.publisher,
	})
	require.NoError(t, err)
	f.pipeline.now = func() time.Time { return time.Date(2025, 12, 17, 9, 0, 0, 0, time.UTC) }
	return f
}

func sampleTickets() []model.Ticket {
	return []model.Ticket{
		{ID: "101", Title: "Login fix", Kind: "Bug", Tags: "V.1.58; EC; CO", IterationPath: `SIR\Sprint 12`, AreaPath: `SIR\Legacy`, State: "Done"},
		{ID: "102", Title: "New report", Kind: "User Story", Tags: "V.1.58", IterationPath: "SIR", State: "Active"},
	}
}

func TestSyncCreatesRecord(t *testing.T) {
	f := newFixture(t)
	f.gateway.tickets["V.1.58"] = sampleTickets()

	res, err := f.pipeline.Sync(context.Background(), Request{Version: "1.58", Date: "17/12/2025", Year: 2025})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "1.58", res.Version)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Equal(t, 2, res.WorkItemsCount)
	assert.Equal(t, 3, res.DetailsCount)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"V.1.58"}, f.gateway.calls)

	rec, ok, err := f.store.Get("1.58")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Sprint 12", rec.Sprint)
	assert.Equal(t, "17/12/2025", rec.Date)
	assert.Equal(t, 2025, rec.Year)
	require.Len(t, rec.Details, 3)
	assert.Equal(t, "Ecuador", rec.Details[0].Observation)
	assert.Equal(t, "Colombia", rec.Details[1].Observation)
	assert.Equal(t, "unspecified", rec.Details[2].Observation)
}

func TestSyncPrefixedVersion(t *testing.T) {
	f := newFixture(t)
	f.gateway.tickets["V.1.58"] = sampleTickets()

	res, err := f.pipeline.Sync(context.Background(), Request{Version: "V.1.58", Date: "17/12/2025", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, "1.58", res.Version)
	assert.Equal(t, []string{"V.1.58"}, f.gateway.calls)
}

func TestSyncReplacesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := Request{Version: "1.58", Date: "17/12/2025", Year: 2025}

	f.gateway.tickets["V.1.58"] = sampleTickets()
	_, err := f.pipeline.Sync(ctx, req)
	require.NoError(t, err)

	f.gateway.tickets["V.1.58"] = sampleTickets()[1:]
	res, err := f.pipeline.Sync(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ActionReplaced, res.Action)

	coll, err := f.store.ReadAll()
	require.NoError(t, err)
	require.Len(t, coll.Data, 1)
	require.Len(t, coll.Data[0].Details, 1)
	assert.Equal(t, "102", coll.Data[0].Details[0].ID)
	assert.Equal(t, "no sprint", coll.Data[0].Sprint)
}

func TestSyncEmptyResultRemovesThenNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := Request{Version: "1.58", Date: "17/12/2025", Year: 2025}

	f.gateway.tickets["V.1.58"] = sampleTickets()
	_, err := f.pipeline.Sync(ctx, req)
	require.NoError(t, err)

	delete(f.gateway.tickets, "V.1.58")
	res, err := f.pipeline.Sync(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ActionRemoved, res.Action)
	assert.True(t, res.Removed)
	assert.Zero(t, res.WorkItemsCount)

	_, ok, err := f.store.Get("1.58")
	require.NoError(t, err)
	assert.False(t, ok)

	res, err = f.pipeline.Sync(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ActionNoop, res.Action)
	assert.False(t, res.Removed)
	assert.Equal(t, "nothing to do", res.Message)

	// create and remove publish, the noop does not
	assert.Len(t, f.publisher.bodies, 2)
	assert.JSONEq(t, `{"data": []}`, string(f.publisher.bodies[1]))
}

func TestSyncKeepsOtherVersionsSorted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, v := range []string{"1.10", "1.9", "1.58.1"} {
		f.gateway.tickets["V."+v] = sampleTickets()[:1]
		_, err := f.pipeline.Sync(ctx, Request{Version: v, Date: "01/01/2025", Year: 2025})
		require.NoError(t, err)
	}

	coll, err := f.store.ReadAll()
	require.NoError(t, err)
	var got []string
	for _, r := range coll.Data {
		got = append(got, r.Version)
	}
	assert.Equal(t, []string{"1.9", "1.10", "1.58.1"}, got)
}

func TestSyncValidation(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"missing version", Request{Date: "17/12/2025", Year: 2025}},
		{"non numeric version", Request{Version: "1.x", Date: "17/12/2025", Year: 2025}},
		{"missing date", Request{Version: "1.58", Year: 2025}},
		{"iso date", Request{Version: "1.58", Date: "2025-12-17", Year: 2025}},
		{"impossible day", Request{Version: "1.58", Date: "31/02/2025", Year: 2025}},
		{"missing year", Request{Version: "1.58", Date: "17/12/2025"}},
		{"year too early", Request{Version: "1.58", Date: "17/12/2019", Year: 2019}},
		{"year too late", Request{Version: "1.58", Date: "17/12/2031", Year: 2031}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.pipeline.Sync(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsValidation(err), "got %v", err)
			assert.Empty(t, f.gateway.calls)
			assert.Empty(t, f.journal.runs)
		})
	}
}

func TestSyncGatewayFailureLeavesStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := Request{Version: "1.58", Date: "17/12/2025", Year: 2025}

	f.gateway.tickets["V.1.58"] = sampleTickets()
	_, err := f.pipeline.Sync(ctx, req)
	require.NoError(t, err)
	before, err := f.store.Raw()
	require.NoError(t, err)

	cause := errors.New("connection refused")
	f.gateway.err = cause
	_, err = f.pipeline.Sync(ctx, req)
	require.Error(t, err)
	assert.True(t, IsGateway(err))
	assert.ErrorIs(t, err, cause)

	after, err := f.store.Raw()
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	require.Len(t, f.journal.runs, 2)
	assert.Equal(t, string(ActionFailed), f.journal.runs[1].Action)
	assert.Contains(t, f.journal.runs[1].Error, "connection refused")
	assert.Len(t, f.publisher.bodies, 1)
}

func TestSyncJournalFailureDoesNotUndo(t *testing.T) {
	f := newFixture(t)
	f.journal.err = errors.New("disk full")
	f.publisher.err = errors.New("bucket gone")
	f.gateway.tickets["V.1.58"] = sampleTickets()

	res, err := f.pipeline.Sync(context.Background(), Request{Version: "1.58", Date: "17/12/2025", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)

	_, ok, err := f.store.Get("1.58")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSyncRecordsTickets(t *testing.T) {
	f := newFixture(t)
	f.gateway.tickets["V.1.58"] = sampleTickets()

	res, err := f.pipeline.Sync(context.Background(), Request{Version: "1.58", Date: "17/12/2025", Year: 2025})
	require.NoError(t, err)

	require.Len(t, f.journal.runs, 1)
	run := f.journal.runs[0]
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, "1.58", run.Version)
	assert.Equal(t, string(ActionCreated), run.Action)
	assert.Equal(t, 2, run.WorkItems)
	assert.Equal(t, 3, run.Details)
	assert.Len(t, f.journal.tickets["1.58"], 2)
}

func TestPreviewDoesNotMutate(t *testing.T) {
	f := newFixture(t)
	f.gateway.tickets["V.1.58"] = sampleTickets()

	p, err := f.pipeline.Preview(context.Background(), "V.1.58")
	require.NoError(t, err)
	assert.Equal(t, "1.58", p.Version)
	assert.Equal(t, "V.1.58", p.Tag)
	assert.False(t, p.Exists)
	assert.Equal(t, 2, p.WorkItemsCount)
	assert.Equal(t, 3, p.DetailsCount)
	require.NotNil(t, p.Record)

	coll, err := f.store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, coll.Data)
	assert.Empty(t, f.journal.runs)
	assert.Empty(t, f.publisher.bodies)
}

func TestPreviewValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.pipeline.Preview(context.Background(), "")
	assert.True(t, IsValidation(err))
	_, err = f.pipeline.Preview(context.Background(), "abc")
	assert.True(t, IsValidation(err))
	assert.Empty(t, f.gateway.calls)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, IsInvalidConfig(err))

	m, err := mapping.New(mapping.Config{})
	require.NoError(t, err)
	_, err = New(Config{
		Gateway:     &fakeGateway{},
		Store:       store.New(filepath.Join(t.TempDir(), "d.json"), nil),
		Transformer: transform.New(m),
		MinYear:     2030,
		MaxYear:     2020,
	})
	assert.True(t, IsInvalidConfig(err))
}
