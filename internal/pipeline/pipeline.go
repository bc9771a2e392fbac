// Package pipeline runs a release sync: query the tracker for a version
// tag, transform the tickets and upsert or remove the stored record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/google/uuid"

	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/transform"
	"github.com/sir-timeline/timeline/internal/version"
)

// Gateway finds tickets by version tag. An empty result is not an error.
type Gateway interface {
	FindByVersionTag(ctx context.Context, tag string) ([]model.Ticket, error)
}

// Store is the subset of the release store the pipeline mutates.
type Store interface {
	ReadAll() (*model.ReleaseCollection, error)
	Get(version string) (*model.ReleaseRecord, bool, error)
	Upsert(rec model.ReleaseRecord) (bool, error)
	Remove(version string) (bool, error)
	Raw() ([]byte, error)
}

// Journal records sync history. Optional.
type Journal interface {
	RecordSyncRun(ctx context.Context, run *model.SyncRun) error
	ReplaceTickets(ctx context.Context, version string, tickets []model.Ticket) error
}

// Publisher receives the document after every committed change. Optional.
type Publisher interface {
	PutDocument(ctx context.Context, body []byte) error
}

// Action names the outcome of a sync.
type Action string

const (
	ActionCreated  Action = "created"
	ActionReplaced Action = "replaced"
	ActionRemoved  Action = "removed"
	ActionNoop     Action = "noop"
	ActionFailed   Action = "failed"

	// ActionRestored marks records written back from the mirror.
	ActionRestored Action = "restored"
)

const (
	DefaultMinYear = 2020
	DefaultMaxYear = 2030
)

// Result is reported back to the operator after a sync.
type Result struct {
	Success        bool   `json:"success"`
	Version        string `json:"version"`
	WorkItemsCount int    `json:"workItemsCount"`
	DetailsCount   int    `json:"detailsCount"`
	Action         Action `json:"action"`
	Removed        bool   `json:"removed"`
	Message        string `json:"message,omitempty"`
	RunID          string `json:"runId,omitempty"`
}

// Preview is what a sync would write, without writing it.
type Preview struct {
	Version        string               `json:"version"`
	Tag            string               `json:"tag"`
	Exists         bool                 `json:"exists"`
	WorkItemsCount int                  `json:"workItemsCount"`
	DetailsCount   int                  `json:"detailsCount"`
	Tickets        []model.Ticket       `json:"tickets"`
	Record         *model.ReleaseRecord `json:"record,omitempty"`
}

type Config struct {
	Gateway     Gateway
	Store       Store
	Transformer *transform.Transformer
	Journal     Journal
	Publisher   Publisher
	Logger      *slog.Logger

	// MinYear and MaxYear bound the accepted release year. Zero means the
	// package default.
	MinYear int
	MaxYear int
}

type Pipeline struct {
	gateway     Gateway
	store       Store
	transformer *transform.Transformer
	journal     Journal
	publisher   Publisher
	logger      *slog.Logger
	minYear     int
	maxYear     int
	now         func() time.Time
}

func New(config Config) (*Pipeline, error) {
	if config.Gateway == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Gateway must not be empty", config)
	}
	if config.Store == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Store must not be empty", config)
	}
	if config.Transformer == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Transformer must not be empty", config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MinYear == 0 {
		config.MinYear = DefaultMinYear
	}
	if config.MaxYear == 0 {
		config.MaxYear = DefaultMaxYear
	}
	if config.MinYear > config.MaxYear {
		return nil, microerror.Maskf(invalidConfigError, "%T.MinYear %d is after MaxYear %d", config, config.MinYear, config.MaxYear)
	}

	return &Pipeline{
		gateway:     config.Gateway,
		store:       config.Store,
		transformer: config.Transformer,
		journal:     config.Journal,
		publisher:   config.Publisher,
		logger:      config.Logger.With("component", "pipeline"),
		minYear:     config.MinYear,
		maxYear:     config.MaxYear,
		now:         time.Now,
	}, nil
}

// Sync validates r, fetches the tickets for its tag and applies them:
// no tickets removes an existing record (or does nothing), otherwise the
// transformed record is upserted. A failure at any step leaves the store
// as it was.
func (p *Pipeline) Sync(ctx context.Context, r Request) (*Result, error) {
	key, tag, err := p.validate(r)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	run := &model.SyncRun{
		ID:        uuid.NewString(),
		Version:   key,
		StartedAt: p.now(),
	}
	logger := p.logger.With("version", key, "tag", tag, "run", run.ID)

	res, tickets, err := p.apply(ctx, logger, key, tag, strings.TrimSpace(r.Date), r.Year)
	run.FinishedAt = p.now()
	if err != nil {
		run.Action = string(ActionFailed)
		run.Error = err.Error()
		p.record(ctx, logger, run, nil)
		logger.Error("sync failed", "error", err)
		return nil, microerror.Mask(err)
	}

	res.RunID = run.ID
	run.Action = string(res.Action)
	run.WorkItems = res.WorkItemsCount
	run.Details = res.DetailsCount
	p.record(ctx, logger, run, tickets)

	if res.Action != ActionNoop {
		p.publish(ctx, logger)
	}

	logger.Info("sync finished", "action", res.Action, "work_items", res.WorkItemsCount, "details", res.DetailsCount)
	return res, nil
}

func (p *Pipeline) apply(ctx context.Context, logger *slog.Logger, key, tag, date string, year int) (*Result, []model.Ticket, error) {
	logger.Info("querying tracker")
	tickets, err := p.gateway.FindByVersionTag(ctx, tag)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: query tag %s: %w", gatewayError, tag, err)
	}

	if len(tickets) == 0 {
		tickets = []model.Ticket{}
		removed, err := p.store.Remove(key)
		if err != nil {
			return nil, nil, fmt.Errorf("remove version %s: %w", key, err)
		}
		if removed {
			logger.Info("no tickets left for version, record removed")
			return &Result{Success: true, Version: key, Action: ActionRemoved, Removed: true}, tickets, nil
		}
		logger.Info("no tickets for version, nothing to do")
		return &Result{Success: true, Version: key, Action: ActionNoop, Message: "nothing to do"}, tickets, nil
	}

	rec := p.transformer.Batch(tickets, key, date, year)
	replaced, err := p.store.Upsert(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("store version %s: %w", key, err)
	}

	action := ActionCreated
	if replaced {
		action = ActionReplaced
	}
	return &Result{
		Success:        true,
		Version:        key,
		WorkItemsCount: len(tickets),
		DetailsCount:   len(rec.Details),
		Action:         action,
	}, tickets, nil
}

// Preview fetches and transforms the tickets for v without touching the
// store.
func (p *Pipeline) Preview(ctx context.Context, v string) (*Preview, error) {
	if strings.TrimSpace(v) == "" {
		return nil, microerror.Maskf(validationError, "version is required")
	}
	if !version.Valid(v) {
		return nil, microerror.Maskf(validationError, "version %q must be dotted numbers, optionally prefixed with %q", v, version.TagPrefix)
	}
	key, tag := version.Normalize(v), version.Tag(v)

	tickets, err := p.gateway.FindByVersionTag(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("%w: query tag %s: %w", gatewayError, tag, err)
	}

	_, exists, err := p.store.Get(key)
	if err != nil {
		return nil, microerror.Mask(err)
	}

	out := &Preview{
		Version:        key,
		Tag:            tag,
		Exists:         exists,
		WorkItemsCount: len(tickets),
		Tickets:        tickets,
	}
	if len(tickets) > 0 {
		rec := p.transformer.Batch(tickets, key, "", 0)
		out.DetailsCount = len(rec.Details)
		out.Record = &rec
	}
	return out, nil
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, run *model.SyncRun, tickets []model.Ticket) {
	if p.journal == nil {
		return
	}
	if err := p.journal.RecordSyncRun(ctx, run); err != nil {
		logger.Warn("record sync run", "error", err)
	}
	if tickets == nil {
		return
	}
	if err := p.journal.ReplaceTickets(ctx, run.Version, tickets); err != nil {
		logger.Warn("record tickets", "error", err)
	}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger) {
	if p.publisher == nil {
		return
	}
	body, err := p.store.Raw()
	if err != nil {
		logger.Warn("read document for mirror", "error", err)
		return
	}
	if err := p.publisher.PutDocument(ctx, body); err != nil {
		logger.Warn("mirror document", "error", err)
	}
}
