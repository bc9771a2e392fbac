package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sir-timeline/timeline/internal/config"
	"github.com/sir-timeline/timeline/internal/db"
	"github.com/sir-timeline/timeline/internal/devops"
	"github.com/sir-timeline/timeline/internal/mapping"
	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/pipeline"
	s3client "github.com/sir-timeline/timeline/internal/s3"
	"github.com/sir-timeline/timeline/internal/store"
	"github.com/sir-timeline/timeline/internal/transform"
)

// app holds the components a command needs. Optional parts are nil when
// not configured.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	mapper   *mapping.Mapper
	journal  *db.DB
	mirror   *s3client.Client
	tracker  *devops.Client
	pipeline *pipeline.Pipeline
}

// newApp wires the store, journal and mirror. With withTracker the
// Azure DevOps client and the pipeline are built too, and missing tracker
// settings are an error.
func newApp(ctx context.Context, withTracker bool) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  store.New(cfg.Store.Path, logger.With("component", "store")),
	}

	a.mapper, err = mapping.New(cfg.MappingConfig())
	if err != nil {
		return nil, fmt.Errorf("field mapping: %w", err)
	}

	if cfg.DB.Path != "" {
		a.journal, err = db.Open(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	if cfg.MirrorEnabled() {
		a.mirror, err = s3client.New(ctx, cfg.S3Config(), logger.With("component", "s3"))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
	}

	if withTracker {
		if err := a.connectTracker(); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) connectTracker() error {
	client, err := devops.New(a.cfg.DevOpsConfig())
	if err != nil {
		return fmt.Errorf("azure devops: %w", err)
	}
	a.tracker = client

	pc := pipeline.Config{
		Gateway:     client,
		Store:       a.store,
		Transformer: transform.New(a.mapper),
		Logger:      a.logger,
		MinYear:     a.cfg.Sync.MinYear,
		MaxYear:     a.cfg.Sync.MaxYear,
	}
	if a.journal != nil {
		pc.Journal = a.journal
	}
	if a.mirror != nil {
		pc.Publisher = a.mirror
	}
	a.pipeline, err = pipeline.New(pc)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}
	return nil
}

func (a *app) close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

// publish mirrors the current document when a mirror is configured.
func (a *app) publish(ctx context.Context) {
	if a.mirror == nil {
		return
	}
	body, err := a.store.Raw()
	if err != nil {
		a.logger.Warn("read document for mirror", "error", err)
		return
	}
	if err := a.mirror.PutDocument(ctx, body); err != nil {
		a.logger.Warn("mirror document", "error", err)
	}
}

// recordRun journals an operation done outside the pipeline.
func (a *app) recordRun(ctx context.Context, version string, action pipeline.Action, started time.Time) {
	if a.journal == nil {
		return
	}
	run := &model.SyncRun{
		ID:         uuid.NewString(),
		Version:    version,
		Action:     string(action),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := a.journal.RecordSyncRun(ctx, run); err != nil {
		a.logger.Warn("record run", "error", err)
	}
}
