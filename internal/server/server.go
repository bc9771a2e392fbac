// Package server exposes the release document, sync operations and stats
// over HTTP and serves the timeline front-end.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/giantswarm/microerror"

	"github.com/sir-timeline/timeline/internal/model"
	"github.com/sir-timeline/timeline/internal/pipeline"
	"github.com/sir-timeline/timeline/internal/report"
)

// Releases is the read side of the release store.
type Releases interface {
	ReadAll() (*model.ReleaseCollection, error)
	Raw() ([]byte, error)
	Get(version string) (*model.ReleaseRecord, bool, error)
	Latest() (*model.ReleaseRecord, error)
}

// Syncer runs syncs and previews. Nil disables the sync endpoints.
type Syncer interface {
	Sync(ctx context.Context, r pipeline.Request) (*pipeline.Result, error)
	Preview(ctx context.Context, version string) (*pipeline.Preview, error)
}

// Runs lists recorded syncs and the tickets they fetched. Nil serves an
// empty history.
type Runs interface {
	ListSyncRuns(ctx context.Context, version string, limit int) ([]model.SyncRun, error)
	ListTickets(ctx context.Context, version string) ([]model.TicketRecord, error)
}

type Config struct {
	Addr            string
	Releases        Releases
	Syncer          Syncer
	Runs            Runs
	// WorkItemURL links a ticket id to the tracker. Optional.
	WorkItemURL     func(id string) string
	Counter         *report.Counter
	Static          fs.FS
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

type Server struct {
	releases        Releases
	syncer          Syncer
	runs            Runs
	workItemURL     func(id string) string
	counter         *report.Counter
	static          fs.FS
	http            *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	now             func() time.Time
}

func New(cfg Config) (*Server, error) {
	if cfg.Releases == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Releases must not be empty", cfg)
	}
	if cfg.Counter == nil {
		return nil, microerror.Maskf(invalidConfigError, "%T.Counter must not be empty", cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		releases:        cfg.Releases,
		syncer:          cfg.Syncer,
		runs:            cfg.Runs,
		workItemURL:     cfg.WorkItemURL,
		counter:         cfg.Counter,
		static:          cfg.Static,
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger.With("component", "server"),
		now:             time.Now,
	}
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	handler = loggingMiddleware(s.logger, handler)
	handler = recoveryMiddleware(s.logger, handler)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	case <-ctx.Done():
	}
	s.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
