package commands

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sir-timeline/timeline/internal/report"
	"github.com/sir-timeline/timeline/internal/server"
	"github.com/sir-timeline/timeline/web"
)

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = vp.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the timeline, the release document and the sync API",
	Long: `Serve the timeline front-end and /data/document.json. When Azure DevOps
is configured the sync and preview endpoints are enabled, and with
sync.refresh_interval set the newest versions are re-synced periodically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.connectTracker(); err != nil {
			a.logger.Warn("sync endpoints disabled", "error", err)
		}

		counter, err := report.New(a.mapper.Labels())
		if err != nil {
			return err
		}

		sc := server.Config{
			Addr:            a.cfg.Server.Addr,
			Releases:        a.store,
			Counter:         counter,
			Static:          web.Static(),
			ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
			Logger:          a.logger,
		}
		if a.pipeline != nil {
			sc.Syncer = a.pipeline
			sc.WorkItemURL = a.tracker.WorkItemURL
		}
		if a.journal != nil {
			sc.Runs = a.journal
		}
		srv, err := server.New(sc)
		if err != nil {
			return err
		}

		var wg sync.WaitGroup
		if a.pipeline != nil && a.cfg.Sync.RefreshInterval > 0 {
			a.logger.Info("refresh enabled", "interval", a.cfg.Sync.RefreshInterval, "versions", a.cfg.Sync.RefreshCount)
			wg.Add(1)
			go func() {
				defer wg.Done()
				a.pipeline.Run(ctx, a.cfg.Sync.RefreshInterval, a.cfg.Sync.RefreshCount)
			}()
		}

		err = srv.Run(ctx)
		cancel()
		wg.Wait()
		a.logger.Info("all background tasks stopped")
		return err
	},
}
