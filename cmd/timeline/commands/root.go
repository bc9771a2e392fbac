package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sir-timeline/timeline/internal/config"
)

var (
	cfgFile string
	vp      = viper.New()

	rootCmd = &cobra.Command{
		Use:   "timeline",
		Short: "Sync Azure DevOps release tags into the release timeline",
		Long: `timeline pulls the work items tagged with a release version from
Azure DevOps, turns them into one release record per version and keeps
the timeline document (data/document.json) up to date.`,
		SilenceUsage: true,
	}
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(vp)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.timeline.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("store", "", "release document path (default data/document.json)")
	flags.String("db", "", "SQLite sync journal path, empty disables the journal")
	flags.String("language", "", "detail label language (en, es)")

	_ = vp.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = vp.BindPFlag("store.path", flags.Lookup("store"))
	_ = vp.BindPFlag("db.path", flags.Lookup("db"))
	_ = vp.BindPFlag("mapping.language", flags.Lookup("language"))
}

// loadConfig reads the config file and environment and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := config.BindEnv(vp); err != nil {
		return nil, nil, err
	}
	if err := config.ReadFile(vp, cfgFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(vp)
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	if used := vp.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return cfg, logger, nil
}
