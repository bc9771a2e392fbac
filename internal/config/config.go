// Package config loads settings from a config file, the environment and
// command line flags through viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/giantswarm/microerror"
	"github.com/spf13/viper"

	"github.com/sir-timeline/timeline/internal/devops"
	"github.com/sir-timeline/timeline/internal/mapping"
	"github.com/sir-timeline/timeline/internal/pipeline"
	s3client "github.com/sir-timeline/timeline/internal/s3"
)

const (
	EnvPrefix = "TIMELINE"
	FileName  = ".timeline"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	DevOps  DevOps  `mapstructure:"devops"`
	Store   Store   `mapstructure:"store"`
	DB      DB      `mapstructure:"db"`
	S3      S3      `mapstructure:"s3"`
	Mapping Mapping `mapstructure:"mapping"`
	Sync    Sync    `mapstructure:"sync"`
	Server  Server  `mapstructure:"server"`
}

type DevOps struct {
	BaseURL      string        `mapstructure:"base_url"`
	Organization string        `mapstructure:"organization"`
	Project      string        `mapstructure:"project"`
	Token        string        `mapstructure:"token"`
	APIVersion   string        `mapstructure:"api_version"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type Store struct {
	Path string `mapstructure:"path"`
}

// DB is the sync journal. An empty path disables it.
type DB struct {
	Path string `mapstructure:"path"`
}

// S3 is the document mirror. An empty bucket disables it.
type S3 struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type Mapping struct {
	Language        string   `mapstructure:"language"`
	CompletedStates []string `mapstructure:"completed_states"`
}

type Sync struct {
	MinYear int `mapstructure:"min_year"`
	MaxYear int `mapstructure:"max_year"`

	// RefreshInterval re-syncs the newest RefreshCount versions while
	// serving. Zero disables it.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	RefreshCount    int           `mapstructure:"refresh_count"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// legacyEnv maps keys to the variable names the previous sync scripts read.
var legacyEnv = map[string]string{
	"devops.organization": "AZURE_DEVOPS_ORG",
	"devops.project":      "AZURE_DEVOPS_PROJECT",
	"devops.token":        "AZURE_DEVOPS_TOKEN",
	"s3.access_key":       "AWS_ACCESS_KEY_ID",
	"s3.secret_key":       "AWS_SECRET_ACCESS_KEY",
}

// SetDefaults registers every known key so that environment variables are
// picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("devops.base_url", devops.DefaultBaseURL)
	v.SetDefault("devops.organization", "")
	v.SetDefault("devops.project", "")
	v.SetDefault("devops.token", "")
	v.SetDefault("devops.api_version", devops.DefaultAPIVersion)
	v.SetDefault("devops.timeout", 30*time.Second)

	v.SetDefault("store.path", filepath.Join("data", "document.json"))
	v.SetDefault("db.path", "")

	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.key", s3client.DefaultKey)
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	v.SetDefault("mapping.language", "en")
	v.SetDefault("mapping.completed_states", mapping.DefaultCompletedStates)

	v.SetDefault("sync.min_year", pipeline.DefaultMinYear)
	v.SetDefault("sync.max_year", pipeline.DefaultMaxYear)
	v.SetDefault("sync.refresh_interval", time.Duration(0))
	v.SetDefault("sync.refresh_count", pipeline.DefaultRefreshCount)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// BindEnv makes TIMELINE_<SECTION>_<KEY> override every key and accepts
// the legacy names as a fallback.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// ReadFile reads path, or $HOME/.timeline.yaml when path is empty. A
// missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(FileName)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return microerror.Maskf(invalidConfigError, "read config: %s", err)
	}
	return nil
}

// Load decodes v into a Config and checks the values that do not depend
// on which command runs.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, microerror.Maskf(invalidConfigError, "decode config: %s", err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, microerror.Mask(err)
	}
	if cfg.Sync.MinYear > cfg.Sync.MaxYear {
		return nil, microerror.Maskf(invalidConfigError, "sync.min_year %d is after sync.max_year %d", cfg.Sync.MinYear, cfg.Sync.MaxYear)
	}
	if cfg.Store.Path == "" {
		return nil, microerror.Maskf(invalidConfigError, "store.path must not be empty")
	}
	return &cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, microerror.Maskf(invalidConfigError, "log_level %q: %s", c.LogLevel, err)
	}
	return l, nil
}

// DevOpsConfig returns the tracker client settings.
func (c *Config) DevOpsConfig() devops.Config {
	return devops.Config{
		BaseURL:      c.DevOps.BaseURL,
		Organization: c.DevOps.Organization,
		Project:      c.DevOps.Project,
		Token:        c.DevOps.Token,
		APIVersion:   c.DevOps.APIVersion,
		Timeout:      c.DevOps.Timeout,
	}
}

// MirrorEnabled reports whether an S3 bucket is configured.
func (c *Config) MirrorEnabled() bool {
	return c.S3.Bucket != ""
}

// S3Config returns the document mirror settings.
func (c *Config) S3Config() s3client.Config {
	return s3client.Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		Bucket:    c.S3.Bucket,
		Key:       c.S3.Key,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
	}
}

// MappingConfig returns the field mapper settings.
func (c *Config) MappingConfig() mapping.Config {
	return mapping.Config{
		Language:        c.Mapping.Language,
		CompletedStates: c.Mapping.CompletedStates,
	}
}
