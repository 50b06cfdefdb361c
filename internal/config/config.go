// Package config loads and validates the linktext configuration: vault
// location, namespace table, render limits, store path, logging, metrics and
// notification settings. Values come from a YAML file with environment
// variable expansion, then LINKTEXT_* environment overrides, then defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "git.home.luguber.info/inful/linktext/internal/errors"
)

// Config is the application configuration.
type Config struct {
	Source     SourceConfig      `yaml:"source"`
	Namespaces []NamespaceConfig `yaml:"namespaces,omitempty"`
	Render     RenderConfig      `yaml:"render"`
	Store      StoreConfig       `yaml:"store"`
	Logging    LoggingConfig     `yaml:"logging"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Notify     NotifyConfig      `yaml:"notify"`
}

// SourceConfig locates the vault to render.
type SourceConfig struct {
	// Dir is the vault root: a directory tree of .wiki/.md pages.
	Dir string `yaml:"dir"`
	// Output receives the rewritten pages.
	Output string `yaml:"output"`
	// Repo, when set, is a git repository synced into Workspace before each
	// render; Dir is then resolved relative to the checkout.
	Repo *RepoConfig `yaml:"repo,omitempty"`
	// Workspace is where remote checkouts live.
	Workspace string `yaml:"workspace,omitempty"`
}

// RepoConfig describes a remote vault source.
type RepoConfig struct {
	URL    string `yaml:"url"`
	Branch string `yaml:"branch,omitempty"`
	// Depth > 0 requests a shallow clone.
	Depth int `yaml:"depth,omitempty"`
}

// NamespaceConfig declares one namespace of the wiki and whether pages in it
// may declare default link text.
type NamespaceConfig struct {
	Name     string   `yaml:"name"`
	Aliases  []string `yaml:"aliases,omitempty"`
	LinkText bool     `yaml:"linktext"`
	File     bool     `yaml:"file,omitempty"`
}

// RenderConfig holds per-render limits and daemon-mode cadence.
type RenderConfig struct {
	// InclusionBudget caps total byte growth from substitutions per render
	// pass. Zero means unlimited.
	InclusionBudget int64 `yaml:"inclusion_budget,omitempty"`
	// Workers is the page-render fan-out.
	Workers int `yaml:"workers,omitempty"`
	// Interval is the daemon's periodic full-render cadence, in
	// time.ParseDuration syntax.
	Interval string `yaml:"interval,omitempty"`
}

// IntervalDuration parses the configured render interval.
func (r RenderConfig) IntervalDuration() time.Duration {
	d, err := time.ParseDuration(r.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// StoreConfig locates the format store database.
type StoreConfig struct {
	// Path is the sqlite database file; ":memory:" keeps the store ephemeral.
	Path string `yaml:"path"`
}

// LoggingConfig controls slog setup.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// NotifyConfig controls render-warning publication over NATS JetStream.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Load reads, expands, overrides, defaults and validates the configuration.
func Load(path string) (*Config, error) {
	loadDotEnv()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "failed to read config file")
	}

	// ${VAR} references inside the YAML resolve against the process
	// environment, including anything the .env file contributed.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryConfig, apperrors.SeverityFatal, "failed to parse config file")
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Dir == "" {
		cfg.Source.Dir = "./vault"
	}
	if cfg.Source.Output == "" {
		cfg.Source.Output = "./out"
	}
	if cfg.Source.Workspace == "" {
		cfg.Source.Workspace = "./workspace"
	}
	if cfg.Source.Repo != nil && cfg.Source.Repo.Branch == "" {
		cfg.Source.Repo.Branch = "main"
	}
	if cfg.Render.Workers <= 0 {
		cfg.Render.Workers = 4
	}
	if cfg.Render.Interval == "" {
		cfg.Render.Interval = "1h"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./linktext.db"
	}
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = ":9464"
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = "linktext.warnings"
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Render.InclusionBudget < 0 {
		return apperrors.ValidationError("render.inclusion_budget must not be negative")
	}
	if c.Render.Interval != "" {
		if _, err := time.ParseDuration(c.Render.Interval); err != nil {
			return apperrors.ValidationError(
				fmt.Sprintf("render.interval is not a valid duration: %s", c.Render.Interval))
		}
	}
	if c.Source.Repo != nil && c.Source.Repo.URL == "" {
		return apperrors.ValidationError("source.repo.url is required when source.repo is set")
	}
	if c.Notify.Enabled && c.Notify.URL == "" {
		return apperrors.ValidationError("notify.url is required when notify.enabled is true")
	}
	seen := make(map[string]struct{}, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		if ns.Name == "" {
			return apperrors.ValidationError("namespaces entries must have a name")
		}
		if _, dup := seen[ns.Name]; dup {
			return apperrors.ValidationError(fmt.Sprintf("duplicate namespace %q", ns.Name))
		}
		seen[ns.Name] = struct{}{}
	}
	return nil
}
