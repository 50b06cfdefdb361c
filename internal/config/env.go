package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// loadDotEnv loads .env / .env.local into the process environment. Existing
// variables win; a missing file is not an error.
func loadDotEnv() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

// applyEnvOverrides lets LINKTEXT_* variables override file values, for
// container deployments where editing the config file is awkward.
func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Source.Dir, "LINKTEXT_SOURCE_DIR")
	setString(&cfg.Source.Output, "LINKTEXT_OUTPUT")
	setString(&cfg.Source.Workspace, "LINKTEXT_WORKSPACE")
	setString(&cfg.Store.Path, "LINKTEXT_STORE_PATH")
	setString(&cfg.Metrics.Listen, "LINKTEXT_METRICS_LISTEN")
	setString(&cfg.Notify.URL, "LINKTEXT_NOTIFY_URL")
	setString(&cfg.Notify.Subject, "LINKTEXT_NOTIFY_SUBJECT")
	setString(&cfg.Render.Interval, "LINKTEXT_RENDER_INTERVAL")

	if v := os.Getenv("LINKTEXT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = NormalizeLogLevel(v)
	}
	if v := os.Getenv("LINKTEXT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = NormalizeLogFormat(v)
	}
	if v := os.Getenv("LINKTEXT_INCLUSION_BUDGET"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Render.InclusionBudget = n
		}
	}
	if v := os.Getenv("LINKTEXT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.Workers = n
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
