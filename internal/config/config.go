// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers defaults, an optional YAML file and PRIVE_* env vars.
// - External errors are wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the operational HTTP listen address (health,
	// metrics), e.g. ":9090".
	Addr string `koanf:"addr"`

	// DBPath points at the SQLite reputation database. Empty selects the
	// in-memory store.
	DBPath string `koanf:"db_path"`

	// SaveRetries bounds how often a recalculation or override is
	// retried after losing an optimistic-concurrency race.
	SaveRetries int `koanf:"save_retries"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:    "info",
		Addr:        ":9090",
		DBPath:      "",
		SaveRetries: 3,
	}
}
