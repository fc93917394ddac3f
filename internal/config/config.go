// Package config defines process configuration and its layered loading.
//
// Conventions:
// - Defaults come from New; file and environment layers override them.
// - External errors are wrapped via this package's sentinel errors.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the metrics HTTP listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// DBPath is the SQLite database file path.
	DBPath string `koanf:"db_path"`

	// APIBaseURL is the device API root, e.g. "http://10.0.0.5:8081".
	APIBaseURL string `koanf:"api_base_url"`

	// APIToken authenticates transaction fetches. Leave empty to obtain one
	// at startup with APIUsername/APIPassword.
	APIToken    string `koanf:"api_token"`
	APIUsername string `koanf:"api_username"`
	APIPassword string `koanf:"api_password"`

	// DeviceID names the sync scope, usually "host:port" of the device.
	DeviceID string `koanf:"device_id"`

	// SyncIntervalSeconds is the pause between cycles.
	SyncIntervalSeconds int `koanf:"sync_interval_seconds"`

	// LookbackMinutes sizes the first fetch window when a scope has no
	// persisted watermark yet.
	LookbackMinutes int `koanf:"lookback_minutes"`

	// MaxPastDays and FutureSkewMinutes bound accepted punch timestamps.
	MaxPastDays       int `koanf:"max_past_days"`
	FutureSkewMinutes int `koanf:"future_skew_minutes"`

	// PageLimit caps how many pages one fetch follows.
	PageLimit int `koanf:"page_limit"`

	// TrustSourceHint lets a device-reported punch direction override the
	// positional assignment for interior punches of a day.
	TrustSourceHint bool `koanf:"trust_source_hint"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		MetricsAddr:         ":9090",
		DBPath:              "zksync.db",
		APIBaseURL:          "http://127.0.0.1:8081",
		DeviceID:            "127.0.0.1:8081",
		SyncIntervalSeconds: 300,
		LookbackMinutes:     60,
		MaxPastDays:         90,
		FutureSkewMinutes:   5,
		PageLimit:           50,
		TrustSourceHint:     false,
	}
}
