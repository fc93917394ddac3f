package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ZKSYNC_CONFIG is set
//  3. env (prefix ZKSYNC_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ZKSYNC_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: file %q: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: ZKSYNC_DB_PATH, ZKSYNC_SYNC_INTERVAL_SECONDS, ...
	// Map env keys like ZKSYNC_DB_PATH -> db_path (flat keys, underscores
	// preserved to match the koanf tags on the struct).
	envProvider := env.Provider("ZKSYNC_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "zksync_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.APIBaseURL == "":
		return fmt.Errorf("%w: api_base_url must not be empty", ErrInvalidConfig)
	case c.DeviceID == "":
		return fmt.Errorf("%w: device_id must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.SyncIntervalSeconds <= 0:
		return fmt.Errorf("%w: sync_interval_seconds must be positive", ErrInvalidConfig)
	case c.LookbackMinutes <= 0:
		return fmt.Errorf("%w: lookback_minutes must be positive", ErrInvalidConfig)
	case c.PageLimit <= 0:
		return fmt.Errorf("%w: page_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
