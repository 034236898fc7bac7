package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvConfigPath names the environment variable pointing at an optional
// YAML config file.
const EnvConfigPath = "FLAREHUNT_CONFIG"

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) from path, or $FLAREHUNT_CONFIG when path is empty
//  3. env (prefix FLAREHUNT_, underscores map to nesting dots)
func Load(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// FLAREHUNT_LOG_LEVEL -> log_level, FLAREHUNT_SEARCH__FIT_GAMMA ->
	// search.fit_gamma (double underscore nests).
	envProvider := env.Provider("FLAREHUNT_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "FLAREHUNT_"))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate performs structural checks that do not need the data files.
func (c *Config) Validate() error {
	if c.Trials <= 0 {
		return fmt.Errorf("%w: trials must be positive, got %d", ErrInvalidConfig, c.Trials)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.Search.DefaultGamma <= 0 {
		return fmt.Errorf("%w: default gamma must be positive, got %v", ErrInvalidConfig, c.Search.DefaultGamma)
	}
	if c.Search.FlareSearch {
		if c.Search.TimePDF.Kind == "" {
			return fmt.Errorf("%w: flare search requires a time pdf", ErrInvalidConfig)
		}
		if c.Search.MinFlareDays <= 0 {
			return fmt.Errorf("%w: min flare duration must be positive, got %v", ErrInvalidConfig, c.Search.MinFlareDays)
		}
	}
	return nil
}
