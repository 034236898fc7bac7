// Package config defines analysis configuration structures and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors are wrapped via this package's sentinel errors.
package config

import (
	"runtime"

	"github.com/oscillare/flarehunt/internal/domain/model"
	"github.com/oscillare/flarehunt/internal/domain/pdf"
)

// SearchConfig shapes the likelihood and the minimization search.
type SearchConfig struct {
	// FlareSearch selects the per-source combinatorial time-window
	// search instead of the single stacked window.
	FlareSearch bool `koanf:"flare_search"`

	// FitWeights gives each source an independent n_s parameter.
	FitWeights bool `koanf:"fit_weights"`

	// FitGamma adds the spectral index as a trailing fit parameter.
	FitGamma bool `koanf:"fit_gamma"`

	// DefaultGamma is used for weighting whenever gamma is not fit.
	DefaultGamma float64 `koanf:"default_gamma"`

	// UseEnergy enables the energy SoB term; the seasons must carry
	// energy grids.
	UseEnergy bool `koanf:"use_energy"`

	// TimePDF selects the temporal model; an empty kind means none.
	TimePDF pdf.TimeSpec `koanf:"time_pdf"`

	// Flare search bounds.
	MinFlareDays float64 `koanf:"min_flare_days"`
	MaxFlareDays float64 `koanf:"max_flare_days"`

	// MaxSignificantTimes caps k before the O(k^2) pair enumeration.
	MaxSignificantTimes int `koanf:"max_significant_times"`
}

// InjectionConfig shapes pseudo-experiment signal injection.
type InjectionConfig struct {
	Gamma    float64      `koanf:"gamma"`
	SigmaDeg float64      `koanf:"sigma_deg"`
	Seed     int64        `koanf:"seed"`
	TimePDF  pdf.TimeSpec `koanf:"time_pdf"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr exposes Prometheus metrics when non-empty.
	MetricsAddr string `koanf:"metrics_addr"`

	// ResultsDB is the sqlite file holding persisted trial batches.
	ResultsDB string `koanf:"results_db"`

	// SeasonPaths are the YAML season definitions to analyze.
	SeasonPaths []string `koanf:"season_paths"`

	// CatalogPath is the YAML source catalog.
	CatalogPath string `koanf:"catalog_path"`

	// Trials per batch and the number of parallel trial workers.
	Trials  int `koanf:"trials"`
	Workers int `koanf:"workers"`

	// Scale is the default injection scale for sensitivity batches.
	Scale float64 `koanf:"scale"`

	Search    SearchConfig    `koanf:"search"`
	Injection InjectionConfig `koanf:"injection"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		ResultsDB: "flarehunt.db",
		Trials:    100,
		Workers:   runtime.NumCPU(),
		Scale:     1,
		Search: SearchConfig{
			DefaultGamma:        model.DefaultGamma,
			MinFlareDays:        1,
			MaxSignificantTimes: 50,
		},
		Injection: InjectionConfig{
			Gamma:    model.DefaultGamma,
			SigmaDeg: 1,
			Seed:     1,
		},
	}
}
