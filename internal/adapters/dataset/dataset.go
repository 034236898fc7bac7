// Package dataset loads serialized seasons and source catalogs. File
// formats are plain YAML so grids exported by the detector-side
// preprocessing can be inspected and versioned.
package dataset

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/oscillare/flarehunt/internal/domain/model"
	"gopkg.in/yaml.v3"
)

const fileMode = 0o600

// eventRecord is the on-disk shape of one event.
type eventRecord struct {
	RA    float64 `yaml:"ra"`
	Dec   float64 `yaml:"dec"`
	Sigma float64 `yaml:"sigma"`
	LogE  float64 `yaml:"log_e"`
	Time  float64 `yaml:"time"`
}

// seasonFile is the on-disk shape of a season. Events live in a
// sibling file so the (large) event list can be regenerated without
// touching the grids.
type seasonFile struct {
	model.Season `yaml:",inline"`
	EventsPath   string `yaml:"events_path"`
}

// LoadSeason reads a season definition and its event file. The events
// path is resolved relative to the season file.
func LoadSeason(path string) (model.Season, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Season{}, fmt.Errorf("reading season file: %w", err)
	}
	var sf seasonFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return model.Season{}, fmt.Errorf("parsing season file %s: %w", path, err)
	}
	if sf.Name == "" {
		return model.Season{}, fmt.Errorf("season file %s: missing name", path)
	}
	if sf.EndMJD <= sf.StartMJD {
		return model.Season{}, fmt.Errorf("season %s: end MJD %v not after start %v", sf.Name, sf.EndMJD, sf.StartMJD)
	}

	if sf.EventsPath != "" {
		eventsPath := sf.EventsPath
		if !filepath.IsAbs(eventsPath) {
			eventsPath = filepath.Join(filepath.Dir(path), eventsPath)
		}
		events, err := LoadEvents(eventsPath)
		if err != nil {
			return model.Season{}, fmt.Errorf("season %s: %w", sf.Name, err)
		}
		sf.Season.Events = events
	}
	return sf.Season, nil
}

// LoadEvents reads an event list file.
func LoadEvents(path string) (model.Events, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading events file: %w", err)
	}
	var records []eventRecord
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parsing events file %s: %w", path, err)
	}
	events := make(model.Events, len(records))
	for i, r := range records {
		events[i] = model.Event{
			RA:     r.RA,
			Dec:    r.Dec,
			Sigma:  r.Sigma,
			LogE:   r.LogE,
			Time:   r.Time,
			SinDec: math.Sin(r.Dec),
		}
	}
	return events, nil
}

// LoadCatalog reads a source catalog.
func LoadCatalog(path string) (model.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	var cat model.Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog file %s: %w", path, err)
	}
	seen := make(map[string]bool, len(cat))
	for _, src := range cat {
		if src.Name == "" {
			return nil, fmt.Errorf("catalog file %s: source with empty name", path)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("catalog file %s: duplicate source %q", path, src.Name)
		}
		seen[src.Name] = true
	}
	return cat, nil
}

// SaveCatalog writes a catalog as YAML.
func SaveCatalog(path string, cat model.Catalog) error {
	raw, err := yaml.Marshal(cat)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := os.WriteFile(path, raw, fileMode); err != nil {
		return fmt.Errorf("writing catalog file %s: %w", path, err)
	}
	return nil
}
