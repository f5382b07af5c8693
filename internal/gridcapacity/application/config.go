package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
	"ministry-dashboard/internal/gridcapacity/engine"
)

// CapacitySource selects where a grid's capacity denominator comes from.
type CapacitySource string

const (
	// CapacityFromSystem uses the aggregated fossil + solar ledger total.
	CapacityFromSystem CapacitySource = "system"
	// CapacityFromRecord uses the forecast service capacity record.
	CapacityFromRecord CapacitySource = "record"
)

// GridDefinition describes one forecast grid.
type GridDefinition struct {
	ID                string         `yaml:"id" json:"id"`
	Label             string         `yaml:"label" json:"label"`
	Metric            string         `yaml:"metric" json:"metric"`
	DefaultGrowthRate float64        `yaml:"default_growth_mw_per_month" json:"default_growth_mw_per_month"`
	CapacitySource    CapacitySource `yaml:"capacity_source" json:"capacity_source"`
}

// Config defines grid engine configuration.
type Config struct {
	DegradedRatio        float64          `yaml:"degraded_ratio"`
	Horizons             []int            `yaml:"horizons"`
	AggressiveMultiplier float64          `yaml:"aggressive_multiplier"`
	ForcedOutageRate     float64          `yaml:"forced_outage_rate"`
	Features             engine.Features  `yaml:"features"`
	Grids                []GridDefinition `yaml:"grids"`
}

// DefaultGrids returns the two utility grids.
func DefaultGrids() []GridDefinition {
	return []GridDefinition{
		{
			ID:                gridcapacity.GridDBIS,
			Label:             "DBIS",
			Metric:            gridcapacity.MetricPeakDemandDBIS,
			DefaultGrowthRate: 2.0,
			CapacitySource:    CapacityFromSystem,
		},
		{
			ID:                gridcapacity.GridEssequibo,
			Label:             "Essequibo",
			Metric:            gridcapacity.MetricPeakDemandEssequibo,
			DefaultGrowthRate: 0.16,
			CapacitySource:    CapacityFromRecord,
		},
	}
}

// DefaultConfig returns built-in settings.
func DefaultConfig() Config {
	base := engine.DefaultConfig()
	return Config{
		DegradedRatio:        base.DegradedRatio,
		Horizons:             append([]int(nil), base.Horizons...),
		AggressiveMultiplier: base.AggressiveMultiplier,
		ForcedOutageRate:     base.ForcedOutageRate,
		Features:             base.Features,
		Grids:                DefaultGrids(),
	}
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("GRID_ENGINE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if cfg, err = ParseConfig(data); err != nil {
			return cfg, err
		}
	}

	cfg.DegradedRatio = getenvFloatDefault("GRID_DEGRADED_RATIO", cfg.DegradedRatio)
	cfg.ForcedOutageRate = getenvFloatDefault("GRID_FORCED_OUTAGE_RATE", cfg.ForcedOutageRate)
	if horizons := splitInts(os.Getenv("GRID_HORIZONS")); len(horizons) > 0 {
		cfg.Horizons = horizons
	}
	return cfg, cfg.Validate()
}

// ParseConfig decodes yaml over the defaults. A grids list in the document
// replaces the default grids.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	for i := range cfg.Grids {
		if cfg.Grids[i].CapacitySource == "" {
			cfg.Grids[i].CapacitySource = CapacityFromRecord
		}
		if cfg.Grids[i].Label == "" {
			cfg.Grids[i].Label = cfg.Grids[i].ID
		}
	}
	return cfg, nil
}

// EngineConfig returns the engine tuning portion.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		DegradedRatio:        c.DegradedRatio,
		Horizons:             append([]int(nil), c.Horizons...),
		AggressiveMultiplier: c.AggressiveMultiplier,
		ForcedOutageRate:     c.ForcedOutageRate,
		Features:             c.Features,
	}
}

// Validate checks thresholds and grid definitions.
func (c Config) Validate() error {
	if err := c.EngineConfig().Validate(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Grids))
	for _, grid := range c.Grids {
		id := strings.TrimSpace(grid.ID)
		if id == "" {
			return gridcapacity.ErrEmptyGridID
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", gridcapacity.ErrDuplicateGrid, id)
		}
		seen[id] = struct{}{}
		if strings.TrimSpace(grid.Metric) == "" {
			return fmt.Errorf("%w: %s", gridcapacity.ErrEmptyMetric, id)
		}
		switch grid.CapacitySource {
		case CapacityFromSystem, CapacityFromRecord:
		default:
			return fmt.Errorf("%w: %s", errUnknownCapacitySource, grid.CapacitySource)
		}
	}
	return nil
}

var errUnknownCapacitySource = errors.New("application: unknown capacity source")

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitInts(value string) []int {
	if value == "" {
		return nil
	}
	var result []int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			return nil
		}
		result = append(result, parsed)
	}
	return result
}
