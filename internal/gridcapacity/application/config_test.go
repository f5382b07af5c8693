package application

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

func TestParseConfig_Overrides(t *testing.T) {
	doc := []byte(`
degraded_ratio: 0.8
horizons: [3, 6]
features:
  with_multivariate_forecast: false
  estimate_breach_dates: true
grids:
  - id: dbis
    metric: Peak Demand DBIS
    default_growth_mw_per_month: 2.5
    capacity_source: system
`)
	cfg, err := ParseConfig(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DegradedRatio != 0.8 {
		t.Fatalf("expected degraded ratio 0.8, got %v", cfg.DegradedRatio)
	}
	if len(cfg.Horizons) != 2 || cfg.Horizons[0] != 3 {
		t.Fatalf("unexpected horizons %v", cfg.Horizons)
	}
	if cfg.Features.WithMultivariateForecast || !cfg.Features.EstimateBreachDates {
		t.Fatalf("unexpected features %+v", cfg.Features)
	}
	if cfg.ForcedOutageRate != 0.15 || cfg.AggressiveMultiplier != 1.5 {
		t.Fatalf("expected untouched defaults, got %+v", cfg)
	}
	if len(cfg.Grids) != 1 || cfg.Grids[0].Label != "dbis" || cfg.Grids[0].DefaultGrowthRate != 2.5 {
		t.Fatalf("unexpected grids %+v", cfg.Grids)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestConfigValidate_Grids(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Grids = append(cfg.Grids, GridDefinition{ID: "dbis", Metric: "x", CapacitySource: CapacityFromRecord})
	if err := cfg.Validate(); !errors.Is(err, gridcapacity.ErrDuplicateGrid) {
		t.Fatalf("expected duplicate grid error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Grids[1].Metric = " "
	if err := cfg.Validate(); !errors.Is(err, gridcapacity.ErrEmptyMetric) {
		t.Fatalf("expected empty metric error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Horizons = []int{12, 0}
	if err := cfg.Validate(); !errors.Is(err, gridcapacity.ErrInvalidHorizon) {
		t.Fatalf("expected invalid horizon error, got %v", err)
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("GRID_ENGINE_CONFIG", "")
	t.Setenv("GRID_FORCED_OUTAGE_RATE", "0.2")
	t.Setenv("GRID_HORIZONS", "6, 18")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ForcedOutageRate != 0.2 {
		t.Fatalf("expected FOR 0.2, got %v", cfg.ForcedOutageRate)
	}
	if len(cfg.Horizons) != 2 || cfg.Horizons[1] != 18 {
		t.Fatalf("unexpected horizons %v", cfg.Horizons)
	}
	if len(cfg.Grids) != 2 {
		t.Fatalf("expected default grids, got %d", len(cfg.Grids))
	}
}

func TestParseConfig_SampleFile(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "..", "..", "configs", "grid-engine.yaml"))
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	if !cfg.Features.ReserveAlerts || len(cfg.Grids) != 2 {
		t.Fatalf("unexpected sample config %+v", cfg)
	}
	if cfg.Grids[0].CapacitySource != CapacityFromSystem || cfg.Grids[1].CapacitySource != CapacityFromRecord {
		t.Fatalf("unexpected capacity sources %+v", cfg.Grids)
	}
}
