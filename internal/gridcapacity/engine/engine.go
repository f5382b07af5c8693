// Package engine turns station readings, KPI trends and forecast data into the
// grid health summary and demand projections shown on the dashboard.
//
// Every function is pure: no I/O, no shared state, no panics on well-typed
// input. Missing optional data falls back to defined defaults.
package engine

import (
	"time"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// Engine applies a fixed configuration to engine inputs. It is safe for
// concurrent use.
type Engine struct {
	cfg Config
}

// New constructs an Engine. Invalid or zero config values fall back to defaults.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.normalized()}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	cfg := e.cfg
	cfg.Horizons = append([]int(nil), e.cfg.Horizons...)
	return cfg
}

// HealthInput is the data behind the fleet health summary.
type HealthInput struct {
	// Stations is mandatory; nil means no report is available.
	Stations       []gridcapacity.Station           `json:"stations"`
	Renewable      RenewableInput                   `json:"renewable"`
	Peak           *gridcapacity.PeakDemandSnapshot `json:"peak,omitempty"`
	ExpectedPeakMW float64                          `json:"expected_peak_mw,omitempty"`
	Analysis       *gridcapacity.AIAnalysis         `json:"analysis,omitempty"`
}

// HealthSummary is the classified fleet, capacity, reserve and alert picture.
type HealthSummary struct {
	Stations        StationSummary       `json:"stations"`
	Ledger          CapacityLedger       `json:"ledger"`
	Reserve         ReserveState         `json:"reserve"`
	PlanningReserve *PlanningReserve     `json:"planning_reserve,omitempty"`
	Alerts          []gridcapacity.Alert `json:"alerts"`
}

// Summarize builds the health summary. It returns nil when no station list was
// supplied.
func (e *Engine) Summarize(in HealthInput) *HealthSummary {
	if in.Stations == nil {
		return nil
	}
	stations := AggregateStations(in.Stations, e.cfg.DegradedRatio)
	ledger := BuildCapacityLedger(stations, in.Renewable)
	reserve := CalculateReserve(ledger.TotalSystemCapacityMW, in.Peak)

	sources := SourcesFromAnalysis(in.Analysis)
	if e.cfg.Features.ReserveAlerts {
		sources = append([]AlertSource{ReserveAlertSource{State: reserve}}, sources...)
	}

	return &HealthSummary{
		Stations:        stations,
		Ledger:          ledger,
		Reserve:         reserve,
		PlanningReserve: CalculatePlanningReserve(ledger.TotalSystemCapacityMW, e.cfg.ForcedOutageRate, in.ExpectedPeakMW),
		Alerts:          ConsolidateAlerts(sources...),
	}
}

// GridForecastInput is the data behind one grid's projections.
type GridForecastInput struct {
	Grid              string                                    `json:"grid"`
	Metric            string                                    `json:"metric"`
	DefaultGrowthRate float64                                   `json:"default_growth_rate"`
	Trend             []gridcapacity.KpiTrendPoint              `json:"trend"`
	CurrentPeakMW     float64                                   `json:"current_peak_mw,omitempty"`
	Forecast          []gridcapacity.AuthoritativeForecastPoint `json:"forecast"`
	CapacityMW        float64                                   `json:"capacity_mw,omitempty"`
	Capacity          *gridcapacity.CapacityRecord              `json:"capacity,omitempty"`
	Scenarios         *gridcapacity.ScenarioPayload             `json:"scenarios,omitempty"`
	AsOf              time.Time                                 `json:"as_of"`
}

// GridForecast is the growth, projection and scenario picture for one grid.
type GridForecast struct {
	Grid       string                       `json:"grid"`
	Growth     GrowthEstimate               `json:"growth"`
	Projection ProjectionSeries             `json:"projection"`
	CapacityMW float64                      `json:"capacity_mw"`
	Capacity   *gridcapacity.CapacityRecord `json:"capacity,omitempty"`
	Scenarios  *ScenarioComparison          `json:"scenarios,omitempty"`
}

// ForecastGrid estimates growth, projects demand and, when enabled, compares
// scenarios for one grid. The current peak defaults to the latest valid trend
// value; capacity defaults to the capacity record.
func (e *Engine) ForecastGrid(in GridForecastInput) GridForecast {
	growth := EstimateGrowthRate(in.Trend, in.Metric, in.DefaultGrowthRate)

	current := gridcapacity.Finite(in.CurrentPeakMW)
	if current <= 0 {
		current = growth.LastValid
	}

	series := make([]gridcapacity.AuthoritativeForecastPoint, 0, len(in.Forecast))
	for _, point := range in.Forecast {
		if point.Grid == "" || point.Grid == in.Grid {
			series = append(series, point)
		}
	}
	projection := ProjectDemand(series, current, growth.RatePerMonth, e.cfg.Horizons)

	capacity := gridcapacity.Finite(in.CapacityMW)
	var record *gridcapacity.CapacityRecord
	if in.Capacity != nil {
		copied := *in.Capacity
		record = &copied
		if capacity <= 0 {
			capacity = gridcapacity.Finite(copied.CurrentCapacityMW)
		}
	}

	forecast := GridForecast{
		Grid:       in.Grid,
		Growth:     growth,
		Projection: projection,
		CapacityMW: gridcapacity.Round1(capacity),
		Capacity:   record,
	}
	if e.cfg.Features.WithMultivariateForecast {
		comparison := CompareScenarios(ScenarioInput{
			Grid:                 in.Grid,
			CapacityMW:           capacity,
			Payload:              in.Scenarios,
			Projection:           projection,
			Horizons:             e.cfg.Horizons,
			AggressiveMultiplier: e.cfg.AggressiveMultiplier,
			EstimateBreachDates:  e.cfg.Features.EstimateBreachDates,
			AsOf:                 in.AsOf,
		})
		forecast.Scenarios = &comparison
	}
	return forecast
}
