package application

import (
	"context"
	"errors"
	"testing"
	"time"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
	"ministry-dashboard/internal/gridcapacity/engine"
	"ministry-dashboard/internal/gridcapacity/infrastructure/memory"
	"ministry-dashboard/internal/logging"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type stubForecasts struct {
	forecasts    map[string][]gridcapacity.AuthoritativeForecastPoint
	forecastErr  error
	records      []gridcapacity.CapacityRecord
	scenarios    *gridcapacity.ScenarioPayload
	scenarioErr  error
	analysis     *gridcapacity.AIAnalysis
	analysisErr  error
	scenarioHits int
}

func (s *stubForecasts) GridForecast(ctx context.Context, grid string) ([]gridcapacity.AuthoritativeForecastPoint, error) {
	if s.forecastErr != nil {
		return nil, s.forecastErr
	}
	return s.forecasts[grid], nil
}

func (s *stubForecasts) CapacityRecords(ctx context.Context) ([]gridcapacity.CapacityRecord, error) {
	return s.records, nil
}

func (s *stubForecasts) Scenarios(ctx context.Context) (*gridcapacity.ScenarioPayload, error) {
	s.scenarioHits++
	return s.scenarios, s.scenarioErr
}

func (s *stubForecasts) LatestAnalysis(ctx context.Context) (*gridcapacity.AIAnalysis, error) {
	return s.analysis, s.analysisErr
}

type failingReadings struct {
	*memory.ReadingStore
}

func (failingReadings) LatestStations(ctx context.Context) ([]gridcapacity.Station, error) {
	return nil, errors.New("connection refused")
}

func ptr(v float64) *float64 {
	return &v
}

func seededStore() *memory.ReadingStore {
	store := memory.NewReadingStore()
	store.SetStations([]gridcapacity.Station{
		{Name: "A", DeratedCapacityMW: 120, AvailableCapacityMW: 110, UnitCount: 6},
		{Name: "B", DeratedCapacityMW: 120, AvailableCapacityMW: 110, UnitCount: 6},
	})
	store.SetSolarSites([]gridcapacity.SolarSite{{Name: "Hope", CapacityMWp: 10}})
	store.SetPeakDemand(&gridcapacity.PeakDemandSnapshot{
		Date:            time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		EveningOnBarsMW: 200,
		DayOnBarsMW:     180,
	})
	store.AppendTrend(
		gridcapacity.KpiTrendPoint{MonthKey: "2026-07", Values: map[string]*float64{gridcapacity.MetricPeakDemandDBIS: ptr(100), gridcapacity.MetricPeakDemandEssequibo: ptr(10)}},
		gridcapacity.KpiTrendPoint{MonthKey: "2026-08", Values: map[string]*float64{gridcapacity.MetricPeakDemandDBIS: ptr(104)}},
		gridcapacity.KpiTrendPoint{MonthKey: "2026-09", Values: map[string]*float64{gridcapacity.MetricPeakDemandDBIS: ptr(106)}},
	)
	return store
}

func newTestService(t *testing.T, readings ReadingSource, opts ...ServiceOption) *Service {
	t.Helper()
	base := []ServiceOption{
		WithLogger(logging.Discard()),
		WithClock(fixedClock{now: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}),
	}
	service, err := NewService(DefaultConfig(), readings, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestNewService_Guards(t *testing.T) {
	if _, err := NewService(DefaultConfig(), nil); err == nil {
		t.Fatalf("expected error for nil reading source")
	}
	cfg := DefaultConfig()
	cfg.Grids = append(cfg.Grids, cfg.Grids[0])
	if _, err := NewService(cfg, memory.NewReadingStore()); !errors.Is(err, gridcapacity.ErrDuplicateGrid) {
		t.Fatalf("expected duplicate grid error, got %v", err)
	}
}

func TestDashboard_ReadingsOnly(t *testing.T) {
	service := newTestService(t, seededStore())
	dashboard, err := service.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	health := dashboard.Health
	if health == nil {
		t.Fatalf("expected health summary")
	}
	if health.Ledger.TotalSystemCapacityMW != 230 {
		t.Fatalf("expected capacity 230, got %v", health.Ledger.TotalSystemCapacityMW)
	}
	if health.Reserve.ReserveMarginPct != 13.0 || health.Reserve.Health != gridcapacity.HealthWarning {
		t.Fatalf("expected 13.0 warning, got %+v", health.Reserve)
	}
	if len(dashboard.SourceErrors) != 0 {
		t.Fatalf("expected no source errors, got %+v", dashboard.SourceErrors)
	}
	if len(dashboard.Grids) != 2 {
		t.Fatalf("expected 2 grids, got %d", len(dashboard.Grids))
	}

	dbis := dashboard.Grids[0].Forecast
	if dbis.CapacityMW != 230 {
		t.Fatalf("expected dbis capacity from ledger, got %v", dbis.CapacityMW)
	}
	if !dbis.Projection.UsingFallback {
		t.Fatalf("expected linear fallback without forecast source")
	}
	// rate (106-100)/3 = 2.0, 12 months -> 130.
	point, ok := dbis.Projection.At(12)
	if !ok || point.PeakMW != 130 {
		t.Fatalf("expected 12 month peak 130, got %+v", point)
	}
	if dbis.Scenarios == nil || !dbis.Scenarios.ScenarioFallback {
		t.Fatalf("expected scenario fallback table")
	}

	if health.PlanningReserve == nil {
		t.Fatalf("expected planning reserve")
	}
	if health.PlanningReserve.ExpectedPeakMW != 130 {
		t.Fatalf("expected planning peak 130, got %v", health.PlanningReserve.ExpectedPeakMW)
	}
	if health.Reserve.PeakDemandMW != 200 {
		t.Fatalf("reserve must use the live evening peak, got %v", health.Reserve.PeakDemandMW)
	}

	essequibo := dashboard.Grids[1].Forecast
	if essequibo.CapacityMW != 0 {
		t.Fatalf("expected no essequibo capacity without a record, got %v", essequibo.CapacityMW)
	}
	if !essequibo.Growth.UsedDefault || essequibo.Growth.RatePerMonth != 0.16 {
		t.Fatalf("expected default essequibo growth, got %+v", essequibo.Growth)
	}
}

func TestDashboard_WithForecasts(t *testing.T) {
	forecasts := &stubForecasts{
		forecasts: map[string][]gridcapacity.AuthoritativeForecastPoint{
			gridcapacity.GridDBIS: {{Grid: gridcapacity.GridDBIS, MonthIndex: 11, ProjectedPeakMW: 150}},
		},
		records: []gridcapacity.CapacityRecord{
			{Grid: gridcapacity.GridEssequibo, CurrentCapacityMW: 20, RiskLevel: gridcapacity.RiskGood},
		},
		analysis: &gridcapacity.AIAnalysis{
			StationConcerns: []gridcapacity.StationConcern{{Station: "B", Priority: "LOW", Concern: "Vibration"}},
			CriticalAlerts:  []gridcapacity.CriticalAlert{{Title: "Unit trip", Station: "A"}},
		},
	}
	service := newTestService(t, seededStore(), WithForecastSource(forecasts))
	dashboard, err := service.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	dbis := dashboard.Grids[0].Forecast
	if dbis.Projection.UsingFallback {
		t.Fatalf("expected authoritative projection")
	}
	if point, _ := dbis.Projection.At(12); point.PeakMW != 150 || point.Source != engine.SourceAuthoritative {
		t.Fatalf("expected authoritative 150 at 12 months, got %+v", point)
	}
	if dashboard.Health.PlanningReserve.ExpectedPeakMW != 150 {
		t.Fatalf("expected planning peak from authoritative projection")
	}
	if got := dashboard.Grids[1].Forecast.CapacityMW; got != 20 {
		t.Fatalf("expected essequibo capacity from record, got %v", got)
	}
	alerts := dashboard.Health.Alerts
	if len(alerts) != 2 || alerts[0].Severity != gridcapacity.SeverityCritical {
		t.Fatalf("expected critical alert first, got %+v", alerts)
	}
	if forecasts.scenarioHits != 1 {
		t.Fatalf("expected one scenario fetch, got %d", forecasts.scenarioHits)
	}
}

func TestDashboard_OptionalFailuresAreReported(t *testing.T) {
	forecasts := &stubForecasts{
		forecastErr: errors.New("timeout"),
		scenarioErr: errors.New("http 500"),
	}
	service := newTestService(t, seededStore(), WithForecastSource(forecasts))
	dashboard, err := service.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Health == nil {
		t.Fatalf("expected health despite forecast failures")
	}
	// forecast for both grids, then scenarios, sorted by source.
	if len(dashboard.SourceErrors) != 3 {
		t.Fatalf("expected 3 source errors, got %+v", dashboard.SourceErrors)
	}
	first := dashboard.SourceErrors[0]
	if first.Source != SourceForecast || first.Grid != gridcapacity.GridDBIS {
		t.Fatalf("unexpected first source error %+v", first)
	}
	if dashboard.SourceErrors[2].Source != SourceScenarios {
		t.Fatalf("expected scenarios error last, got %+v", dashboard.SourceErrors[2])
	}
	if !dashboard.Grids[0].Forecast.Scenarios.ScenarioFallback {
		t.Fatalf("expected scenario fallback when the service fails")
	}
}

func TestDashboard_StationsMandatory(t *testing.T) {
	service := newTestService(t, failingReadings{ReadingStore: seededStore()})
	if _, err := service.Dashboard(context.Background()); err == nil {
		t.Fatalf("expected error when stations cannot be loaded")
	}
}

func TestDashboard_NoStationReport(t *testing.T) {
	service := newTestService(t, memory.NewReadingStore())
	dashboard, err := service.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Health != nil {
		t.Fatalf("expected nil health without a station report")
	}
	if len(dashboard.Grids) != 2 {
		t.Fatalf("expected grid projections to still be computed")
	}
}

func TestDashboard_ScenariosSkippedWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Features.WithMultivariateForecast = false
	forecasts := &stubForecasts{}
	service, err := NewService(cfg, seededStore(), WithForecastSource(forecasts), WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	dashboard, err := service.Dashboard(context.Background())
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if forecasts.scenarioHits != 0 {
		t.Fatalf("expected no scenario fetch")
	}
	if dashboard.Grids[0].Forecast.Scenarios != nil {
		t.Fatalf("expected no scenario table")
	}
}

func TestEvaluate(t *testing.T) {
	service := newTestService(t, memory.NewReadingStore())
	result := service.Evaluate(engine.HealthInput{
		Stations: []gridcapacity.Station{{Name: "A", DeratedCapacityMW: 230, AvailableCapacityMW: 230}},
		Peak:     &gridcapacity.PeakDemandSnapshot{EveningOnBarsMW: 200},
	}, []engine.GridForecastInput{{
		Grid:              gridcapacity.GridDBIS,
		Metric:            gridcapacity.MetricPeakDemandDBIS,
		DefaultGrowthRate: 2,
		CurrentPeakMW:     100,
		CapacityMW:        230,
	}})
	if result.Health == nil || result.Health.Reserve.ReserveMarginPct != 13.0 {
		t.Fatalf("unexpected health %+v", result.Health)
	}
	if len(result.Grids) != 1 {
		t.Fatalf("expected one grid result")
	}
	if point, _ := result.Grids[0].Projection.At(6); point.PeakMW != 112 {
		t.Fatalf("expected 112 at 6 months, got %+v", point)
	}

	empty := service.Evaluate(engine.HealthInput{}, nil)
	if empty.Health != nil || len(empty.Grids) != 0 {
		t.Fatalf("expected empty result, got %+v", empty)
	}
}
