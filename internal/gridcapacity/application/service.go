package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
	"ministry-dashboard/internal/gridcapacity/engine"
	"ministry-dashboard/internal/observability/metrics"
)

// Source names used in logs, metrics and SourceError.
const (
	SourceStations  = "stations"
	SourceSolar     = "solar_sites"
	SourcePeak      = "peak_demand"
	SourceTrend     = "kpi_trend"
	SourceForecast  = "forecast"
	SourceCapacity  = "capacity"
	SourceScenarios = "scenarios"
	SourceAnalysis  = "analysis"
)

const planningHorizonMonths = 12

// ReadingSource supplies persisted utility readings.
type ReadingSource interface {
	// LatestStations returns the most recent station report, or nil when no
	// report exists.
	LatestStations(ctx context.Context) ([]gridcapacity.Station, error)
	SolarSites(ctx context.Context) ([]gridcapacity.SolarSite, error)
	// LatestPeakDemand returns nil when no peak has been recorded.
	LatestPeakDemand(ctx context.Context) (*gridcapacity.PeakDemandSnapshot, error)
	KpiTrend(ctx context.Context, metrics []string) ([]gridcapacity.KpiTrendPoint, error)
}

// ForecastSource supplies data from the external forecasting service.
type ForecastSource interface {
	GridForecast(ctx context.Context, grid string) ([]gridcapacity.AuthoritativeForecastPoint, error)
	CapacityRecords(ctx context.Context) ([]gridcapacity.CapacityRecord, error)
	Scenarios(ctx context.Context) (*gridcapacity.ScenarioPayload, error)
	LatestAnalysis(ctx context.Context) (*gridcapacity.AIAnalysis, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// SourceError records an optional input that could not be loaded.
type SourceError struct {
	Source  string `json:"source"`
	Grid    string `json:"grid,omitempty"`
	Message string `json:"message"`
}

// GridView is one grid's forecast as shown on the dashboard.
type GridView struct {
	ID       string              `json:"id"`
	Label    string              `json:"label"`
	Forecast engine.GridForecast `json:"forecast"`
}

// Dashboard is the computed grid picture.
type Dashboard struct {
	GeneratedAt time.Time `json:"generated_at"`
	// Health is nil when no station report is available.
	Health       *engine.HealthSummary `json:"health"`
	Grids        []GridView            `json:"grids"`
	SourceErrors []SourceError         `json:"source_errors"`
}

// EvaluateResult is the engine output for caller supplied data.
type EvaluateResult struct {
	Health *engine.HealthSummary `json:"health"`
	Grids  []engine.GridForecast `json:"grids"`
}

// Service loads readings and forecasts and runs the grid engine over them.
type Service struct {
	engine    *engine.Engine
	grids     []GridDefinition
	readings  ReadingSource
	forecasts ForecastSource
	logger    logrus.FieldLogger
	clock     Clock
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithForecastSource assigns the forecasting service client.
func WithForecastSource(source ForecastSource) ServiceOption {
	return func(s *Service) {
		s.forecasts = source
	}
}

// WithLogger assigns a logger.
func WithLogger(logger logrus.FieldLogger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs the grid service.
func NewService(cfg Config, readings ReadingSource, opts ...ServiceOption) (*Service, error) {
	if readings == nil {
		return nil, errors.New("application: nil reading source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	service := &Service{
		engine:   engine.New(cfg.EngineConfig()),
		grids:    append([]GridDefinition(nil), cfg.Grids...),
		readings: readings,
		logger:   logrus.StandardLogger(),
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// EngineConfig returns the effective engine configuration.
func (s *Service) EngineConfig() engine.Config {
	return s.engine.Config()
}

// Grids returns the configured grid definitions.
func (s *Service) Grids() []GridDefinition {
	return append([]GridDefinition(nil), s.grids...)
}

// Dashboard loads all inputs and computes the dashboard. Only a failure to
// load the station report is returned as an error; other failures are listed
// in SourceErrors and the engine falls back for the missing data.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s == nil {
		return nil, errors.New("application: nil service")
	}
	started := time.Now()
	dashboard, err := s.dashboard(ctx)
	result := metrics.ResultSuccess
	switch {
	case err != nil:
		result = metrics.ResultError
	case dashboard.Health == nil:
		result = metrics.ResultNoData
	}
	metrics.ObserveEngineRun(result, time.Since(started))
	return dashboard, err
}

type inputs struct {
	stations  []gridcapacity.Station
	solar     []gridcapacity.SolarSite
	peak      *gridcapacity.PeakDemandSnapshot
	trend     []gridcapacity.KpiTrendPoint
	records   []gridcapacity.CapacityRecord
	scenarios *gridcapacity.ScenarioPayload
	analysis  *gridcapacity.AIAnalysis
	forecasts map[string][]gridcapacity.AuthoritativeForecastPoint
}

func (s *Service) dashboard(ctx context.Context) (*Dashboard, error) {
	in, sourceErrors, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	asOf := s.clock.Now()
	health := s.engine.Summarize(engine.HealthInput{
		Stations:  in.stations,
		Renewable: engine.RenewableInput{Sites: in.solar},
		Peak:      in.peak,
		Analysis:  in.analysis,
	})

	systemCapacity := 0.0
	if health != nil {
		systemCapacity = health.Ledger.TotalSystemCapacityMW
	}
	records := make(map[string]*gridcapacity.CapacityRecord, len(in.records))
	for i := range in.records {
		if _, ok := records[in.records[i].Grid]; !ok {
			records[in.records[i].Grid] = &in.records[i]
		}
	}

	views := make([]GridView, 0, len(s.grids))
	for _, grid := range s.grids {
		input := engine.GridForecastInput{
			Grid:              grid.ID,
			Metric:            grid.Metric,
			DefaultGrowthRate: grid.DefaultGrowthRate,
			Trend:             in.trend,
			Forecast:          in.forecasts[grid.ID],
			Capacity:          records[grid.ID],
			Scenarios:         in.scenarios,
			AsOf:              asOf,
		}
		if grid.CapacitySource == CapacityFromSystem {
			input.CapacityMW = systemCapacity
		}
		forecast := s.engine.ForecastGrid(input)
		if forecast.Projection.UsingFallback {
			metrics.IncForecastFallback(grid.ID)
		}
		if forecast.Scenarios != nil && forecast.Scenarios.ScenarioFallback {
			metrics.IncScenarioFallback(grid.ID)
		}
		views = append(views, GridView{ID: grid.ID, Label: grid.Label, Forecast: forecast})
	}

	if health != nil {
		if expected, ok := s.expectedPeak(views); ok {
			health.PlanningReserve = engine.CalculatePlanningReserve(
				health.Ledger.TotalSystemCapacityMW,
				s.engine.Config().ForcedOutageRate,
				expected,
			)
		}
		recordHealth(health)
	} else {
		s.logger.Warn("no station report available")
		metrics.SetReserve(string(gridcapacity.HealthNoData), 0, false)
	}

	return &Dashboard{
		GeneratedAt:  asOf,
		Health:       health,
		Grids:        views,
		SourceErrors: sourceErrors,
	}, nil
}

func (s *Service) load(ctx context.Context) (inputs, []SourceError, error) {
	var (
		in inputs
		mu       sync.Mutex
		failures []SourceError
		perGrid  = make([][]gridcapacity.AuthoritativeForecastPoint, len(s.grids))
	)
	record := func(source, grid string, err error) {
		metrics.IncUpstreamError(source)
		entry := s.logger.WithError(err).WithField("source", source)
		if grid != "" {
			entry = entry.WithField("grid", grid)
		}
		entry.Warn("optional source unavailable")
		mu.Lock()
		failures = append(failures, SourceError{Source: source, Grid: grid, Message: err.Error()})
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stations, err := s.readings.LatestStations(gctx)
		if err != nil {
			metrics.IncUpstreamError(SourceStations)
			return fmt.Errorf("application: load stations: %w", err)
		}
		in.stations = stations
		return nil
	})
	g.Go(func() error {
		solar, err := s.readings.SolarSites(gctx)
		if err != nil {
			record(SourceSolar, "", err)
			return nil
		}
		in.solar = solar
		return nil
	})
	g.Go(func() error {
		peak, err := s.readings.LatestPeakDemand(gctx)
		if err != nil {
			record(SourcePeak, "", err)
			return nil
		}
		in.peak = peak
		return nil
	})
	g.Go(func() error {
		trend, err := s.readings.KpiTrend(gctx, s.trendMetrics())
		if err != nil {
			record(SourceTrend, "", err)
			return nil
		}
		in.trend = trend
		return nil
	})

	if s.forecasts != nil {
		g.Go(func() error {
			records, err := s.forecasts.CapacityRecords(gctx)
			if err != nil {
				record(SourceCapacity, "", err)
				return nil
			}
			in.records = records
			return nil
		})
		g.Go(func() error {
			analysis, err := s.forecasts.LatestAnalysis(gctx)
			if err != nil {
				record(SourceAnalysis, "", err)
				return nil
			}
			in.analysis = analysis
			return nil
		})
		if s.engine.Config().Features.WithMultivariateForecast {
			g.Go(func() error {
				scenarios, err := s.forecasts.Scenarios(gctx)
				if err != nil {
					record(SourceScenarios, "", err)
					return nil
				}
				in.scenarios = scenarios
				return nil
			})
		}

		for i, grid := range s.grids {
			i, grid := i, grid
			g.Go(func() error {
				points, err := s.forecasts.GridForecast(gctx, grid.ID)
				if err != nil {
					record(SourceForecast, grid.ID, err)
					return nil
				}
				perGrid[i] = points
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return in, nil, err
	}
	if err := ctx.Err(); err != nil {
		return in, nil, err
	}
	in.forecasts = make(map[string][]gridcapacity.AuthoritativeForecastPoint, len(s.grids))
	for i, grid := range s.grids {
		in.forecasts[grid.ID] = perGrid[i]
	}

	slices.SortStableFunc(failures, func(a, b SourceError) int {
		if c := cmp.Compare(a.Source, b.Source); c != 0 {
			return c
		}
		return cmp.Compare(a.Grid, b.Grid)
	})
	if failures == nil {
		failures = []SourceError{}
	}
	return in, failures, nil
}

func (s *Service) trendMetrics() []string {
	seen := make(map[string]struct{}, len(s.grids))
	result := make([]string, 0, len(s.grids))
	for _, grid := range s.grids {
		if _, ok := seen[grid.Metric]; ok {
			continue
		}
		seen[grid.Metric] = struct{}{}
		result = append(result, grid.Metric)
	}
	return result
}

// expectedPeak picks the projection nearest the planning horizon on the first
// grid backed by system capacity.
func (s *Service) expectedPeak(views []GridView) (float64, bool) {
	for i, grid := range s.grids {
		if grid.CapacitySource != CapacityFromSystem || i >= len(views) {
			continue
		}
		points := views[i].Forecast.Projection.Points
		best := -1
		for j, point := range points {
			if best < 0 || distance(point.HorizonMonths) < distance(points[best].HorizonMonths) {
				best = j
			}
		}
		if best < 0 {
			return 0, false
		}
		return points[best].PeakMW, points[best].PeakMW > 0
	}
	return 0, false
}

func distance(horizon int) float64 {
	return math.Abs(float64(horizon - planningHorizonMonths))
}

// Evaluate runs the engine on caller supplied inputs. A nil health input
// station list yields a nil Health.
func (s *Service) Evaluate(health engine.HealthInput, grids []engine.GridForecastInput) EvaluateResult {
	started := time.Now()
	result := EvaluateResult{
		Health: s.engine.Summarize(health),
		Grids:  make([]engine.GridForecast, 0, len(grids)),
	}
	now := s.clock.Now()
	for _, grid := range grids {
		if grid.AsOf.IsZero() {
			grid.AsOf = now
		}
		result.Grids = append(result.Grids, s.engine.ForecastGrid(grid))
	}
	status := metrics.ResultSuccess
	if result.Health == nil {
		status = metrics.ResultNoData
	}
	metrics.ObserveEngineRun(status, time.Since(started))
	return result
}

func recordHealth(health *engine.HealthSummary) {
	metrics.SetReserve(string(health.Reserve.Health), health.Reserve.ReserveMarginPct, health.Reserve.Defined)
	counts := make(map[gridcapacity.Severity]int)
	for _, alert := range health.Alerts {
		counts[alert.Severity]++
	}
	for severity, count := range counts {
		metrics.AddAlerts(string(severity), count)
	}
}
