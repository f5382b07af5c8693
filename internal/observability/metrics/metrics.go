package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	metricPrefix = "dashboard_"

	resultSuccess = "success"
	resultError   = "error"
	resultNoData  = "no_data"
)

var (
	registerOnce sync.Once

	engineRuns    *prometheus.CounterVec
	engineLatency *prometheus.HistogramVec

	forecastFallbacks *prometheus.CounterVec
	scenarioFallbacks *prometheus.CounterVec

	alertsTotal *prometheus.CounterVec

	reserveMarginPct prometheus.Gauge
	healthState      *prometheus.GaugeVec

	upstreamErrors *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

var healthStates = []string{"good", "warning", "critical", "no_data"}

// Init registers dashboard metrics. When db is set, reading freshness gauges
// are registered as well.
func Init(db *sql.DB, logger logrus.FieldLogger) {
	registerOnce.Do(func() {
		engineRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "engine_runs_total",
				Help: "Total dashboard computations by result",
			},
			[]string{"result"},
		)
		engineLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "engine_latency_seconds",
				Help:    "Dashboard computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		forecastFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "forecast_fallback_total",
				Help: "Projections computed with the linear fallback by grid",
			},
			[]string{"grid"},
		)
		scenarioFallbacks = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "scenario_fallback_total",
				Help: "Scenario tables built without the scenario service by grid",
			},
			[]string{"grid"},
		)

		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_total",
				Help: "Consolidated alerts by severity",
			},
			[]string{"severity"},
		)

		reserveMarginPct = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "reserve_margin_pct",
			Help: "Latest system reserve margin percent",
		})
		healthState = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "health_state",
				Help: "Latest reserve health state (1 for the active state)",
			},
			[]string{"state"},
		)

		upstreamErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_errors_total",
				Help: "Upstream fetch failures by source",
			},
			[]string{"source"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total dashboard exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Dashboard export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			engineRuns,
			engineLatency,
			forecastFallbacks,
			scenarioFallbacks,
			alertsTotal,
			reserveMarginPct,
			healthState,
			upstreamErrors,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveEngineRun records dashboard computation duration and result.
func ObserveEngineRun(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if engineRuns != nil {
		engineRuns.WithLabelValues(result).Inc()
	}
	if engineLatency != nil {
		engineLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncForecastFallback counts a projection built without authoritative points.
func IncForecastFallback(grid string) {
	if grid == "" {
		grid = "unknown"
	}
	if forecastFallbacks != nil {
		forecastFallbacks.WithLabelValues(grid).Inc()
	}
}

// IncScenarioFallback counts a scenario table built from the local projection.
func IncScenarioFallback(grid string) {
	if grid == "" {
		grid = "unknown"
	}
	if scenarioFallbacks != nil {
		scenarioFallbacks.WithLabelValues(grid).Inc()
	}
}

// AddAlerts increments the alert counter for a severity.
func AddAlerts(severity string, count int) {
	if count <= 0 {
		return
	}
	if severity == "" {
		severity = "unknown"
	}
	if alertsTotal != nil {
		alertsTotal.WithLabelValues(severity).Add(float64(count))
	}
}

// SetReserve publishes the latest reserve figure and health state. defined is
// false when the margin could not be computed.
func SetReserve(state string, marginPct float64, defined bool) {
	if reserveMarginPct != nil {
		if defined {
			reserveMarginPct.Set(marginPct)
		} else {
			reserveMarginPct.Set(0)
		}
	}
	if healthState == nil {
		return
	}
	for _, candidate := range healthStates {
		value := 0.0
		if candidate == state {
			value = 1
		}
		healthState.WithLabelValues(candidate).Set(value)
	}
}

// IncUpstreamError counts a failed upstream fetch.
func IncUpstreamError(source string) {
	if source == "" {
		source = "unknown"
	}
	if upstreamErrors != nil {
		upstreamErrors.WithLabelValues(source).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultNoData  = resultNoData
)
