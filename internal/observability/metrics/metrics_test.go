package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func valueOf(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := metric.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestHelpersBeforeInit(t *testing.T) {
	if engineRuns != nil {
		t.Skip("metrics already registered")
	}
	ObserveEngineRun(ResultSuccess, time.Millisecond)
	IncForecastFallback("dbis")
	AddAlerts("critical", 2)
	SetReserve("warning", 13, true)
}

func TestInitAndRecord(t *testing.T) {
	Init(nil, nil)

	IncUpstreamError("forecast")
	if got := valueOf(t, upstreamErrors.WithLabelValues("forecast")); got < 1 {
		t.Fatalf("expected upstream error count, got %v", got)
	}

	SetReserve("warning", 13, true)
	if got := valueOf(t, reserveMarginPct); got != 13 {
		t.Fatalf("expected margin 13, got %v", got)
	}
	if got := valueOf(t, healthState.WithLabelValues("warning")); got != 1 {
		t.Fatalf("expected warning active, got %v", got)
	}
	if got := valueOf(t, healthState.WithLabelValues("good")); got != 0 {
		t.Fatalf("expected good inactive, got %v", got)
	}

	SetReserve("no_data", 0, false)
	if got := valueOf(t, healthState.WithLabelValues("no_data")); got != 1 {
		t.Fatalf("expected no_data active, got %v", got)
	}

	before := valueOf(t, alertsTotal.WithLabelValues("high"))
	AddAlerts("high", 0)
	AddAlerts("high", 3)
	if got := valueOf(t, alertsTotal.WithLabelValues("high")); got != before+3 {
		t.Fatalf("expected +3 high alerts, got %v", got-before)
	}
}
