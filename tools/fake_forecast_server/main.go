package main

import (
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

type gridProfile struct {
	PeakMW     float64
	GrowthMW   float64
	CapacityMW float64
}

type fakeForecastServer struct {
	start    time.Time
	latency  time.Duration
	failRate float64
	token    string
	grids    map[string]gridProfile

	mu         sync.Mutex
	byPath     map[string]int64
	totalCalls int64
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	addr := getenvDefault("FAKE_FORECAST_ADDR", ":18090")
	srv := &fakeForecastServer{
		start:    time.Now().UTC(),
		latency:  time.Duration(getenvIntDefault("FAKE_FORECAST_LATENCY_MS", 0)) * time.Millisecond,
		failRate: getenvFloatDefault("FAKE_FORECAST_FAIL_RATE", 0),
		token:    getenvDefault("FAKE_FORECAST_TOKEN", ""),
		grids: map[string]gridProfile{
			gridcapacity.GridDBIS: {
				PeakMW:     getenvFloatDefault("FAKE_FORECAST_DBIS_PEAK_MW", 205),
				GrowthMW:   getenvFloatDefault("FAKE_FORECAST_DBIS_GROWTH_MW", 2.8),
				CapacityMW: getenvFloatDefault("FAKE_FORECAST_DBIS_CAPACITY_MW", 240),
			},
			gridcapacity.GridEssequibo: {
				PeakMW:     getenvFloatDefault("FAKE_FORECAST_ESSEQUIBO_PEAK_MW", 11.5),
				GrowthMW:   getenvFloatDefault("FAKE_FORECAST_ESSEQUIBO_GROWTH_MW", 0.2),
				CapacityMW: getenvFloatDefault("FAKE_FORECAST_ESSEQUIBO_CAPACITY_MW", 16),
			},
		},
		byPath: make(map[string]int64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/metrics", srv.handleMetrics)
	mux.HandleFunc("/api/forecast/capacity", srv.wrap(srv.handleCapacity))
	mux.HandleFunc("/api/forecast/multivariate", srv.wrap(srv.handleMultivariate))
	mux.HandleFunc("/api/forecast/", srv.wrap(srv.handleForecast))
	mux.HandleFunc("/api/analysis/latest", srv.wrap(srv.handleAnalysis))

	logger.WithField("addr", addr).Info("fake forecast server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Fatal("fake forecast server stopped")
	}
}

func (s *fakeForecastServer) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		s.recordCall(r.URL.Path)
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		if s.failRate > 0 && rand.Float64() < s.failRate {
			http.Error(w, "fake forecast failure", http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (s *fakeForecastServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *fakeForecastServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, map[string]any{
		"started_at": s.start.Format(time.RFC3339),
		"total":      atomic.LoadInt64(&s.totalCalls),
		"by_path":    s.byPath,
	})
}

func (s *fakeForecastServer) handleForecast(w http.ResponseWriter, r *http.Request) {
	grid := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/forecast/"), "/")
	profile, ok := s.grids[grid]
	if !ok {
		http.NotFound(w, r)
		return
	}
	points := make([]map[string]any, 0, 24)
	for month := 1; month <= 24; month++ {
		peak := profile.PeakMW + profile.GrowthMW*float64(month)
		spread := peak * 0.01 * math.Sqrt(float64(month))
		points = append(points, map[string]any{
			"month_index":     month,
			"projected_peak":  gridcapacity.Round1(peak),
			"confidence_low":  gridcapacity.Round1(peak - spread),
			"confidence_high": gridcapacity.Round1(peak + spread),
		})
	}
	writeJSON(w, map[string]any{"grid": grid, "forecast": points})
}

func (s *fakeForecastServer) handleCapacity(w http.ResponseWriter, r *http.Request) {
	records := make([]map[string]any, 0, len(s.grids))
	for _, grid := range []string{gridcapacity.GridDBIS, gridcapacity.GridEssequibo} {
		profile := s.grids[grid]
		margin := (profile.CapacityMW - profile.PeakMW) / profile.CapacityMW * 100
		record := map[string]any{
			"grid":             grid,
			"current_capacity": profile.CapacityMW,
			"reserve_margin":   gridcapacity.Round1(margin),
			"risk_level":       string(riskLevel(margin)),
		}
		if months, ok := monthsUntil(profile, profile.CapacityMW); ok {
			record["shortfall_date"] = s.start.AddDate(0, months, 0).Format("2006-01-02")
		}
		records = append(records, record)
	}
	writeJSON(w, map[string]any{"grids": records})
}

func (s *fakeForecastServer) handleMultivariate(w http.ResponseWriter, r *http.Request) {
	build := func(multiplier float64, assumptions, risks []string) map[string]any {
		grids := make(map[string]any, len(s.grids))
		for grid, profile := range s.grids {
			points := make([]map[string]any, 0, 3)
			for _, horizon := range []int{6, 12, 24} {
				peak := profile.PeakMW + profile.GrowthMW*multiplier*float64(horizon)
				points = append(points, map[string]any{
					"horizon_months":     horizon,
					"peak_mw":            gridcapacity.Round1(peak),
					"reserve_margin_pct": gridcapacity.Round1((profile.CapacityMW - peak) / profile.CapacityMW * 100),
				})
			}
			grids[grid] = points
		}
		scenario := map[string]any{
			"grids":        grids,
			"assumptions":  assumptions,
			"risk_factors": risks,
		}
		dbis := s.grids[gridcapacity.GridDBIS]
		scaled := gridProfile{PeakMW: dbis.PeakMW, GrowthMW: dbis.GrowthMW * multiplier}
		if months, ok := monthsUntil(scaled, dbis.CapacityMW*0.85); ok {
			scenario["safe_threshold_breach_date"] = s.start.AddDate(0, months, 0).Format("2006-01")
		}
		if months, ok := monthsUntil(scaled, dbis.CapacityMW); ok {
			scenario["load_shedding_unavoidable_date"] = s.start.AddDate(0, months, 0).Format("2006-01")
		}
		return scenario
	}
	writeJSON(w, map[string]any{
		"conservative": build(1, []string{"Historical growth continues"}, []string{"Delayed maintenance"}),
		"aggressive":   build(1.5, []string{"Industrial load connects on schedule"}, []string{"New connections outpace generation"}),
	})
}

func (s *fakeForecastServer) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"critical_alerts": []map[string]any{
			{"title": "Evening reserve below target", "description": "Evening reserve is under the planning threshold.", "recommendation": "Defer scheduled maintenance."},
		},
		"station_concerns": []map[string]any{
			{"station": "Station 03", "priority": "HIGH", "concern": "Two units on forced outage"},
			{"station": "Station 06", "priority": "MEDIUM", "concern": "Derating from fuel quality"},
		},
		"recommendations": []map[string]any{
			{"category": "Generation", "urgency": "immediate", "recommendation": "Restore forced outage units", "impact": "+12 MW"},
		},
	})
}

func (s *fakeForecastServer) recordCall(path string) {
	atomic.AddInt64(&s.totalCalls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPath[path]++
}

func riskLevel(marginPct float64) gridcapacity.RiskLevel {
	switch {
	case marginPct < 10:
		return gridcapacity.RiskCritical
	case marginPct < 20:
		return gridcapacity.RiskWarning
	default:
		return gridcapacity.RiskGood
	}
}

func monthsUntil(profile gridProfile, limitMW float64) (int, bool) {
	if profile.GrowthMW <= 0 {
		return 0, false
	}
	months := int(math.Ceil((limitMW - profile.PeakMW) / profile.GrowthMW))
	if months < 0 {
		months = 0
	}
	return months, months <= 120
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

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

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
