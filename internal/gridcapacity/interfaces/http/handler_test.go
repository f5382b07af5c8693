package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ministry-dashboard/internal/audit"
	"ministry-dashboard/internal/gridcapacity/application"
	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
	"ministry-dashboard/internal/gridcapacity/infrastructure/memory"
	"ministry-dashboard/internal/logging"
)

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type brokenReadings struct {
	*memory.ReadingStore
}

func (brokenReadings) LatestStations(ctx context.Context) ([]gridcapacity.Station, error) {
	return nil, errors.New("db down")
}

func newService(t *testing.T, readings application.ReadingSource) *application.Service {
	t.Helper()
	service, err := application.NewService(application.DefaultConfig(), readings, application.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func seeded() *memory.ReadingStore {
	store := memory.NewReadingStore()
	store.SetStations([]gridcapacity.Station{
		{Name: "A", DeratedCapacityMW: 120, AvailableCapacityMW: 110, UnitCount: 6},
		{Name: "B", DeratedCapacityMW: 120, AvailableCapacityMW: 110, UnitCount: 6},
	})
	store.SetSolarSites([]gridcapacity.SolarSite{{Name: "Hope", CapacityMWp: 10}})
	store.SetPeakDemand(&gridcapacity.PeakDemandSnapshot{Date: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), EveningOnBarsMW: 200})
	return store
}

func newTestMux(t *testing.T, readings application.ReadingSource, auditLogger audit.Logger) *http.ServeMux {
	t.Helper()
	handler, err := NewHandler(newService(t, readings), auditLogger, logging.Discard())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	handler.Register(mux)
	return mux
}

func TestNewHandler_NilService(t *testing.T) {
	if _, err := NewHandler(nil, nil, nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}

func TestDashboard(t *testing.T) {
	mux := newTestMux(t, seeded(), nil)
	req := httptest.NewRequest(http.MethodGet, pathDashboard, nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var body struct {
		Health struct {
			Reserve struct {
				ReserveMarginPct float64 `json:"reserve_margin_pct"`
				Health           string  `json:"health"`
			} `json:"reserve"`
		} `json:"health"`
		Grids        []json.RawMessage `json:"grids"`
		SourceErrors []json.RawMessage `json:"source_errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Health.Reserve.ReserveMarginPct != 13.0 || body.Health.Reserve.Health != "warning" {
		t.Fatalf("unexpected reserve %+v", body.Health.Reserve)
	}
	if len(body.Grids) != 2 {
		t.Fatalf("expected 2 grids, got %d", len(body.Grids))
	}
	if body.SourceErrors == nil {
		t.Fatalf("expected source_errors to be an empty list")
	}
}

func TestDashboard_NoStationData(t *testing.T) {
	mux := newTestMux(t, memory.NewReadingStore(), nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathDashboard, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["health"]) != "null" {
		t.Fatalf("expected null health, got %s", body["health"])
	}
}

func TestDashboard_UpstreamFailure(t *testing.T) {
	mux := newTestMux(t, brokenReadings{ReadingStore: seeded()}, nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathDashboard, nil))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, seeded(), nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, pathDashboard, nil))
	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestConfig(t *testing.T) {
	mux := newTestMux(t, seeded(), nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathConfig, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Engine struct {
			Horizons []int `json:"horizons"`
		} `json:"engine"`
		Grids []struct {
			ID string `json:"id"`
		} `json:"grids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Engine.Horizons) != 3 || len(body.Grids) != 2 || body.Grids[0].ID != "dbis" {
		t.Fatalf("unexpected config %+v", body)
	}
}

func TestEvaluate(t *testing.T) {
	recorder := &recordingAudit{}
	mux := newTestMux(t, memory.NewReadingStore(), recorder)
	payload := `{
		"health": {
			"stations": [{"name": "A", "derated_capacity_mw": 230, "available_capacity_mw": 230, "unit_count": 4}],
			"peak": {"evening_on_bars_mw": 200}
		},
		"grids": [{"grid": "dbis", "metric": "Peak Demand DBIS", "default_growth_rate": 2, "current_peak_mw": 100, "capacity_mw": 230}]
	}`
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, pathEvaluate, strings.NewReader(payload)))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Health struct {
			Reserve struct {
				ReserveMarginPct float64 `json:"reserve_margin_pct"`
			} `json:"reserve"`
		} `json:"health"`
		Grids []struct {
			Projection struct {
				Points []struct {
					HorizonMonths int     `json:"horizon_months"`
					PeakMW        float64 `json:"peak_mw"`
				} `json:"points"`
			} `json:"projection"`
		} `json:"grids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Health.Reserve.ReserveMarginPct != 13.0 {
		t.Fatalf("expected 13.0, got %v", body.Health.Reserve.ReserveMarginPct)
	}
	if len(body.Grids) != 1 || body.Grids[0].Projection.Points[0].PeakMW != 112 {
		t.Fatalf("unexpected grids %+v", body.Grids)
	}
	if len(recorder.entries) != 1 || recorder.entries[0].Action != "grid.evaluate" {
		t.Fatalf("expected evaluate audit entry, got %+v", recorder.entries)
	}
}

func TestEvaluate_BadRequests(t *testing.T) {
	mux := newTestMux(t, memory.NewReadingStore(), nil)
	for _, payload := range []string{`{`, `{"grids":[{"metric":"x"}]}`} {
		resp := httptest.NewRecorder()
		mux.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, pathEvaluate, strings.NewReader(payload)))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", payload, resp.Code)
		}
	}
}

func TestExports(t *testing.T) {
	recorder := &recordingAudit{}
	mux := newTestMux(t, seeded(), recorder)

	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathExportPDF, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected content type %q", resp.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}

	resp = httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathExportXLSX, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Header().Get("Content-Disposition"), ".xlsx") {
		t.Fatalf("unexpected disposition %q", resp.Header().Get("Content-Disposition"))
	}
	// xlsx is a zip archive
	if !bytes.HasPrefix(resp.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip body")
	}
	if len(recorder.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(recorder.entries))
	}
}

func TestExport_UpstreamFailure(t *testing.T) {
	mux := newTestMux(t, brokenReadings{ReadingStore: seeded()}, nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, pathExportXLSX, nil))
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
