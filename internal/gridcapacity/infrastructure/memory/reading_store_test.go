package memory

import (
	"context"
	"strings"
	"testing"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

func TestReadingStore_EmptyReportsNoStations(t *testing.T) {
	store := NewReadingStore()
	stations, err := store.LatestStations(context.Background())
	if err != nil {
		t.Fatalf("latest stations: %v", err)
	}
	if stations != nil {
		t.Fatalf("expected nil stations, got %v", stations)
	}
	peak, err := store.LatestPeakDemand(context.Background())
	if err != nil || peak != nil {
		t.Fatalf("expected no peak, got %v %v", peak, err)
	}
}

func TestReadingStore_LoadSeed(t *testing.T) {
	seed := `{
		"stations": [{"name": "Garden of Eden", "derated_capacity_mw": 40, "available_capacity_mw": 32, "unit_count": 4}],
		"solar_sites": [{"name": "Hope", "capacity_mwp": 0.65}],
		"peak_demand": {"date": "2026-09-30T00:00:00Z", "evening_on_bars_mw": 28},
		"kpi_trend": [
			{"month": "2026-07", "values": {"Peak Demand DBIS": 150, "Collection Rate": 92}},
			{"month": "2026-08", "values": {"Collection Rate": 93}}
		]
	}`
	store := NewReadingStore()
	if err := store.LoadSeed(strings.NewReader(seed)); err != nil {
		t.Fatalf("load seed: %v", err)
	}
	ctx := context.Background()

	stations, _ := store.LatestStations(ctx)
	if len(stations) != 1 || stations[0].AvailableCapacityMW != 32 {
		t.Fatalf("unexpected stations %+v", stations)
	}
	peak, _ := store.LatestPeakDemand(ctx)
	if peak == nil || peak.EveningOnBarsMW != 28 {
		t.Fatalf("unexpected peak %+v", peak)
	}

	trend, _ := store.KpiTrend(ctx, []string{"Peak Demand DBIS"})
	if len(trend) != 1 || trend[0].MonthKey != "2026-07" {
		t.Fatalf("expected one month with the metric, got %+v", trend)
	}
	if _, ok := trend[0].Values["Collection Rate"]; ok {
		t.Fatalf("expected unrequested metrics to be dropped")
	}
}

func TestReadingStore_ReturnsCopies(t *testing.T) {
	store := NewReadingStore()
	ctx := context.Background()
	store.SetStations([]gridcapacity.Station{{Name: "A", DeratedCapacityMW: 10, AvailableCapacityMW: 10}})
	first, _ := store.LatestStations(ctx)
	first[0].AvailableCapacityMW = 0
	second, _ := store.LatestStations(ctx)
	if second[0].AvailableCapacityMW != 10 {
		t.Fatalf("store mutated through returned slice")
	}
}
