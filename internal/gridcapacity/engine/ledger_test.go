package engine

import (
	"testing"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

func TestBuildCapacityLedger_SitesAndFossil(t *testing.T) {
	fossil := AggregateStations([]gridcapacity.Station{
		{Name: "A", DeratedCapacityMW: 100, AvailableCapacityMW: 80.25},
		{Name: "B", DeratedCapacityMW: 60, AvailableCapacityMW: 40.3},
	}, DefaultDegradedRatio)

	ledger := BuildCapacityLedger(fossil, RenewableInput{Sites: []gridcapacity.SolarSite{
		{Name: "Hampshire", CapacityMWp: 3},
		{Name: "Prospect", CapacityMWp: 6.55},
	}})

	// 80.25 + 40.3 + 3 + 6.55 = 130.1
	if ledger.TotalSystemCapacityMW != 130.1 {
		t.Fatalf("expected 130.1, got %v", ledger.TotalSystemCapacityMW)
	}
	if ledger.TotalSolarMW != 9.6 {
		t.Fatalf("expected solar 9.6, got %v", ledger.TotalSolarMW)
	}
	if ledger.SolarSiteCount != 2 || !ledger.RenewableFromSites {
		t.Fatalf("expected 2 sites from list, got %+v", ledger)
	}
	if ledger.RenewableSharePct != 7.3 {
		t.Fatalf("expected renewable share 7.3, got %v", ledger.RenewableSharePct)
	}
}

func TestBuildCapacityLedger_AggregateFallback(t *testing.T) {
	fossil := AggregateStations([]gridcapacity.Station{{DeratedCapacityMW: 50, AvailableCapacityMW: 50}}, DefaultDegradedRatio)
	aggregate := 12.5

	ledger := BuildCapacityLedger(fossil, RenewableInput{AggregateMW: &aggregate})
	if ledger.TotalSystemCapacityMW != 62.5 {
		t.Fatalf("expected 62.5, got %v", ledger.TotalSystemCapacityMW)
	}
	if ledger.RenewableFromSites {
		t.Fatalf("expected aggregate source")
	}

	ledger = BuildCapacityLedger(fossil, RenewableInput{Sites: []gridcapacity.SolarSite{{CapacityMWp: 1}}, AggregateMW: &aggregate})
	if ledger.TotalSystemCapacityMW != 51 {
		t.Fatalf("expected site list to win, got %v", ledger.TotalSystemCapacityMW)
	}

	ledger = BuildCapacityLedger(fossil, RenewableInput{})
	if ledger.TotalSystemCapacityMW != 50 || ledger.TotalSolarMW != 0 {
		t.Fatalf("expected fossil only, got %+v", ledger)
	}
}

func TestBuildCapacityLedger_RoundsAfterSummation(t *testing.T) {
	stations := make([]gridcapacity.Station, 5)
	for i := range stations {
		stations[i] = gridcapacity.Station{DeratedCapacityMW: 1, AvailableCapacityMW: 0.04}
	}
	fossil := AggregateStations(stations, DefaultDegradedRatio)
	ledger := BuildCapacityLedger(fossil, RenewableInput{})

	// Rounding each station first would give 0.0.
	if ledger.TotalSystemCapacityMW != 0.2 {
		t.Fatalf("expected 0.2, got %v", ledger.TotalSystemCapacityMW)
	}
}

func TestBuildCapacityLedger_MatchesRoundedSum(t *testing.T) {
	stations := []gridcapacity.Station{
		{DeratedCapacityMW: 30, AvailableCapacityMW: 21.37},
		{DeratedCapacityMW: 25, AvailableCapacityMW: 18.06},
		{DeratedCapacityMW: 9, AvailableCapacityMW: 0},
	}
	sites := []gridcapacity.SolarSite{{CapacityMWp: 0.65}, {CapacityMWp: 1.02}}
	ledger := BuildCapacityLedger(AggregateStations(stations, DefaultDegradedRatio), RenewableInput{Sites: sites})

	want := gridcapacity.Round1(21.37 + 18.06 + 0 + 0.65 + 1.02)
	if ledger.TotalSystemCapacityMW != want {
		t.Fatalf("expected %v, got %v", want, ledger.TotalSystemCapacityMW)
	}
}
