package engine

import (
	"testing"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

func TestConsolidateAlerts_RanksAndKeepsOrder(t *testing.T) {
	alerts := ConsolidateAlerts(
		CriticalAlertSource{
			{Title: "Garden of Eden trip", Station: "GOE", Description: "units tripped"},
		},
		StationConcernSource{
			{Station: "Canefield", Priority: "LOW", Concern: "c-low"},
			{Station: "Kingston", Priority: "HIGH", Concern: "k-high"},
			{Station: "Anna Regina", Priority: "medium", Concern: "ar-medium"},
			{Station: "Bartica", Priority: "HIGH", Concern: "b-high"},
		},
		RecommendationSource{
			{Category: "fuel", Urgency: "Immediate", Recommendation: "secure HFO"},
			{Category: "planning", Urgency: "long_term", Recommendation: "add capacity"},
		},
	)

	want := []string{"Garden of Eden trip", "k-high", "b-high", "ar-medium", "fuel", "c-low"}
	if len(alerts) != len(want) {
		t.Fatalf("expected %d alerts, got %d", len(want), len(alerts))
	}
	for i, title := range want {
		if alerts[i].Title != title {
			t.Fatalf("position %d: expected %q, got %q", i, title, alerts[i].Title)
		}
	}
	if alerts[4].Severity != gridcapacity.SeverityMedium || alerts[4].Source != gridcapacity.AlertSourceRecommendation {
		t.Fatalf("expected promoted recommendation as medium, got %+v", alerts[4])
	}
	if alerts[0].Severity != gridcapacity.SeverityCritical {
		t.Fatalf("expected critical first, got %s", alerts[0].Severity)
	}
}

func TestConsolidateAlerts_NoDeduplication(t *testing.T) {
	alerts := ConsolidateAlerts(
		CriticalAlertSource{{Title: "Low reserve"}},
		StationConcernSource{{Priority: "HIGH", Concern: "Low reserve"}},
	)
	if len(alerts) != 2 {
		t.Fatalf("expected both alerts kept, got %d", len(alerts))
	}
	if alerts[0].ID == alerts[1].ID {
		t.Fatalf("expected distinct ids for distinct sources")
	}
}

func TestConsolidateAlerts_DeterministicIDs(t *testing.T) {
	build := func() []gridcapacity.Alert {
		return ConsolidateAlerts(SourcesFromAnalysis(&gridcapacity.AIAnalysis{
			CriticalAlerts:  []gridcapacity.CriticalAlert{{Title: "a"}},
			StationConcerns: []gridcapacity.StationConcern{{Station: "s", Priority: "LOW", Concern: "b"}},
		})...)
	}
	first, second := build(), build()
	for i := range first {
		if first[i].ID != second[i].ID || first[i].ID == "" {
			t.Fatalf("expected stable non-empty id at %d, got %q and %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestConsolidateAlerts_EmptyInputs(t *testing.T) {
	alerts := ConsolidateAlerts()
	if alerts == nil || len(alerts) != 0 {
		t.Fatalf("expected empty non-nil list")
	}
	if got := ConsolidateAlerts(SourcesFromAnalysis(nil)...); len(got) != 0 {
		t.Fatalf("expected no alerts for nil analysis, got %d", len(got))
	}
	if got := ConsolidateAlerts(nil, CriticalAlertSource(nil)); len(got) != 0 {
		t.Fatalf("expected no alerts for nil sources, got %d", len(got))
	}
}

func TestConsolidateAlerts_UnknownPriorityIsLow(t *testing.T) {
	alerts := ConsolidateAlerts(StationConcernSource{{Priority: "urgent-ish", Concern: "x"}})
	if alerts[0].Severity != gridcapacity.SeverityLow {
		t.Fatalf("expected low, got %s", alerts[0].Severity)
	}
}

func TestReserveAlertSource(t *testing.T) {
	critical := CalculateReserve(100, &gridcapacity.PeakDemandSnapshot{EveningOnBarsMW: 95})
	alerts := ConsolidateAlerts(StationConcernSource{{Priority: "HIGH", Concern: "x"}}, ReserveAlertSource{State: critical})
	if alerts[0].Source != gridcapacity.AlertSourceReserve || alerts[0].Severity != gridcapacity.SeverityCritical {
		t.Fatalf("expected reserve alert first, got %+v", alerts[0])
	}

	good := CalculateReserve(100, &gridcapacity.PeakDemandSnapshot{EveningOnBarsMW: 50})
	if got := ConsolidateAlerts(ReserveAlertSource{State: good}); len(got) != 0 {
		t.Fatalf("expected no alert for good reserve, got %d", len(got))
	}
	if got := ConsolidateAlerts(ReserveAlertSource{State: CalculateReserve(0, nil)}); len(got) != 0 {
		t.Fatalf("expected no alert for undefined reserve, got %d", len(got))
	}
}
