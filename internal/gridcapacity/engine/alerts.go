package engine

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ministry-dashboard/grid-alerts"))

// AlertSource is one producer of alerts. The set of variants is closed:
// CriticalAlertSource, StationConcernSource, RecommendationSource and
// ReserveAlertSource.
type AlertSource interface {
	kind() string
	alerts() []gridcapacity.Alert
}

// CriticalAlertSource yields one critical alert per record.
type CriticalAlertSource []gridcapacity.CriticalAlert

// StationConcernSource yields one alert per concern, severity from priority.
type StationConcernSource []gridcapacity.StationConcern

// RecommendationSource yields medium alerts for immediate recommendations only.
type RecommendationSource []gridcapacity.Recommendation

// ReserveAlertSource yields an alert when reserve health is warning or critical.
type ReserveAlertSource struct {
	State ReserveState
}

func (CriticalAlertSource) kind() string  { return gridcapacity.AlertSourceCritical }
func (StationConcernSource) kind() string { return gridcapacity.AlertSourceStationConcern }
func (RecommendationSource) kind() string { return gridcapacity.AlertSourceRecommendation }
func (ReserveAlertSource) kind() string   { return gridcapacity.AlertSourceReserve }

func (s CriticalAlertSource) alerts() []gridcapacity.Alert {
	out := make([]gridcapacity.Alert, 0, len(s))
	for _, record := range s {
		out = append(out, gridcapacity.Alert{
			Severity:       gridcapacity.SeverityCritical,
			Title:          record.Title,
			Station:        record.Station,
			Detail:         record.Description,
			Recommendation: record.Recommendation,
		})
	}
	return out
}

func (s StationConcernSource) alerts() []gridcapacity.Alert {
	out := make([]gridcapacity.Alert, 0, len(s))
	for _, concern := range s {
		out = append(out, gridcapacity.Alert{
			Severity:       gridcapacity.SeverityFromPriority(concern.Priority),
			Title:          concern.Concern,
			Station:        concern.Station,
			Detail:         concern.Detail,
			Recommendation: concern.Recommendation,
		})
	}
	return out
}

func (s RecommendationSource) alerts() []gridcapacity.Alert {
	out := make([]gridcapacity.Alert, 0, len(s))
	for _, rec := range s {
		if !rec.IsImmediate() {
			continue
		}
		title := rec.Category
		if title == "" {
			title = rec.Recommendation
		}
		out = append(out, gridcapacity.Alert{
			Severity:       gridcapacity.SeverityMedium,
			Title:          title,
			Detail:         rec.Recommendation,
			Recommendation: rec.Recommendation,
		})
	}
	return out
}

func (s ReserveAlertSource) alerts() []gridcapacity.Alert {
	if !s.State.Defined {
		return nil
	}
	var severity gridcapacity.Severity
	switch s.State.Health {
	case gridcapacity.HealthCritical:
		severity = gridcapacity.SeverityCritical
	case gridcapacity.HealthWarning:
		severity = gridcapacity.SeverityHigh
	default:
		return nil
	}
	return []gridcapacity.Alert{{
		Severity: severity,
		Title:    fmt.Sprintf("Reserve margin %s", s.State.Health),
		Detail: fmt.Sprintf("reserve %.1f%% (%.1f MW) at evening peak %.1f MW of %.1f MW",
			s.State.ReserveMarginPct, s.State.ReserveMarginMW, s.State.PeakDemandMW, s.State.CapacityMW),
	}}
}

// SourcesFromAnalysis unpacks an analysis object into alert sources in the
// order critical alerts, station concerns, recommendations.
func SourcesFromAnalysis(analysis *gridcapacity.AIAnalysis) []AlertSource {
	if analysis == nil {
		return nil
	}
	return []AlertSource{
		CriticalAlertSource(analysis.CriticalAlerts),
		StationConcernSource(analysis.StationConcerns),
		RecommendationSource(analysis.Recommendations),
	}
}

// ConsolidateAlerts concatenates all sources in order and stable-sorts the
// result by severity. Identical alerts from different sources are kept.
func ConsolidateAlerts(sources ...AlertSource) []gridcapacity.Alert {
	merged := []gridcapacity.Alert{}
	for _, source := range sources {
		if source == nil {
			continue
		}
		kind := source.kind()
		for i, alert := range source.alerts() {
			alert.Source = kind
			alert.ID = alertID(kind, i, alert)
			merged = append(merged, alert)
		}
	}
	slices.SortStableFunc(merged, func(a, b gridcapacity.Alert) int {
		return a.Severity.Rank() - b.Severity.Rank()
	})
	return merged
}

func alertID(kind string, position int, alert gridcapacity.Alert) string {
	name := fmt.Sprintf("%s:%d:%s:%s", kind, position, alert.Station, alert.Title)
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}
