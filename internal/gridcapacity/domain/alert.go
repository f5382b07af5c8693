package gridcapacity

import "strings"

// Severity ranks alerts; lower rank sorts first.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank returns the sort rank of the severity. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// SeverityFromPriority maps a HIGH/MEDIUM/LOW concern priority to a severity.
// Unknown priorities map to low.
func SeverityFromPriority(priority string) Severity {
	switch strings.ToUpper(strings.TrimSpace(priority)) {
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Alert sources.
const (
	AlertSourceCritical       = "critical_alert"
	AlertSourceStationConcern = "station_concern"
	AlertSourceRecommendation = "recommendation"
	AlertSourceReserve        = "reserve"
)

// Alert is a consolidated dashboard alert.
type Alert struct {
	ID             string   `json:"id"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Station        string   `json:"station,omitempty"`
	Detail         string   `json:"detail"`
	Recommendation string   `json:"recommendation,omitempty"`
	Source         string   `json:"source"`
}

// CriticalAlert is an alert record from the analysis service.
type CriticalAlert struct {
	Title          string `json:"title"`
	Station        string `json:"station,omitempty"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
}

// StationConcern is a per-station concern from the analysis service.
type StationConcern struct {
	Station        string `json:"station"`
	Priority       string `json:"priority"`
	Concern        string `json:"concern"`
	Detail         string `json:"detail,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Recommendation is an action item from the analysis service.
type Recommendation struct {
	Category       string `json:"category"`
	Urgency        string `json:"urgency"`
	Recommendation string `json:"recommendation"`
	Impact         string `json:"impact,omitempty"`
}

// IsImmediate reports whether the recommendation is flagged for immediate action.
func (r Recommendation) IsImmediate() bool {
	return strings.EqualFold(strings.TrimSpace(r.Urgency), "immediate")
}

// AIAnalysis is the subset of the narrative analysis object that feeds alerts.
type AIAnalysis struct {
	CriticalAlerts  []CriticalAlert  `json:"critical_alerts"`
	StationConcerns []StationConcern `json:"station_concerns"`
	Recommendations []Recommendation `json:"recommendations"`
}
