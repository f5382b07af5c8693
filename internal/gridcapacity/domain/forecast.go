package gridcapacity

import "time"

// Well-known grids.
const (
	GridDBIS      = "dbis"
	GridEssequibo = "essequibo"
)

// Well-known KPI metric names.
const (
	MetricPeakDemandDBIS      = "Peak Demand DBIS"
	MetricPeakDemandEssequibo = "Peak Demand Essequibo"
	MetricCollectionRate      = "Collection Rate %"
)

// Scenario names.
const (
	ScenarioConservative = "conservative"
	ScenarioAggressive   = "aggressive"
)

// RiskLevel classifies a reserve margin for planning purposes.
type RiskLevel string

const (
	RiskGood     RiskLevel = "good"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// Valid reports whether the level is one of the known values.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskGood, RiskWarning, RiskCritical:
		return true
	default:
		return false
	}
}

// KpiTrendPoint is one month of KPI values. A nil or missing value is absent.
type KpiTrendPoint struct {
	MonthKey string              `json:"month"`
	Values   map[string]*float64 `json:"values"`
}

// Value returns the metric value and whether it is present.
func (p KpiTrendPoint) Value(metric string) (float64, bool) {
	if p.Values == nil {
		return 0, false
	}
	v, ok := p.Values[metric]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// AuthoritativeForecastPoint is one month of the server-computed forecast.
// MonthIndex is 0-based and contiguous per grid.
type AuthoritativeForecastPoint struct {
	Grid             string  `json:"grid"`
	MonthIndex       int     `json:"month_index"`
	ProjectedPeakMW  float64 `json:"projected_peak_mw"`
	ConfidenceLowMW  float64 `json:"confidence_low_mw"`
	ConfidenceHighMW float64 `json:"confidence_high_mw"`
}

// CapacityRecord is the server view of a grid's capacity and risk.
type CapacityRecord struct {
	Grid              string     `json:"grid"`
	CurrentCapacityMW float64    `json:"current_capacity_mw"`
	ReserveMarginPct  float64    `json:"reserve_margin_pct"`
	ShortfallDate     *time.Time `json:"shortfall_date,omitempty"`
	RiskLevel         RiskLevel  `json:"risk_level"`
}

// ScenarioPoint is a scenario projection for one grid at one horizon.
type ScenarioPoint struct {
	PeakMW           float64  `json:"peak_mw"`
	ReserveMarginPct *float64 `json:"reserve_margin_pct,omitempty"`
}

// ScenarioForecast is one named scenario from the multivariate service.
// Grids maps grid -> horizon in months -> point.
type ScenarioForecast struct {
	Name                        string                           `json:"name"`
	Grids                       map[string]map[int]ScenarioPoint `json:"grids"`
	Assumptions                 []string                         `json:"assumptions"`
	RiskFactors                 []string                         `json:"risk_factors"`
	SafeThresholdBreachDate     *time.Time                       `json:"safe_threshold_breach_date,omitempty"`
	LoadSheddingUnavoidableDate *time.Time                       `json:"load_shedding_unavoidable_date,omitempty"`
}

// Point returns the scenario point for grid and horizon.
func (s *ScenarioForecast) Point(grid string, horizon int) (ScenarioPoint, bool) {
	if s == nil || s.Grids == nil {
		return ScenarioPoint{}, false
	}
	byHorizon, ok := s.Grids[grid]
	if !ok || byHorizon == nil {
		return ScenarioPoint{}, false
	}
	point, ok := byHorizon[horizon]
	return point, ok
}

// HasData reports whether the scenario carries at least one projection.
func (s *ScenarioForecast) HasData() bool {
	if s == nil {
		return false
	}
	for _, byHorizon := range s.Grids {
		if len(byHorizon) > 0 {
			return true
		}
	}
	return false
}

// ScenarioPayload is the multivariate service response.
type ScenarioPayload struct {
	Conservative *ScenarioForecast `json:"conservative"`
	Aggressive   *ScenarioForecast `json:"aggressive"`
}

// Available reports whether the scenario service returned any grid points.
// Assumptions, risk factors and dates may be present without them.
func (p *ScenarioPayload) Available() bool {
	if p == nil {
		return false
	}
	return p.Conservative.HasData() || p.Aggressive.HasData()
}
