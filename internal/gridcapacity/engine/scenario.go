package engine

import (
	"math"
	"time"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

const (
	averageDaysPerMonth = 30.4375
	maxEstimateMonths   = 1200
)

// ScenarioCell is one scenario projection with its reserve classification.
type ScenarioCell struct {
	PeakMW           float64                `json:"peak_mw"`
	ReserveMarginPct *float64               `json:"reserve_margin_pct,omitempty"`
	RiskLevel        gridcapacity.RiskLevel `json:"risk_level,omitempty"`
	Available        bool                   `json:"available"`
}

// ScenarioRow pairs the two scenarios at one horizon.
type ScenarioRow struct {
	HorizonMonths int          `json:"horizon_months"`
	Conservative  ScenarioCell `json:"conservative"`
	Aggressive    ScenarioCell `json:"aggressive"`
}

// BreachDate is a threshold date, either passed through from the scenario
// service or estimated from the linear model.
type BreachDate struct {
	Date      *time.Time `json:"date,omitempty"`
	Estimated bool       `json:"estimated"`
}

// ScenarioOutlook carries the per-scenario pass-through fields.
type ScenarioOutlook struct {
	Name                    string     `json:"name"`
	Assumptions             []string   `json:"assumptions"`
	RiskFactors             []string   `json:"risk_factors"`
	SafeThresholdBreach     BreachDate `json:"safe_threshold_breach"`
	LoadSheddingUnavoidable BreachDate `json:"load_shedding_unavoidable"`
}

// ScenarioComparison is the side-by-side scenario table for one grid.
type ScenarioComparison struct {
	Grid             string          `json:"grid"`
	CapacityMW       float64         `json:"capacity_mw"`
	Rows             []ScenarioRow   `json:"rows"`
	ScenarioFallback bool            `json:"scenario_fallback"`
	Conservative     ScenarioOutlook `json:"conservative"`
	Aggressive       ScenarioOutlook `json:"aggressive"`
}

// ScenarioInput is everything CompareScenarios needs for one grid.
type ScenarioInput struct {
	Grid                 string
	CapacityMW           float64
	Payload              *gridcapacity.ScenarioPayload
	Projection           ProjectionSeries
	Horizons             []int
	AggressiveMultiplier float64
	EstimateBreachDates  bool
	AsOf                 time.Time
}

// ClassifyScenarioRisk maps a projected reserve margin to a risk level.
func ClassifyScenarioRisk(reserveMarginPct float64) gridcapacity.RiskLevel {
	switch {
	case reserveMarginPct >= ScenarioGoodAtPct:
		return gridcapacity.RiskGood
	case reserveMarginPct >= ScenarioWarningAtPct:
		return gridcapacity.RiskWarning
	default:
		return gridcapacity.RiskCritical
	}
}

// CompareScenarios builds the conservative/aggressive table. When the scenario
// service returned nothing at all, the local projection stands in for the
// conservative column and conservative*multiplier for the aggressive one.
// Gaps in a present payload are left empty.
func CompareScenarios(in ScenarioInput) ScenarioComparison {
	multiplier := in.AggressiveMultiplier
	if multiplier <= 0 {
		multiplier = DefaultAggressiveMultiplier
	}
	capacity := gridcapacity.Finite(in.CapacityMW)

	comparison := ScenarioComparison{
		Grid:             in.Grid,
		CapacityMW:       gridcapacity.Round1(capacity),
		Rows:             make([]ScenarioRow, 0, len(in.Horizons)),
		ScenarioFallback: !in.Payload.Available(),
		Conservative:     ScenarioOutlook{Name: gridcapacity.ScenarioConservative, Assumptions: []string{}, RiskFactors: []string{}},
		Aggressive:       ScenarioOutlook{Name: gridcapacity.ScenarioAggressive, Assumptions: []string{}, RiskFactors: []string{}},
	}

	for _, horizon := range in.Horizons {
		if horizon <= 0 {
			continue
		}
		row := ScenarioRow{HorizonMonths: horizon}
		if comparison.ScenarioFallback {
			if point, ok := in.Projection.At(horizon); ok && point.PeakMW > 0 {
				row.Conservative = newScenarioCell(point.PeakMW, nil, capacity)
				row.Aggressive = newScenarioCell(gridcapacity.Round1(point.PeakMW*multiplier), nil, capacity)
			}
		} else {
			row.Conservative = cellFromScenario(in.Payload.Conservative, in.Grid, horizon, capacity)
			row.Aggressive = cellFromScenario(in.Payload.Aggressive, in.Grid, horizon, capacity)
		}
		comparison.Rows = append(comparison.Rows, row)
	}

	if in.Payload != nil {
		passThrough(&comparison.Conservative, in.Payload.Conservative)
		passThrough(&comparison.Aggressive, in.Payload.Aggressive)
	}

	if in.EstimateBreachDates && !in.AsOf.IsZero() && capacity > 0 {
		current := in.Projection.CurrentMW
		estimateOutlook(&comparison.Conservative, comparison.Rows, func(r ScenarioRow) ScenarioCell { return r.Conservative }, in.AsOf, current, capacity)
		estimateOutlook(&comparison.Aggressive, comparison.Rows, func(r ScenarioRow) ScenarioCell { return r.Aggressive }, in.AsOf, current, capacity)
	}
	return comparison
}

func cellFromScenario(scenario *gridcapacity.ScenarioForecast, grid string, horizon int, capacity float64) ScenarioCell {
	point, ok := scenario.Point(grid, horizon)
	if !ok {
		return ScenarioCell{}
	}
	peak, ok := gridcapacity.ParseNumber(point.PeakMW)
	if !ok || peak <= 0 {
		return ScenarioCell{}
	}
	return newScenarioCell(peak, point.ReserveMarginPct, capacity)
}

func newScenarioCell(peak float64, supplied *float64, capacity float64) ScenarioCell {
	cell := ScenarioCell{PeakMW: peak, Available: true}
	if pct, ok := ReserveMarginPct(capacity, peak); ok {
		cell.ReserveMarginPct = &pct
		cell.RiskLevel = ClassifyScenarioRisk(pct)
		return cell
	}
	if supplied != nil {
		if pct, ok := gridcapacity.ParseNumber(*supplied); ok {
			pct = gridcapacity.Round1(pct)
			cell.ReserveMarginPct = &pct
			cell.RiskLevel = ClassifyScenarioRisk(pct)
		}
	}
	return cell
}

func passThrough(outlook *ScenarioOutlook, scenario *gridcapacity.ScenarioForecast) {
	if scenario == nil {
		return
	}
	if scenario.Assumptions != nil {
		outlook.Assumptions = append([]string(nil), scenario.Assumptions...)
	}
	if scenario.RiskFactors != nil {
		outlook.RiskFactors = append([]string(nil), scenario.RiskFactors...)
	}
	if scenario.SafeThresholdBreachDate != nil {
		date := *scenario.SafeThresholdBreachDate
		outlook.SafeThresholdBreach = BreachDate{Date: &date}
	}
	if scenario.LoadSheddingUnavoidableDate != nil {
		date := *scenario.LoadSheddingUnavoidableDate
		outlook.LoadSheddingUnavoidable = BreachDate{Date: &date}
	}
}

// estimateOutlook fills missing dates by solving reserve(t) = 15% and
// reserve(t) = 0% on the line through the current peak and the furthest
// available scenario projection.
func estimateOutlook(outlook *ScenarioOutlook, rows []ScenarioRow, pick func(ScenarioRow) ScenarioCell, asOf time.Time, current, capacity float64) {
	if outlook.SafeThresholdBreach.Date != nil && outlook.LoadSheddingUnavoidable.Date != nil {
		return
	}
	rate, ok := scenarioRate(rows, pick, current)
	if !ok {
		return
	}
	if outlook.SafeThresholdBreach.Date == nil {
		target := capacity * (1 - ScenarioWarningAtPct/100)
		if date := estimateCrossing(asOf, current, rate, target); date != nil {
			outlook.SafeThresholdBreach = BreachDate{Date: date, Estimated: true}
		}
	}
	if outlook.LoadSheddingUnavoidable.Date == nil {
		if date := estimateCrossing(asOf, current, rate, capacity); date != nil {
			outlook.LoadSheddingUnavoidable = BreachDate{Date: date, Estimated: true}
		}
	}
}

func scenarioRate(rows []ScenarioRow, pick func(ScenarioRow) ScenarioCell, current float64) (float64, bool) {
	if current <= 0 {
		return 0, false
	}
	horizon := 0
	peak := 0.0
	for _, row := range rows {
		cell := pick(row)
		if cell.Available && row.HorizonMonths > horizon {
			horizon = row.HorizonMonths
			peak = cell.PeakMW
		}
	}
	if horizon == 0 {
		return 0, false
	}
	return (peak - current) / float64(horizon), true
}

func estimateCrossing(asOf time.Time, current, rate, targetPeak float64) *time.Time {
	if current >= targetPeak {
		date := asOf
		return &date
	}
	if rate <= 0 {
		return nil
	}
	months := (targetPeak - current) / rate
	if months > maxEstimateMonths {
		return nil
	}
	date := asOf.AddDate(0, 0, int(math.Ceil(months*averageDaysPerMonth)))
	return &date
}
