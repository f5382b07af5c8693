package engine

import (
	"time"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// ReserveState is the authoritative reserve picture, based on the evening
// on-bars peak. Day peak and suppressed demand are informational.
type ReserveState struct {
	CapacityMW       float64                  `json:"capacity_mw"`
	PeakDemandMW     float64                  `json:"peak_demand_mw"`
	DayPeakMW        float64                  `json:"day_peak_mw"`
	UnservedMW       float64                  `json:"unserved_mw"`
	ReportDate       *time.Time               `json:"report_date,omitempty"`
	SystemLoadPct    float64                  `json:"system_load_pct"`
	ReserveMarginMW  float64                  `json:"reserve_margin_mw"`
	ReserveMarginPct float64                  `json:"reserve_margin_pct"`
	Defined          bool                     `json:"defined"`
	Health           gridcapacity.HealthState `json:"health"`
}

// PlanningReserve is a reference figure: capacity discounted by the forced
// outage rate against an expected peak. It never drives alerts or health.
type PlanningReserve struct {
	CapacityMW       float64 `json:"capacity_mw"`
	ForcedOutageRate float64 `json:"forced_outage_rate"`
	DeliverableMW    float64 `json:"deliverable_mw"`
	ExpectedPeakMW   float64 `json:"expected_peak_mw"`
	MarginMW         float64 `json:"margin_mw"`
	MarginPct        float64 `json:"margin_pct"`
}

// ClassifyHealth maps a reserve margin percentage to a health state.
func ClassifyHealth(reserveMarginPct float64) gridcapacity.HealthState {
	switch {
	case reserveMarginPct < HealthCriticalBelowPct:
		return gridcapacity.HealthCritical
	case reserveMarginPct < HealthWarningBelowPct:
		return gridcapacity.HealthWarning
	default:
		return gridcapacity.HealthGood
	}
}

// ReserveMarginPct returns (capacity-peak)/capacity*100 rounded to one decimal,
// and false when capacity is not positive.
func ReserveMarginPct(capacityMW, peakMW float64) (float64, bool) {
	capacityMW = gridcapacity.Finite(capacityMW)
	peakMW = gridcapacity.Finite(peakMW)
	if capacityMW <= 0 {
		return 0, false
	}
	return gridcapacity.Round1((capacityMW - peakMW) / capacityMW * 100), true
}

// CalculateReserve derives system load, reserve margin and health from system
// capacity and the peak snapshot. A nil snapshot or non-positive capacity yields
// an undefined state with HealthNoData.
func CalculateReserve(capacityMW float64, peak *gridcapacity.PeakDemandSnapshot) ReserveState {
	state := ReserveState{
		CapacityMW: gridcapacity.Round1(capacityMW),
		Health:     gridcapacity.HealthNoData,
	}
	if peak == nil {
		return state
	}
	if !peak.Date.IsZero() {
		date := peak.Date
		state.ReportDate = &date
	}
	load := gridcapacity.Finite(peak.EveningOnBarsMW)
	state.PeakDemandMW = gridcapacity.Round1(load)
	state.DayPeakMW = gridcapacity.Round1(peak.DayOnBarsMW)
	state.UnservedMW = gridcapacity.Round1(peak.EveningSuppressedMW)

	capacity := gridcapacity.Finite(capacityMW)
	if capacity <= 0 {
		return state
	}
	pct, _ := ReserveMarginPct(capacity, load)
	state.SystemLoadPct = gridcapacity.Round1(load / capacity * 100)
	state.ReserveMarginMW = gridcapacity.Round1(capacity - load)
	state.ReserveMarginPct = pct
	state.Defined = true
	state.Health = ClassifyHealth(pct)
	return state
}

// CalculatePlanningReserve returns nil when capacity or expected peak is missing.
func CalculatePlanningReserve(capacityMW, forcedOutageRate, expectedPeakMW float64) *PlanningReserve {
	capacityMW = gridcapacity.Finite(capacityMW)
	expectedPeakMW = gridcapacity.Finite(expectedPeakMW)
	if capacityMW <= 0 || expectedPeakMW <= 0 {
		return nil
	}
	if forcedOutageRate < 0 || forcedOutageRate >= 1 {
		forcedOutageRate = DefaultForcedOutageRate
	}
	deliverable := capacityMW * (1 - forcedOutageRate)
	margin := deliverable - expectedPeakMW
	return &PlanningReserve{
		CapacityMW:       gridcapacity.Round1(capacityMW),
		ForcedOutageRate: forcedOutageRate,
		DeliverableMW:    gridcapacity.Round1(deliverable),
		ExpectedPeakMW:   gridcapacity.Round1(expectedPeakMW),
		MarginMW:         gridcapacity.Round1(margin),
		MarginPct:        gridcapacity.Round1(margin / deliverable * 100),
	}
}
