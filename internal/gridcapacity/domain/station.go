package gridcapacity

import "time"

// StationStatus is the derived operating state of a generating station.
type StationStatus string

const (
	StationOffline     StationStatus = "offline"
	StationCritical    StationStatus = "critical"
	StationDegraded    StationStatus = "degraded"
	StationOperational StationStatus = "operational"
)

// Station is a single generating-station reading from the daily report.
// Invariant: 0 <= AvailableCapacityMW <= DeratedCapacityMW.
type Station struct {
	Name                string  `json:"name"`
	DeratedCapacityMW   float64 `json:"derated_capacity_mw"`
	AvailableCapacityMW float64 `json:"available_capacity_mw"`
	UnitCount           int     `json:"unit_count"`
}

// SolarSite is a renewable site contributing to system capacity.
type SolarSite struct {
	Name        string  `json:"name"`
	CapacityMWp float64 `json:"capacity_mwp"`
}

// PeakDemandSnapshot is the peak demand reported for a single day.
type PeakDemandSnapshot struct {
	Date                time.Time `json:"date"`
	EveningOnBarsMW     float64   `json:"evening_on_bars_mw"`
	EveningSuppressedMW float64   `json:"evening_suppressed_mw"`
	DayOnBarsMW         float64   `json:"day_on_bars_mw"`
	DaySuppressedMW     float64   `json:"day_suppressed_mw"`
}

// HealthState is the overall reserve health of a grid.
type HealthState string

const (
	HealthGood     HealthState = "good"
	HealthWarning  HealthState = "warning"
	HealthCritical HealthState = "critical"
	// HealthNoData is reported when capacity is zero or missing.
	HealthNoData HealthState = "no_data"
)
