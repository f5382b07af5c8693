package engine

import (
	"github.com/shopspring/decimal"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// StationView is a station reading enriched with its derived availability.
type StationView struct {
	gridcapacity.Station
	AvailabilityPct float64                    `json:"availability_pct"`
	Status          gridcapacity.StationStatus `json:"status"`
}

// StationSummary is the fleet view produced by AggregateStations.
type StationSummary struct {
	Stations         []StationView `json:"stations"`
	TotalDeratedMW   float64       `json:"total_derated_mw"`
	TotalAvailableMW float64       `json:"total_available_mw"`
	TotalUnits       int           `json:"total_units"`
	AvailabilityPct  float64       `json:"availability_pct"`
	Operational      []StationView `json:"operational"`
	Degraded         []StationView `json:"degraded"`
	Critical         []StationView `json:"critical"`
	Offline          []StationView `json:"offline"`

	// unrounded sum, carried into the capacity ledger
	availableSum decimal.Decimal
	hasSum       bool
}

// ClassifyStation derives the status of a station from its availability ratio.
// Checks run in a fixed order: offline, critical, degraded, operational.
func ClassifyStation(station gridcapacity.Station, degradedRatio float64) gridcapacity.StationStatus {
	available := gridcapacity.Finite(station.AvailableCapacityMW)
	derated := gridcapacity.Finite(station.DeratedCapacityMW)
	if available <= 0 {
		return gridcapacity.StationOffline
	}
	ratio := 0.0
	if derated > 0 {
		ratio = available / derated
	}
	if ratio < CriticalAvailabilityRatio {
		return gridcapacity.StationCritical
	}
	if ratio < degradedRatio {
		return gridcapacity.StationDegraded
	}
	return gridcapacity.StationOperational
}

// AvailabilityPct returns available/derated as a percentage, 0 when derated is not positive.
func AvailabilityPct(available, derated float64) float64 {
	available = gridcapacity.Finite(available)
	derated = gridcapacity.Finite(derated)
	if derated <= 0 {
		return 0
	}
	return available / derated * 100
}

// AggregateStations classifies each station and totals the fleet.
// Raw station values are never modified.
func AggregateStations(stations []gridcapacity.Station, degradedRatio float64) StationSummary {
	if degradedRatio < CriticalAvailabilityRatio || degradedRatio > 1 {
		degradedRatio = DefaultDegradedRatio
	}

	summary := StationSummary{
		Stations:    make([]StationView, 0, len(stations)),
		Operational: []StationView{},
		Degraded:    []StationView{},
		Critical:    []StationView{},
		Offline:     []StationView{},
	}
	derated := decimal.Zero
	available := decimal.Zero
	for _, station := range stations {
		view := StationView{
			Station:         station,
			AvailabilityPct: gridcapacity.Round1(AvailabilityPct(station.AvailableCapacityMW, station.DeratedCapacityMW)),
			Status:          ClassifyStation(station, degradedRatio),
		}
		summary.Stations = append(summary.Stations, view)

		derated = derated.Add(decimal.NewFromFloat(gridcapacity.Finite(station.DeratedCapacityMW)))
		available = available.Add(decimal.NewFromFloat(gridcapacity.Finite(station.AvailableCapacityMW)))
		if station.UnitCount > 0 {
			summary.TotalUnits += station.UnitCount
		}

		switch view.Status {
		case gridcapacity.StationOffline:
			summary.Offline = append(summary.Offline, view)
		case gridcapacity.StationCritical:
			summary.Critical = append(summary.Critical, view)
		case gridcapacity.StationDegraded:
			summary.Degraded = append(summary.Degraded, view)
		default:
			summary.Operational = append(summary.Operational, view)
		}
	}

	summary.TotalDeratedMW = gridcapacity.RoundDecimal(derated, 1)
	summary.TotalAvailableMW = gridcapacity.RoundDecimal(available, 1)
	if derated.IsPositive() {
		summary.AvailabilityPct = gridcapacity.RoundDecimal(available.Div(derated).Mul(decimal.NewFromInt(100)), 1)
	}
	summary.availableSum = available
	summary.hasSum = true
	return summary
}

func (s StationSummary) rawAvailable() decimal.Decimal {
	if s.hasSum {
		return s.availableSum
	}
	return decimal.NewFromFloat(gridcapacity.Finite(s.TotalAvailableMW))
}
