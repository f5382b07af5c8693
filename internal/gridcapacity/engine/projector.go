package engine

import gridcapacity "ministry-dashboard/internal/gridcapacity/domain"

// ProjectionSource identifies where a projected value came from.
type ProjectionSource string

const (
	SourceAuthoritative ProjectionSource = "authoritative"
	SourceLinear        ProjectionSource = "linear"
)

// ProjectionPoint is the projected peak at one horizon.
type ProjectionPoint struct {
	HorizonMonths    int              `json:"horizon_months"`
	PeakMW           float64          `json:"peak_mw"`
	ConfidenceLowMW  *float64         `json:"confidence_low_mw,omitempty"`
	ConfidenceHighMW *float64         `json:"confidence_high_mw,omitempty"`
	Source           ProjectionSource `json:"source"`
}

// ProjectionSeries is the set of projections for one grid.
type ProjectionSeries struct {
	CurrentMW          float64           `json:"current_mw"`
	GrowthRatePerMonth float64           `json:"growth_rate_per_month"`
	Points             []ProjectionPoint `json:"points"`
	// UsingFallback is true iff the authoritative series was empty.
	UsingFallback bool `json:"using_fallback"`
}

// At returns the projection for a horizon.
func (s ProjectionSeries) At(horizon int) (ProjectionPoint, bool) {
	for _, point := range s.Points {
		if point.HorizonMonths == horizon {
			return point, true
		}
	}
	return ProjectionPoint{}, false
}

// ProjectDemand projects peak demand at each horizon. The authoritative entry at
// MonthIndex horizon-1 is used verbatim when it carries a usable peak; otherwise
// the value is current + rate*horizon.
func ProjectDemand(series []gridcapacity.AuthoritativeForecastPoint, currentMW, ratePerMonth float64, horizons []int) ProjectionSeries {
	currentMW = gridcapacity.Finite(currentMW)
	ratePerMonth = gridcapacity.Finite(ratePerMonth)

	byIndex := make(map[int]gridcapacity.AuthoritativeForecastPoint, len(series))
	for _, point := range series {
		if _, seen := byIndex[point.MonthIndex]; seen {
			continue
		}
		byIndex[point.MonthIndex] = point
	}

	result := ProjectionSeries{
		CurrentMW:          gridcapacity.Round1(currentMW),
		GrowthRatePerMonth: gridcapacity.RoundTo(ratePerMonth, 3),
		Points:             make([]ProjectionPoint, 0, len(horizons)),
		UsingFallback:      len(series) == 0,
	}
	for _, horizon := range horizons {
		if horizon <= 0 {
			continue
		}
		if point, ok := byIndex[horizon-1]; ok && usablePeak(point.ProjectedPeakMW) {
			projected := ProjectionPoint{
				HorizonMonths: horizon,
				PeakMW:        point.ProjectedPeakMW,
				Source:        SourceAuthoritative,
			}
			if usablePeak(point.ConfidenceLowMW) && usablePeak(point.ConfidenceHighMW) {
				low, high := point.ConfidenceLowMW, point.ConfidenceHighMW
				projected.ConfidenceLowMW = &low
				projected.ConfidenceHighMW = &high
			}
			result.Points = append(result.Points, projected)
			continue
		}
		result.Points = append(result.Points, ProjectionPoint{
			HorizonMonths: horizon,
			PeakMW:        gridcapacity.Round1(currentMW + ratePerMonth*float64(horizon)),
			Source:        SourceLinear,
		})
	}
	return result
}

func usablePeak(value float64) bool {
	v, ok := gridcapacity.ParseNumber(value)
	return ok && v > 0
}
