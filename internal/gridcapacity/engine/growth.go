package engine

import (
	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// MinimumGrowthRate replaces a non-positive configured default so the
// estimated rate is always positive.
const MinimumGrowthRate = 0.01

// GrowthEstimate is the monthly growth rate derived from a KPI series.
type GrowthEstimate struct {
	Metric       string  `json:"metric"`
	RatePerMonth float64 `json:"rate_per_month"`
	UsedDefault  bool    `json:"used_default"`
	ValidPoints  int     `json:"valid_points"`
	FirstValid   float64 `json:"first_valid"`
	LastValid    float64 `json:"last_valid"`
}

// EstimateGrowthRate returns (last-first)/count over the present, positive
// values of metric. With fewer than two valid points, or a rate that is not
// positive, defaultRate is returned instead. Demand decline is never modelled.
// The series is read in the order given, oldest month first.
func EstimateGrowthRate(series []gridcapacity.KpiTrendPoint, metric string, defaultRate float64) GrowthEstimate {
	defaultRate = gridcapacity.Finite(defaultRate)
	if defaultRate <= 0 {
		defaultRate = MinimumGrowthRate
	}

	valid := make([]float64, 0, len(series))
	for _, point := range series {
		value, ok := point.Value(metric)
		if !ok {
			continue
		}
		value, ok = gridcapacity.ParseNumber(value)
		if !ok || value <= 0 {
			continue
		}
		valid = append(valid, value)
	}

	estimate := GrowthEstimate{
		Metric:       metric,
		RatePerMonth: defaultRate,
		UsedDefault:  true,
		ValidPoints:  len(valid),
	}
	if len(valid) > 0 {
		estimate.FirstValid = valid[0]
		estimate.LastValid = valid[len(valid)-1]
	}
	if len(valid) < 2 {
		return estimate
	}

	rate := (estimate.LastValid - estimate.FirstValid) / float64(len(valid))
	if rate <= 0 {
		return estimate
	}
	estimate.RatePerMonth = rate
	estimate.UsedDefault = false
	return estimate
}
