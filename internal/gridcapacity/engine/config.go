package engine

import gridcapacity "ministry-dashboard/internal/gridcapacity/domain"

// Classification boundaries. Reserve values are compared after rounding to one
// decimal so the displayed figure and its class always agree.
const (
	CriticalAvailabilityRatio = 0.5
	DefaultDegradedRatio      = 0.7

	HealthCriticalBelowPct = 10.0
	HealthWarningBelowPct  = 15.0

	ScenarioGoodAtPct    = 20.0
	ScenarioWarningAtPct = 15.0

	DefaultAggressiveMultiplier = 1.5
	DefaultForcedOutageRate     = 0.15
)

// DefaultHorizons are the projection horizons in months.
var DefaultHorizons = []int{6, 12, 24}

// Features toggles optional behaviour of the engine.
type Features struct {
	// WithMultivariateForecast enables the conservative/aggressive scenario table.
	WithMultivariateForecast bool `yaml:"with_multivariate_forecast" json:"with_multivariate_forecast"`
	// EstimateBreachDates fills breach dates the scenario service omitted using
	// the linear model. Estimated dates are flagged as such.
	EstimateBreachDates bool `yaml:"estimate_breach_dates" json:"estimate_breach_dates"`
	// ReserveAlerts adds an alert when reserve health is warning or critical.
	ReserveAlerts bool `yaml:"reserve_alerts" json:"reserve_alerts"`
}

// Config tunes the engine. Zero values are replaced with defaults by New.
type Config struct {
	DegradedRatio        float64  `json:"degraded_ratio"`
	Horizons             []int    `json:"horizons"`
	AggressiveMultiplier float64  `json:"aggressive_multiplier"`
	ForcedOutageRate     float64  `json:"forced_outage_rate"`
	Features             Features `json:"features"`
}

// DefaultConfig returns the canonical configuration.
func DefaultConfig() Config {
	return Config{
		DegradedRatio:        DefaultDegradedRatio,
		Horizons:             append([]int(nil), DefaultHorizons...),
		AggressiveMultiplier: DefaultAggressiveMultiplier,
		ForcedOutageRate:     DefaultForcedOutageRate,
		Features:             Features{WithMultivariateForecast: true},
	}
}

// Validate checks that configured values are usable.
func (c Config) Validate() error {
	if c.DegradedRatio != 0 && (c.DegradedRatio < CriticalAvailabilityRatio || c.DegradedRatio > 1) {
		return gridcapacity.ErrInvalidThreshold
	}
	if c.ForcedOutageRate < 0 || c.ForcedOutageRate >= 1 {
		return gridcapacity.ErrInvalidThreshold
	}
	if c.AggressiveMultiplier < 0 {
		return gridcapacity.ErrInvalidThreshold
	}
	for _, h := range c.Horizons {
		if h <= 0 {
			return gridcapacity.ErrInvalidHorizon
		}
	}
	return nil
}

func (c Config) normalized() Config {
	if c.DegradedRatio < CriticalAvailabilityRatio || c.DegradedRatio > 1 {
		c.DegradedRatio = DefaultDegradedRatio
	}
	horizons := make([]int, 0, len(c.Horizons))
	for _, h := range c.Horizons {
		if h > 0 {
			horizons = append(horizons, h)
		}
	}
	if len(horizons) == 0 {
		horizons = append(horizons, DefaultHorizons...)
	}
	c.Horizons = horizons
	if c.AggressiveMultiplier <= 0 {
		c.AggressiveMultiplier = DefaultAggressiveMultiplier
	}
	if c.ForcedOutageRate <= 0 || c.ForcedOutageRate >= 1 {
		c.ForcedOutageRate = DefaultForcedOutageRate
	}
	return c
}
