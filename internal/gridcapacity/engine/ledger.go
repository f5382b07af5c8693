package engine

import (
	"github.com/shopspring/decimal"

	gridcapacity "ministry-dashboard/internal/gridcapacity/domain"
)

// RenewableInput carries renewable capacity either per site or pre-summed.
// Sites wins when it is non-nil.
type RenewableInput struct {
	Sites       []gridcapacity.SolarSite `json:"sites,omitempty"`
	AggregateMW *float64                 `json:"aggregate_mw,omitempty"`
}

// CapacityLedger merges fossil availability with renewable capacity.
type CapacityLedger struct {
	FossilAvailableMW     float64 `json:"fossil_available_mw"`
	TotalSolarMW          float64 `json:"total_solar_mw"`
	SolarSiteCount        int     `json:"solar_site_count"`
	TotalSystemCapacityMW float64 `json:"total_system_capacity_mw"`
	RenewableSharePct     float64 `json:"renewable_share_pct"`
	RenewableFromSites    bool    `json:"renewable_from_sites"`
}

// BuildCapacityLedger sums fossil and solar capacity, rounding only the totals.
func BuildCapacityLedger(fossil StationSummary, renewable RenewableInput) CapacityLedger {
	fossilSum := fossil.rawAvailable()

	solar := decimal.Zero
	ledger := CapacityLedger{}
	switch {
	case renewable.Sites != nil:
		ledger.RenewableFromSites = true
		for _, site := range renewable.Sites {
			capacity := gridcapacity.Finite(site.CapacityMWp)
			if capacity < 0 {
				continue
			}
			solar = solar.Add(decimal.NewFromFloat(capacity))
			ledger.SolarSiteCount++
		}
	case renewable.AggregateMW != nil:
		if v := gridcapacity.Finite(*renewable.AggregateMW); v > 0 {
			solar = decimal.NewFromFloat(v)
		}
	}

	total := fossilSum.Add(solar)
	ledger.FossilAvailableMW = gridcapacity.RoundDecimal(fossilSum, 1)
	ledger.TotalSolarMW = gridcapacity.RoundDecimal(solar, 1)
	ledger.TotalSystemCapacityMW = gridcapacity.RoundDecimal(total, 1)
	if total.IsPositive() {
		ledger.RenewableSharePct = gridcapacity.RoundDecimal(solar.Div(total).Mul(decimal.NewFromInt(100)), 1)
	}
	return ledger
}
