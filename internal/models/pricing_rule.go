package models

import "time"

// PricingRule is the admin-configured price table, read as a
// point-in-time snapshot per calculation. Past orders are never
// recomputed when the rule changes.
//
// Each equipment family has its own base price and its own capacity
// threshold above which the shared surcharge applies. The thresholds
// are part of the rule so there is exactly one canonical value per
// family.
type PricingRule struct {
	ID int

	SplitBasePrice      float64
	WindowBasePrice     float64
	SplitSurchargeOver  float64 // capacity units; strictly above adds the surcharge
	WindowSurchargeOver float64
	SurchargeAmount     float64

	StandardDiscountPercent     float64
	RelationshipDiscountPercent float64

	RepairPrice float64

	UpdatedAt time.Time
}

// DefaultPricingRule returns the seed rule used when no row is
// configured yet. Surcharge kicks in strictly above 2.0 capacity units
// for the split family and above 1.5 for the window family.
func DefaultPricingRule() PricingRule {
	return PricingRule{
		SplitBasePrice:              500,
		WindowBasePrice:             400,
		SplitSurchargeOver:          2.0,
		WindowSurchargeOver:         1.5,
		SurchargeAmount:             150,
		StandardDiscountPercent:     0,
		RelationshipDiscountPercent: 0,
		RepairPrice:                 300,
	}
}
