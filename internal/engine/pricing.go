package engine

import (
	"github.com/frioserv/maintenance-service/internal/models"
)

// Quote is the order-level pricing breakdown.
type Quote struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discount_percent"`
	DiscountAmount  float64 `json:"discount_amount"`
	Total           float64 `json:"total"`
}

// PriceUnit computes the price of one serviced unit under the given
// rule snapshot. Repair always prices at the flat repair price
// regardless of capacity. Other service categories price at the
// family base plus the shared surcharge when the capacity class is
// strictly above the family threshold.
func PriceUnit(rule models.PricingRule, category models.EquipmentCategory, capacityClass float64, service models.ServiceCategory) (float64, error) {
	if service == models.ServiceRepair {
		if rule.RepairPrice <= 0 {
			return 0, NewConfigurationError("repair_price_missing", "pricing rule has no repair price configured")
		}
		return rule.RepairPrice, nil
	}

	if capacityClass <= 0 {
		return 0, NewValidationError("invalid_capacity", "capacity class %.2f is not a positive value", capacityClass)
	}

	var base, threshold float64
	switch category {
	case models.CategorySplit:
		base, threshold = rule.SplitBasePrice, rule.SplitSurchargeOver
	case models.CategoryWindow:
		base, threshold = rule.WindowBasePrice, rule.WindowSurchargeOver
	default:
		return 0, NewConfigurationError("category_not_priced", "no price configured for equipment category %q", category)
	}
	if base <= 0 {
		return 0, NewConfigurationError("base_price_missing", "pricing rule has no base price for category %q", category)
	}

	price := base
	if threshold > 0 && capacityClass > threshold {
		price += rule.SurchargeAmount
	}
	return price, nil
}

// PriceOrder prices a set of units as one order. Repair orders never
// receive a discount. For other orders the discount is the larger of
// the standard and relationship percentages when the client is
// relationship-eligible, otherwise the standard percentage when
// positive. The total is floored at zero.
func PriceOrder(rule models.PricingRule, units []models.ServicedUnit, service models.ServiceCategory, client models.Client) (Quote, error) {
	if len(units) == 0 {
		return Quote{}, NewValidationError("no_units", "an order must cover at least one serviced unit")
	}

	var subtotal float64
	for _, u := range units {
		price, err := PriceUnit(rule, u.Category, u.CapacityClass, service)
		if err != nil {
			return Quote{}, err
		}
		subtotal += price
	}

	discountPercent := 0.0
	if service != models.ServiceRepair {
		discountPercent = selectDiscount(rule, client)
	}

	discountAmount := subtotal * discountPercent / 100
	total := subtotal - discountAmount
	if total < 0 {
		total = 0
	}

	return Quote{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		Total:           total,
	}, nil
}

// The two discounts are mutually exclusive: the larger one applies for
// relationship-eligible clients.
func selectDiscount(rule models.PricingRule, client models.Client) float64 {
	if client.RelationshipDiscountEligible && rule.RelationshipDiscountPercent > rule.StandardDiscountPercent {
		return rule.RelationshipDiscountPercent
	}
	if rule.StandardDiscountPercent > 0 {
		return rule.StandardDiscountPercent
	}
	return 0
}
