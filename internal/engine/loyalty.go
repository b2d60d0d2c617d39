package engine

import (
	"math"
	"time"

	"github.com/frioserv/maintenance-service/internal/models"
)

const (
	// ReferralBasePoints is earned by the referrer when a referred
	// client's order completes.
	ReferralBasePoints = 1
	// ReferralBulkBonusPoints is added when the completed order covers
	// BulkUnitThreshold units or more.
	ReferralBulkBonusPoints = 1
	BulkUnitThreshold       = 3
)

// AwardResult describes the credit a referrer earns from one completed
// order of a client they referred.
type AwardResult struct {
	ReferrerID string
	Points     int
	Awards     []models.LoyaltyAward
}

// AwardOnCompletion computes the referral credit for a completed
// order. The second return is false when nothing is owed: the client
// was not referred (or the referral was already consumed) or the order
// is not a completed one. Clearing ReferredBy after persisting the
// award is the caller's job; that cleared field is what makes a second
// invocation a no-op.
func AwardOnCompletion(order models.Order, referred models.Client, now time.Time) (AwardResult, bool) {
	if order.Status != models.OrderCompleted || referred.ReferredBy == "" {
		return AwardResult{}, false
	}

	points := ReferralBasePoints
	if order.UnitCount >= BulkUnitThreshold {
		points += ReferralBulkBonusPoints
	}

	awards := make([]models.LoyaltyAward, 0, points)
	for i := 0; i < points; i++ {
		awards = append(awards, models.LoyaltyAward{
			ClientID: referred.ReferredBy,
			Amount:   1,
			Status:   models.AwardActive,
			EarnedAt: now,
		})
	}

	return AwardResult{
		ReferrerID: referred.ReferredBy,
		Points:     points,
		Awards:     awards,
	}, true
}

// RedeemableUnits returns the units eligible for a zero-cost
// redemption: those whose undiscounted cleaning price equals the
// client's minimum-priced unit. Credit can never be redeemed against a
// more expensive unit.
func RedeemableUnits(rule models.PricingRule, clientUnits []models.ServicedUnit) ([]models.ServicedUnit, error) {
	if len(clientUnits) == 0 {
		return nil, nil
	}

	prices := make([]float64, len(clientUnits))
	minPrice := math.MaxFloat64
	for i, u := range clientUnits {
		price, err := PriceUnit(rule, u.Category, u.CapacityClass, models.ServiceCleaning)
		if err != nil {
			return nil, err
		}
		prices[i] = price
		if price < minPrice {
			minPrice = price
		}
	}

	var eligible []models.ServicedUnit
	for i, u := range clientUnits {
		if prices[i] == minPrice {
			eligible = append(eligible, u)
		}
	}
	return eligible, nil
}

// IsRedeemable reports whether the given unit is among the client's
// redeemable units.
func IsRedeemable(rule models.PricingRule, unit models.ServicedUnit, clientUnits []models.ServicedUnit) (bool, error) {
	eligible, err := RedeemableUnits(rule, clientUnits)
	if err != nil {
		return false, err
	}
	for _, u := range eligible {
		if u.ID == unit.ID {
			return true, nil
		}
	}
	return false, nil
}

// ValidateRedemption checks that the client can redeem loyalty credit
// against the given unit right now. Failures are validation errors
// surfaced to the caller; a redemption never silently proceeds.
func ValidateRedemption(rule models.PricingRule, unit models.ServicedUnit, clientUnits []models.ServicedUnit, client models.Client, now time.Time) error {
	if client.Points <= 0 {
		return NewValidationError("insufficient_points", "client %s has no loyalty points to redeem", client.ID)
	}
	if !client.PointsExpiry.IsZero() && client.PointsExpiry.Before(now) {
		return NewValidationError("points_expired", "loyalty points expired on %s", client.PointsExpiry.Format("2006-01-02"))
	}
	ok, err := IsRedeemable(rule, unit, clientUnits)
	if err != nil {
		return err
	}
	if !ok {
		return NewValidationError("unit_not_eligible", "unit %s is not the lowest-priced unit; credit cannot be redeemed against it", unit.ID)
	}
	return nil
}
