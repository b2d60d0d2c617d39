package models

import "time"

type ServiceCategory string

const (
	ServiceCleaning    ServiceCategory = "cleaning"
	ServiceRepair      ServiceCategory = "repair"
	ServiceMaintenance ServiceCategory = "maintenance"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderVoided    OrderStatus = "voided"
	// OrderRedeemed marks a zero-cost loyalty redemption visit. It is a
	// terminal status distinct from completed so redemptions stay out of
	// revenue and referral calculations.
	OrderRedeemed OrderStatus = "redeemed"
)

// Order is one booked service visit (appointment) covering one or more
// serviced units.
type Order struct {
	ID              string
	ClientID        string
	LocationID      string
	ServiceCategory ServiceCategory
	ScheduledDate   time.Time
	Status          OrderStatus
	Amount          float64
	UnitCount       int
	DiscountPercent float64
	DiscountAmount  float64
	UnitIDs         []string // links to serviced units, immutable after creation

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanTransitionTo enforces forward-only status movement: pending may
// confirm, pending/confirmed may complete or void, and nothing leaves a
// terminal status.
func (o Order) CanTransitionTo(next OrderStatus) bool {
	switch next {
	case OrderConfirmed:
		return o.Status == OrderPending
	case OrderCompleted, OrderVoided:
		return o.Status == OrderPending || o.Status == OrderConfirmed
	default:
		return false
	}
}

// LinksUnit reports whether the order covers the given unit.
func (o Order) LinksUnit(unitID string) bool {
	for _, id := range o.UnitIDs {
		if id == unitID {
			return true
		}
	}
	return false
}
