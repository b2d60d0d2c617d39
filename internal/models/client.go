package models

import "time"

// Client owns serviced units and carries the loyalty state used by the
// referral program. ReferredBy is consumed exactly once: it is cleared
// when the referral is rewarded.
type Client struct {
	ID                           string
	Name                         string
	Points                       int
	PointsExpiry                 time.Time
	RelationshipDiscountEligible bool
	ReferredBy                   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
