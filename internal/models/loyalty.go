package models

import "time"

type AwardStatus string

const (
	AwardActive   AwardStatus = "active"
	AwardRedeemed AwardStatus = "redeemed"
)

// LoyaltyAward is one unit of earned referral credit. Awards are
// created when a referred client's order completes and flipped to
// redeemed when the referrer cashes in a free service.
type LoyaltyAward struct {
	ID       string
	ClientID string // the referrer who earned the credit
	Amount   int
	Status   AwardStatus
	EarnedAt time.Time
	Expiry   time.Time // zero means no expiry
}
