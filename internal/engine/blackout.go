package engine

import (
	"time"

	"github.com/frioserv/maintenance-service/internal/models"
)

// IsBlocked tests a candidate date against the configured blackout
// ranges at calendar-day precision. Bounds are inclusive. When ranges
// overlap, the first match in iteration order wins so the caller can
// show a single reason.
func IsBlocked(candidate time.Time, ranges []models.BlackoutRange) *models.BlackoutRange {
	day := dateOnly(candidate)
	for i := range ranges {
		from := dateOnly(ranges[i].FromDate)
		to := dateOnly(ranges[i].ToDate)
		if !day.Before(from) && !day.After(to) {
			return &ranges[i]
		}
	}
	return nil
}

// ValidateBookingDate gates a proposed service date. Same-day and past
// dates are a hard validation error distinct from a blackout hit. The
// same check is used for initial booking, rescheduling and redemption.
func ValidateBookingDate(candidate, now time.Time, ranges []models.BlackoutRange) error {
	if candidate.IsZero() {
		return NewValidationError("date_required", "a service date is required")
	}
	if !dateOnly(candidate).After(dateOnly(now)) {
		return NewValidationError("date_not_in_future", "service date %s must be after today", candidate.Format("2006-01-02"))
	}
	if r := IsBlocked(candidate, ranges); r != nil {
		return NewValidationError("date_blacked_out", "service date %s falls in blackout %q", candidate.Format("2006-01-02"), r.Label)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
