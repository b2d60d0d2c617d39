package engine

import (
	"time"

	"github.com/frioserv/maintenance-service/internal/models"
)

// DueDates are the three recurring cleaning due dates derived from one
// completed service date.
type DueDates struct {
	Due3 time.Time
	Due4 time.Time
	Due6 time.Time
}

// ComputeDueDates returns serviceDate plus 3, 4 and 6 calendar months.
// The day of month is preserved where possible and clamped to the last
// day of the target month otherwise (Nov 30 + 3 months = Feb 28/29).
// A zero serviceDate yields zero due dates: the unit has never been
// serviced and callers treat unset dates as "not yet due".
func ComputeDueDates(serviceDate time.Time) DueDates {
	if serviceDate.IsZero() {
		return DueDates{}
	}
	return DueDates{
		Due3: addMonthsClamped(serviceDate, 3),
		Due4: addMonthsClamped(serviceDate, 4),
		Due6: addMonthsClamped(serviceDate, 6),
	}
}

// ApplyCompletion mutates the unit's schedule fields for a completed
// order. Cleaning and maintenance visits reset LastServiceDate and
// recompute all three due dates; repair visits only record
// LastRepairDate and leave the cleaning schedule untouched.
func ApplyCompletion(unit *models.ServicedUnit, service models.ServiceCategory, completedAt time.Time) {
	if unit == nil || completedAt.IsZero() {
		return
	}
	if service == models.ServiceRepair {
		unit.LastRepairDate = completedAt
		return
	}
	unit.LastServiceDate = completedAt
	due := ComputeDueDates(completedAt)
	unit.Due3Months = due.Due3
	unit.Due4Months = due.Due4
	unit.Due6Months = due.Due6
}

// addMonthsClamped avoids time.AddDate's overflow normalization: the
// result stays in the target month, clamped to its last day.
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	firstOfTarget := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	hour, min, sec := t.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}
