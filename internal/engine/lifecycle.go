package engine

import (
	"time"

	"github.com/frioserv/maintenance-service/internal/models"
)

// Status is the lifecycle state of one serviced unit for one service
// category. Cleaning and repair are evaluated independently, so a unit
// has one status per category rather than a single global status.
type Status string

const (
	StatusScheduled     Status = "scheduled"
	StatusDue           Status = "due"
	StatusUpToDate      Status = "upToDate"
	StatusRepair        Status = "repair"
	StatusVoided        Status = "voided"
	StatusNeverServiced Status = "neverServiced"
)

// ResolveStatus derives the unit's lifecycle state from its due dates,
// repair history and the statuses of its linked orders. Precedence,
// first match wins:
//
//  1. scheduled — a pending or confirmed order for this category links
//     the unit; a booked visit supersedes any overdue reasoning.
//  2. voided — the most recent relevant order is voided and nothing
//     newer replaced it.
//  3. repair — the unit has repair history.
//  4. due / upToDate — earliest due date strictly before now means due.
//  5. neverServiced — the unit has no cleaning history at all.
func ResolveStatus(unit models.ServicedUnit, linkedOrders []models.Order, category models.ServiceCategory, now time.Time) Status {
	var latest *models.Order
	for i := range linkedOrders {
		o := &linkedOrders[i]
		if o.ServiceCategory != category || !o.LinksUnit(unit.ID) {
			continue
		}
		if o.Status == models.OrderPending || o.Status == models.OrderConfirmed {
			return StatusScheduled
		}
		if latest == nil || o.ScheduledDate.After(latest.ScheduledDate) {
			latest = o
		}
	}

	if latest != nil && latest.Status == models.OrderVoided {
		return StatusVoided
	}

	if !unit.LastRepairDate.IsZero() {
		return StatusRepair
	}

	if earliest, ok := earliestDue(unit); ok {
		if earliest.Before(now) {
			return StatusDue
		}
		return StatusUpToDate
	}

	return StatusNeverServiced
}

func earliestDue(unit models.ServicedUnit) (time.Time, bool) {
	var earliest time.Time
	for _, d := range []time.Time{unit.Due3Months, unit.Due4Months, unit.Due6Months} {
		if d.IsZero() {
			continue
		}
		if earliest.IsZero() || d.Before(earliest) {
			earliest = d
		}
	}
	return earliest, !earliest.IsZero()
}
