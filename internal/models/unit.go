package models

import "time"

type EquipmentCategory string

const (
	// CategorySplit covers the split / U-shape family.
	CategorySplit EquipmentCategory = "split"
	// CategoryWindow covers the window-mounted family.
	CategoryWindow EquipmentCategory = "window"
)

// ServicedUnit is a single piece of client equipment on a recurring
// maintenance cycle. The three due dates are derived from
// LastServiceDate; a zero time means "never serviced yet".
type ServicedUnit struct {
	ID            string
	ClientID      string
	LocationID    string
	Brand         string
	Category      EquipmentCategory
	CapacityClass float64 // capacity units, e.g. 1.0, 1.5, 2.5

	LastServiceDate time.Time
	LastRepairDate  time.Time
	Due3Months      time.Time
	Due4Months      time.Time
	Due6Months      time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasSchedule reports whether the unit has completed at least one
// cleaning service and therefore carries valid due dates.
func (u ServicedUnit) HasSchedule() bool {
	return !u.LastServiceDate.IsZero()
}
