package models

import "time"

// BlackoutRange is an admin-configured interval during which no new
// service may be scheduled. Bounds are inclusive and compared at
// calendar-day precision.
type BlackoutRange struct {
	ID       int
	Label    string
	FromDate time.Time
	ToDate   time.Time
	Reason   string

	CreatedAt time.Time
}
