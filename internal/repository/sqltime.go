package repository

import (
	"database/sql"
	"time"
)

// Zero times map to NULL columns: "never serviced" is the absence of a
// row value, not a sentinel date.

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func timeOrZero(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}
