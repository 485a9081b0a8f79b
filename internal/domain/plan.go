package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date key format (YYYYMMDD).
const DateLayout = "20060102"

// Plan is a piece of application-defined content owned by one calendar.
type Plan struct {
	ID      uint32
	Content string
}

// DatePlans is the ordered list of plans filed under one date.
type DatePlans struct {
	Date  string
	Plans []Plan
}

// CalendarSnapshot is a point-in-time copy of one user's calendar.
type CalendarSnapshot struct {
	UserID uint32
	Plans  []Plan
	Dates  map[string][]uint32
}

// Snapshot is a point-in-time copy of every account and calendar.
type Snapshot struct {
	TakenAt   time.Time
	Users     []User
	Calendars []CalendarSnapshot
}

// ValidateDate checks that date is an eight digit YYYYMMDD string naming a real day.
func ValidateDate(date string) error {
	if len(date) != len(DateLayout) {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	for i := 0; i < len(date); i++ {
		if date[i] < '0' || date[i] > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return nil
}
