package domain

import (
	"fmt"
	"time"
)

const ShiftsPerDay = 3

// Time bucket of the planning horizon: a day offset and one of three shifts.
// Shift 1 covers 08:00-16:00, shift 2 16:00-24:00 and shift 3 00:00-08:00.
type Period struct {
	Day   int
	Shift int
}

// Index returns the 1-based sequential period number (day*3 + shift).
func (p Period) Index() int {
	if p.Day <= 0 || p.Shift <= 0 {
		return 0
	}
	return (p.Day-1)*ShiftsPerDay + p.Shift
}

func (p Period) String() string {
	return fmt.Sprintf("d%d/s%d", p.Day, p.Shift)
}

// PeriodFromIndex is the inverse of Period.Index.
func PeriodFromIndex(index int) Period {
	if index <= 0 {
		return Period{}
	}
	return Period{
		Day:   (index-1)/ShiftsPerDay + 1,
		Shift: (index-1)%ShiftsPerDay + 1,
	}
}

// ShiftForHour maps a wall-clock hour to its shift number.
func ShiftForHour(hour int) int {
	switch {
	case hour >= 8 && hour < 16:
		return 1
	case hour >= 16 && hour < 24:
		return 2
	default:
		return 3
	}
}

// PeriodFor buckets ts relative to the calendar day of windowStart.
// The night shift (00:00-08:00) belongs to the calendar day it falls on.
func PeriodFor(windowStart, ts time.Time) Period {
	ts = ts.In(windowStart.Location())
	startDay := time.Date(windowStart.Year(), windowStart.Month(), windowStart.Day(), 0, 0, 0, 0, windowStart.Location())
	tsDay := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())

	days := int(tsDay.Sub(startDay).Hours() / 24)
	return Period{Day: days + 1, Shift: ShiftForHour(ts.Hour())}
}
