package agenda

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always returns the same instant. Handy for tests and for
// rendering an agenda "as of" a date.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// TargetDay resolves a day selector against now:
//
//   - "today" (also empty or unknown): now's date
//   - "tomorrow": the next calendar day
//   - "YYYY-MM-DD": that date
//
// The result is midnight in now's location.
func TargetDay(selector string, now time.Time) time.Time {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch s := strings.ToLower(strings.TrimSpace(selector)); s {
	case "tomorrow":
		return today.AddDate(0, 0, 1)
	case "", "today":
		return today
	default:
		if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
			return d
		}
		return today
	}
}

// FormatDay renders a target day as YYYY-MM-DD.
func FormatDay(day time.Time) string {
	return day.Format(dateLayout)
}
