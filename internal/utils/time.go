package utils

import (
	"time"

	"github.com/keystonehq/keystone/internal/constants"
)

// LocalDate formats a moment as a calendar date in the machine's local
// timezone. Habit dates are always local, never UTC, so that a check-in
// just before midnight lands on the day the user experienced.
func LocalDate(t time.Time) string {
	return t.Local().Format(constants.DateFormat)
}

// Today returns today's local calendar date.
func Today() string {
	return LocalDate(time.Now())
}

// ParseDate parses a YYYY-MM-DD date string as midnight local time.
func ParseDate(dateStr string) (time.Time, error) {
	return time.ParseInLocation(constants.DateFormat, dateStr, time.Local)
}

// DaysBetween returns the whole calendar days from one date to a later one.
// Returns 0 when either date fails to parse or from is not earlier. The
// arithmetic runs in UTC so a DST transition between the two dates cannot
// shave an hour off and undercount the gap.
func DaysBetween(from, to string) int {
	a, err := time.Parse(constants.DateFormat, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(constants.DateFormat, to)
	if err != nil {
		return 0
	}
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PreviousDay returns the calendar date one day before the given date.
func PreviousDay(dateStr string) string {
	t, err := ParseDate(dateStr)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(constants.DateFormat)
}

// ValidDate reports whether the string is a well-formed calendar date.
func ValidDate(dateStr string) bool {
	_, err := ParseDate(dateStr)
	return err == nil
}
