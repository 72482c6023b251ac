package trips

import (
	"time"
)

// Layouts accepted for event dates, tried in order. The travel history export
// uses ISO dates.
var Layouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"2-Jan-2006",
	"01/02/2006",
}

// ParseDate parses an event date using the first layout that matches.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Today returns the UTC calendar date of now at midnight.
func Today(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns to minus from in whole calendar days. Negative results
// are returned as-is. It reports false if either date cannot be parsed.
func DaysBetween(from, to string) (int, bool) {
	a, ok := ParseDate(from)
	if !ok {
		return 0, false
	}
	b, ok := ParseDate(to)
	if !ok {
		return 0, false
	}
	return int(b.Sub(a).Hours() / 24), true
}
