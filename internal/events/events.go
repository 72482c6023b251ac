// Package events turns reconstructed text lines into travel events.
package events

import (
	"slices"

	"github.com/dgallion1/i94days/internal/record"
)

const (
	separator   = '-'
	arrivalMark = 'A'
	dateBefore  = 4 // runes of the date before the first separator ("2024")
	dateAfter   = 6 // runes from the separator on ("-01-05")
)

// Extract scans lines for dated rows and returns their events oldest first.
// The travel history lists the most recent row first, so the extraction order
// is reversed.
func Extract(lines []string) []record.Event {
	out := make([]record.Event, 0, len(lines))
	for _, line := range lines {
		if ev, ok := Parse(line); ok {
			out = append(out, ev)
		}
	}
	slices.Reverse(out)
	return out
}

// Parse extracts a single event from line. It reports false when the line has
// no separator. Date content is not validated.
func Parse(line string) (record.Event, bool) {
	rs := []rune(line)
	idx := slices.Index(rs, separator)
	if idx < 0 {
		return record.Event{}, false
	}

	start := max(idx-dateBefore, 0)
	end := min(idx+dateAfter, len(rs))
	ev := record.Event{
		Date: string(rs[start:end]),
		Type: record.Departure,
	}
	if end < len(rs) && rs[end] == arrivalMark {
		ev.Type = record.Arrival
	}

	// The row spells the type out ("Arrival"/"Departure") right after the
	// date; the port follows it.
	if loc := end + len(ev.Type); loc < len(rs) {
		ev.Location = string(rs[loc:])
	}
	return ev, true
}
