// Package presence sums trip days per calendar year and applies the
// three-year weighting of the substantial presence test.
package presence

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/i94days/internal/record"
	"github.com/dgallion1/i94days/internal/trips"
)

// Thresholds of the substantial presence test.
const (
	MinCurrentYearDays = 31
	MinWeightedDays    = 183
)

// YearlyTotals sums trip durations by the year of the arrival date. Trips
// without a duration are skipped, so a year only appears once it has at least
// one complete, dated trip.
func YearlyTotals(ts []record.Trip) map[int]int {
	out := make(map[int]int)
	for _, t := range ts {
		if t.Duration == nil || t.Arrival == nil {
			continue
		}
		year, ok := arrivalYear(t.Arrival.Date)
		if !ok {
			continue
		}
		out[year] += *t.Duration
	}
	return out
}

func arrivalYear(date string) (int, bool) {
	if d, ok := trips.ParseDate(date); ok {
		return d.Year(), true
	}
	lead, _, _ := strings.Cut(date, "-")
	y, err := strconv.Atoi(lead)
	return y, err == nil
}

// Days is a day count that may be unknown. Unknown is distinct from zero: it
// means no trip was recorded for the year at all.
type Days struct {
	Value int  `json:"value"`
	Valid bool `json:"valid"`
}

func (d Days) String() string {
	if !d.Valid {
		return "undefined"
	}
	return strconv.Itoa(d.Value)
}

// YearWeight is one weighted year.
type YearWeight struct {
	Year     int     `json:"year"`
	Raw      Days    `json:"raw"`
	Factor   float64 `json:"factor"`
	Weighted Days    `json:"weighted"`
}

// Weighted holds the three weighted years, most recent first, and their sum.
type Weighted struct {
	Years [3]YearWeight `json:"years"`
	Total Days          `json:"total"`
}

// divisors per year offset: 1, 1/3, 1/6.
var divisors = [3]int{1, 3, 6}

// Weigh applies the weighting to totals for the year of ref and the two years
// before it. A year missing from totals stays unknown and makes the total unknown.
func Weigh(totals map[int]int, ref time.Time) Weighted {
	var w Weighted
	current := ref.Year()
	w.Total = Days{Valid: true}
	for i, div := range divisors {
		year := current - i
		yw := YearWeight{Year: year, Factor: 1 / float64(div)}
		if raw, ok := totals[year]; ok {
			yw.Raw = Days{Value: raw, Valid: true}
			yw.Weighted = Days{Value: ceilDiv(raw, div), Valid: true}
		}
		w.Years[i] = yw

		if yw.Weighted.Valid && w.Total.Valid {
			w.Total.Value += yw.Weighted.Value
		} else {
			w.Total = Days{}
		}
	}
	return w
}

// ceilDiv rounds n/d up, including for negative n.
func ceilDiv(n, d int) int {
	return int(math.Ceil(float64(n) / float64(d)))
}

// Missing returns the weighted years that have no recorded trips.
func (w Weighted) Missing() []int {
	var out []int
	for _, y := range w.Years {
		if !y.Raw.Valid {
			out = append(out, y.Year)
		}
	}
	return out
}

// Verdict is the outcome of the substantial presence test.
type Verdict string

const (
	VerdictMet     Verdict = "met"
	VerdictNotMet  Verdict = "not_met"
	VerdictUnknown Verdict = "unknown"
)

// Test evaluates the substantial presence thresholds. It is unknown whenever
// the current year or the weighted total is unknown.
func (w Weighted) Test() Verdict {
	current := w.Years[0].Weighted
	if !current.Valid || !w.Total.Valid {
		return VerdictUnknown
	}
	if current.Value >= MinCurrentYearDays && w.Total.Value >= MinWeightedDays {
		return VerdictMet
	}
	return VerdictNotMet
}
