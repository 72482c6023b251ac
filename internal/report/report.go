// Package report runs a travel history document through every stage and
// renders the result.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/i94days/internal/events"
	"github.com/dgallion1/i94days/internal/lines"
	"github.com/dgallion1/i94days/internal/presence"
	"github.com/dgallion1/i94days/internal/record"
	"github.com/dgallion1/i94days/internal/trips"
)

// Report is the computed outcome for one document.
type Report struct {
	Filename    string            `json:"filename"`
	AsOf        time.Time         `json:"as_of"`
	Lines       int               `json:"lines"`
	Events      []record.Event    `json:"events"`
	Trips       []record.Trip     `json:"trips"`
	OpenArrival *record.Stop      `json:"open_arrival,omitempty"`
	Yearly      map[int]int       `json:"yearly"`
	Weighted    presence.Weighted `json:"weighted"`
	Verdict     presence.Verdict  `json:"verdict"`
	Warnings    []string          `json:"warnings"`
}

// Build reads the document from r with src and computes the report as of the
// given reference date. A source error aborts the whole document.
func Build(ctx context.Context, src lines.Source, r io.Reader, filename string, asOf time.Time) (*Report, error) {
	ls, err := lines.Collect(ctx, src, r, filename)
	if err != nil {
		return nil, err
	}
	return FromLines(filename, ls, asOf), nil
}

// FromLines computes the report from already reconstructed lines.
func FromLines(filename string, ls []string, asOf time.Time) *Report {
	evs := events.Extract(ls)

	p := trips.NewPairer()
	for _, ev := range evs {
		p.Feed(ev)
	}
	return Assemble(filename, len(ls), evs, p, asOf)
}

// Assemble aggregates the trips a pairer has produced into yearly and
// weighted totals.
func Assemble(filename string, lineCount int, evs []record.Event, p *trips.Pairer, asOf time.Time) *Report {
	ts := p.Trips()
	yearly := presence.YearlyTotals(ts)
	weighted := presence.Weigh(yearly, asOf)

	rep := &Report{
		Filename:    filename,
		AsOf:        asOf,
		Lines:       lineCount,
		Events:      evs,
		Trips:       ts,
		OpenArrival: p.Pending(),
		Yearly:      yearly,
		Weighted:    weighted,
		Verdict:     weighted.Test(),
		Warnings:    []string{},
	}
	rep.Warnings = warnings(rep)
	return rep
}

func warnings(rep *Report) []string {
	out := []string{}
	if len(rep.Events) == 0 {
		out = append(out, "no travel events found")
	}
	for _, t := range rep.Trips {
		switch {
		case t.Arrival != nil && t.Departure == nil:
			out = append(out, fmt.Sprintf("arrival %s at %s has no departure", t.Arrival.Date, t.Arrival.Location))
		case t.Arrival == nil && t.Departure != nil:
			out = append(out, fmt.Sprintf("departure %s from %s has no arrival", t.Departure.Date, t.Departure.Location))
		case t.Duration == nil:
			out = append(out, fmt.Sprintf("trip %s to %s has unreadable dates", t.Arrival.Date, t.Departure.Date))
		case *t.Duration < 0:
			out = append(out, fmt.Sprintf("trip %s to %s has a negative duration (%d days)", t.Arrival.Date, t.Departure.Date, *t.Duration))
		}
	}
	if rep.OpenArrival != nil {
		out = append(out, fmt.Sprintf("arrival %s at %s is still open and not counted", rep.OpenArrival.Date, rep.OpenArrival.Location))
	}
	for _, year := range rep.Weighted.Missing() {
		out = append(out, fmt.Sprintf("no trips recorded for %d; weighted total is undefined", year))
	}
	return out
}
