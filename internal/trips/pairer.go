// Package trips pairs chronological travel events into trips and computes
// their length in days.
package trips

import (
	"github.com/dgallion1/i94days/internal/record"
)

// State is the pairer's position in the arrival/departure cycle.
type State int

const (
	// AwaitingArrival holds nothing; the next event opens a new trip.
	AwaitingArrival State = iota
	// HasArrival holds an arrival waiting for its departure.
	HasArrival
)

func (s State) String() string {
	switch s {
	case AwaitingArrival:
		return "awaiting_arrival"
	case HasArrival:
		return "has_arrival"
	default:
		return "unknown"
	}
}

// Pairer groups events into trips. Events must be fed oldest first.
type Pairer struct {
	state   State
	arrival *record.Stop
	trips   []record.Trip
}

// NewPairer returns a pairer awaiting its first arrival.
func NewPairer() *Pairer {
	return &Pairer{state: AwaitingArrival}
}

// State returns the current state.
func (p *Pairer) State() State {
	return p.state
}

// Feed applies a single event.
//
// An arrival while another arrival is pending finalizes the pending one as an
// incomplete trip. A departure always closes the current trip, with or without
// an arrival.
func (p *Pairer) Feed(ev record.Event) {
	stop := &record.Stop{Date: ev.Date, Location: ev.Location}
	switch ev.Type {
	case record.Arrival:
		if p.state == HasArrival {
			p.finalize(nil)
		}
		p.arrival = stop
		p.state = HasArrival
	default:
		p.finalize(stop)
	}
}

// finalize emits the accumulator with the given departure and resets to
// AwaitingArrival.
func (p *Pairer) finalize(departure *record.Stop) {
	p.trips = append(p.trips, record.Trip{Arrival: p.arrival, Departure: departure})
	p.arrival = nil
	p.state = AwaitingArrival
}

// Pending returns the arrival still waiting for a departure, if any. It is
// never included in Trips.
func (p *Pairer) Pending() *record.Stop {
	return p.arrival
}

// Trips returns the trips emitted so far with durations filled in for
// complete trips.
func (p *Pairer) Trips() []record.Trip {
	out := make([]record.Trip, len(p.trips))
	copy(out, p.trips)
	for i := range out {
		if !out[i].Complete() {
			continue
		}
		if d, ok := DaysBetween(out[i].Arrival.Date, out[i].Departure.Date); ok {
			out[i].Duration = &d
		}
	}
	return out
}

// Pair runs a fresh pairer over events. A trailing arrival without a departure
// is dropped; use a Pairer directly to inspect it.
func Pair(events []record.Event) []record.Trip {
	p := NewPairer()
	for _, ev := range events {
		p.Feed(ev)
	}
	return p.Trips()
}
