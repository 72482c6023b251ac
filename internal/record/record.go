package record

// Fragment is one positioned piece of text produced by a document source.
type Fragment struct {
	Y            float64 // Vertical position, top of page = smallest value
	PageBoundary bool    // Marks the end of a page; carries no text
	Text         string  // Raw text content (empty means absent)
}

// HasText reports whether the fragment contributes to a row.
func (f Fragment) HasText() bool {
	return !f.PageBoundary && f.Text != ""
}

// EventType classifies a travel event.
type EventType string

const (
	Arrival   EventType = "arrival"
	Departure EventType = "departure"
)

// Event is an arrival or departure extracted from a single text line.
type Event struct {
	Date     string    `json:"date"`
	Type     EventType `json:"type"`
	Location string    `json:"location"`
}

// Stop is one side of a trip.
type Stop struct {
	Date     string `json:"date"`
	Location string `json:"location"`
}

// Trip pairs an arrival with a departure. Either side may be missing.
type Trip struct {
	Arrival   *Stop `json:"arrival,omitempty"`
	Departure *Stop `json:"departure,omitempty"`
	Duration  *int  `json:"duration,omitempty"` // Whole days, set only for complete trips with parseable dates
}

// Complete reports whether both sides of the trip are present.
func (t Trip) Complete() bool {
	return t.Arrival != nil && t.Departure != nil
}
