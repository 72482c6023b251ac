// Package lines rebuilds text rows from positioned fragments.
package lines

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/dgallion1/i94days/internal/record"
)

// Source streams the fragments of one document to emit, returning once the
// document is exhausted.
type Source interface {
	Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error
}

// Reconstructor groups fragments into rows by vertical position, one page at a time.
type Reconstructor struct {
	rows  map[float64][]string
	lines []string
}

// NewReconstructor returns an empty reconstructor.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{rows: make(map[float64][]string)}
}

// Add consumes a single fragment. A page boundary flushes the current page.
func (r *Reconstructor) Add(f record.Fragment) {
	if f.PageBoundary {
		r.flush()
		return
	}
	if !f.HasText() {
		return
	}
	r.rows[f.Y] = append(r.rows[f.Y], f.Text)
}

// Lines flushes the last page and returns every row seen so far in document order.
func (r *Reconstructor) Lines() []string {
	r.flush()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

func (r *Reconstructor) flush() {
	for _, y := range slices.Sorted(maps.Keys(r.rows)) {
		r.lines = append(r.lines, stripSpace(strings.Join(r.rows[y], "")))
	}
	clear(r.rows)
}

// stripSpace removes every whitespace rune, not just the ends.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Collect drives src over r and returns the reconstructed lines. Any error
// from the source aborts the document and no lines are returned.
func Collect(ctx context.Context, src Source, r io.Reader, filename string) ([]string, error) {
	rec := NewReconstructor()
	if err := src.Fragments(ctx, r, filename, rec.Add); err != nil {
		return nil, fmt.Errorf("read fragments: %w", err)
	}
	return rec.Lines(), nil
}
