package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/i94days/internal/record"
)

// PDFSource reads glyph positions with the Go library. If that fails and
// FallbackPdftotext is set, it falls back to pdftotext -layout, whose lines
// become rows.
type PDFSource struct {
	FallbackPdftotext bool
}

func (s *PDFSource) Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "i94days-pdf-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	// Buffer the glyphs so a failure halfway through emits nothing.
	frags, err := pdfFragments(ctx, tmpPath)
	if err != nil && s.FallbackPdftotext && ctx.Err() == nil {
		var text string
		text, err = extractPdftotext(ctx, tmpPath)
		if err == nil {
			frags = textFragments(text)
		}
	}
	if err != nil {
		return fmt.Errorf("extract pdf %s: %w", filename, err)
	}

	for _, f := range frags {
		emit(f)
	}
	return nil
}

func pdfFragments(ctx context.Context, path string) (frags []record.Fragment, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// The content stream decoder panics on malformed input.
	defer func() {
		if p := recover(); p != nil {
			frags = nil
			err = fmt.Errorf("decode page content: %v", p)
		}
	}()

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		top := pageTop(page)
		for _, t := range page.Content().Text {
			if t.S == "" {
				continue
			}
			// PDF space grows upwards; rows are ordered top to bottom.
			frags = append(frags, record.Fragment{Y: top - t.Y, Text: Normalize(t.S)})
		}
		if i < numPages {
			frags = append(frags, record.Fragment{PageBoundary: true})
		}
	}
	return frags, nil
}

// pageTop returns the upper edge of the page's media box, inherited from the
// page tree if needed, or 0 when no media box is declared.
func pageTop(page pdflib.Page) float64 {
	box := page.MediaBox()
	if box.Len() != 4 {
		return 0
	}
	return box.Index(3).Float64()
}

func extractPdftotext(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// textFragments turns layout text into one row per line, splitting pages on
// form feeds.
func textFragments(text string) []record.Fragment {
	var frags []record.Fragment
	rows := rowEmitter{emit: func(f record.Fragment) { frags = append(frags, f) }}
	for i, page := range strings.Split(text, "\f") {
		if i > 0 {
			rows.page()
		}
		for _, line := range strings.Split(page, "\n") {
			rows.row(line)
		}
	}
	return frags
}
