package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/i94days/internal/record"
)

// ErrUnsupported is returned by ForFile for unknown extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Source streams the positioned text fragments of a document.
// Implementations emit a record.Fragment with PageBoundary set between pages
// and return once the document is exhausted.
type Source interface {
	Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error
}

// Options tune the sources returned by ForFile.
type Options struct {
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions this tool can read.
var SupportedExtensions = map[string]bool{
	".pdf":      true,
	".txt":      true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".md":       true,
	".markdown": true,
	".docx":     true,
}

// ForFile returns the appropriate source for a filename.
func ForFile(filename string, opts Options) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFSource{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".txt":
		return &TextSource{}, nil
	case ".csv":
		return &CSVSource{}, nil
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// rowEmitter assigns consecutive vertical positions to rows of sources that
// have no layout coordinates of their own.
type rowEmitter struct {
	emit func(record.Fragment)
	y    float64
}

// row emits pieces as the fragments of one row.
func (e *rowEmitter) row(pieces ...string) {
	for _, p := range pieces {
		if p = Normalize(p); p != "" {
			e.emit(record.Fragment{Y: e.y, Text: p})
		}
	}
	e.y++
}

// page closes the current page; positions restart on the next one.
func (e *rowEmitter) page() {
	e.emit(record.Fragment{PageBoundary: true})
	e.y = 0
}
