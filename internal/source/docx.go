package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/i94days/internal/record"
)

// DOCXSource handles .docx exports. Each paragraph is a row; in tables each
// table row is a row with one fragment per cell paragraph.
type DOCXSource struct{}

func (s *DOCXSource) Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "i94days-docx-*.docx")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return fmt.Errorf("parse docx: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := rowEmitter{emit: emit}
	for _, item := range doc.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			rows.row(docxParagraphText(it))
		case *docx.Table:
			for _, tr := range it.TableRows {
				var cells []string
				for _, tc := range tr.TableCells {
					for _, para := range tc.Paragraphs {
						cells = append(cells, docxParagraphText(para))
					}
				}
				rows.row(cells...)
			}
		}
	}
	return nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return buf.String()
}
