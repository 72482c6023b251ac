package source

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dgallion1/i94days/internal/record"
)

// TextSource handles plain text copies of the travel history. Each line is a
// row; a form feed on its own line starts a new page.
type TextSource struct{}

func (s *TextSource) Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var frags []record.Fragment
	rows := rowEmitter{emit: func(f record.Fragment) { frags = append(frags, f) }}
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "\f" {
			rows.page()
			continue
		}
		rows.row(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}

	for _, f := range frags {
		emit(f)
	}
	return nil
}
