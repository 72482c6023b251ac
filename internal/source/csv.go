package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/i94days/internal/record"
)

// CSVSource handles spreadsheet exports. Each record is a row and each cell a
// fragment of it, in column order.
type CSVSource struct{}

func (s *CSVSource) Fragments(ctx context.Context, r io.Reader, filename string, emit func(record.Fragment)) error {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := rowEmitter{emit: emit}
	for _, rec := range records {
		rows.row(rec...)
	}
	return nil
}
