package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVTokenizer handles CSV files. The first record is the header row; the
// whole file becomes one table.
type CSVTokenizer struct{}

func (p *CSVTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	reader := csv.NewReader(strings.NewReader(Normalize(raw)))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b := &builder{}
	title := titleFromFilename(filename)
	if len(records) > 0 {
		b.heading(1, title)
		for _, rec := range records {
			for i, cell := range rec {
				// Cells may hold newlines; a table row is one line.
				rec[i] = strings.Join(strings.Fields(cell), " ")
			}
		}
		b.table(records)
	}
	return b.document(title, "csv"), nil
}
