package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/domain"
)

// Table is the header and rows of one delimited file.
type Table struct {
	Header []string
	Rows   []domain.RawRecord
}

// ReadTable splits UTF-8 text into rows. Header cells are whitespace-trimmed.
// Rows with more cells than the header, or that fail to split, are skipped and
// counted in stats.Malformed. Short rows are padded with empty cells.
// Only an unreadable header fails the whole file; an empty file yields an
// empty table.
func ReadTable(text []byte, delimiter rune, stats *Stats) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delimiter
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ReadTable: header: %v: %w", err, domain.ErrSourceUnreadable)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	table := &Table{Header: header}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				stats.Malformed++
				continue
			}
			return nil, fmt.Errorf("ReadTable: %w", err)
		}
		if len(rec) > len(header) {
			stats.Malformed++
			continue
		}
		row := make(domain.RawRecord, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
