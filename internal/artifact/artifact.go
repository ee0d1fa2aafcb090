// Package artifact renders and parses the CSV files the pipeline writes: the
// consolidated history, the interchange batch and the two summaries.
//
// All artifacts are ';' separated and ISO-8859-1 encoded. Characters outside
// ISO-8859-1 are written as '?'.
package artifact

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/dvloznov/finance-combiner/internal/decode"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/normalize"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Delimiter separates fields in every artifact.
const Delimiter = ';'

// EncodeHistory renders records with the canonical headers.
func EncodeHistory(records []domain.CanonicalRecord) ([]byte, error) {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, domain.HistoryHeaders)
	for _, r := range records {
		rows = append(rows, []string{
			r.DocumentDate.String(),
			r.TransactionDate.String(),
			formatAmount(r.Amount),
			r.Counterparty,
			r.Description,
			r.IBAN,
			r.BIC,
			r.Category,
		})
	}
	data, err := render(rows)
	if err != nil {
		return nil, fmt.Errorf("EncodeHistory: %w", err)
	}
	return data, nil
}

// DecodeHistory parses a history or interchange file written by
// EncodeHistory. The delimiter is detected from the header line.
func DecodeHistory(ctx context.Context, source domain.Source, data []byte) ([]domain.CanonicalRecord, normalize.Stats, error) {
	schema, err := normalize.SchemaFor(source)
	if err != nil {
		return nil, normalize.Stats{}, fmt.Errorf("DecodeHistory: %w", err)
	}
	text, err := decode.Decode(data, decode.LabelLatin1)
	if err != nil {
		return nil, normalize.Stats{}, fmt.Errorf("DecodeHistory: %w", err)
	}
	delim := decode.DetectDelimiter(string(firstLine(text)))
	records, stats, err := normalize.Parse(ctx, schema, text, delim)
	if err != nil {
		return nil, stats, fmt.Errorf("DecodeHistory: %w", err)
	}
	return records, stats, nil
}

// EncodeBreakdown renders the per month and category summary.
func EncodeBreakdown(buckets []domain.SummaryBucket) ([]byte, error) {
	rows := make([][]string, 0, len(buckets)+1)
	rows = append(rows, []string{domain.HeaderYearMonth, domain.HeaderCategory, domain.HeaderAdjusted})
	for _, b := range buckets {
		rows = append(rows, []string{b.YearMonth, b.Category, b.Amount.StringFixed(2)})
	}
	data, err := render(rows)
	if err != nil {
		return nil, fmt.Errorf("EncodeBreakdown: %w", err)
	}
	return data, nil
}

// EncodeMonthly renders the per month totals.
func EncodeMonthly(totals []domain.MonthTotal) ([]byte, error) {
	rows := make([][]string, 0, len(totals)+1)
	rows = append(rows, []string{domain.HeaderYearMonth, domain.HeaderMonthlyAdjusted})
	for _, t := range totals {
		rows = append(rows, []string{t.YearMonth, t.Amount.StringFixed(2)})
	}
	data, err := render(rows)
	if err != nil {
		return nil, fmt.Errorf("EncodeMonthly: %w", err)
	}
	return data, nil
}

// formatAmount pads to two decimals and never rounds, so a written amount
// reads back with the same merge key.
func formatAmount(a decimal.NullDecimal) string {
	if !a.Valid {
		return ""
	}
	if !a.Decimal.Equal(a.Decimal.Truncate(2)) {
		return a.Decimal.String()
	}
	return a.Decimal.StringFixed(2)
}

func render(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Delimiter
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(transform.Chain(latin1Only, charmap.ISO8859_1.NewEncoder()), buf.Bytes())
	return out, err
}

// latin1Only replaces runes ISO-8859-1 cannot represent with '?'.
var latin1Only = runes.Map(func(r rune) rune {
	if r > 0xFF {
		return '?'
	}
	return r
})

func firstLine(text []byte) []byte {
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		return bytes.TrimRight(text[:i], "\r")
	}
	return text
}
