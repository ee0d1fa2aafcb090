// Package normalize maps each export's native columns onto the canonical
// record schema, coercing locale-specific dates and amounts on the way.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/decode"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
)

// Reader fetches file contents by path.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// Stats counts the row level issues absorbed while reading one file.
type Stats struct {
	Rows               int
	Malformed          int
	UnparseableDates   int
	UnparseableAmounts int
	MissingColumns     []string
}

// DialectFor returns the fixed parts of a source's file dialect.
func DialectFor(source domain.Source) decode.Options {
	switch source {
	case domain.SourceBank, domain.SourceCreditCard:
		return decode.Options{Delimiter: ';'}
	case domain.SourcePaymentService:
		return decode.Options{Encoding: decode.LabelUTF8BOM, Delimiter: ','}
	default:
		return decode.Options{Encoding: decode.LabelLatin1}
	}
}

// LoadSource reads, decodes and normalizes one export file. An empty path for
// the payment service yields no records; for any other source it is an error.
// File level failures come back as *domain.SourceError.
func LoadSource(ctx context.Context, r Reader, det decode.Detector, source domain.Source, path string, sampleSize int) ([]domain.CanonicalRecord, Stats, error) {
	log := logger.FromContext(ctx).With().Str("source", string(source)).Str("path", path).Logger()

	if path == "" {
		if source == domain.SourcePaymentService {
			log.Info().Msg("No payment service export configured, skipping")
			return nil, Stats{}, nil
		}
		return nil, Stats{}, domain.NewSourceError(source, path, fmt.Errorf("no path configured: %w", domain.ErrSourceUnreadable))
	}

	schema, err := SchemaFor(source)
	if err != nil {
		return nil, Stats{}, err
	}

	data, err := r.Read(ctx, path)
	if err != nil {
		return nil, Stats{}, domain.NewSourceError(source, path, fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err))
	}

	opts := DialectFor(source)
	opts.SampleSize = sampleSize
	dec, err := decode.Sniff(logger.WithContext(ctx, log), det, path, data, opts)
	if err != nil {
		return nil, Stats{}, domain.NewSourceError(source, path, err)
	}

	records, stats, err := Parse(logger.WithContext(ctx, log), schema, dec.Text, dec.Dialect.Delimiter)
	if err != nil {
		return nil, stats, domain.NewSourceError(source, path, err)
	}

	log.Info().
		Int("rows", stats.Rows).
		Int("malformed", stats.Malformed).
		Int("unparseable_dates", stats.UnparseableDates).
		Int("unparseable_amounts", stats.UnparseableAmounts).
		Msg("Normalized source")

	return records, stats, nil
}

// Parse splits UTF-8 text and normalizes every row with schema.
func Parse(ctx context.Context, schema Schema, text []byte, delimiter rune) ([]domain.CanonicalRecord, Stats, error) {
	var stats Stats
	table, err := ReadTable(text, delimiter, &stats)
	if err != nil {
		return nil, stats, err
	}
	if len(table.Header) == 0 {
		return nil, stats, nil
	}
	records, err := Normalize(ctx, schema, table, &stats)
	return records, stats, err
}

// Normalize binds schema to the table header once and maps every row.
func Normalize(ctx context.Context, schema Schema, table *Table, stats *Stats) ([]domain.CanonicalRecord, error) {
	log := logger.FromContext(ctx)

	binding, err := schema.Bind(table.Header)
	if err != nil {
		return nil, err
	}
	missing := make(map[string]bool)
	for _, f := range binding.Missing {
		name := f.String()
		if missing[name] {
			continue
		}
		missing[name] = true
		stats.MissingColumns = append(stats.MissingColumns, name)
		log.Debug().
			Str("field", name).
			Strs("columns", schema.Columns[f]).
			Msg("Column absent, field stays unset")
	}

	out := make([]domain.CanonicalRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec, issues := Record(binding, row)
		stats.Rows++
		stats.UnparseableDates += issues.Dates
		stats.UnparseableAmounts += issues.Amounts
		out = append(out, rec)
	}

	if stats.Malformed > 0 {
		log.Warn().Err(domain.ErrRowMalformed).Int("rows", stats.Malformed).Msg("Skipped rows")
	}
	if stats.UnparseableDates+stats.UnparseableAmounts > 0 {
		log.Warn().
			Err(domain.ErrFieldUnparseable).
			Int("dates", stats.UnparseableDates).
			Int("amounts", stats.UnparseableAmounts).
			Msg("Fields left unset")
	}
	return out, nil
}

// FieldIssues counts the fields of one row that failed to parse.
type FieldIssues struct {
	Dates   int
	Amounts int
}

// Record maps one row. It never fails: fields that do not parse are unset.
func Record(b *Binding, row domain.RawRecord) (domain.CanonicalRecord, FieldIssues) {
	var issues FieldIssues
	layout := b.schema.DateLayout

	date := func(f Field) domain.NullDate {
		raw, ok := b.Value(row, f)
		if !ok {
			return domain.NullDate{}
		}
		d := ParseDate(raw, layout)
		if !d.Valid && strings.TrimSpace(raw) != "" {
			issues.Dates++
		}
		return d
	}
	text := func(f Field) string {
		raw, _ := b.Value(row, f)
		return strings.TrimSpace(raw)
	}

	rec := domain.CanonicalRecord{
		DocumentDate:    date(FieldDocumentDate),
		TransactionDate: date(FieldTransactionDate),
		Counterparty:    NormalizeText(text(FieldCounterparty)),
		Description:     NormalizeText(text(FieldDescription)),
		IBAN:            text(FieldIBAN),
		BIC:             text(FieldBIC),
		Category:        text(FieldCategory),
		Source:          b.schema.Source,
	}
	if raw, ok := b.Value(row, FieldAmount); ok {
		rec.Amount = ParseAmount(raw)
		if !rec.Amount.Valid && strings.TrimSpace(raw) != "" {
			issues.Amounts++
		}
	}
	if !rec.TransactionDate.Valid {
		rec.TransactionDate = rec.DocumentDate
	}
	return rec, issues
}
