// Package aggregate builds the monthly spending summaries from the
// consolidated history.
package aggregate

import (
	"sort"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultInclude are the categories summarized when none are configured.
var DefaultInclude = []string{"Lebensmittel", "Internet", "Strom", "Wasser", "Bildung", "Transport"}

// DefaultShared are the categories whose cost is split between two people.
var DefaultShared = []string{"Strom", "Wasser", "Internet"}

var half = decimal.NewFromInt(2)

// Options selects and weights categories.
type Options struct {
	Include map[string]bool
	Shared  map[string]bool
}

// NewOptions builds Options from category lists.
func NewOptions(include, shared []string) Options {
	return Options{Include: set(include), Shared: set(shared)}
}

// DefaultOptions returns the household defaults.
func DefaultOptions() Options {
	return NewOptions(DefaultInclude, DefaultShared)
}

func set(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// Adjust returns the amount a record contributes to the summaries. Records in
// excluded categories or without an amount or document date do not count.
func Adjust(rec domain.CanonicalRecord, opts Options) (decimal.Decimal, bool) {
	if !opts.Include[rec.Category] || !rec.Amount.Valid || !rec.DocumentDate.Valid {
		return decimal.Zero, false
	}
	if opts.Shared[rec.Category] {
		return rec.Amount.Decimal.Div(half), true
	}
	return rec.Amount.Decimal, true
}

type bucketKey struct {
	month    string
	category string
}

// Breakdown sums adjusted amounts per month and category, newest month first
// and categories alphabetically within a month.
func Breakdown(history []domain.CanonicalRecord, opts Options) []domain.SummaryBucket {
	sums := make(map[bucketKey]decimal.Decimal)
	for _, rec := range history {
		amount, ok := Adjust(rec, opts)
		if !ok {
			continue
		}
		k := bucketKey{month: rec.DocumentDate.YearMonth(), category: rec.Category}
		sums[k] = sums[k].Add(amount)
	}

	out := make([]domain.SummaryBucket, 0, len(sums))
	for k, v := range sums {
		out = append(out, domain.SummaryBucket{YearMonth: k.month, Category: k.category, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].YearMonth != out[j].YearMonth {
			return out[i].YearMonth > out[j].YearMonth
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthlyTotals sums adjusted amounts per month, newest first.
func MonthlyTotals(history []domain.CanonicalRecord, opts Options) []domain.MonthTotal {
	sums := make(map[string]decimal.Decimal)
	for _, rec := range history {
		amount, ok := Adjust(rec, opts)
		if !ok {
			continue
		}
		month := rec.DocumentDate.YearMonth()
		sums[month] = sums[month].Add(amount)
	}

	out := make([]domain.MonthTotal, 0, len(sums))
	for month, v := range sums {
		out = append(out, domain.MonthTotal{YearMonth: month, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth > out[j].YearMonth })
	return out
}
