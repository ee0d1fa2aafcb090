package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Source identifies the export a record was read from.
type Source string

const (
	SourceBank           Source = "bank"
	SourceCreditCard     Source = "credit_card"
	SourcePaymentService Source = "payment_service"
	SourceHistory        Source = "history"
	SourceInterchange    Source = "interchange"
)

// RawRecord is one parsed input row keyed by its (trimmed) header text.
// It only lives inside the normalizer.
type RawRecord map[string]string

// Lookup returns the value of a column and whether the column exists at all.
func (r RawRecord) Lookup(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// CanonicalRecord is the unified transaction schema shared by every source.
type CanonicalRecord struct {
	DocumentDate    NullDate            // date the receipt/statement line was issued
	TransactionDate NullDate            // value date; falls back to DocumentDate
	Amount          decimal.NullDecimal // signed, source sign convention kept
	Counterparty    string
	Description     string
	IBAN            string
	BIC             string
	Category        string

	// Source is informational and is not written to the history artifact.
	Source Source
}

// Key returns the natural key used to detect the same transaction across
// overlapping export windows.
func (r CanonicalRecord) Key() MergeKey {
	k := MergeKey{
		DocumentDate:    r.DocumentDate,
		TransactionDate: r.TransactionDate,
	}
	if r.Amount.Valid {
		// String() drops trailing zeros so 10.0 and 10.00 collide.
		k.Amount = r.Amount.Decimal.String()
		k.AmountValid = true
	}
	return k
}

// MergeKey identifies a transaction by (document date, transaction date, amount).
// Description and counterparty are deliberately not part of it.
type MergeKey struct {
	DocumentDate    NullDate
	TransactionDate NullDate
	Amount          string
	AmountValid     bool
}

// SummaryBucket is one (month, category) row of the breakdown summary.
type SummaryBucket struct {
	YearMonth string // "YYYY-MM"
	Category  string
	Amount    decimal.Decimal
}

// MonthTotal is one row of the per-month summary.
type MonthTotal struct {
	YearMonth string
	Amount    decimal.Decimal
}

// NullDate is an optional calendar date.
type NullDate struct {
	Date  civil.Date
	Valid bool
}

// DateOf wraps a set date.
func DateOf(d civil.Date) NullDate {
	return NullDate{Date: d, Valid: true}
}

// NewDate builds a set date from its components.
func NewDate(year int, month time.Month, day int) NullDate {
	return DateOf(civil.Date{Year: year, Month: month, Day: day})
}

// String renders the date as YYYY-MM-DD, or "" when unset.
func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Date.String()
}

// YearMonth renders the date as YYYY-MM, or "" when unset.
func (d NullDate) YearMonth() string {
	if !d.Valid {
		return ""
	}
	return d.Date.String()[:7]
}

// After reports whether d sorts before o in a descending listing: set dates
// come before unset ones and later dates before earlier ones.
func (d NullDate) After(o NullDate) bool {
	switch {
	case d.Valid && !o.Valid:
		return true
	case !d.Valid:
		return false
	default:
		return d.Date.After(o.Date)
	}
}
