package normalize

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/shopspring/decimal"
)

// Date layouts used by the exports.
const (
	LayoutShortDotted = "2.1.06"     // d.m.yy, bank and credit card
	LayoutSlashed     = "2/1/2006"   // d/m/yyyy, payment service
	LayoutISO         = "2006-01-02" // history and interchange
)

// ParseAmount coerces locale text to a decimal. "12,50" and "1.234,56" use a
// comma as the fractional separator; text without a comma is parsed as is, so
// re-coercing an already dotted value is a no-op. Unparseable text is unset.
func ParseAmount(raw string) decimal.NullDecimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return decimal.NullDecimal{}
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ParseDate parses raw with layout. Unparseable text is unset, never an error.
func ParseDate(raw, layout string) domain.NullDate {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.NullDate{}
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return domain.NullDate{}
	}
	return domain.DateOf(civil.DateOf(t))
}

// NormalizeText collapses internal whitespace runs to one space and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
