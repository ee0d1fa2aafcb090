// Package combine joins the normalized exports into one batch.
package combine

import "github.com/dvloznov/finance-combiner/internal/domain"

// Combine concatenates bank, credit card and payment service records in that
// order. Records are not copied or altered.
func Combine(bank, card, payment []domain.CanonicalRecord) []domain.CanonicalRecord {
	out := make([]domain.CanonicalRecord, 0, len(bank)+len(card)+len(payment))
	out = append(out, bank...)
	out = append(out, card...)
	out = append(out, payment...)
	return out
}
