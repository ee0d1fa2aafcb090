// Package categorize assigns categories to records that arrived without one.
// It never overwrites a category that is already set.
package categorize

import (
	"context"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
)

// Categorizer fills Category on uncategorized records in place and reports
// how many it set.
type Categorizer interface {
	Categorize(ctx context.Context, records []domain.CanonicalRecord) (int, error)
}

// Rule assigns Category when any keyword occurs in a record's text.
type Rule struct {
	Category string
	Keywords []string
}

// RuleCategorizer matches keywords case-insensitively against counterparty
// and description. The first matching rule wins.
type RuleCategorizer struct {
	rules []Rule
}

// NewRuleCategorizer lowercases and trims the rule keywords once.
func NewRuleCategorizer(rules []Rule) *RuleCategorizer {
	rc := &RuleCategorizer{}
	for _, r := range rules {
		norm := Rule{Category: strings.TrimSpace(r.Category)}
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				norm.Keywords = append(norm.Keywords, kw)
			}
		}
		if norm.Category != "" && len(norm.Keywords) > 0 {
			rc.rules = append(rc.rules, norm)
		}
	}
	return rc
}

// Match returns the category of the first rule matching rec.
func (rc *RuleCategorizer) Match(rec domain.CanonicalRecord) (string, bool) {
	text := strings.ToLower(rec.Counterparty + " " + rec.Description)
	for _, r := range rc.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(text, kw) {
				return r.Category, true
			}
		}
	}
	return "", false
}

// Categorize implements Categorizer.
func (rc *RuleCategorizer) Categorize(ctx context.Context, records []domain.CanonicalRecord) (int, error) {
	n := 0
	for i := range records {
		if records[i].Category != "" {
			continue
		}
		if cat, ok := rc.Match(records[i]); ok {
			records[i].Category = cat
			n++
		}
	}
	return n, nil
}

// Chain runs categorizers in order. A failing categorizer is logged and
// skipped; the records it did not reach stay uncategorized.
type Chain []Categorizer

// Categorize implements Categorizer. It never returns an error.
func (c Chain) Categorize(ctx context.Context, records []domain.CanonicalRecord) (int, error) {
	log := logger.FromContext(ctx)
	total := 0
	for _, cat := range c {
		n, err := cat.Categorize(ctx, records)
		total += n
		if err != nil {
			log.Warn().Err(err).Msg("Categorization failed, continuing without it")
		}
	}
	return total, nil
}
