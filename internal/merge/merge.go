// Package merge folds a new batch of records into the consolidated history.
package merge

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/normalize"
)

// Policy decides which side survives when a new record and a history record
// share a merge key.
type Policy int

const (
	// PolicyHistoryWins keeps the history version of a duplicate.
	PolicyHistoryWins Policy = iota
	// PolicyNewWins keeps the version from the new batch.
	PolicyNewWins
)

func (p Policy) String() string {
	switch p {
	case PolicyHistoryWins:
		return "history_wins"
	case PolicyNewWins:
		return "new_wins"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy maps a config value onto a Policy. Empty means PolicyHistoryWins.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "history_wins", "history":
		return PolicyHistoryWins, nil
	case "new_wins", "new":
		return PolicyNewWins, nil
	}
	return 0, fmt.Errorf("ParsePolicy: unknown merge policy %q", s)
}

// Prepare returns a copy of records ready for key comparison: missing
// transaction dates are filled from the document date and free text is
// whitespace-normalized. Amounts are already typed and pass through.
func Prepare(records []domain.CanonicalRecord) []domain.CanonicalRecord {
	out := make([]domain.CanonicalRecord, len(records))
	for i, rec := range records {
		if !rec.TransactionDate.Valid {
			rec.TransactionDate = rec.DocumentDate
		}
		rec.Counterparty = normalize.NormalizeText(rec.Counterparty)
		rec.Description = normalize.NormalizeText(rec.Description)
		out[i] = rec
	}
	return out
}

// Merge deduplicates newBatch against history by merge key. The two inputs
// are concatenated in policy order and the last occurrence of each key wins,
// keeping the position of that occurrence. The survivors are then sorted by
// document date and transaction date, newest first, with unset dates last.
// Neither input is modified.
func Merge(newBatch, history []domain.CanonicalRecord, policy Policy) []domain.CanonicalRecord {
	first, second := Prepare(newBatch), Prepare(history)
	if policy == PolicyNewWins {
		first, second = second, first
	}
	all := append(first, second...)

	last := make(map[domain.MergeKey]int, len(all))
	for i, rec := range all {
		last[rec.Key()] = i
	}

	out := make([]domain.CanonicalRecord, 0, len(last))
	for i, rec := range all {
		if last[rec.Key()] == i {
			out = append(out, rec)
		}
	}

	slices.SortStableFunc(out, compareDesc)
	return out
}

func compareDesc(a, b domain.CanonicalRecord) int {
	switch {
	case a.DocumentDate.After(b.DocumentDate):
		return -1
	case b.DocumentDate.After(a.DocumentDate):
		return 1
	case a.TransactionDate.After(b.TransactionDate):
		return -1
	case b.TransactionDate.After(a.TransactionDate):
		return 1
	}
	return 0
}

// Keys returns the set of merge keys present in records.
func Keys(records []domain.CanonicalRecord) map[domain.MergeKey]struct{} {
	keys := make(map[domain.MergeKey]struct{}, len(records))
	for _, rec := range records {
		keys[rec.Key()] = struct{}{}
	}
	return keys
}
