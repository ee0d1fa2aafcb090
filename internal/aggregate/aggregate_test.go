package aggregate

import (
	"testing"
	"time"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/shopspring/decimal"
)

func rec(year int, month time.Month, category, amount string) domain.CanonicalRecord {
	r := domain.CanonicalRecord{DocumentDate: domain.NewDate(year, month, 15), Category: category}
	if amount != "" {
		r.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return r
}

func TestAdjust(t *testing.T) {
	opts := DefaultOptions()
	undated := rec(2024, time.March, "Lebensmittel", "-10")
	undated.DocumentDate = domain.NullDate{}

	tests := []struct {
		name   string
		rec    domain.CanonicalRecord
		want   string
		wantOK bool
	}{
		{"shared category is halved", rec(2024, time.March, "Strom", "-80.00"), "-40", true},
		{"plain category", rec(2024, time.March, "Lebensmittel", "-23.45"), "-23.45", true},
		{"excluded category", rec(2024, time.March, "Miete", "-900"), "0", false},
		{"uncategorized", rec(2024, time.March, "", "-5"), "0", false},
		{"no amount", rec(2024, time.March, "Bildung", ""), "0", false},
		{"no document date", undated, "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Adjust(tt.rec, opts)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("amount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBreakdown(t *testing.T) {
	history := []domain.CanonicalRecord{
		rec(2024, time.January, "Transport", "-10"),
		rec(2024, time.February, "Strom", "-60"),
		rec(2024, time.February, "Lebensmittel", "-20"),
		rec(2024, time.February, "Lebensmittel", "-5.50"),
		rec(2024, time.February, "Miete", "-900"),
		rec(2023, time.December, "Wasser", "-30"),
	}
	got := Breakdown(history, DefaultOptions())

	want := []domain.SummaryBucket{
		{YearMonth: "2024-02", Category: "Lebensmittel", Amount: decimal.RequireFromString("-25.50")},
		{YearMonth: "2024-02", Category: "Strom", Amount: decimal.RequireFromString("-30")},
		{YearMonth: "2024-01", Category: "Transport", Amount: decimal.RequireFromString("-10")},
		{YearMonth: "2023-12", Category: "Wasser", Amount: decimal.RequireFromString("-15")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].YearMonth != want[i].YearMonth || got[i].Category != want[i].Category || !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("bucket %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMonthlyTotals(t *testing.T) {
	history := []domain.CanonicalRecord{
		rec(2024, time.February, "Strom", "-60"),
		rec(2024, time.February, "Lebensmittel", "-20"),
		rec(2024, time.April, "Bildung", "-100"),
		rec(2024, time.March, "Miete", "-900"),
	}
	got := MonthlyTotals(history, DefaultOptions())

	want := []domain.MonthTotal{
		{YearMonth: "2024-04", Amount: decimal.RequireFromString("-100")},
		{YearMonth: "2024-02", Amount: decimal.RequireFromString("-50")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i].YearMonth != want[i].YearMonth || !got[i].Amount.Equal(want[i].Amount) {
			t.Errorf("total %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCustomOptions(t *testing.T) {
	opts := NewOptions([]string{"Miete"}, []string{"Miete"})
	got := MonthlyTotals([]domain.CanonicalRecord{rec(2024, time.March, "Miete", "-900")}, opts)
	if len(got) != 1 || !got[0].Amount.Equal(decimal.NewFromInt(-450)) {
		t.Errorf("got %+v", got)
	}
}

func TestSummariesDoNotMutateHistory(t *testing.T) {
	history := []domain.CanonicalRecord{rec(2024, time.February, "Strom", "-60")}
	Breakdown(history, DefaultOptions())
	MonthlyTotals(history, DefaultOptions())
	if !history[0].Amount.Decimal.Equal(decimal.NewFromInt(-60)) {
		t.Errorf("history amount changed to %s", history[0].Amount.Decimal)
	}
}
