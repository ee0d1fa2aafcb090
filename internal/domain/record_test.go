package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCanonicalRecord_Key(t *testing.T) {
	a := CanonicalRecord{
		DocumentDate:    NewDate(2024, time.January, 1),
		TransactionDate: NewDate(2024, time.January, 2),
		Amount:          decimal.NewNullDecimal(decimal.RequireFromString("10.0")),
		Description:     "first",
	}
	b := CanonicalRecord{
		DocumentDate:    NewDate(2024, time.January, 1),
		TransactionDate: NewDate(2024, time.January, 2),
		Amount:          decimal.NewNullDecimal(decimal.RequireFromString("10.00")),
		Counterparty:    "someone else",
	}
	if a.Key() != b.Key() {
		t.Errorf("expected equal keys, got %+v and %+v", a.Key(), b.Key())
	}

	c := b
	c.Amount = decimal.NullDecimal{}
	if c.Key() == b.Key() {
		t.Error("unset amount must not collide with a set amount")
	}

	d := c
	d.Description = "other"
	if c.Key() != d.Key() {
		t.Error("two unset amounts with equal dates should collide")
	}
}

func TestNullDate_After(t *testing.T) {
	early := NewDate(2024, time.January, 1)
	late := NewDate(2024, time.March, 1)
	unset := NullDate{}

	tests := []struct {
		name string
		a, b NullDate
		want bool
	}{
		{"later before earlier", late, early, true},
		{"earlier not before later", early, late, false},
		{"set before unset", early, unset, true},
		{"unset not before set", unset, early, false},
		{"unset not before unset", unset, unset, false},
		{"equal dates", early, early, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.After(tt.b); got != tt.want {
				t.Errorf("After() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNullDate_Strings(t *testing.T) {
	d := NewDate(2024, time.February, 1)
	if got := d.String(); got != "2024-02-01" {
		t.Errorf("String() = %q", got)
	}
	if got := d.YearMonth(); got != "2024-02" {
		t.Errorf("YearMonth() = %q", got)
	}
	if got := (NullDate{}).String(); got != "" {
		t.Errorf("unset String() = %q", got)
	}
}

func TestSourceError_Unwrap(t *testing.T) {
	err := fmt.Errorf("LoadSource: %w", NewSourceError(SourceBank, "konto.csv", ErrSourceUnreadable))
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Errorf("expected errors.Is to find ErrSourceUnreadable in %v", err)
	}
	var se *SourceError
	if !errors.As(err, &se) || se.Source != SourceBank {
		t.Errorf("expected a bank SourceError, got %v", err)
	}
}
