package artifact

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dvloznov/finance-combiner/internal/decode"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/shopspring/decimal"
)

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func latin1Text(t *testing.T, data []byte) string {
	t.Helper()
	text, err := decode.Decode(data, decode.LabelLatin1)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return string(text)
}

func TestEncodeHistory(t *testing.T) {
	records := []domain.CanonicalRecord{
		{
			DocumentDate:    domain.NewDate(2024, time.January, 3),
			TransactionDate: domain.NewDate(2024, time.January, 4),
			Amount:          decimal.NewNullDecimal(decimal.RequireFromString("-5")),
			Counterparty:    "Bäckerei Groß",
			Description:     "Brötchen; Kaffee",
			Category:        "Lebensmittel",
		},
		{Description: "undated"},
	}
	data, err := EncodeHistory(records)
	if err != nil {
		t.Fatalf("EncodeHistory() error = %v", err)
	}
	if !strings.Contains(string(data), "B\xe4ckerei") {
		t.Errorf("expected ISO-8859-1 bytes, got %q", data)
	}

	want := "Belegdatum;Transaktionsdatum;Buchungsbetrag;Transaktionspartner;Beschreibung;IBAN;BIC;Kategorie\n" +
		"2024-01-03;2024-01-04;-5.00;Bäckerei Groß;\"Brötchen; Kaffee\";;;Lebensmittel\n" +
		";;;;undated;;;\n"
	if got := latin1Text(t, data); got != want {
		t.Errorf("rendered\n%s\nwant\n%s", got, want)
	}
}

func TestEncodeHistory_ReplacesUnsupported(t *testing.T) {
	data, err := EncodeHistory([]domain.CanonicalRecord{{Description: "Ticket 5€ 🚆"}})
	if err != nil {
		t.Fatalf("EncodeHistory() error = %v", err)
	}
	if !strings.Contains(latin1Text(t, data), "Ticket 5? ?") {
		t.Errorf("unsupported characters not replaced: %q", data)
	}
}

func TestEncodeHistory_KeepsPrecision(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"-5", "-5.00"},
		{"12.5", "12.50"},
		{"0.125", "0.125"},
		{"-3.14159", "-3.14159"},
		{"7.500", "7.50"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			in := []domain.CanonicalRecord{{
				DocumentDate:    domain.NewDate(2024, time.January, 3),
				TransactionDate: domain.NewDate(2024, time.January, 3),
				Amount:          decimal.NewNullDecimal(decimal.RequireFromString(tt.amount)),
			}}
			data, err := EncodeHistory(in)
			if err != nil {
				t.Fatalf("EncodeHistory() error = %v", err)
			}
			row := strings.Split(latin1Text(t, data), "\n")[1]
			if got := strings.Split(row, ";")[2]; got != tt.want {
				t.Errorf("amount written as %q, want %q", got, tt.want)
			}

			out, _, err := DecodeHistory(testContext(), domain.SourceHistory, data)
			if err != nil {
				t.Fatalf("DecodeHistory() error = %v", err)
			}
			if len(out) != 1 || out[0].Key() != in[0].Key() {
				t.Errorf("key after round trip = %+v, want %+v", out, in[0].Key())
			}
		})
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	in := []domain.CanonicalRecord{{
		DocumentDate:    domain.NewDate(2023, time.December, 31),
		TransactionDate: domain.NewDate(2024, time.January, 2),
		Amount:          decimal.NewNullDecimal(decimal.RequireFromString("1234.5")),
		Counterparty:    "ACME GmbH",
		Description:     "Gehalt Dezember",
		IBAN:            "DE02120300000000202051",
		BIC:             "BYLADEM1001",
		Category:        "Einkommen",
	}}
	data, err := EncodeHistory(in)
	if err != nil {
		t.Fatalf("EncodeHistory() error = %v", err)
	}
	out, stats, err := DecodeHistory(testContext(), domain.SourceHistory, data)
	if err != nil {
		t.Fatalf("DecodeHistory() error = %v", err)
	}
	if len(out) != 1 || stats.Malformed != 0 {
		t.Fatalf("got %d records, stats %+v", len(out), stats)
	}
	got := out[0]
	if got.Key() != in[0].Key() {
		t.Errorf("key = %+v, want %+v", got.Key(), in[0].Key())
	}
	if got.Counterparty != in[0].Counterparty || got.IBAN != in[0].IBAN || got.Category != in[0].Category {
		t.Errorf("record = %+v", got)
	}
}

func TestDecodeHistory_CommaDelimited(t *testing.T) {
	data := []byte("document_date,transaction_date,amount,description\n2024-02-01,2024-02-01,9.99,Abo\n")
	out, _, err := DecodeHistory(testContext(), domain.SourceHistory, data)
	if err != nil {
		t.Fatalf("DecodeHistory() error = %v", err)
	}
	if len(out) != 1 || out[0].Description != "Abo" || !out[0].Amount.Decimal.Equal(decimal.RequireFromString("9.99")) {
		t.Errorf("records = %+v", out)
	}
}

func TestEncodeSummaries(t *testing.T) {
	breakdown, err := EncodeBreakdown([]domain.SummaryBucket{
		{YearMonth: "2024-02", Category: "Strom", Amount: decimal.RequireFromString("-30")},
	})
	if err != nil {
		t.Fatalf("EncodeBreakdown() error = %v", err)
	}
	if want := "Jahr-Monat;Kategorie;Betrag_adjusted\n2024-02;Strom;-30.00\n"; string(breakdown) != want {
		t.Errorf("breakdown = %q, want %q", breakdown, want)
	}

	monthly, err := EncodeMonthly([]domain.MonthTotal{
		{YearMonth: "2024-02", Amount: decimal.RequireFromString("-50.5")},
	})
	if err != nil {
		t.Fatalf("EncodeMonthly() error = %v", err)
	}
	if want := "Jahr-Monat;Buchungsbetrag_adjusted\n2024-02;-50.50\n"; string(monthly) != want {
		t.Errorf("monthly = %q, want %q", monthly, want)
	}
}
