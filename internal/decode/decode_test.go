package decode

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"golang.org/x/text/encoding/charmap"
)

type fakeDetector struct {
	label  string
	err    error
	sample []byte
}

func (f *fakeDetector) DetectEncoding(sample []byte) (string, error) {
	f.sample = sample
	return f.label, f.err
}

func (f *fakeDetector) DetectDelimiter(firstLine string) rune {
	return DetectDelimiter(firstLine)
}

func testContext() context.Context {
	return logger.WithContext(context.Background(), logger.Nop())
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		line string
		want rune
	}{
		{"Date,Name,Gross", ','},
		{"Buchungstag;Valutadatum;Betrag", ';'},
		{"", ';'},
		{"Verwendungszweck;Betrag 1,00", ','},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := DetectDelimiter(tt.line); got != tt.want {
				t.Errorf("DetectDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestDecode_Latin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte("Begünstigter;Straße"))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	got, err := Decode(raw, "ISO-8859-1")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if string(got) != "Begünstigter;Straße" {
		t.Errorf("Decode() = %q", got)
	}
}

func TestDecode_StripsBOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Gross")...)
	for _, label := range []string{LabelUTF8BOM, LabelUTF8, LabelLatin1} {
		got, err := Decode(raw, label)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", label, err)
		}
		if string(got) != "Date,Gross" {
			t.Errorf("Decode(%s) = %q, want BOM removed", label, got)
		}
	}
}

func TestDecode_UnknownLabel(t *testing.T) {
	_, err := Decode([]byte("x"), "klingon-8")
	if !errors.Is(err, domain.ErrSourceUnreadable) {
		t.Errorf("expected ErrSourceUnreadable, got %v", err)
	}
}

func TestLookup_Aliases(t *testing.T) {
	for _, label := range []string{"windows-1252", "UTF-16LE", "latin1", "utf8", "Shift_JIS"} {
		enc, err := Lookup(label)
		if err != nil || enc == nil {
			t.Errorf("Lookup(%q) = %v, %v", label, enc, err)
		}
	}
}

func TestSniff_UsesSamplePrefix(t *testing.T) {
	data := make([]byte, 50)
	for i := range data {
		data[i] = 'a'
	}
	det := &fakeDetector{label: "UTF-8"}
	if _, err := Sniff(testContext(), det, "f.csv", data, Options{SampleSize: 10}); err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if len(det.sample) != 10 {
		t.Errorf("detector saw %d bytes, want 10", len(det.sample))
	}
}

func TestSniff_DetectsDelimiterAfterDecoding(t *testing.T) {
	data := []byte("Buchungstag;Betrag\r\n01.01.24;10,00\r\n")
	dec, err := Sniff(testContext(), &fakeDetector{label: "windows-1252"}, "konto.csv", data, Options{})
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if dec.Dialect.Delimiter != ';' {
		t.Errorf("delimiter = %q, want ';'", dec.Dialect.Delimiter)
	}
	if dec.Dialect.Encoding != "windows-1252" {
		t.Errorf("encoding = %q", dec.Dialect.Encoding)
	}
}

func TestSniff_PinnedDialect(t *testing.T) {
	det := &fakeDetector{label: "should-not-be-used"}
	dec, err := Sniff(testContext(), det, "paypal.csv", []byte("Date;Gross"), Options{Encoding: LabelUTF8BOM, Delimiter: ','})
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if det.sample != nil {
		t.Error("detector should not be consulted when the encoding is pinned")
	}
	if dec.Dialect.Delimiter != ',' {
		t.Errorf("delimiter = %q, want pinned ','", dec.Dialect.Delimiter)
	}
}

func TestSniff_DetectionFailureFallsBack(t *testing.T) {
	det := &fakeDetector{err: errors.New("no idea")}
	dec, err := Sniff(testContext(), det, "f.csv", []byte("a,b"), Options{})
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if dec.Dialect.Encoding != LabelUTF8 {
		t.Errorf("encoding = %q, want fallback %q", dec.Dialect.Encoding, LabelUTF8)
	}
}

func TestSniff_UnsupportedDetectionFallsBackToLatin1(t *testing.T) {
	det := &fakeDetector{label: "IBM424_rtl"}
	data := []byte("Buchungstag;Betrag\n01.01.24;M\xfcnze\n")
	dec, err := Sniff(testContext(), det, "f.csv", data, Options{})
	if err != nil {
		t.Fatalf("Sniff() error = %v", err)
	}
	if dec.Dialect.Encoding != LabelLatin1 {
		t.Errorf("encoding = %q, want fallback %q", dec.Dialect.Encoding, LabelLatin1)
	}
	if string(dec.Text) != "Buchungstag;Betrag\n01.01.24;Münze\n" {
		t.Errorf("text = %q", dec.Text)
	}
}

func TestSniff_UnknownPinnedEncodingFails(t *testing.T) {
	_, err := Sniff(testContext(), &fakeDetector{}, "f.csv", []byte("a;b"), Options{Encoding: "IBM424_rtl"})
	if !errors.Is(err, domain.ErrSourceUnreadable) {
		t.Errorf("expected ErrSourceUnreadable, got %v", err)
	}
}

func TestChardetDetector_BOMAndEmpty(t *testing.T) {
	d := NewChardetDetector()
	if got, _ := d.DetectEncoding(nil); got != LabelUTF8 {
		t.Errorf("empty sample = %q", got)
	}
	if got, _ := d.DetectEncoding([]byte{0xEF, 0xBB, 0xBF, 'a'}); got != LabelUTF8BOM {
		t.Errorf("BOM sample = %q", got)
	}
}
