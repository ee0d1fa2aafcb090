package normalize

import (
	"fmt"

	"github.com/dvloznov/finance-combiner/internal/domain"
)

// Field is a canonical record field.
type Field int

const (
	FieldDocumentDate Field = iota
	FieldTransactionDate
	FieldAmount
	FieldCounterparty
	FieldDescription
	FieldIBAN
	FieldBIC
	FieldCategory
)

var fieldNames = [...]string{
	"document_date",
	"transaction_date",
	"amount",
	"counterparty",
	"description",
	"iban",
	"bic",
	"category",
}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Schema maps the native columns of one source to canonical fields.
// A field may accept several column names; the first one present wins.
// Fields without any column are always unset for that source.
type Schema struct {
	Source     domain.Source
	DateLayout string
	Columns    map[Field][]string

	// Required fields abort the file when none of their columns exist.
	Required []Field
}

// BankSchema is the bank account statement export.
var BankSchema = Schema{
	Source:     domain.SourceBank,
	DateLayout: LayoutShortDotted,
	Columns: map[Field][]string{
		FieldDocumentDate:    {"Buchungstag"},
		FieldTransactionDate: {"Valutadatum"},
		FieldAmount:          {"Betrag"},
		FieldCounterparty:    {"Beguenstigter/Zahlungspflichtiger"},
		FieldDescription:     {"Verwendungszweck"},
		FieldIBAN:            {"Kontonummer/IBAN"},
		FieldBIC:             {"BIC (SWIFT-Code)"},
		FieldCategory:        {"Kategorie"},
	},
}

// CreditCardSchema is the credit card statement export.
var CreditCardSchema = Schema{
	Source:     domain.SourceCreditCard,
	DateLayout: LayoutShortDotted,
	Columns: map[Field][]string{
		FieldDocumentDate:    {"Belegdatum"},
		FieldTransactionDate: {"Buchungsdatum"},
		FieldAmount:          {"Buchungsbetrag"},
		FieldCounterparty:    {"Transaktionsbeschreibung"},
		FieldDescription:     {"Transaktionsbeschreibung Zusatz"},
	},
}

// PaymentServiceSchema is the payment service activity export. Its single
// date column feeds both canonical dates.
var PaymentServiceSchema = Schema{
	Source:     domain.SourcePaymentService,
	DateLayout: LayoutSlashed,
	Columns: map[Field][]string{
		FieldDocumentDate:    {"Date"},
		FieldTransactionDate: {"Date"},
		FieldAmount:          {"Gross"},
		FieldCounterparty:    {"Name"},
		FieldDescription:     {"Subject"},
	},
}

// HistorySchema reads the consolidated history and the interchange file.
// The merge key columns must exist.
var HistorySchema = Schema{
	Source:     domain.SourceHistory,
	DateLayout: LayoutISO,
	Columns: map[Field][]string{
		FieldDocumentDate:    {domain.HeaderDocumentDate, "document_date"},
		FieldTransactionDate: {domain.HeaderTransactionDate, "transaction_date"},
		FieldAmount:          {domain.HeaderAmount, "amount"},
		FieldCounterparty:    {domain.HeaderCounterparty, "counterparty"},
		FieldDescription:     {domain.HeaderDescription, "description"},
		FieldIBAN:            {domain.HeaderIBAN, "iban"},
		FieldBIC:             {domain.HeaderBIC, "bic"},
		FieldCategory:        {domain.HeaderCategory, "category"},
	},
	Required: []Field{FieldDocumentDate, FieldTransactionDate, FieldAmount},
}

// SchemaFor returns the schema of a source.
func SchemaFor(source domain.Source) (Schema, error) {
	switch source {
	case domain.SourceBank:
		return BankSchema, nil
	case domain.SourceCreditCard:
		return CreditCardSchema, nil
	case domain.SourcePaymentService:
		return PaymentServiceSchema, nil
	case domain.SourceHistory, domain.SourceInterchange:
		s := HistorySchema
		s.Source = source
		return s, nil
	}
	return Schema{}, fmt.Errorf("SchemaFor: unknown source %q", source)
}

// Binding is a schema resolved against one file header.
type Binding struct {
	schema  Schema
	columns map[Field]string

	// Missing lists mapped fields whose columns are absent from the header.
	Missing []Field
}

// Bind resolves the schema against header once per file. Absent optional
// columns are recorded in Missing; absent required columns fail with
// ErrSchemaColumnMissing.
func (s Schema) Bind(header []string) (*Binding, error) {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}

	b := &Binding{schema: s, columns: make(map[Field]string)}
	for f := FieldDocumentDate; f <= FieldCategory; f++ {
		names, mapped := s.Columns[f]
		if !mapped {
			continue
		}
		found := false
		for _, name := range names {
			if present[name] {
				b.columns[f] = name
				found = true
				break
			}
		}
		if !found {
			b.Missing = append(b.Missing, f)
		}
	}

	for _, f := range s.Required {
		if _, ok := b.columns[f]; !ok {
			return nil, fmt.Errorf("Bind: %s has no %s column: %w", s.Source, f, domain.ErrSchemaColumnMissing)
		}
	}
	return b, nil
}

// Value returns the raw text of a field, and false if the field has no column.
func (b *Binding) Value(row domain.RawRecord, f Field) (string, bool) {
	col, ok := b.columns[f]
	if !ok {
		return "", false
	}
	return row.Lookup(col)
}
