package domain

// On-disk column headers of the consolidated history, in output order.
const (
	HeaderDocumentDate    = "Belegdatum"
	HeaderTransactionDate = "Transaktionsdatum"
	HeaderAmount          = "Buchungsbetrag"
	HeaderCounterparty    = "Transaktionspartner"
	HeaderDescription     = "Beschreibung"
	HeaderIBAN            = "IBAN"
	HeaderBIC             = "BIC"
	HeaderCategory        = "Kategorie"
)

// Summary headers.
const (
	HeaderYearMonth       = "Jahr-Monat"
	HeaderAdjusted        = "Betrag_adjusted"
	HeaderMonthlyAdjusted = "Buchungsbetrag_adjusted"
)

// HistoryHeaders lists the canonical columns in the order they are written.
var HistoryHeaders = []string{
	HeaderDocumentDate,
	HeaderTransactionDate,
	HeaderAmount,
	HeaderCounterparty,
	HeaderDescription,
	HeaderIBAN,
	HeaderBIC,
	HeaderCategory,
}
