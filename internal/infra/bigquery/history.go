package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
)

// HistoryRow is one consolidated history line as stored in BigQuery. Field
// order matches the columns of the rendered history CSV.
type HistoryRow struct {
	DocumentDate    bigquery.NullDate   `bigquery:"document_date"`
	TransactionDate bigquery.NullDate   `bigquery:"transaction_date"`
	Amount          *big.Rat            `bigquery:"amount"` // NUMERIC
	Counterparty    bigquery.NullString `bigquery:"counterparty"`
	Description     bigquery.NullString `bigquery:"description"`
	IBAN            bigquery.NullString `bigquery:"iban"`
	BIC             bigquery.NullString `bigquery:"bic"`
	Category        bigquery.NullString `bigquery:"category"`
}

// HistorySchema is the table schema inferred from HistoryRow with every
// column nullable.
func HistorySchema() (bigquery.Schema, error) {
	schema, err := bigquery.InferSchema(HistoryRow{})
	if err != nil {
		return nil, err
	}
	return schema.Relax(), nil
}
