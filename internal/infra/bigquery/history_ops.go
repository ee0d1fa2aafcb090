package bigquery

import (
	"bytes"
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-combiner/internal/logger"
)

// LoadHistoryWithClient replaces the contents of dataset.table with the
// rendered history CSV using a load job.
func LoadHistoryWithClient(ctx context.Context, client *bigquery.Client, dataset, table string, csv []byte) error {
	log := logger.FromContext(ctx)

	src, err := historySource(csv)
	if err != nil {
		return fmt.Errorf("LoadHistory: %w", err)
	}

	loader := client.Dataset(dataset).Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("LoadHistory: run load job: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("LoadHistory: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("LoadHistory: job error: %w", err)
	}

	ev := log.Info().Str("job_id", job.ID()).Str("dataset", dataset).Str("table", table)
	if stats, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		ev = ev.Int64("output_rows", stats.OutputRows)
	}
	ev.Msg("Loaded history into BigQuery")
	return nil
}

// historySource describes the rendered history CSV: ';' separated,
// ISO-8859-1, one header line.
func historySource(csv []byte) (*bigquery.ReaderSource, error) {
	schema, err := HistorySchema()
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	src := bigquery.NewReaderSource(bytes.NewReader(csv))
	src.SourceFormat = bigquery.CSV
	src.Schema = schema
	src.SkipLeadingRows = 1
	src.FieldDelimiter = ";"
	src.Encoding = bigquery.ISO_8859_1
	src.AllowQuotedNewlines = true
	return src, nil
}
