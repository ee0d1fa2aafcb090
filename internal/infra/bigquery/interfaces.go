package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"
)

// HistoryExporter publishes the consolidated history to a warehouse.
type HistoryExporter interface {
	ExportHistory(ctx context.Context, csv []byte) error
}

// BigQueryHistoryExporter is the concrete implementation of HistoryExporter
// that loads into one BigQuery table.
type BigQueryHistoryExporter struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQueryHistoryExporter creates an exporter with its own client. With an
// empty credentialsFile, Application Default Credentials are used.
func NewBigQueryHistoryExporter(ctx context.Context, projectID, credentialsFile, dataset, table string) (*BigQueryHistoryExporter, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryHistoryExporter: creating client: %w", err)
	}
	return &BigQueryHistoryExporter{client: client, dataset: dataset, table: table}, nil
}

// Close closes the BigQuery client connection.
func (e *BigQueryHistoryExporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportHistory delegates to LoadHistoryWithClient with the shared client.
func (e *BigQueryHistoryExporter) ExportHistory(ctx context.Context, csv []byte) error {
	return LoadHistoryWithClient(ctx, e.client, e.dataset, e.table, csv)
}
