package pipeline

import (
	"github.com/dvloznov/finance-combiner/internal/categorize"
	"github.com/dvloznov/finance-combiner/internal/decode"
	infra "github.com/dvloznov/finance-combiner/internal/infra/bigquery"
	"github.com/dvloznov/finance-combiner/internal/storage"
)

// Deps are the collaborators of a run. Categorizer and Exporter are optional.
type Deps struct {
	Store       storage.Store
	Detector    decode.Detector
	Categorizer categorize.Categorizer
	Exporter    infra.HistoryExporter
}
