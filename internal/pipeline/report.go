package pipeline

import (
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/rs/zerolog"
)

// Report summarizes what a run read, dropped and wrote.
type Report struct {
	RunID string

	// Sources counts the records read per source.
	Sources            map[domain.Source]int
	Malformed          int
	UnparseableDates   int
	UnparseableAmounts int

	Combined    int
	Categorized int
	HistoryIn   int
	HistoryOut  int
	Duplicates  int

	Buckets int
	Months  int

	Written  []string
	Exported bool
}

// MarshalZerologObject lets a Report be logged with Object("report", r).
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	sources := zerolog.Dict()
	for s, n := range r.Sources {
		sources.Int(string(s), n)
	}
	e.Str("run_id", r.RunID).
		Dict("sources", sources).
		Int("malformed", r.Malformed).
		Int("unparseable_dates", r.UnparseableDates).
		Int("unparseable_amounts", r.UnparseableAmounts).
		Int("combined", r.Combined).
		Int("categorized", r.Categorized).
		Int("history_in", r.HistoryIn).
		Int("history_out", r.HistoryOut).
		Int("duplicates", r.Duplicates).
		Int("buckets", r.Buckets).
		Int("months", r.Months).
		Strs("written", r.Written).
		Bool("exported", r.Exported)
}
