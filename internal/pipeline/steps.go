package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-combiner/internal/aggregate"
	"github.com/dvloznov/finance-combiner/internal/artifact"
	"github.com/dvloznov/finance-combiner/internal/combine"
	"github.com/dvloznov/finance-combiner/internal/config"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/dvloznov/finance-combiner/internal/merge"
	"github.com/dvloznov/finance-combiner/internal/normalize"
	"github.com/dvloznov/finance-combiner/internal/storage"
)

// PipelineStep represents a single step in a run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Config config.Config
	Report *Report

	Sources   map[domain.Source][]domain.CanonicalRecord
	Combined  []domain.CanonicalRecord
	History   []domain.CanonicalRecord
	Merged    []domain.CanonicalRecord
	Breakdown []domain.SummaryBucket
	Monthly   []domain.MonthTotal

	// HistoryCSV is the rendered Merged history, kept for the export.
	HistoryCSV []byte
	Artifacts  []storage.Artifact
}

// NewPipelineState creates an empty state for one run.
func NewPipelineState(cfg config.Config, runID string) *PipelineState {
	return &PipelineState{
		Config:  cfg,
		Report:  &Report{RunID: runID, Sources: make(map[domain.Source]int)},
		Sources: make(map[domain.Source][]domain.CanonicalRecord),
	}
}

func (s *PipelineState) addStats(source domain.Source, n int, stats normalize.Stats) {
	s.Report.Sources[source] = n
	s.Report.Malformed += stats.Malformed
	s.Report.UnparseableDates += stats.UnparseableDates
	s.Report.UnparseableAmounts += stats.UnparseableAmounts
}

// Step 1: LoadSourcesStep reads and normalizes the three exports.
type LoadSourcesStep struct {
	Deps Deps
}

func (s *LoadSourcesStep) Execute(ctx context.Context, state *PipelineState) error {
	cfg := state.Config
	inputs := []struct {
		source domain.Source
		path   string
	}{
		{domain.SourceBank, cfg.BankPath},
		{domain.SourceCreditCard, cfg.CreditCardPath},
		{domain.SourcePaymentService, cfg.PaymentServicePath},
	}
	for _, in := range inputs {
		records, stats, err := normalize.LoadSource(ctx, s.Deps.Store, s.Deps.Detector, in.source, in.path, cfg.SampleSize)
		if err != nil {
			return err
		}
		state.Sources[in.source] = records
		state.addStats(in.source, len(records), stats)
	}
	return nil
}

// Step 1 (merge only): LoadInterchangeStep reads a previously combined batch.
type LoadInterchangeStep struct {
	Deps Deps
}

func (s *LoadInterchangeStep) Execute(ctx context.Context, state *PipelineState) error {
	records, stats, err := merge.ReadArtifact(ctx, s.Deps.Store, domain.SourceInterchange, state.Config.InterchangePath)
	if err != nil {
		return err
	}
	state.Combined = records
	state.addStats(domain.SourceInterchange, len(records), stats)
	state.Report.Combined = len(records)
	return nil
}

// Step 2: CombineStep concatenates the sources in fixed order.
type CombineStep struct{}

func (s *CombineStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Combined = combine.Combine(
		state.Sources[domain.SourceBank],
		state.Sources[domain.SourceCreditCard],
		state.Sources[domain.SourcePaymentService],
	)
	state.Report.Combined = len(state.Combined)
	return nil
}

// Step 3: CategorizeStep fills missing categories. Failures are logged and
// never stop the run.
type CategorizeStep struct {
	Deps Deps
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Deps.Categorizer == nil {
		return nil
	}
	n, err := s.Deps.Categorizer.Categorize(ctx, state.Combined)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Categorization failed, records stay uncategorized")
	}
	state.Report.Categorized = n
	return nil
}

// Step 4: LoadHistoryStep reads the consolidated history from path.
// A missing file is an empty history.
type LoadHistoryStep struct {
	Deps Deps
	// Output reads the history from the output path instead of the input path.
	Output bool
}

func (s *LoadHistoryStep) Execute(ctx context.Context, state *PipelineState) error {
	path := state.Config.HistoryPath
	if s.Output && state.Config.OutputPath != "" {
		path = state.Config.OutputPath
	}
	records, stats, err := merge.LoadHistory(ctx, s.Deps.Store, path)
	if err != nil {
		return err
	}
	state.History = records
	state.Report.HistoryIn = len(records)
	state.Report.Malformed += stats.Malformed
	return nil
}

// Step 5: MergeStep deduplicates the combined batch against the history.
type MergeStep struct{}

func (s *MergeStep) Execute(ctx context.Context, state *PipelineState) error {
	policy, err := merge.ParsePolicy(state.Config.MergePolicy)
	if err != nil {
		return err
	}
	state.Merged = merge.Merge(state.Combined, state.History, policy)
	state.Report.HistoryOut = len(state.Merged)
	state.Report.Duplicates = len(state.Combined) + len(state.History) - len(state.Merged)

	log := logger.FromContext(ctx)
	log.Info().
		Str("policy", policy.String()).
		Int("new", len(state.Combined)).
		Int("history", len(state.History)).
		Int("merged", len(state.Merged)).
		Msg("Merged batch into history")
	return nil
}

// Step 6: SummarizeStep builds both summaries from the merged history.
// Without a merge the loaded history is summarized as is.
type SummarizeStep struct{}

func (s *SummarizeStep) Execute(ctx context.Context, state *PipelineState) error {
	source := state.Merged
	if source == nil {
		source = state.History
	}
	opts := aggregate.NewOptions(state.Config.Include, state.Config.Shared)
	state.Breakdown = aggregate.Breakdown(source, opts)
	state.Monthly = aggregate.MonthlyTotals(source, opts)
	state.Report.Buckets = len(state.Breakdown)
	state.Report.Months = len(state.Monthly)
	return nil
}

// Step 7: RenderStep renders every output into memory. Nothing is written
// until all renders succeeded.
type RenderStep struct {
	Interchange bool
	History     bool
}

func (s *RenderStep) Execute(ctx context.Context, state *PipelineState) error {
	cfg := state.Config
	var artifacts []storage.Artifact

	if s.Interchange {
		data, err := artifact.EncodeHistory(state.Combined)
		if err != nil {
			return fmt.Errorf("render interchange: %w", err)
		}
		artifacts = append(artifacts, storage.Artifact{Name: "interchange", Path: cfg.InterchangePath, Data: data})
	}

	if s.History {
		data, err := artifact.EncodeHistory(state.Merged)
		if err != nil {
			return fmt.Errorf("render history: %w", err)
		}
		state.HistoryCSV = data
		artifacts = append(artifacts, storage.Artifact{Name: "history", Path: cfg.OutputPath, Data: data})
	}

	breakdown, err := artifact.EncodeBreakdown(state.Breakdown)
	if err != nil {
		return fmt.Errorf("render breakdown: %w", err)
	}
	monthly, err := artifact.EncodeMonthly(state.Monthly)
	if err != nil {
		return fmt.Errorf("render monthly totals: %w", err)
	}
	artifacts = append(artifacts,
		storage.Artifact{Name: "breakdown", Path: cfg.BreakdownPath, Data: breakdown},
		storage.Artifact{Name: "monthly", Path: cfg.MonthlyPath, Data: monthly},
	)

	state.Artifacts = artifacts
	return nil
}

// Step 8: CommitStep writes the rendered artifacts.
type CommitStep struct {
	Deps Deps
}

func (s *CommitStep) Execute(ctx context.Context, state *PipelineState) error {
	if err := storage.WriteAll(ctx, s.Deps.Store, state.Artifacts); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	for _, a := range state.Artifacts {
		if a.Path == "" {
			continue
		}
		state.Report.Written = append(state.Report.Written, a.Path)
		log.Info().Str("artifact", a.Name).Str("path", a.Path).Int("bytes", len(a.Data)).Msg("Wrote artifact")
	}
	return nil
}

// Step 9: ExportStep loads the committed history into the warehouse.
type ExportStep struct {
	Deps Deps
}

func (s *ExportStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Deps.Exporter == nil || state.HistoryCSV == nil {
		return nil
	}
	if err := s.Deps.Exporter.ExportHistory(ctx, state.HistoryCSV); err != nil {
		return fmt.Errorf("export history (local files already written): %w", err)
	}
	state.Report.Exported = true
	return nil
}
