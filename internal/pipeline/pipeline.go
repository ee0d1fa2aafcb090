// Package pipeline wires the decode, normalize, combine, merge and aggregate
// stages into the runs offered by the CLI.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-combiner/internal/config"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/google/uuid"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewRunPipeline reads the three exports, merges them into the history and
// writes every artifact.
func NewRunPipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&LoadSourcesStep{Deps: deps},
		&CombineStep{},
		&CategorizeStep{Deps: deps},
		&LoadHistoryStep{Deps: deps},
		&MergeStep{},
		&SummarizeStep{},
		&RenderStep{Interchange: true, History: true},
		&CommitStep{Deps: deps},
		&ExportStep{Deps: deps},
	)
}

// NewMergePipeline merges a previously written interchange file into the
// history.
func NewMergePipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&LoadInterchangeStep{Deps: deps},
		&CategorizeStep{Deps: deps},
		&LoadHistoryStep{Deps: deps},
		&MergeStep{},
		&SummarizeStep{},
		&RenderStep{History: true},
		&CommitStep{Deps: deps},
		&ExportStep{Deps: deps},
	)
}

// NewSummarizePipeline rebuilds the summaries from the current history.
func NewSummarizePipeline(deps Deps) *Pipeline {
	return NewPipeline(
		&LoadHistoryStep{Deps: deps, Output: true},
		&SummarizeStep{},
		&RenderStep{},
		&CommitStep{Deps: deps},
	)
}

// Run executes the full pipeline.
func Run(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Run: invalid config: %w", err)
	}
	return execute(ctx, "run", NewRunPipeline(deps), cfg)
}

// RunMerge merges the interchange file into the history.
func RunMerge(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	if err := cfg.ValidateMerge(); err != nil {
		return nil, fmt.Errorf("RunMerge: invalid config: %w", err)
	}
	if cfg.InterchangePath == "" {
		return nil, fmt.Errorf("RunMerge: interchange_path is required")
	}
	return execute(ctx, "merge", NewMergePipeline(deps), cfg)
}

// RunSummarize rewrites the summaries from the history.
func RunSummarize(ctx context.Context, cfg config.Config, deps Deps) (*Report, error) {
	if cfg.OutputPath == "" && cfg.HistoryPath == "" {
		return nil, fmt.Errorf("RunSummarize: history_path is required")
	}
	return execute(ctx, "summarize", NewSummarizePipeline(deps), cfg)
}

func execute(ctx context.Context, mode string, p *Pipeline, cfg config.Config) (*Report, error) {
	if cfg.OutputPath == "" {
		cfg.OutputPath = cfg.HistoryPath
	}
	runID := uuid.NewString()
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"run_id": runID,
		"mode":   mode,
	})
	ctx = logger.WithContext(ctx, log)

	log.Info().Msg("Starting run")
	state := NewPipelineState(cfg, runID)
	if err := p.Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Run failed")
		return state.Report, err
	}
	log.Info().Object("report", state.Report).Msg("Run finished")
	return state.Report, nil
}
