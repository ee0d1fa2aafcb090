package merge

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-combiner/internal/artifact"
	"github.com/dvloznov/finance-combiner/internal/domain"
	"github.com/dvloznov/finance-combiner/internal/logger"
	"github.com/dvloznov/finance-combiner/internal/normalize"
)

// Store reads artifacts and reports whether they exist.
type Store interface {
	normalize.Reader
	Exists(ctx context.Context, path string) (bool, error)
}

// LoadHistory reads the consolidated history. A file that does not exist yet
// is an empty history. A file without the merge key columns fails with
// domain.ErrSchemaColumnMissing.
func LoadHistory(ctx context.Context, store Store, path string) ([]domain.CanonicalRecord, normalize.Stats, error) {
	log := logger.FromContext(ctx)

	ok, err := store.Exists(ctx, path)
	if err != nil {
		return nil, normalize.Stats{}, domain.NewSourceError(domain.SourceHistory, path, fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err))
	}
	if !ok {
		log.Warn().
			Str("source", string(domain.SourceHistory)).
			Str("path", path).
			Msg("History file not found, starting from an empty history")
		return nil, normalize.Stats{}, nil
	}
	return ReadArtifact(ctx, store, domain.SourceHistory, path)
}

// ReadArtifact reads a history or interchange file written by the pipeline.
// File level failures come back as *domain.SourceError.
func ReadArtifact(ctx context.Context, r normalize.Reader, source domain.Source, path string) ([]domain.CanonicalRecord, normalize.Stats, error) {
	log := logger.FromContext(ctx).With().Str("source", string(source)).Str("path", path).Logger()

	data, err := r.Read(ctx, path)
	if err != nil {
		return nil, normalize.Stats{}, domain.NewSourceError(source, path, fmt.Errorf("%w: %w", domain.ErrSourceUnreadable, err))
	}
	records, stats, err := artifact.DecodeHistory(logger.WithContext(ctx, log), source, data)
	if err != nil {
		return nil, stats, domain.NewSourceError(source, path, err)
	}

	log.Info().
		Int("rows", stats.Rows).
		Int("malformed", stats.Malformed).
		Msg("Loaded artifact")
	return records, stats, nil
}
