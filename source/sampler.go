// Package source collects bounded samples of column values from table data
// previews so prompts can show the model what a column holds.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semtag/graph"
	"github.com/c360studio/semtag/storage"
)

// Defaults for sampling.
const (
	// DefaultPreviewRows is the number of rows requested per table.
	DefaultPreviewRows = 100
	// DefaultSampleSize is the maximum number of distinct samples per column.
	DefaultSampleSize = 5
	// DefaultSampleValueLength is the maximum length of a sample in characters.
	DefaultSampleValueLength = 100
)

// PreviewSource returns a data preview of a table.
type PreviewSource interface {
	DataPreview(ctx context.Context, tableID string, limit int) (*storage.Preview, error)
}

// Config bounds the samples collected per column.
type Config struct {
	PreviewRows       int
	SampleSize        int
	SampleValueLength int
	// Concurrency caps concurrent previews. Zero means unbounded.
	Concurrency int
}

// DefaultConfig returns the default sampling bounds.
func DefaultConfig() Config {
	return Config{
		PreviewRows:       DefaultPreviewRows,
		SampleSize:        DefaultSampleSize,
		SampleValueLength: DefaultSampleValueLength,
	}
}

// Enricher adds sample values to table columns.
type Enricher struct {
	source PreviewSource
	config Config
	logger *slog.Logger
}

// NewEnricher creates an Enricher reading previews from src.
func NewEnricher(src PreviewSource, config Config, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if config.PreviewRows <= 0 {
		config.PreviewRows = defaults.PreviewRows
	}
	if config.SampleSize <= 0 {
		config.SampleSize = defaults.SampleSize
	}
	if config.SampleValueLength <= 0 {
		config.SampleValueLength = defaults.SampleValueLength
	}
	return &Enricher{source: src, config: config, logger: logger}
}

// Enrich fetches previews of all tables concurrently and returns copies of
// the tables carrying the samples, in input order. The first failed preview
// aborts the enrichment.
func (e *Enricher) Enrich(ctx context.Context, tables []graph.Table) ([]graph.Table, error) {
	out := make([]graph.Table, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	if e.config.Concurrency > 0 {
		g.SetLimit(e.config.Concurrency)
	}

	for i, table := range tables {
		g.Go(func() error {
			preview, err := e.source.DataPreview(ctx, table.ID, e.config.PreviewRows)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					e.logger.Warn("Table disappeared before preview", "table", table.ID)
				}
				return fmt.Errorf("sample table %s: %w", table.ID, err)
			}
			samples := e.Collect(preview)
			e.logger.Debug("Collected samples", "table", table.ID, "rows", len(preview.Rows), "columns", len(samples))
			out[i] = table.WithSamples(samples)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Collect walks the preview rows in order and keeps, per column, the first
// SampleSize distinct values truncated to SampleValueLength characters.
func (e *Enricher) Collect(preview *storage.Preview) map[string][]string {
	samples := make(map[string][]string)
	if preview == nil {
		return samples
	}

	for _, row := range preview.Rows {
		for _, cell := range row {
			values := samples[cell.ColumnName]
			if len(values) >= e.config.SampleSize {
				continue
			}
			value := truncate(cell.Value, e.config.SampleValueLength)
			if contains(values, value) {
				continue
			}
			samples[cell.ColumnName] = append(values, value)
		}
	}
	return samples
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
