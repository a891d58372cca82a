package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semtag/events"
	"github.com/c360studio/semtag/metric"
	"github.com/c360studio/semtag/storage"
)

// MetadataStore persists table and column metadata. *storage.Client
// implements it.
type MetadataStore interface {
	SetTableMetadata(ctx context.Context, tableID string, metadata []storage.MetadataValueInput, columns map[string][]storage.MetadataValueInput) error
}

// WriterConfig controls persistence.
type WriterConfig struct {
	// WriteData sends metadata to storage. When false the writer only logs.
	WriteData bool
	// Concurrency caps concurrent storage writes. Zero means unbounded.
	Concurrency int
}

// Writer logs generated metadata and, unless running dry, stores it.
type Writer struct {
	store     MetadataStore
	config    WriterConfig
	publisher *events.Publisher
	metrics   *metric.Metrics
	logger    *slog.Logger
}

// NewWriter creates a Writer. publisher and metrics may be nil.
func NewWriter(store MetadataStore, config WriterConfig, publisher *events.Publisher, metrics *metric.Metrics, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:     store,
		config:    config,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Write logs every metadatum and stores each table's metadata in one call.
// It returns the number of tables written, which is zero on a dry run.
func (w *Writer) Write(ctx context.Context, results []TableResult) (int, error) {
	for _, r := range results {
		for _, m := range r.Table {
			w.logger.Info("Table metadata", "table", m.ID, "key", m.Key, "value", m.Value)
		}
		for _, m := range r.Columns {
			w.logger.Info("Column metadata", "column", m.ID, "key", m.Key, "value", m.Value)
		}
	}

	if !w.config.WriteData {
		w.logger.Info("Dry run, metadata not written", "tables", len(results))
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if w.config.Concurrency > 0 {
		g.SetLimit(w.config.Concurrency)
	}

	for _, r := range results {
		g.Go(func() error {
			table, columns := r.StorageInput()
			w.logger.Info("Writing table metadata", "table", r.TableID)
			if err := w.store.SetTableMetadata(ctx, r.TableID, table, columns); err != nil {
				return fmt.Errorf("write metadata of table %s: %w", r.TableID, err)
			}
			w.metrics.MetadataWritten(string(KindTable), len(r.Table))
			w.metrics.MetadataWritten(string(KindColumn), len(r.Columns))
			w.publisher.MetadataWritten(r.TableID, r.TableValues(), len(r.Columns))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(results), nil
}
