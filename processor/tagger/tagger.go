// Package tagger generates descriptive metadata for tables and their columns.
//
// A run has three stages:
//
//  1. Label: one completion per table (content, role) and one per column
//     (content, category, data type). Every labeled item also yields a tag.
//  2. InduceCategories: tags are sent in batches and the model groups them
//     into categories.
//  3. AssignCategories: each table gets two of the induced categories.
//
// Completions within a stage run concurrently. Results are kept in per-table
// slots and merged in input order once the stage completes, so the output
// does not depend on completion order.
package tagger

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semtag/graph"
	"github.com/c360studio/semtag/llm"
	"github.com/c360studio/semtag/metric"
	"github.com/c360studio/semtag/prompts"
)

// Labeler returns the labels for a completion request. *llm.Gateway
// implements it.
type Labeler interface {
	Do(ctx context.Context, req prompts.Request) ([]string, error)
}

// Tagger runs the labeling stages over filtered tables.
type Tagger struct {
	labeler  Labeler
	catalog  *graph.Catalog
	glossary []prompts.Explanation
	config   Config
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// Option configures a Tagger.
type Option func(*Tagger)

// WithGlossary sets the term explanations prepended to every context block.
func WithGlossary(glossary []prompts.Explanation) Option {
	return func(t *Tagger) {
		t.glossary = glossary
	}
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(t *Tagger) {
		t.config = cfg
	}
}

// WithMetrics counts tagged tables.
func WithMetrics(m *metric.Metrics) Option {
	return func(t *Tagger) {
		t.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tagger) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Tagger that describes tables using catalog.
func New(labeler Labeler, catalog *graph.Catalog, opts ...Option) *Tagger {
	t := &Tagger{
		labeler: labeler,
		catalog: catalog,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.config.TagBatchSize <= 0 {
		t.config.TagBatchSize = DefaultTagBatchSize
	}
	if t.config.CategoryCount <= 0 {
		t.config.CategoryCount = prompts.DefaultCategoryCount
	}
	return t
}

// Run executes all three stages.
func (t *Tagger) Run(ctx context.Context, tables []graph.Table) (*Result, error) {
	results, tags, err := t.Label(ctx, tables)
	if err != nil {
		return nil, err
	}

	categories, err := t.InduceCategories(ctx, tags)
	if err != nil {
		return nil, err
	}
	t.logger.Info("Categories induced", "count", len(categories), "tags", len(tags))

	results, err = t.AssignCategories(ctx, results, categories)
	if err != nil {
		return nil, err
	}

	return &Result{
		Tables:     results,
		Tags:       tags,
		Categories: categories,
	}, nil
}

// tableSlot collects everything stage 1 produces for one table.
type tableSlot struct {
	result TableResult
	tags   []Tag
}

// Label runs stage 1. Results and tags follow table order; within a table
// the table tag comes first, followed by column tags in column order.
func (t *Tagger) Label(ctx context.Context, tables []graph.Table) ([]TableResult, []Tag, error) {
	slots := make([]tableSlot, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	t.limit(g)

	for i, table := range tables {
		g.Go(func() error {
			slot, err := t.labelTable(ctx, table)
			if err != nil {
				return err
			}
			slots[i] = slot
			t.metrics.TableTagged()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	results := make([]TableResult, 0, len(slots))
	var tags []Tag
	for _, s := range slots {
		results = append(results, s.result)
		tags = append(tags, s.tags...)
	}
	return results, tags, nil
}

func (t *Tagger) labelTable(ctx context.Context, table graph.Table) (tableSlot, error) {
	block := prompts.Compose(t.glossary, t.catalog, table)

	labels, err := t.labeler.Do(ctx, prompts.TableLabelRequest{Context: block})
	if err != nil {
		return tableSlot{}, fmt.Errorf("label table %s: %w", table.ID, err)
	}
	labels = fit(labels, 2)
	content, role := labels[0], labels[1]
	t.logger.Debug("Table labeled", "table", table.ID, "content", content, "role", role)

	slot := tableSlot{
		result: TableResult{
			TableID: table.ID,
			Table: []Metadatum{
				{ID: table.ID, Kind: KindTable, Key: KeyRole, Value: role},
				{ID: table.ID, Kind: KindTable, Key: KeyContent, Value: content},
			},
		},
		tags: []Tag{{ID: table.ID, Kind: KindTable, Source: role + " " + content}},
	}

	type columnSlot struct {
		metadata []Metadatum
		tag      Tag
	}
	columns := make([]columnSlot, len(table.Columns))

	g, ctx := errgroup.WithContext(ctx)
	t.limit(g)

	for i, col := range table.Columns {
		g.Go(func() error {
			labels, err := t.labeler.Do(ctx, prompts.ColumnLabelRequest{Context: block, Column: col.Name})
			if err != nil {
				return fmt.Errorf("label column %s.%s: %w", table.ID, col.Name, err)
			}
			labels = fit(labels, 3)
			content, category, dataType := labels[0], labels[1], labels[2]
			id := table.ID + "." + col.Name
			columns[i] = columnSlot{
				metadata: []Metadatum{
					{ID: id, Kind: KindColumn, Key: KeyContent, Value: content, Name: col.Name},
					{ID: id, Kind: KindColumn, Key: KeyCategory, Value: category, Name: col.Name},
					{ID: id, Kind: KindColumn, Key: KeyDataType, Value: dataType, Name: col.Name},
				},
				tag: Tag{ID: id, Kind: KindColumn, Source: category + " " + content},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tableSlot{}, err
	}

	for _, c := range columns {
		slot.result.Columns = append(slot.result.Columns, c.metadata...)
		slot.tags = append(slot.tags, c.tag)
	}
	return slot, nil
}

// InduceCategories runs stage 2: one induction request per batch of
// TagBatchSize tags, in batch order. The labels of all batches are
// concatenated.
func (t *Tagger) InduceCategories(ctx context.Context, tags []Tag) ([]string, error) {
	var categories []string
	size := t.config.TagBatchSize

	for start := 0; start < len(tags); start += size {
		end := min(start+size, len(tags))

		sources := make([]string, 0, end-start)
		for _, tag := range tags[start:end] {
			sources = append(sources, tag.Source)
		}

		labels, err := t.labeler.Do(ctx, prompts.CategoryInductionRequest{
			Sources:    sources,
			Categories: t.config.CategoryCount,
		})
		if err != nil {
			return nil, fmt.Errorf("induce categories for tags %d-%d: %w", start, end-1, err)
		}
		t.logger.Debug("Categories batch", "from", start, "to", end-1, "categories", labels)
		categories = append(categories, labels...)
	}
	return categories, nil
}

// AssignCategories runs stage 3. It returns copies of results with
// category1 and category2 appended to each table's metadata.
func (t *Tagger) AssignCategories(ctx context.Context, results []TableResult, categories []string) ([]TableResult, error) {
	prefix := prompts.CategoryPrefix(categories)
	assigned := make([][]string, len(results))

	g, ctx := errgroup.WithContext(ctx)
	t.limit(g)

	for i, r := range results {
		g.Go(func() error {
			lines := make([]prompts.MetadataLine, 0, len(r.Table))
			for _, m := range r.Table {
				lines = append(lines, prompts.MetadataLine{Key: m.Key, Value: m.Value})
			}
			labels, err := t.labeler.Do(ctx, prompts.CategoryAssignmentRequest{Prefix: prefix, Metadata: lines})
			if err != nil {
				return fmt.Errorf("assign categories to table %s: %w", r.TableID, err)
			}
			assigned[i] = fit(labels, 2)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]TableResult, len(results))
	for i, r := range results {
		table := make([]Metadatum, len(r.Table), len(r.Table)+2)
		copy(table, r.Table)
		table = append(table,
			Metadatum{ID: r.TableID, Kind: KindTable, Key: KeyCategory1, Value: assigned[i][0]},
			Metadatum{ID: r.TableID, Kind: KindTable, Key: KeyCategory2, Value: assigned[i][1]},
		)
		out[i] = TableResult{TableID: r.TableID, Table: table, Columns: r.Columns}
	}
	return out, nil
}

func (t *Tagger) limit(g *errgroup.Group) {
	if t.config.Concurrency > 0 {
		g.SetLimit(t.config.Concurrency)
	}
}

// fit returns labels when it holds exactly n entries and n placeholders
// otherwise.
func fit(labels []string, n int) []string {
	if len(labels) == n {
		return labels
	}
	return llm.Placeholders(n)
}
