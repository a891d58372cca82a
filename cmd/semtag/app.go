package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360studio/semtag/config"
	"github.com/c360studio/semtag/events"
	"github.com/c360studio/semtag/graph"
	"github.com/c360studio/semtag/llm"
	"github.com/c360studio/semtag/metric"
	"github.com/c360studio/semtag/processor/tagger"
	"github.com/c360studio/semtag/source"
	"github.com/c360studio/semtag/storage"
)

// RunSummary describes a finished run.
type RunSummary struct {
	TablesListed   int
	TablesExcluded int
	TablesTagged   int
	TablesWritten  int
	Categories     []string
}

// App is the main application that wires together all components.
type App struct {
	cfg    *config.Config
	env    config.Environment
	runID  string
	logger *slog.Logger

	storage *storage.Client
	gateway *llm.Gateway
	metrics *metric.Metrics

	// NATS
	natsConn  *nats.Conn
	publisher *events.Publisher
}

// NewApp creates a new application instance. The configuration must be valid.
func NewApp(cfg *config.Config, env config.Environment, runID string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := cfg.Parameters

	if llm.GetProvider(p.Model.Provider) == nil {
		return nil, config.NewUserError("unknown model provider %q, available: %v", p.Model.Provider, llm.ListProviders())
	}

	metrics := metric.New(runID)

	client := llm.NewClient(
		llm.Endpoint{
			Provider: p.Model.Provider,
			URL:      p.Model.URL,
			Model:    p.Model.Name,
			APIKey:   p.OpenAPIKey,
		},
		llm.WithHTTPClient(&http.Client{Timeout: p.Model.Timeout}),
		llm.WithRetryConfig(retryConfig(p.Model.MaxAttempts)),
		llm.WithLogger(logger),
	)

	gateway := llm.NewGateway(client,
		llm.WithGenerationParams(llm.GenerationParams{
			Temperature:      p.Model.Temperature,
			FrequencyPenalty: p.Model.FrequencyPenalty,
			PresencePenalty:  p.Model.PresencePenalty,
		}),
		llm.WithMetrics(metrics),
		llm.WithGatewayLogger(logger),
	)

	return &App{
		cfg:    cfg,
		env:    env,
		runID:  runID,
		logger: logger,
		storage: storage.NewClient(env.URL, env.Token,
			storage.WithLogger(logger),
			storage.WithProvider(p.Storage.Provider),
		),
		gateway: gateway,
		metrics: metrics,
	}, nil
}

func retryConfig(maxAttempts int) llm.RetryConfig {
	rc := llm.DefaultRetryConfig()
	rc.MaxAttempts = maxAttempts
	return rc
}

// Start connects to NATS when a URL is configured.
func (a *App) Start(ctx context.Context) error {
	url := a.cfg.Parameters.NATS.URL
	if url == "" {
		return nil
	}

	a.logger.Info("Connecting to NATS", "url", url)
	conn, err := nats.Connect(url, nats.Name("semtag-"+a.runID))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	a.natsConn = conn
	a.publisher = events.NewPublisher(conn, a.cfg.Parameters.NATS.SubjectPrefix, a.runID, a.logger)
	return nil
}

// Shutdown drains the NATS connection.
func (a *App) Shutdown() {
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.logger.Warn("Failed to drain NATS connection", "error", err)
		}
		a.natsConn.Close()
	}
}

// Run lists, filters, samples, tags and writes. Metrics are exported even
// when the run fails.
func (a *App) Run(ctx context.Context) (*RunSummary, error) {
	started := time.Now()
	p := a.cfg.Parameters

	defer func() {
		if err := a.metrics.WriteTextfile(p.Metrics.Textfile); err != nil {
			a.logger.Warn("Failed to export metrics", "error", err)
		}
	}()

	components, err := a.storage.ListComponents(ctx)
	if err != nil {
		return nil, err
	}
	listed, err := a.storage.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	catalog := graph.Build(components, p.BuildOptions())
	tables := graph.BuildTables(listed)
	a.logger.Info("Listings loaded",
		"components", len(components),
		"configurations", len(catalog.Configurations()),
		"flows", catalog.FlowCount(),
		"tables", len(tables))

	filterOpts, err := p.FilterOptions()
	if err != nil {
		return nil, err
	}
	filtered := graph.Filter(tables, catalog, filterOpts)
	for _, ex := range filtered.Excluded {
		a.logger.Info(ex.Message, "table", ex.TableID, "reason", ex.Reason)
		a.metrics.TableExcluded(string(ex.Reason))
	}
	for _, t := range filtered.Kept {
		if flowID, ok := filtered.Flows[t.ID]; ok {
			a.logger.Info(fmt.Sprintf("Table %q belongs to flow %q.", t.ID, flowID), "table", t.ID, "flow", flowID)
		}
	}

	kept := filtered.Kept
	if p.UseDataPreviews {
		enricher := source.NewEnricher(a.storage, p.SamplerConfig(), a.logger)
		kept, err = enricher.Enrich(ctx, kept)
		if err != nil {
			return nil, err
		}
	}

	tg := tagger.New(a.gateway, catalog,
		tagger.WithGlossary(p.Explanations),
		tagger.WithConfig(p.TaggerConfig()),
		tagger.WithMetrics(a.metrics),
		tagger.WithLogger(a.logger),
	)
	result, err := tg.Run(ctx, kept)
	if err != nil {
		return nil, err
	}

	writer := tagger.NewWriter(a.storage,
		tagger.WriterConfig{WriteData: p.WriteData, Concurrency: p.Limits.Concurrency},
		a.publisher, a.metrics, a.logger)
	written, err := writer.Write(ctx, result.Tables)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{
		TablesListed:   len(tables),
		TablesExcluded: len(filtered.Excluded),
		TablesTagged:   len(result.Tables),
		TablesWritten:  written,
		Categories:     result.Categories,
	}

	a.publisher.RunCompleted(events.RunCompletedEvent{
		TablesListed:   summary.TablesListed,
		TablesExcluded: summary.TablesExcluded,
		TablesTagged:   summary.TablesTagged,
		Categories:     summary.Categories,
		DryRun:         !p.WriteData,
		DurationMS:     time.Since(started).Milliseconds(),
	})

	a.logger.Info("Run finished",
		"tables_tagged", summary.TablesTagged,
		"tables_written", summary.TablesWritten,
		"categories", len(summary.Categories),
		"duration_ms", time.Since(started).Milliseconds())
	return summary, nil
}
