package llm

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/c360studio/semtag/metric"
	"github.com/c360studio/semtag/prompts"
)

// PlaceholderLabel replaces every label of a response that broke the label contract.
const PlaceholderLabel = "not available"

var labelPattern = regexp.MustCompile(`\{(.*?)\}`)

// ExtractLabels returns the trimmed contents of every {...} span in text, in
// order. Spans do not cross lines.
func ExtractLabels(text string) []string {
	matches := labelPattern.FindAllStringSubmatch(text, -1)
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, strings.TrimSpace(m[1]))
	}
	return labels
}

// Placeholders returns n copies of PlaceholderLabel.
func Placeholders(n int) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = PlaceholderLabel
	}
	return labels
}

// GenerationParams are the sampling parameters sent with every request.
type GenerationParams struct {
	Temperature      float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

// DefaultGenerationParams returns deterministic sampling with strong
// repetition penalties.
func DefaultGenerationParams() GenerationParams {
	return GenerationParams{
		Temperature:      0,
		FrequencyPenalty: 2,
		PresencePenalty:  1.5,
	}
}

// Gateway turns prompts into label lists and enforces the label count each
// request expects. It is safe for concurrent use.
type Gateway struct {
	completer Completer
	params    GenerationParams
	metrics   *metric.Metrics
	logger    *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGenerationParams overrides the sampling parameters.
func WithGenerationParams(p GenerationParams) GatewayOption {
	return func(g *Gateway) {
		g.params = p
	}
}

// WithMetrics records completion counts and contract violations.
func WithMetrics(m *metric.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a Gateway over completer.
func NewGateway(completer Completer, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		completer: completer,
		params:    DefaultGenerationParams(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Do sends the request's prompt and returns exactly req.Arity() labels, or
// any number of labels when the arity is zero.
func (g *Gateway) Do(ctx context.Context, req prompts.Request) ([]string, error) {
	return g.complete(ctx, string(req.Kind()), req.Prompt(), req.Arity(), req.MaxTokens())
}

// Complete sends prompt and returns its labels. An expected count of zero
// accepts any number of labels; otherwise a response with a different count
// yields expected placeholders. maxTokens <= 0 uses prompts.DefaultMaxTokens.
func (g *Gateway) Complete(ctx context.Context, prompt string, expected, maxTokens int) ([]string, error) {
	return g.complete(ctx, "raw", prompt, expected, maxTokens)
}

func (g *Gateway) complete(ctx context.Context, kind, prompt string, expected, maxTokens int) ([]string, error) {
	if maxTokens <= 0 {
		maxTokens = prompts.DefaultMaxTokens
	}
	temperature := g.params.Temperature

	start := time.Now()
	resp, err := g.completer.Complete(ctx, Request{
		Prompt:           prompt,
		MaxTokens:        maxTokens,
		Temperature:      &temperature,
		FrequencyPenalty: g.params.FrequencyPenalty,
		PresencePenalty:  g.params.PresencePenalty,
	})
	g.metrics.ObserveCompletion(kind, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	labels := ExtractLabels(resp.Text)
	if expected > 0 && len(labels) != expected {
		g.logger.Warn("Size mismatch",
			"kind", kind,
			"request_id", resp.RequestID,
			"expected", expected,
			"got", len(labels),
			"prompt", prompt,
			"response", resp.Text)
		g.metrics.ContractViolation(kind)
		return Placeholders(expected), nil
	}
	return labels, nil
}
