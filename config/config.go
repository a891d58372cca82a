// Package config provides configuration loading for semtag.
//
// A run is configured by config.json in the data directory, whose
// "parameters" object is decoded over DefaultConfig, and by the KBC_*
// environment variables.
package config

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/semtag/graph"
	"github.com/c360studio/semtag/processor/tagger"
	"github.com/c360studio/semtag/prompts"
	"github.com/c360studio/semtag/source"
	"github.com/c360studio/semtag/storage"
)

// Config represents the complete data-dir configuration file.
type Config struct {
	Parameters Parameters `yaml:"parameters"`
}

// Parameters are the user-facing settings of a run.
type Parameters struct {
	// Explanations is the glossary prepended to every prompt.
	Explanations []prompts.Explanation `yaml:"explanations"`
	// IncludeFlows keeps only tables produced by a configuration in one of
	// these flows. Empty disables the flow filter.
	IncludeFlows []string `yaml:"includeFlows"`
	// ExcludeTables are regular expressions matched against table ids.
	ExcludeTables []string `yaml:"excludeTables"`
	// ExcludeTableGlobs are doublestar patterns matched against table ids.
	ExcludeTableGlobs []string `yaml:"excludeTableGlobs"`
	// UseDataPreviews adds sample values to the column descriptions.
	UseDataPreviews bool `yaml:"useDataPreviews"`
	// WriteData stores the generated metadata. False is a dry run.
	WriteData bool `yaml:"writeData"`
	// OpenAPIKey authenticates the completion requests.
	OpenAPIKey string `yaml:"#openApiKey"`

	Model   ModelConfig   `yaml:"model"`
	Limits  LimitsConfig  `yaml:"limits"`
	Storage StorageConfig `yaml:"storage"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ModelConfig configures the completion endpoint.
type ModelConfig struct {
	// Provider is the completion provider (openai, ollama).
	Provider string `yaml:"provider"`
	// URL is the API base URL. Empty uses the provider default.
	URL string `yaml:"url"`
	// Name is the completion model.
	Name string `yaml:"name"`
	// Temperature controls randomness (0.0-2.0, default: 0).
	Temperature float64 `yaml:"temperature"`
	// FrequencyPenalty and PresencePenalty range over -2.0 to 2.0.
	FrequencyPenalty float64 `yaml:"frequencyPenalty"`
	PresencePenalty  float64 `yaml:"presencePenalty"`
	// MaxAttempts per completion. 1 disables retries.
	MaxAttempts int `yaml:"maxAttempts"`
	// Timeout is the maximum time to wait for one completion.
	Timeout time.Duration `yaml:"timeout"`
}

// LimitsConfig bounds sampling, batching and concurrency.
type LimitsConfig struct {
	PreviewRows       int `yaml:"previewRows"`
	SampleSize        int `yaml:"sampleSize"`
	SampleValueLength int `yaml:"sampleValueLength"`
	TagBatchSize      int `yaml:"tagBatchSize"`
	CategoryCount     int `yaml:"categoryCount"`
	// Concurrency caps concurrent requests per fan-out. 0 is unbounded.
	Concurrency int `yaml:"concurrency"`
}

// StorageConfig configures how the configuration listing is read and how
// metadata is written.
type StorageConfig struct {
	// Provider is recorded as the metadata provider.
	Provider string `yaml:"provider"`
	// OrchestratorID is the component whose configurations are flows.
	OrchestratorID string `yaml:"orchestratorId"`
	// Denylist lists component ids never treated as table producers.
	Denylist []string `yaml:"denylist"`
}

// NATSConfig configures event publication.
type NATSConfig struct {
	// URL is the NATS server URL (empty = no events)
	URL string `yaml:"url"`
	// SubjectPrefix prefixes every event subject.
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is written in the Prometheus text format when the run ends (empty = disabled).
	Textfile string `yaml:"textfile"`
}

// Default model settings.
const (
	DefaultProvider         = "openai"
	DefaultModel            = "gpt-3.5-turbo-instruct"
	DefaultTemperature      = 0.0
	DefaultFrequencyPenalty = 2.0
	DefaultPresencePenalty  = 1.5
	DefaultTimeout          = 2 * time.Minute
)

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Parameters: Parameters{
			Model: ModelConfig{
				Provider:         DefaultProvider,
				Name:             DefaultModel,
				Temperature:      DefaultTemperature,
				FrequencyPenalty: DefaultFrequencyPenalty,
				PresencePenalty:  DefaultPresencePenalty,
				MaxAttempts:      1,
				Timeout:          DefaultTimeout,
			},
			Limits: LimitsConfig{
				PreviewRows:       source.DefaultPreviewRows,
				SampleSize:        source.DefaultSampleSize,
				SampleValueLength: source.DefaultSampleValueLength,
				TagBatchSize:      tagger.DefaultTagBatchSize,
				CategoryCount:     prompts.DefaultCategoryCount,
			},
			Storage: StorageConfig{
				Provider:       storage.DefaultProvider,
				OrchestratorID: graph.DefaultOrchestratorID,
				Denylist:       append([]string(nil), graph.DefaultDenylist...),
			},
			NATS: NATSConfig{
				SubjectPrefix: "semtag",
			},
		},
	}
}

// Validate checks that the configuration is usable. All problems are
// reported as UserErrors.
func (c *Config) Validate() error {
	p := c.Parameters
	if p.OpenAPIKey == "" {
		return NewUserError("#openApiKey must be specified in parameters")
	}
	if p.Model.Name == "" {
		return NewUserError("model.name is required")
	}
	if p.Model.Temperature < 0 || p.Model.Temperature > 2 {
		return NewUserError("model.temperature must be between 0 and 2")
	}
	if p.Model.MaxAttempts < 1 {
		return NewUserError("model.maxAttempts must be at least 1")
	}
	if p.Limits.Concurrency < 0 {
		return NewUserError("limits.concurrency must not be negative")
	}
	for _, limit := range []struct {
		name  string
		value int
	}{
		{"previewRows", p.Limits.PreviewRows},
		{"sampleSize", p.Limits.SampleSize},
		{"sampleValueLength", p.Limits.SampleValueLength},
		{"tagBatchSize", p.Limits.TagBatchSize},
		{"categoryCount", p.Limits.CategoryCount},
	} {
		if limit.value <= 0 {
			return NewUserError("limits.%s must be positive", limit.name)
		}
	}
	if _, err := p.ExcludePatterns(); err != nil {
		return err
	}
	for _, glob := range p.ExcludeTableGlobs {
		if !doublestar.ValidatePattern(glob) {
			return NewUserError("invalid table glob %q", glob)
		}
	}
	return nil
}

// ExcludePatterns compiles ExcludeTables.
func (p Parameters) ExcludePatterns() ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(p.ExcludeTables))
	for _, expr := range p.ExcludeTables {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, NewUserError("invalid table exclusion pattern %q: %v", expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}

// FilterOptions returns the table filter settings.
func (p Parameters) FilterOptions() (graph.FilterOptions, error) {
	patterns, err := p.ExcludePatterns()
	if err != nil {
		return graph.FilterOptions{}, err
	}
	return graph.FilterOptions{
		IncludeFlows:    p.IncludeFlows,
		ExcludePatterns: patterns,
		ExcludeGlobs:    p.ExcludeTableGlobs,
	}, nil
}

// BuildOptions returns the context graph settings.
func (p Parameters) BuildOptions() graph.BuildOptions {
	return graph.BuildOptions{
		OrchestratorID: p.Storage.OrchestratorID,
		Denylist:       p.Storage.Denylist,
	}
}

// SamplerConfig returns the sample enricher settings.
func (p Parameters) SamplerConfig() source.Config {
	return source.Config{
		PreviewRows:       p.Limits.PreviewRows,
		SampleSize:        p.Limits.SampleSize,
		SampleValueLength: p.Limits.SampleValueLength,
		Concurrency:       p.Limits.Concurrency,
	}
}

// TaggerConfig returns the labeling settings.
func (p Parameters) TaggerConfig() tagger.Config {
	return tagger.Config{
		TagBatchSize:  p.Limits.TagBatchSize,
		CategoryCount: p.Limits.CategoryCount,
		Concurrency:   p.Limits.Concurrency,
	}
}

// String describes the configuration without secrets.
func (c *Config) String() string {
	p := c.Parameters
	return fmt.Sprintf("provider=%s model=%s includeFlows=%v excludeTables=%v useDataPreviews=%t writeData=%t",
		p.Model.Provider, p.Model.Name, p.IncludeFlows, p.ExcludeTables, p.UseDataPreviews, p.WriteData)
}
