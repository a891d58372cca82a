package tagger

import (
	"fmt"

	"github.com/c360studio/semtag/prompts"
)

// DefaultTagBatchSize is the number of tags sent per induction request.
const DefaultTagBatchSize = 200

// Config holds configuration for the tagger.
type Config struct {
	// TagBatchSize is the number of tag sources per category induction request.
	TagBatchSize int `json:"tag_batch_size" yaml:"tagBatchSize"`

	// CategoryCount is the number of categories the induction request asks for.
	CategoryCount int `json:"category_count" yaml:"categoryCount"`

	// Concurrency caps concurrent completion calls per fan-out. Zero means unbounded.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns the default tagger configuration.
func DefaultConfig() Config {
	return Config{
		TagBatchSize:  DefaultTagBatchSize,
		CategoryCount: prompts.DefaultCategoryCount,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TagBatchSize <= 0 {
		return fmt.Errorf("tag_batch_size must be positive, got %d", c.TagBatchSize)
	}
	if c.CategoryCount <= 0 {
		return fmt.Errorf("category_count must be positive, got %d", c.CategoryCount)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	return nil
}
