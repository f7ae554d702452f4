package aiprovider

import (
	"strings"
	"time"
)

const (
	// OpenAIDefaultBaseURL is the production API origin
	OpenAIDefaultBaseURL = "https://api.openai.com"
	// OpenAIDefaultEmbeddingModel is the embedding model used when none is configured
	OpenAIDefaultEmbeddingModel = "text-embedding-3-small"
)

// OpenAIConfig holds configuration for the OpenAI adapter
type OpenAIConfig struct {
	// APIKey is the platform-level API key. May be empty when every tenant
	// brings their own key; requests without any key fail with
	// ErrProviderNotConfigured.
	APIKey string
	// BaseURL is the API origin. Overridable for proxies and tests.
	BaseURL string
	// EmbeddingModel is the model used for embedding requests
	EmbeddingModel string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxAttempts is the total number of tries for rate-limited or
	// server-errored requests
	MaxAttempts int
	// RetryBackoff is the initial backoff between retries, doubled per attempt
	RetryBackoff time.Duration
}

// NewOpenAIConfig creates an OpenAI configuration with defaults
func NewOpenAIConfig(apiKey string) *OpenAIConfig {
	config := &OpenAIConfig{APIKey: apiKey}
	config.applyDefaults()
	return config
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *OpenAIConfig) Validate() error {
	c.applyDefaults()
	return nil
}

func (c *OpenAIConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = OpenAIDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = OpenAIDefaultEmbeddingModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
}
