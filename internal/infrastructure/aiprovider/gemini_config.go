package aiprovider

import "time"

// GeminiDefaultEmbeddingModel is the embedding model used when none is
// configured
const GeminiDefaultEmbeddingModel = "text-embedding-004"

// GeminiConfig holds configuration for the Gemini adapter
type GeminiConfig struct {
	// APIKey is the platform-level API key. May be empty when every tenant
	// brings their own key.
	APIKey string
	// EmbeddingModel is the model used for embedding requests
	EmbeddingModel string
	// MaxAttempts is the total number of tries for rate-limited or
	// server-errored requests
	MaxAttempts int
	// RetryBackoff is the initial backoff between retries, doubled per attempt
	RetryBackoff time.Duration
}

// NewGeminiConfig creates a Gemini configuration with defaults
func NewGeminiConfig(apiKey string) *GeminiConfig {
	config := &GeminiConfig{APIKey: apiKey}
	config.applyDefaults()
	return config
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *GeminiConfig) Validate() error {
	c.applyDefaults()
	return nil
}

func (c *GeminiConfig) applyDefaults() {
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = GeminiDefaultEmbeddingModel
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = defaultRetryBackoff
	}
}
