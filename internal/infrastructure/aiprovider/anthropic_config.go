package aiprovider

import (
	"strings"
	"time"
)

const (
	// AnthropicDefaultBaseURL is the production API origin
	AnthropicDefaultBaseURL = "https://api.anthropic.com"
	// AnthropicDefaultAPIVersion is the version sent in the
	// anthropic-version header
	AnthropicDefaultAPIVersion = "2023-06-01"
)

// AnthropicConfig holds configuration for the Anthropic adapter
type AnthropicConfig struct {
	// APIKey is the platform-level API key. May be empty when every tenant
	// brings their own key.
	APIKey string
	// BaseURL is the API origin. Overridable for proxies and tests.
	BaseURL string
	// APIVersion is the value of the required anthropic-version header
	APIVersion string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxAttempts is the total number of tries for rate-limited or
	// server-errored requests
	MaxAttempts int
	// RetryBackoff is the initial backoff between retries, doubled per attempt
	RetryBackoff time.Duration
}

// NewAnthropicConfig creates an Anthropic configuration with defaults
func NewAnthropicConfig(apiKey string) *AnthropicConfig {
	config := &AnthropicConfig{APIKey: apiKey}
	config.applyDefaults()
	return config
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *AnthropicConfig) Validate() error {
	c.applyDefaults()
	return nil
}

func (c *AnthropicConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = AnthropicDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.APIVersion == "" {
		c.APIVersion = AnthropicDefaultAPIVersion
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
