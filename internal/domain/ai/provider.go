package ai

import (
	"context"
	"strings"

	"github.com/chatforge/backend/internal/domain/shared"
)

// ProviderName identifies an AI provider
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
)

// String returns the string representation of the provider name
func (n ProviderName) String() string {
	return string(n)
}

// IsValid returns true if the provider name is known
func (n ProviderName) IsValid() bool {
	switch n {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return true
	default:
		return false
	}
}

// Typed provider errors. Adapters translate vendor responses into these
// so the engine can decide what is retryable and what maps to which
// HTTP status.
var (
	// ErrProviderNotConfigured is returned when no adapter or API key is
	// available for the requested provider
	ErrProviderNotConfigured = shared.NewDomainError("PROVIDER_NOT_CONFIGURED", "AI provider is not configured")

	// ErrProviderRequestFailed is returned when the provider rejects or
	// fails a request for a non-retryable reason
	ErrProviderRequestFailed = shared.NewDomainError("PROVIDER_REQUEST_FAILED", "AI provider request failed")

	// ErrRateLimited is returned when the provider reports rate limiting.
	// Retryable with backoff.
	ErrRateLimited = shared.NewDomainError("PROVIDER_RATE_LIMITED", "AI provider rate limit exceeded")

	// ErrContextLengthExceeded is returned when the request exceeds the
	// model's context window
	ErrContextLengthExceeded = shared.NewDomainError("CONTEXT_LENGTH_EXCEEDED", "Request exceeds the model context window")

	// ErrEmbeddingsUnsupported is returned by providers that offer no
	// embeddings API
	ErrEmbeddingsUnsupported = shared.NewDomainError("EMBEDDINGS_UNSUPPORTED", "Provider does not support embeddings")
)

// MessageRole is the author role of a chat message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is one turn of a chat exchange
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest is a provider-agnostic chat completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Validate checks the request before it reaches a provider
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return shared.NewDomainError("INVALID_MODEL", "Model cannot be empty")
	}
	if len(r.Messages) == 0 {
		return shared.NewDomainError("INVALID_MESSAGES", "Request needs at least one message")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return shared.NewDomainError("INVALID_TEMPERATURE", "Temperature must be between 0 and 2")
	}
	if r.MaxTokens <= 0 {
		return shared.NewDomainError("INVALID_MAX_TOKENS", "Max tokens must be positive")
	}
	return nil
}

// Usage reports token consumption of one provider call
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Total returns prompt plus completion tokens
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// ChatResponse is a provider-agnostic chat completion result
type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// ModelProvider adapts one AI vendor to the engine.
// Implementations must be safe for concurrent use.
type ModelProvider interface {
	// Name returns the provider this adapter serves
	Name() ProviderName

	// Chat runs a chat completion
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed returns one embedding vector per input, in input order.
	// Providers without an embeddings API return ErrEmbeddingsUnsupported.
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
