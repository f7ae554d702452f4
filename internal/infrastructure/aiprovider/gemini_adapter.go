package aiprovider

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/chatforge/backend/internal/domain/ai"
)

// GeminiAdapter implements ai.ModelProvider on top of the Google GenAI SDK
type GeminiAdapter struct {
	config *GeminiConfig

	// client serves requests under the platform key. Nil when no platform
	// key is configured.
	client *genai.Client

	// tenantClients holds per-tenant clients built from tenant keys
	tenantClients map[uuid.UUID]*genai.Client
	mu            sync.RWMutex // Protects tenantClients map
}

// NewGeminiAdapter creates a Gemini adapter with the given configuration
func NewGeminiAdapter(config *GeminiConfig) (*GeminiAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	adapter := &GeminiAdapter{
		config:        config,
		tenantClients: make(map[uuid.UUID]*genai.Client),
	}

	if config.APIKey != "" {
		client, err := newGeminiClient(config.APIKey)
		if err != nil {
			return nil, err
		}
		adapter.client = client
	}

	return adapter, nil
}

func newGeminiClient(apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return client, nil
}

// Name returns the provider this adapter serves
func (a *GeminiAdapter) Name() ai.ProviderName {
	return ai.ProviderGemini
}

// SetTenantKey overrides the platform API key for one tenant
func (a *GeminiAdapter) SetTenantKey(tenantID uuid.UUID, key string) error {
	if key == "" {
		return fmt.Errorf("gemini: tenant key cannot be empty")
	}
	client, err := newGeminiClient(key)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tenantClients[tenantID] = client
	return nil
}

// RemoveTenantKey drops a tenant override, reverting to the platform key
func (a *GeminiAdapter) RemoveTenantKey(tenantID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tenantClients, tenantID)
}

// clientFor resolves the client for the tenant carried in ctx, falling
// back to the platform client
func (a *GeminiAdapter) clientFor(ctx context.Context) (*genai.Client, error) {
	if tenantID, ok := tenantFromContext(ctx); ok {
		a.mu.RLock()
		client, exists := a.tenantClients[tenantID]
		a.mu.RUnlock()
		if exists {
			return client, nil
		}
	}
	if a.client != nil {
		return a.client, nil
	}
	return nil, fmt.Errorf("%w: gemini has no API key", ai.ErrProviderNotConfigured)
}

// Chat runs a chat completion via GenerateContent
func (a *GeminiAdapter) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := a.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}

	// System messages ride along as the system instruction. Gemini models
	// name the assistant role "model".
	var systemParts []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case ai.RoleSystem:
			systemParts = append(systemParts, m.Content)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(systemParts) > 0 {
		genConfig.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}

	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: gemini: request needs at least one non-system message",
			ai.ErrProviderRequestFailed)
	}

	var resp *genai.GenerateContentResponse
	err = a.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
		return callErr
	})
	if err != nil {
		return nil, geminiError(err)
	}

	result := &ai.ChatResponse{Content: resp.Text()}
	if len(resp.Candidates) > 0 {
		result.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if resp.UsageMetadata != nil {
		result.Usage = ai.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return result, nil
}

// Embed returns one embedding per input via EmbedContent
func (a *GeminiAdapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	client, err := a.clientFor(ctx)
	if err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, len(inputs))
	for i, input := range inputs {
		contents[i] = genai.NewContentFromText(input, genai.RoleUser)
	}

	var resp *genai.EmbedContentResponse
	err = a.withRetry(ctx, func() error {
		var callErr error
		resp, callErr = client.Models.EmbedContent(ctx, a.config.EmbeddingModel, contents, nil)
		return callErr
	})
	if err != nil {
		return nil, geminiError(err)
	}

	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: gemini: expected %d embeddings, got %d",
			ai.ErrProviderRequestFailed, len(inputs), len(resp.Embeddings))
	}

	out := make([][]float32, len(inputs))
	for i, embedding := range resp.Embeddings {
		out[i] = embedding.Values
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// withRetry runs one SDK call, retrying rate limits and server errors
// with exponential backoff
func (a *GeminiAdapter) withRetry(ctx context.Context, call func() error) error {
	var lastErr error
	backoff := a.config.RetryBackoff
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = call()
		if lastErr == nil {
			return nil
		}
		if !geminiRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// geminiRetryable reports whether an SDK error is worth another attempt.
// The SDK folds HTTP status details into the error string.
func geminiRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "INTERNAL") ||
		strings.Contains(msg, "UNAVAILABLE")
}

// geminiError translates an SDK error into a typed provider error
func geminiError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: gemini: %v", ai.ErrRateLimited, err)
	}
	return fmt.Errorf("%w: gemini: %v", ai.ErrProviderRequestFailed, err)
}

// Ensure GeminiAdapter implements the provider port
var _ ai.ModelProvider = (*GeminiAdapter)(nil)
