package aiprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/backend/internal/domain/ai"
)

// maxEmbedBatchSize is the largest input batch the OpenAI embeddings
// endpoint accepts per request
const maxEmbedBatchSize = 2048

// OpenAIAdapter implements ai.ModelProvider for the OpenAI API
type OpenAIAdapter struct {
	config     *OpenAIConfig
	httpClient *http.Client

	// tenantKeys stores per-tenant API keys overriding the platform key.
	// Loaded from tenant settings at startup.
	tenantKeys map[uuid.UUID]string
	mu         sync.RWMutex // Protects tenantKeys map
}

// NewOpenAIAdapter creates an OpenAI adapter with the given configuration
func NewOpenAIAdapter(config *OpenAIConfig) (*OpenAIAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &OpenAIAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tenantKeys: make(map[uuid.UUID]string),
	}, nil
}

// Name returns the provider this adapter serves
func (a *OpenAIAdapter) Name() ai.ProviderName {
	return ai.ProviderOpenAI
}

// SetTenantKey overrides the platform API key for one tenant
func (a *OpenAIAdapter) SetTenantKey(tenantID uuid.UUID, key string) error {
	if key == "" {
		return fmt.Errorf("openai: tenant key cannot be empty")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tenantKeys[tenantID] = key
	return nil
}

// RemoveTenantKey drops a tenant override, reverting to the platform key
func (a *OpenAIAdapter) RemoveTenantKey(tenantID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tenantKeys, tenantID)
}

// apiKey resolves the key for the tenant carried in ctx, falling back to
// the platform key
func (a *OpenAIAdapter) apiKey(ctx context.Context) (string, error) {
	if tenantID, ok := tenantFromContext(ctx); ok {
		a.mu.RLock()
		key, exists := a.tenantKeys[tenantID]
		a.mu.RUnlock()
		if exists {
			return key, nil
		}
	}
	if a.config.APIKey != "" {
		return a.config.APIKey, nil
	}
	return "", fmt.Errorf("%w: openai has no API key", ai.ErrProviderNotConfigured)
}

// Chat runs a chat completion against /v1/chat/completions
func (a *OpenAIAdapter) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := OpenAIChatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    make([]OpenAIChatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, OpenAIChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	respBody, err := a.doRequest(ctx, "/v1/chat/completions", body)
	if err != nil {
		return nil, err
	}

	var resp OpenAIChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: openai: malformed response: %v", ai.ErrProviderRequestFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: openai: response contains no choices", ai.ErrProviderRequestFailed)
	}

	choice := resp.Choices[0]
	return &ai.ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: ai.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}

// Embed returns one embedding per input via /v1/embeddings. Inputs beyond
// the endpoint's batch limit are split over multiple requests.
func (a *OpenAIAdapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(inputs))
	for offset := 0; offset < len(inputs); offset += maxEmbedBatchSize {
		end := offset + maxEmbedBatchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		batch := inputs[offset:end]

		respBody, err := a.doRequest(ctx, "/v1/embeddings", OpenAIEmbeddingRequest{
			Model: a.config.EmbeddingModel,
			Input: batch,
		})
		if err != nil {
			return nil, err
		}

		var resp OpenAIEmbeddingResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("%w: openai: malformed response: %v", ai.ErrProviderRequestFailed, err)
		}
		if len(resp.Data) != len(batch) {
			return nil, fmt.Errorf("%w: openai: expected %d embeddings, got %d",
				ai.ErrProviderRequestFailed, len(batch), len(resp.Data))
		}

		// Vectors are keyed by index and not guaranteed to arrive in
		// input order
		for _, item := range resp.Data {
			if item.Index < 0 || item.Index >= len(batch) {
				return nil, fmt.Errorf("%w: openai: embedding index %d out of range",
					ai.ErrProviderRequestFailed, item.Index)
			}
			out[offset+item.Index] = item.Embedding
		}
	}

	return out, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest posts a JSON payload and returns the response body. Requests
// hitting 429 or a 5xx are retried with exponential backoff.
func (a *OpenAIAdapter) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	apiKey, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	endpoint := a.config.BaseURL + path

	var lastErr error
	backoff := a.config.RetryBackoff
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("openai: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: openai: %v", ai.ErrProviderRequestFailed, err)
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: openai: read response: %v", ai.ErrProviderRequestFailed, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = openAIStatusError(resp.StatusCode, respBody)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// openAIStatusError translates a non-2xx response into a typed provider error
func openAIStatusError(status int, body []byte) error {
	var errResp OpenAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("%w: openai: HTTP %d", ai.ErrProviderRequestFailed, status)
	}

	apiErr := errResp.Error
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: openai: %s", ai.ErrRateLimited, apiErr.Message)
	case apiErr.Code == "context_length_exceeded" || strings.Contains(apiErr.Message, "maximum context length"):
		return fmt.Errorf("%w: openai: %s", ai.ErrContextLengthExceeded, apiErr.Message)
	default:
		return fmt.Errorf("%w: openai: HTTP %d: %s", ai.ErrProviderRequestFailed, status, apiErr.Message)
	}
}

// Ensure OpenAIAdapter implements the provider port
var _ ai.ModelProvider = (*OpenAIAdapter)(nil)
