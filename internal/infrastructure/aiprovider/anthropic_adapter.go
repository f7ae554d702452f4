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

// anthropicMaxTemperature is the upper bound the Anthropic API accepts.
// Values above it are clamped rather than rejected.
const anthropicMaxTemperature = 1.0

// AnthropicAdapter implements ai.ModelProvider for the Anthropic API.
// Anthropic offers no embeddings endpoint, so Embed always fails with
// ai.ErrEmbeddingsUnsupported.
type AnthropicAdapter struct {
	config     *AnthropicConfig
	httpClient *http.Client

	// tenantKeys stores per-tenant API keys overriding the platform key
	tenantKeys map[uuid.UUID]string
	mu         sync.RWMutex // Protects tenantKeys map
}

// NewAnthropicAdapter creates an Anthropic adapter with the given configuration
func NewAnthropicAdapter(config *AnthropicConfig) (*AnthropicAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &AnthropicAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		tenantKeys: make(map[uuid.UUID]string),
	}, nil
}

// Name returns the provider this adapter serves
func (a *AnthropicAdapter) Name() ai.ProviderName {
	return ai.ProviderAnthropic
}

// SetTenantKey overrides the platform API key for one tenant
func (a *AnthropicAdapter) SetTenantKey(tenantID uuid.UUID, key string) error {
	if key == "" {
		return fmt.Errorf("anthropic: tenant key cannot be empty")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tenantKeys[tenantID] = key
	return nil
}

// RemoveTenantKey drops a tenant override, reverting to the platform key
func (a *AnthropicAdapter) RemoveTenantKey(tenantID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tenantKeys, tenantID)
}

// apiKey resolves the key for the tenant carried in ctx, falling back to
// the platform key
func (a *AnthropicAdapter) apiKey(ctx context.Context) (string, error) {
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
	return "", fmt.Errorf("%w: anthropic has no API key", ai.ErrProviderNotConfigured)
}

// Chat runs a chat completion against /v1/messages
func (a *AnthropicAdapter) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	temperature := req.Temperature
	if temperature > anthropicMaxTemperature {
		temperature = anthropicMaxTemperature
	}

	body := AnthropicMessageRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
		Messages:    make([]AnthropicMessage, 0, len(req.Messages)),
	}

	// System messages move to the top-level system field. Multiple system
	// turns are joined in order.
	var systemParts []string
	for _, m := range req.Messages {
		if m.Role == ai.RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		body.Messages = append(body.Messages, AnthropicMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	body.System = strings.Join(systemParts, "\n\n")

	if len(body.Messages) == 0 {
		return nil, fmt.Errorf("%w: anthropic: request needs at least one non-system message",
			ai.ErrProviderRequestFailed)
	}

	respBody, err := a.doRequest(ctx, "/v1/messages", body)
	if err != nil {
		return nil, err
	}

	var resp AnthropicMessageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: anthropic: malformed response: %v", ai.ErrProviderRequestFailed, err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &ai.ChatResponse{
		Content:      content.String(),
		FinishReason: resp.StopReason,
		Usage: ai.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

// Embed is unsupported on Anthropic
func (a *AnthropicAdapter) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: anthropic", ai.ErrEmbeddingsUnsupported)
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest posts a JSON payload and returns the response body. Requests
// hitting 429 or a 5xx (including 529 overloaded) are retried with
// exponential backoff.
func (a *AnthropicAdapter) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	apiKey, err := a.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshal request: %w", err)
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
			return nil, fmt.Errorf("anthropic: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", a.config.APIVersion)

		resp, err := a.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: anthropic: %v", ai.ErrProviderRequestFailed, err)
			continue
		}

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: anthropic: read response: %v", ai.ErrProviderRequestFailed, err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		lastErr = anthropicStatusError(resp.StatusCode, respBody)
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// anthropicStatusError translates a non-2xx response into a typed provider error
func anthropicStatusError(status int, body []byte) error {
	var errResp AnthropicErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("%w: anthropic: HTTP %d", ai.ErrProviderRequestFailed, status)
	}

	apiErr := errResp.Error
	switch {
	case status == http.StatusTooManyRequests || apiErr.Type == "rate_limit_error":
		return fmt.Errorf("%w: anthropic: %s", ai.ErrRateLimited, apiErr.Message)
	case apiErr.Type == "invalid_request_error" && strings.Contains(apiErr.Message, "too long"):
		return fmt.Errorf("%w: anthropic: %s", ai.ErrContextLengthExceeded, apiErr.Message)
	default:
		return fmt.Errorf("%w: anthropic: HTTP %d: %s", ai.ErrProviderRequestFailed, status, apiErr.Message)
	}
}

// Ensure AnthropicAdapter implements the provider port
var _ ai.ModelProvider = (*AnthropicAdapter)(nil)
