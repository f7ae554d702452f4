package aiprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chatforge/backend/internal/domain/ai"
	"github.com/chatforge/backend/internal/infrastructure/logger"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestOpenAIConfig_Validate(t *testing.T) {
	config := &OpenAIConfig{APIKey: "sk-test"}
	require.NoError(t, config.Validate())

	assert.Equal(t, OpenAIDefaultBaseURL, config.BaseURL)
	assert.Equal(t, OpenAIDefaultEmbeddingModel, config.EmbeddingModel)
	assert.Equal(t, 60*time.Second, config.Timeout)
	assert.Equal(t, defaultMaxAttempts, config.MaxAttempts)
	assert.Equal(t, defaultRetryBackoff, config.RetryBackoff)
}

func TestOpenAIConfig_TrimsTrailingSlash(t *testing.T) {
	config := &OpenAIConfig{BaseURL: "https://proxy.example.com/"}
	require.NoError(t, config.Validate())
	assert.Equal(t, "https://proxy.example.com", config.BaseURL)
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func newOpenAITestAdapter(t *testing.T, baseURL string) *OpenAIAdapter {
	t.Helper()
	adapter, err := NewOpenAIAdapter(&OpenAIConfig{
		APIKey:       "platform-key",
		BaseURL:      baseURL,
		RetryBackoff: time.Millisecond,
	})
	require.NoError(t, err)
	return adapter
}

func validChatRequest() ai.ChatRequest {
	return ai.ChatRequest{
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   512,
		Messages: []ai.ChatMessage{
			{Role: ai.RoleSystem, Content: "You are a support bot."},
			{Role: ai.RoleUser, Content: "Where is my order?"},
		},
	}
}

func TestOpenAIAdapter_Name(t *testing.T) {
	adapter := newOpenAITestAdapter(t, "http://localhost")
	assert.Equal(t, ai.ProviderOpenAI, adapter.Name())
}

func TestOpenAIAdapter_Chat(t *testing.T) {
	t.Run("successful completion", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer platform-key", r.Header.Get("Authorization"))

			var req OpenAIChatRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.InDelta(t, 0.7, req.Temperature, 0.001)
			assert.Equal(t, 512, req.MaxTokens)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)

			json.NewEncoder(w).Encode(OpenAIChatResponse{
				ID: "chatcmpl-1",
				Choices: []OpenAIChatChoice{{
					Message:      OpenAIChatMessage{Role: "assistant", Content: "It ships tomorrow."},
					FinishReason: "stop",
				}},
				Usage: OpenAIUsage{PromptTokens: 42, CompletionTokens: 9, TotalTokens: 51},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		resp, err := adapter.Chat(context.Background(), validChatRequest())
		require.NoError(t, err)
		assert.Equal(t, "It ships tomorrow.", resp.Content)
		assert.Equal(t, "stop", resp.FinishReason)
		assert.Equal(t, 42, resp.Usage.PromptTokens)
		assert.Equal(t, 9, resp.Usage.CompletionTokens)
		assert.Equal(t, 51, resp.Usage.Total())
	})

	t.Run("retries server errors", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if attempts.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(OpenAIErrorResponse{Error: OpenAIAPIError{Message: "upstream hiccup"}})
				return
			}
			json.NewEncoder(w).Encode(OpenAIChatResponse{
				Choices: []OpenAIChatChoice{{Message: OpenAIChatMessage{Content: "ok"}, FinishReason: "stop"}},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		resp, err := adapter.Chat(context.Background(), validChatRequest())
		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Content)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("rate limit exhausts retries", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(OpenAIErrorResponse{
				Error: OpenAIAPIError{Message: "Rate limit reached", Type: "rate_limit_error"},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		_, err := adapter.Chat(context.Background(), validChatRequest())
		assert.ErrorIs(t, err, ai.ErrRateLimited)
		assert.Equal(t, int32(3), attempts.Load())
	})

	t.Run("bad request is not retried", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(OpenAIErrorResponse{
				Error: OpenAIAPIError{Message: "Unknown model", Type: "invalid_request_error"},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		_, err := adapter.Chat(context.Background(), validChatRequest())
		assert.ErrorIs(t, err, ai.ErrProviderRequestFailed)
		assert.Equal(t, int32(1), attempts.Load())
	})

	t.Run("maps context length errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(OpenAIErrorResponse{
				Error: OpenAIAPIError{
					Message: "This model's maximum context length is 128000 tokens",
					Type:    "invalid_request_error",
					Code:    "context_length_exceeded",
				},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		_, err := adapter.Chat(context.Background(), validChatRequest())
		assert.ErrorIs(t, err, ai.ErrContextLengthExceeded)
	})

	t.Run("rejects invalid request before sending", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		req := validChatRequest()
		req.Model = ""
		_, err := adapter.Chat(context.Background(), req)
		assert.Error(t, err)
		assert.Equal(t, int32(0), attempts.Load())
	})

	t.Run("empty choices is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OpenAIChatResponse{})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		_, err := adapter.Chat(context.Background(), validChatRequest())
		assert.ErrorIs(t, err, ai.ErrProviderRequestFailed)
	})
}

func TestOpenAIAdapter_TenantKeys(t *testing.T) {
	var lastAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastAuth.Store(r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(OpenAIChatResponse{
			Choices: []OpenAIChatChoice{{Message: OpenAIChatMessage{Content: "ok"}, FinishReason: "stop"}},
		})
	}))
	defer server.Close()

	adapter := newOpenAITestAdapter(t, server.URL)
	tenantID := uuid.New()
	require.NoError(t, adapter.SetTenantKey(tenantID, "tenant-key"))

	t.Run("tenant override wins", func(t *testing.T) {
		ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
		_, err := adapter.Chat(ctx, validChatRequest())
		require.NoError(t, err)
		assert.Equal(t, "Bearer tenant-key", lastAuth.Load())
	})

	t.Run("unknown tenant falls back to platform key", func(t *testing.T) {
		ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), uuid.New().String())
		_, err := adapter.Chat(ctx, validChatRequest())
		require.NoError(t, err)
		assert.Equal(t, "Bearer platform-key", lastAuth.Load())
	})

	t.Run("removed override reverts", func(t *testing.T) {
		adapter.RemoveTenantKey(tenantID)
		ctx, _ := logger.WithTenantID(context.Background(), zap.NewNop(), tenantID.String())
		_, err := adapter.Chat(ctx, validChatRequest())
		require.NoError(t, err)
		assert.Equal(t, "Bearer platform-key", lastAuth.Load())
	})

	t.Run("empty tenant key rejected", func(t *testing.T) {
		assert.Error(t, adapter.SetTenantKey(tenantID, ""))
	})
}

func TestOpenAIAdapter_NotConfigured(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	}))
	defer server.Close()

	adapter, err := NewOpenAIAdapter(&OpenAIConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = adapter.Chat(context.Background(), validChatRequest())
	assert.ErrorIs(t, err, ai.ErrProviderNotConfigured)
	assert.Equal(t, int32(0), attempts.Load())
}

// ---------------------------------------------------------------------------
// Embedding Tests
// ---------------------------------------------------------------------------

func TestOpenAIAdapter_Embed(t *testing.T) {
	t.Run("reassembles by index", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/embeddings", r.URL.Path)

			var req OpenAIEmbeddingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, OpenAIDefaultEmbeddingModel, req.Model)
			require.Len(t, req.Input, 2)

			// Deliberately out of order
			json.NewEncoder(w).Encode(OpenAIEmbeddingResponse{
				Data: []OpenAIEmbeddingData{
					{Index: 1, Embedding: []float32{0.2}},
					{Index: 0, Embedding: []float32{0.1}},
				},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		vectors, err := adapter.Embed(context.Background(), []string{"first", "second"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Equal(t, []float32{0.1}, vectors[0])
		assert.Equal(t, []float32{0.2}, vectors[1])
	})

	t.Run("splits oversized batches", func(t *testing.T) {
		var batchSizes []int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req OpenAIEmbeddingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			batchSizes = append(batchSizes, len(req.Input))

			resp := OpenAIEmbeddingResponse{Data: make([]OpenAIEmbeddingData, len(req.Input))}
			for i := range req.Input {
				resp.Data[i] = OpenAIEmbeddingData{Index: i, Embedding: []float32{float32(i)}}
			}
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		inputs := make([]string, maxEmbedBatchSize+2)
		for i := range inputs {
			inputs[i] = "chunk"
		}

		adapter := newOpenAITestAdapter(t, server.URL)
		vectors, err := adapter.Embed(context.Background(), inputs)
		require.NoError(t, err)
		assert.Len(t, vectors, maxEmbedBatchSize+2)
		assert.Equal(t, []int{maxEmbedBatchSize, 2}, batchSizes)
	})

	t.Run("empty input makes no requests", func(t *testing.T) {
		var attempts atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts.Add(1)
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		vectors, err := adapter.Embed(context.Background(), nil)
		require.NoError(t, err)
		assert.Nil(t, vectors)
		assert.Equal(t, int32(0), attempts.Load())
	})

	t.Run("count mismatch is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(OpenAIEmbeddingResponse{
				Data: []OpenAIEmbeddingData{{Index: 0, Embedding: []float32{0.1}}},
			})
		}))
		defer server.Close()

		adapter := newOpenAITestAdapter(t, server.URL)
		_, err := adapter.Embed(context.Background(), []string{"a", "b"})
		assert.ErrorIs(t, err, ai.ErrProviderRequestFailed)
	})
}
