package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/backend/internal/domain/channel"
)

func newTelegramAccount(t *testing.T, webhookSecret string) *channel.ChannelAccount {
	t.Helper()
	account, err := channel.NewChannelAccount(
		uuid.New(), uuid.New(), channel.ChannelTypeTelegram,
		"Support bot", `{"bot_token":"12345:ABC"}`, webhookSecret,
	)
	require.NoError(t, err)
	return account
}

func newTelegramConnector(t *testing.T, baseURL string) *TelegramConnector {
	t.Helper()
	connector, err := NewTelegramConnector(&TelegramConfig{BaseURL: baseURL})
	require.NoError(t, err)
	return connector
}

func TestTelegramConnector_Type(t *testing.T) {
	connector := newTelegramConnector(t, "")
	assert.Equal(t, channel.ChannelTypeTelegram, connector.Type())
}

func TestTelegramConnector_VerifyWebhook(t *testing.T) {
	connector := newTelegramConnector(t, "")

	t.Run("accepts matching secret token", func(t *testing.T) {
		account := newTelegramAccount(t, "hook-secret")
		headers := http.Header{}
		headers.Set("X-Telegram-Bot-Api-Secret-Token", "hook-secret")
		assert.NoError(t, connector.VerifyWebhook(account, nil, headers))
	})

	t.Run("rejects wrong secret token", func(t *testing.T) {
		account := newTelegramAccount(t, "hook-secret")
		headers := http.Header{}
		headers.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
		err := connector.VerifyWebhook(account, nil, headers)
		assert.ErrorIs(t, err, channel.ErrWebhookVerification)
	})

	t.Run("skips check without configured secret", func(t *testing.T) {
		account := newTelegramAccount(t, "")
		assert.NoError(t, connector.VerifyWebhook(account, nil, http.Header{}))
	})
}

func TestTelegramConnector_ParseInbound(t *testing.T) {
	connector := newTelegramConnector(t, "")
	account := newTelegramAccount(t, "")
	ctx := context.Background()

	t.Run("parses text message", func(t *testing.T) {
		payload := []byte(`{
			"update_id": 10,
			"message": {
				"message_id": 55,
				"from": {"id": 42, "is_bot": false, "first_name": "Ada"},
				"chat": {"id": -100123, "type": "group"},
				"date": 1710000000,
				"text": "Where is my order?"
			}
		}`)

		msg, err := connector.ParseInbound(ctx, account, payload, http.Header{})
		require.NoError(t, err)
		assert.Equal(t, channel.ChannelTypeTelegram, msg.ChannelType)
		assert.Equal(t, "42", msg.ExternalUserID)
		assert.Equal(t, "-100123", msg.ExternalThreadID)
		assert.Equal(t, "Where is my order?", msg.Text)
		assert.Equal(t, time.Unix(1710000000, 0), msg.ReceivedAt)
		assert.Equal(t, payload, msg.Raw)
	})

	t.Run("ignores bot echoes", func(t *testing.T) {
		payload := []byte(`{"message":{"from":{"id":7,"is_bot":true},"chat":{"id":1},"text":"hi"}}`)
		_, err := connector.ParseInbound(ctx, account, payload, http.Header{})
		assert.ErrorIs(t, err, channel.ErrEventIgnored)
	})

	t.Run("ignores updates without a message", func(t *testing.T) {
		payload := []byte(`{"update_id":11,"my_chat_member":{}}`)
		_, err := connector.ParseInbound(ctx, account, payload, http.Header{})
		assert.ErrorIs(t, err, channel.ErrEventIgnored)
	})

	t.Run("ignores messages without text", func(t *testing.T) {
		payload := []byte(`{"message":{"from":{"id":7},"chat":{"id":1},"sticker":{}}}`)
		_, err := connector.ParseInbound(ctx, account, payload, http.Header{})
		assert.ErrorIs(t, err, channel.ErrEventIgnored)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		_, err := connector.ParseInbound(ctx, account, []byte(`{not json`), http.Header{})
		assert.ErrorIs(t, err, channel.ErrMalformedPayload)
	})
}

func TestTelegramConnector_Send(t *testing.T) {
	account := newTelegramAccount(t, "")

	t.Run("delivers message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bot12345:ABC/sendMessage", r.URL.Path)

			var req TelegramSendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "-100123", req.ChatID)
			assert.Equal(t, "It ships tomorrow.", req.Text)

			json.NewEncoder(w).Encode(TelegramAPIResponse{OK: true})
		}))
		defer server.Close()

		connector := newTelegramConnector(t, server.URL)
		err := connector.Send(context.Background(), account, channel.OutboundMessage{
			ExternalThreadID: "-100123",
			Text:             "It ships tomorrow.",
		})
		assert.NoError(t, err)
	})

	t.Run("surfaces API rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(TelegramAPIResponse{
				OK: false, ErrorCode: 400, Description: "Bad Request: chat not found",
			})
		}))
		defer server.Close()

		connector := newTelegramConnector(t, server.URL)
		err := connector.Send(context.Background(), account, channel.OutboundMessage{
			ExternalThreadID: "1", Text: "hi",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat not found")
	})

	t.Run("rejects credentials without token", func(t *testing.T) {
		broken, err := channel.NewChannelAccount(
			uuid.New(), uuid.New(), channel.ChannelTypeTelegram,
			"Broken", `{"api_key":"nope"}`, "",
		)
		require.NoError(t, err)

		connector := newTelegramConnector(t, "http://localhost")
		err = connector.Send(context.Background(), broken, channel.OutboundMessage{Text: "hi"})
		assert.ErrorIs(t, err, ErrTelegramMissingToken)
	})
}
