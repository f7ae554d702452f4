package channels

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
)

// TelegramDefaultBaseURL is the production Bot API origin
const TelegramDefaultBaseURL = "https://api.telegram.org"

// ErrTelegramMissingToken indicates account credentials without a bot token
var ErrTelegramMissingToken = errors.New("telegram: credentials missing bot_token")

// TelegramConfig holds configuration for the Telegram connector
type TelegramConfig struct {
	// BaseURL is the Bot API origin. Overridable for tests.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *TelegramConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = TelegramDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// TelegramConnector implements channel.ChannelConnector for the Telegram
// Bot API
type TelegramConnector struct {
	config     *TelegramConfig
	httpClient *http.Client
}

// NewTelegramConnector creates a Telegram connector
func NewTelegramConnector(config *TelegramConfig) (*TelegramConnector, error) {
	if config == nil {
		config = &TelegramConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TelegramConnector{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Type returns the channel this connector serves
func (c *TelegramConnector) Type() channel.ChannelType {
	return channel.ChannelTypeTelegram
}

// VerifyWebhook checks the secret token Telegram echoes back on every
// webhook call. Accounts without a configured secret skip the check;
// the token is optional on setWebhook.
func (c *TelegramConnector) VerifyWebhook(account *channel.ChannelAccount, payload []byte, headers http.Header) error {
	if account.WebhookSecret == "" {
		return nil
	}

	token := headers.Get("X-Telegram-Bot-Api-Secret-Token")
	if !hmac.Equal([]byte(token), []byte(account.WebhookSecret)) {
		return fmt.Errorf("%w: telegram secret token mismatch", channel.ErrWebhookVerification)
	}
	return nil
}

// ParseInbound extracts the user message from a Bot API update
func (c *TelegramConnector) ParseInbound(ctx context.Context, account *channel.ChannelAccount, payload []byte, headers http.Header) (*channel.InboundMessage, error) {
	var update TelegramUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return nil, fmt.Errorf("%w: telegram update: %v", channel.ErrMalformedPayload, err)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		// Edits, channel posts, membership changes and the like
		return nil, fmt.Errorf("%w: update carries no message", channel.ErrEventIgnored)
	}
	if msg.From != nil && msg.From.IsBot {
		return nil, fmt.Errorf("%w: message from a bot", channel.ErrEventIgnored)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return nil, fmt.Errorf("%w: message carries no text", channel.ErrEventIgnored)
	}

	externalUserID := ""
	if msg.From != nil {
		externalUserID = strconv.FormatInt(msg.From.ID, 10)
	}

	receivedAt := time.Now()
	if msg.Date > 0 {
		receivedAt = time.Unix(msg.Date, 0)
	}

	return &channel.InboundMessage{
		ChannelType:      channel.ChannelTypeTelegram,
		ExternalUserID:   externalUserID,
		ExternalThreadID: strconv.FormatInt(msg.Chat.ID, 10),
		Text:             msg.Text,
		ReceivedAt:       receivedAt,
		Raw:              payload,
	}, nil
}

// Send delivers a reply via sendMessage
func (c *TelegramConnector) Send(ctx context.Context, account *channel.ChannelAccount, msg channel.OutboundMessage) error {
	creds, err := telegramCredentials(account)
	if err != nil {
		return err
	}

	body, err := json.Marshal(TelegramSendRequest{
		ChatID: msg.ExternalThreadID,
		Text:   msg.Text,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.config.BaseURL, creds.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("telegram: read response: %w", err)
	}

	var apiResp TelegramAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("telegram: sendMessage failed: HTTP %d", resp.StatusCode)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram: sendMessage failed: %d %s", apiResp.ErrorCode, apiResp.Description)
	}

	return nil
}

func telegramCredentials(account *channel.ChannelAccount) (*TelegramCredentials, error) {
	var creds TelegramCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("telegram: parse credentials: %w", err)
	}
	if creds.BotToken == "" {
		return nil, ErrTelegramMissingToken
	}
	return &creds, nil
}

// Ensure TelegramConnector implements the connector port
var _ channel.ChannelConnector = (*TelegramConnector)(nil)
