package channels

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

// WhatsAppDefaultBaseURL is the production Graph API origin, version pinned
const WhatsAppDefaultBaseURL = "https://graph.facebook.com/v19.0"

// ErrWhatsAppMissingCredentials indicates account credentials without an
// access token or phone number ID
var ErrWhatsAppMissingCredentials = errors.New("whatsapp: credentials missing access_token or phone_number_id")

// WhatsAppConfig holds configuration for the WhatsApp connector
type WhatsAppConfig struct {
	// BaseURL is the Graph API origin including version. Overridable for tests.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *WhatsAppConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = WhatsAppDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// WhatsAppConnector implements channel.ChannelConnector for the Meta
// Cloud API. The subscription handshake (GET with hub.challenge) is
// handled by the webhook endpoint; this connector covers signed POSTs.
type WhatsAppConnector struct {
	config     *WhatsAppConfig
	httpClient *http.Client
}

// NewWhatsAppConnector creates a WhatsApp connector
func NewWhatsAppConnector(config *WhatsAppConfig) (*WhatsAppConnector, error) {
	if config == nil {
		config = &WhatsAppConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &WhatsAppConnector{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Type returns the channel this connector serves
func (c *WhatsAppConnector) Type() channel.ChannelType {
	return channel.ChannelTypeWhatsApp
}

// VerifyWebhook checks the X-Hub-Signature-256 HMAC Meta computes over
// the raw payload with the app secret
func (c *WhatsAppConnector) VerifyWebhook(account *channel.ChannelAccount, payload []byte, headers http.Header) error {
	if account.WebhookSecret == "" {
		return fmt.Errorf("%w: whatsapp account has no app secret", channel.ErrWebhookVerification)
	}

	signature := headers.Get("X-Hub-Signature-256")
	if !strings.HasPrefix(signature, "sha256=") {
		return fmt.Errorf("%w: missing X-Hub-Signature-256", channel.ErrWebhookVerification)
	}

	mac := hmac.New(sha256.New, []byte(account.WebhookSecret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: whatsapp signature mismatch", channel.ErrWebhookVerification)
	}
	return nil
}

// ParseInbound extracts the user message from a Cloud API webhook payload
func (c *WhatsAppConnector) ParseInbound(ctx context.Context, account *channel.ChannelAccount, payload []byte, headers http.Header) (*channel.InboundMessage, error) {
	var envelope WhatsAppWebhookPayload
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: whatsapp payload: %v", channel.ErrMalformedPayload, err)
	}

	msg := firstWhatsAppMessage(&envelope)
	if msg == nil {
		// Delivery receipts and read statuses arrive on the same webhook
		return nil, fmt.Errorf("%w: payload carries no user message", channel.ErrEventIgnored)
	}
	if msg.Type != "text" || msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" {
		return nil, fmt.Errorf("%w: unsupported message type '%s'", channel.ErrEventIgnored, msg.Type)
	}

	receivedAt := time.Now()
	if unix, err := strconv.ParseInt(msg.Timestamp, 10, 64); err == nil && unix > 0 {
		receivedAt = time.Unix(unix, 0)
	}

	// WhatsApp conversations are direct: the sender's number is both the
	// user and the thread
	return &channel.InboundMessage{
		ChannelType:      channel.ChannelTypeWhatsApp,
		ExternalUserID:   msg.From,
		ExternalThreadID: msg.From,
		Text:             msg.Text.Body,
		ReceivedAt:       receivedAt,
		Raw:              payload,
	}, nil
}

// Send delivers a reply via /{phone_number_id}/messages
func (c *WhatsAppConnector) Send(ctx context.Context, account *channel.ChannelAccount, msg channel.OutboundMessage) error {
	creds, err := whatsAppCredentials(account)
	if err != nil {
		return err
	}

	body, err := json.Marshal(WhatsAppSendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               msg.ExternalThreadID,
		Type:             "text",
		Text:             WhatsAppTextBody{Body: msg.Text},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.config.BaseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: whatsapp: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("whatsapp: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp WhatsAppErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return fmt.Errorf("whatsapp: send failed: %s (code %d)", errResp.Error.Message, errResp.Error.Code)
		}
		return fmt.Errorf("whatsapp: send failed: HTTP %d", resp.StatusCode)
	}

	return nil
}

func firstWhatsAppMessage(envelope *WhatsAppWebhookPayload) *WhatsAppInboundMessage {
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			if len(change.Value.Messages) > 0 {
				return &change.Value.Messages[0]
			}
		}
	}
	return nil
}

func whatsAppCredentials(account *channel.ChannelAccount) (*WhatsAppCredentials, error) {
	var creds WhatsAppCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("whatsapp: parse credentials: %w", err)
	}
	if creds.AccessToken == "" || creds.PhoneNumberID == "" {
		return nil, ErrWhatsAppMissingCredentials
	}
	return &creds, nil
}

// Ensure WhatsAppConnector implements the connector port
var _ channel.ChannelConnector = (*WhatsAppConnector)(nil)
