package channels

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
)

// DiscordDefaultBaseURL is the production REST API origin, version pinned
const DiscordDefaultBaseURL = "https://discord.com/api/v10"

// ErrDiscordMissingToken indicates account credentials without a bot token
var ErrDiscordMissingToken = errors.New("discord: credentials missing bot_token")

// DiscordConfig holds configuration for the Discord connector
type DiscordConfig struct {
	// BaseURL is the REST API origin including version. Overridable for tests.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *DiscordConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DiscordDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// DiscordConnector implements channel.ChannelConnector for the Discord
// interactions webhook and REST API. The account's webhook secret holds
// the application's hex-encoded ed25519 public key.
type DiscordConnector struct {
	config     *DiscordConfig
	httpClient *http.Client
}

// NewDiscordConnector creates a Discord connector
func NewDiscordConnector(config *DiscordConfig) (*DiscordConnector, error) {
	if config == nil {
		config = &DiscordConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &DiscordConnector{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Type returns the channel this connector serves
func (c *DiscordConnector) Type() channel.ChannelType {
	return channel.ChannelTypeDiscord
}

// VerifyWebhook checks the ed25519 signature Discord computes over
// timestamp plus body
func (c *DiscordConnector) VerifyWebhook(account *channel.ChannelAccount, payload []byte, headers http.Header) error {
	if account.WebhookSecret == "" {
		return fmt.Errorf("%w: discord account has no public key", channel.ErrWebhookVerification)
	}

	publicKey, err := hex.DecodeString(account.WebhookSecret)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: discord public key is not a valid ed25519 key", channel.ErrWebhookVerification)
	}

	signature, err := hex.DecodeString(headers.Get("X-Signature-Ed25519"))
	if err != nil || len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: missing or malformed X-Signature-Ed25519", channel.ErrWebhookVerification)
	}
	timestamp := headers.Get("X-Signature-Timestamp")
	if timestamp == "" {
		return fmt.Errorf("%w: missing X-Signature-Timestamp", channel.ErrWebhookVerification)
	}

	message := append([]byte(timestamp), payload...)
	if !ed25519.Verify(ed25519.PublicKey(publicKey), message, signature) {
		return fmt.Errorf("%w: discord signature mismatch", channel.ErrWebhookVerification)
	}
	return nil
}

// ParseInbound extracts the user message from an interactions payload.
// PING handshakes surface as a ChallengeError carrying the PONG body.
func (c *DiscordConnector) ParseInbound(ctx context.Context, account *channel.ChannelAccount, payload []byte, headers http.Header) (*channel.InboundMessage, error) {
	var interaction DiscordInteraction
	if err := json.Unmarshal(payload, &interaction); err != nil {
		return nil, fmt.Errorf("%w: discord interaction: %v", channel.ErrMalformedPayload, err)
	}

	switch interaction.Type {
	case DiscordInteractionPing:
		pong, err := json.Marshal(map[string]int{"type": DiscordInteractionResponsePong})
		if err != nil {
			return nil, fmt.Errorf("%w: discord pong: %v", channel.ErrMalformedPayload, err)
		}
		return nil, channel.NewChallengeError(pong, "application/json")
	case DiscordInteractionApplicationCommand:
		// Fall through to the command payload
	default:
		return nil, fmt.Errorf("%w: interaction type %d", channel.ErrEventIgnored, interaction.Type)
	}

	text := discordCommandText(interaction.Data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: command carries no text option", channel.ErrEventIgnored)
	}

	user := interaction.User
	if user == nil && interaction.Member != nil {
		user = interaction.Member.User
	}
	externalUserID := ""
	if user != nil {
		externalUserID = user.ID
	}

	return &channel.InboundMessage{
		ChannelType:      channel.ChannelTypeDiscord,
		ExternalUserID:   externalUserID,
		ExternalThreadID: interaction.ChannelID,
		Text:             text,
		ReceivedAt:       time.Now(),
		Raw:              payload,
	}, nil
}

// Send delivers a reply as a channel message
func (c *DiscordConnector) Send(ctx context.Context, account *channel.ChannelAccount, msg channel.OutboundMessage) error {
	creds, err := discordCredentials(account)
	if err != nil {
		return err
	}

	body, err := json.Marshal(DiscordSendRequest{Content: msg.Text})
	if err != nil {
		return fmt.Errorf("discord: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/channels/%s/messages", c.config.BaseURL, msg.ExternalThreadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bot "+creds.BotToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: discord: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("discord: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr DiscordAPIError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("discord: send failed: %s (code %d)", apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("discord: send failed: HTTP %d", resp.StatusCode)
	}

	return nil
}

// discordCommandText returns the first string option of a slash command
func discordCommandText(data *DiscordInteractionData) string {
	if data == nil {
		return ""
	}
	for _, option := range data.Options {
		var value string
		if err := json.Unmarshal(option.Value, &value); err == nil && value != "" {
			return value
		}
	}
	return ""
}

func discordCredentials(account *channel.ChannelAccount) (*DiscordCredentials, error) {
	var creds DiscordCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("discord: parse credentials: %w", err)
	}
	if creds.BotToken == "" {
		return nil, ErrDiscordMissingToken
	}
	return &creds, nil
}

// Ensure DiscordConnector implements the connector port
var _ channel.ChannelConnector = (*DiscordConnector)(nil)
