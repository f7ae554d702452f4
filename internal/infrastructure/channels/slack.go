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
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
)

// SlackDefaultBaseURL is the production Web API origin
const SlackDefaultBaseURL = "https://slack.com/api"

// slackTimestampTolerance bounds how old a signed request may be.
// Anything older is treated as a possible replay.
const slackTimestampTolerance = 5 * time.Minute

// ErrSlackMissingToken indicates account credentials without a bot token
var ErrSlackMissingToken = errors.New("slack: credentials missing bot_token")

// SlackConfig holds configuration for the Slack connector
type SlackConfig struct {
	// BaseURL is the Web API origin. Overridable for tests.
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// Validate normalizes the configuration, filling defaults for unset fields
func (c *SlackConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = SlackDefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return nil
}

// SlackConnector implements channel.ChannelConnector for the Slack
// Events and Web APIs
type SlackConnector struct {
	config     *SlackConfig
	httpClient *http.Client

	// now is stubbed in tests to pin the signature tolerance window
	now func() time.Time
}

// NewSlackConnector creates a Slack connector
func NewSlackConnector(config *SlackConfig) (*SlackConnector, error) {
	if config == nil {
		config = &SlackConfig{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SlackConnector{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		now: time.Now,
	}, nil
}

// Type returns the channel this connector serves
func (c *SlackConnector) Type() channel.ChannelType {
	return channel.ChannelTypeSlack
}

// VerifyWebhook checks the v0 request signature Slack computes with the
// signing secret, rejecting requests outside the timestamp tolerance
func (c *SlackConnector) VerifyWebhook(account *channel.ChannelAccount, payload []byte, headers http.Header) error {
	if account.WebhookSecret == "" {
		return fmt.Errorf("%w: slack account has no signing secret", channel.ErrWebhookVerification)
	}

	timestamp := headers.Get("X-Slack-Request-Timestamp")
	signature := headers.Get("X-Slack-Signature")
	if timestamp == "" || signature == "" {
		return fmt.Errorf("%w: missing slack signature headers", channel.ErrWebhookVerification)
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed slack timestamp", channel.ErrWebhookVerification)
	}
	age := c.now().Sub(time.Unix(unix, 0))
	if math.Abs(age.Seconds()) > slackTimestampTolerance.Seconds() {
		return fmt.Errorf("%w: slack timestamp outside tolerance", channel.ErrWebhookVerification)
	}

	base := "v0:" + timestamp + ":" + string(payload)
	mac := hmac.New(sha256.New, []byte(account.WebhookSecret))
	mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("%w: slack signature mismatch", channel.ErrWebhookVerification)
	}
	return nil
}

// ParseInbound extracts the user message from an Events API envelope.
// url_verification handshakes surface as a ChallengeError carrying the
// challenge echo.
func (c *SlackConnector) ParseInbound(ctx context.Context, account *channel.ChannelAccount, payload []byte, headers http.Header) (*channel.InboundMessage, error) {
	var envelope SlackEventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: slack payload: %v", channel.ErrMalformedPayload, err)
	}

	switch envelope.Type {
	case "url_verification":
		echo, err := json.Marshal(map[string]string{"challenge": envelope.Challenge})
		if err != nil {
			return nil, fmt.Errorf("%w: slack challenge: %v", channel.ErrMalformedPayload, err)
		}
		return nil, channel.NewChallengeError(echo, "application/json")
	case "event_callback":
		// Fall through to the inner event
	default:
		return nil, fmt.Errorf("%w: envelope type '%s'", channel.ErrEventIgnored, envelope.Type)
	}

	event := envelope.Event
	if event.Type != "message" {
		return nil, fmt.Errorf("%w: event type '%s'", channel.ErrEventIgnored, event.Type)
	}
	// The bot's own replies come back as message events with a bot_id.
	// Processing them would loop the bot against itself.
	if event.BotID != "" || event.Subtype != "" {
		return nil, fmt.Errorf("%w: bot echo or message subtype", channel.ErrEventIgnored)
	}
	if strings.TrimSpace(event.Text) == "" {
		return nil, fmt.Errorf("%w: message carries no text", channel.ErrEventIgnored)
	}

	receivedAt := c.now()
	if seconds, err := strconv.ParseFloat(event.TS, 64); err == nil && seconds > 0 {
		receivedAt = time.Unix(int64(seconds), 0)
	}

	return &channel.InboundMessage{
		ChannelType:      channel.ChannelTypeSlack,
		ExternalUserID:   event.User,
		ExternalThreadID: event.Channel,
		Text:             event.Text,
		ReceivedAt:       receivedAt,
		Raw:              payload,
	}, nil
}

// Send delivers a reply via chat.postMessage
func (c *SlackConnector) Send(ctx context.Context, account *channel.ChannelAccount, msg channel.OutboundMessage) error {
	creds, err := slackCredentials(account)
	if err != nil {
		return err
	}

	body, err := json.Marshal(SlackPostMessageRequest{
		Channel: msg.ExternalThreadID,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("slack: marshal request: %w", err)
	}

	endpoint := c.config.BaseURL + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+creds.BotToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: slack: %v", shared.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("slack: read response: %w", err)
	}

	var apiResp SlackAPIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return fmt.Errorf("slack: chat.postMessage failed: HTTP %d", resp.StatusCode)
	}
	if !apiResp.OK {
		return fmt.Errorf("slack: chat.postMessage failed: %s", apiResp.Error)
	}

	return nil
}

func slackCredentials(account *channel.ChannelAccount) (*SlackCredentials, error) {
	var creds SlackCredentials
	if err := json.Unmarshal([]byte(account.Credentials), &creds); err != nil {
		return nil, fmt.Errorf("slack: parse credentials: %w", err)
	}
	if creds.BotToken == "" {
		return nil, ErrSlackMissingToken
	}
	return &creds, nil
}

// Ensure SlackConnector implements the connector port
var _ channel.ChannelConnector = (*SlackConnector)(nil)
