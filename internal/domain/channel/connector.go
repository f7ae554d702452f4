package channel

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
)

// Typed connector errors. Webhook handlers map these to vendor-friendly
// responses instead of letting retries pile up.
var (
	// ErrChannelNotSupported is returned when no connector is registered
	// for a channel type
	ErrChannelNotSupported = shared.NewDomainError("CHANNEL_NOT_SUPPORTED", "No connector registered for this channel")

	// ErrWebhookVerification is returned when a webhook signature or
	// secret check fails
	ErrWebhookVerification = shared.NewDomainError("WEBHOOK_VERIFICATION_FAILED", "Webhook verification failed")

	// ErrMalformedPayload is returned when a vendor payload cannot be
	// parsed
	ErrMalformedPayload = shared.NewDomainError("MALFORMED_PAYLOAD", "Channel payload could not be parsed")

	// ErrEventIgnored is returned for events that carry no user message,
	// such as delivery receipts, edits, or the bot's own echoes. Handlers
	// acknowledge and drop these.
	ErrEventIgnored = shared.NewDomainError("EVENT_IGNORED", "Event carries no user message")
)

// ChallengeError signals that a webhook is a vendor verification
// handshake rather than a message event. The carried body must be
// echoed back verbatim, such as Slack's url_verification challenge or
// Discord's PING→PONG exchange.
type ChallengeError struct {
	Body        []byte
	ContentType string
}

// Error implements the error interface
func (e *ChallengeError) Error() string {
	return "webhook verification challenge"
}

// NewChallengeError creates a challenge response to echo back
func NewChallengeError(body []byte, contentType string) *ChallengeError {
	if contentType == "" {
		contentType = "application/json"
	}
	return &ChallengeError{Body: body, ContentType: contentType}
}

// InboundMessage is a user message normalized from a vendor payload
type InboundMessage struct {
	ChannelType      ChannelType
	ExternalUserID   string
	ExternalThreadID string
	Text             string
	ReceivedAt       time.Time
	Raw              []byte
}

// OutboundMessage is a reply to deliver through a channel
type OutboundMessage struct {
	ExternalUserID   string
	ExternalThreadID string
	Text             string
}

// ChannelConnector adapts one messaging vendor to the engine.
// Implementations must return typed errors, never panic, on malformed
// vendor input.
type ChannelConnector interface {
	// Type returns the channel this connector serves
	Type() ChannelType

	// VerifyWebhook authenticates an incoming webhook request
	VerifyWebhook(account *ChannelAccount, payload []byte, headers http.Header) error

	// ParseInbound extracts the user message from a vendor payload.
	// Returns ErrEventIgnored for events that carry no user message.
	ParseInbound(ctx context.Context, account *ChannelAccount, payload []byte, headers http.Header) (*InboundMessage, error)

	// Send delivers a reply through the vendor API
	Send(ctx context.Context, account *ChannelAccount, msg OutboundMessage) error
}

// ConnectorRegistry holds the connector for each channel type
type ConnectorRegistry struct {
	mu         sync.RWMutex
	connectors map[ChannelType]ChannelConnector
}

// NewConnectorRegistry creates an empty connector registry
func NewConnectorRegistry() *ConnectorRegistry {
	return &ConnectorRegistry{
		connectors: make(map[ChannelType]ChannelConnector),
	}
}

// Register adds a connector for its channel type
func (r *ConnectorRegistry) Register(c ChannelConnector) error {
	if c == nil {
		return fmt.Errorf("%w: connector cannot be nil", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	channelType := c.Type()
	if !channelType.IsValid() {
		return fmt.Errorf("%w: unknown channel type '%s'", shared.ErrInvalidInput, channelType)
	}
	if _, exists := r.connectors[channelType]; exists {
		return fmt.Errorf("%w: connector for '%s' already registered", shared.ErrAlreadyExists, channelType)
	}

	r.connectors[channelType] = c
	return nil
}

// Get returns the connector for a channel type
func (r *ConnectorRegistry) Get(channelType ChannelType) (ChannelConnector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.connectors[channelType]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrChannelNotSupported, channelType)
	}
	return c, nil
}

// Types returns the registered channel types in stable order
func (r *ConnectorRegistry) Types() []ChannelType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]ChannelType, 0, len(r.connectors))
	for t := range r.connectors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Count returns the number of registered connectors
func (r *ConnectorRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectors)
}
