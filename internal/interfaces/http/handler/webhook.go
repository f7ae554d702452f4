package handler

import (
	"io"
	"net/http"

	channelapp "github.com/chatforge/backend/internal/application/channel"
	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxWebhookBody caps inbound vendor payloads at 1 MiB
const maxWebhookBody = 1 << 20

// WebhookHandler receives inbound webhooks from messaging platforms.
// These routes are public: authentication happens per-account inside the
// webhook service using the account's own secret.
type WebhookHandler struct {
	BaseHandler
	webhookService *channelapp.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *channelapp.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// parseChannelType maps the URL segment to a channel type
func parseChannelType(raw string) (channel.ChannelType, bool) {
	switch raw {
	case "whatsapp":
		return channel.ChannelTypeWhatsApp, true
	case "telegram":
		return channel.ChannelTypeTelegram, true
	case "slack":
		return channel.ChannelTypeSlack, true
	case "discord":
		return channel.ChannelTypeDiscord, true
	default:
		return "", false
	}
}

// Receive godoc
// @Summary      Receive a channel webhook
// @Description  Inbound event delivery endpoint for messaging platforms
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        channel path string true "Channel type" Enums(whatsapp, telegram, slack, discord)
// @Param        account_id path string true "Channel account ID" format(uuid)
// @Success      200 {string} string "Acknowledged"
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/{channel}/{account_id} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	channelType, ok := parseChannelType(c.Param("channel"))
	if !ok {
		h.NotFound(c, "Unknown channel")
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		h.NotFound(c, "Unknown channel account")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Unable to read payload")
		return
	}

	result, err := h.webhookService.HandleInbound(c.Request.Context(), channelapp.WebhookInput{
		AccountID:   accountID,
		ChannelType: channelType,
		Payload:     payload,
		Headers:     c.Request.Header,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	// Some vendors require the response body echoed verbatim
	if len(result.Response) > 0 {
		contentType := result.ResponseContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		c.Data(http.StatusOK, contentType, result.Response)
		return
	}

	c.Status(http.StatusOK)
}

// Verify godoc
// @Summary      Verify a webhook subscription
// @Description  Vendor verification handshake (hub.challenge echo)
// @Tags         webhooks
// @Produce      plain
// @Param        channel path string true "Channel type" Enums(whatsapp, telegram, slack, discord)
// @Param        account_id path string true "Channel account ID" format(uuid)
// @Param        hub.mode query string false "Subscription mode"
// @Param        hub.verify_token query string false "Verification token"
// @Param        hub.challenge query string false "Challenge to echo"
// @Success      200 {string} string "Challenge echo"
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /webhooks/{channel}/{account_id} [get]
func (h *WebhookHandler) Verify(c *gin.Context) {
	channelType, ok := parseChannelType(c.Param("channel"))
	if !ok {
		h.NotFound(c, "Unknown channel")
		return
	}

	accountID, err := uuid.Parse(c.Param("account_id"))
	if err != nil {
		h.NotFound(c, "Unknown channel account")
		return
	}

	challenge, err := h.webhookService.HandleSubscriptionCheck(
		c.Request.Context(),
		accountID,
		channelType,
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if err != nil {
		h.Forbidden(c, "Webhook verification failed")
		return
	}

	c.String(http.StatusOK, challenge)
}
