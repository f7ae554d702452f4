package handler

import (
	widgetapp "github.com/chatforge/backend/internal/application/widget"
	"github.com/chatforge/backend/internal/infrastructure/auth"
	"github.com/chatforge/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WidgetHandler serves the public embeddable chat widget. Config and
// session routes authenticate with the bot's widget key; everything
// else requires the widget session token minted by StartSession.
type WidgetHandler struct {
	BaseHandler
	widgetService *widgetapp.WidgetService
}

// NewWidgetHandler creates a new WidgetHandler
func NewWidgetHandler(widgetService *widgetapp.WidgetService) *WidgetHandler {
	return &WidgetHandler{widgetService: widgetService}
}

// StartWidgetSessionRequest represents a request to open a widget session
// @Description Request body for opening a widget chat session
type StartWidgetSessionRequest struct {
	VisitorID string `json:"visitor_id" binding:"max=100" example:"vis_8f14e45f"`
}

// WidgetMessageRequest represents a visitor chat turn
// @Description Request body for sending a widget chat message
type WidgetMessageRequest struct {
	Text         string `json:"text" binding:"required,min=1,max=4000" example:"Do you ship to Canada?"`
	VisitorEmail string `json:"visitor_email" binding:"omitempty,email,max=320" example:"visitor@example.com"`
	VisitorName  string `json:"visitor_name" binding:"max=200" example:"Sam"`
}

// WidgetReviewRequest represents a visitor review submission
// @Description Request body for submitting a review from the widget
type WidgetReviewRequest struct {
	ConversationID string `json:"conversation_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Rating         int    `json:"rating" binding:"required,min=1,max=5" example:"5"`
	Comment        string `json:"comment" binding:"max=2000" example:"Answered everything instantly."`
	VisitorName    string `json:"visitor_name" binding:"max=200" example:"Sam"`
	VisitorEmail   string `json:"visitor_email" binding:"omitempty,email,max=320" example:"visitor@example.com"`
}

// GetConfig godoc
// @Summary      Get widget configuration
// @Description  Bootstrap payload for the embedded widget, keyed by widget key
// @Tags         widget
// @Produce      json
// @Param        widget_key path string true "Widget key"
// @Success      200 {object} dto.Response{data=widgetapp.ConfigDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /widget/{widget_key}/config [get]
func (h *WidgetHandler) GetConfig(c *gin.Context) {
	result, err := h.widgetService.GetConfig(c.Request.Context(), c.Param("widget_key"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// StartSession godoc
// @Summary      Open a widget session
// @Description  Mint a short-lived visitor token scoped to the bot behind the widget key
// @Tags         widget
// @Accept       json
// @Produce      json
// @Param        widget_key path string true "Widget key"
// @Param        request body StartWidgetSessionRequest false "Session request"
// @Success      201 {object} dto.Response{data=widgetapp.SessionDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /widget/{widget_key}/session [post]
func (h *WidgetHandler) StartSession(c *gin.Context) {
	var req StartWidgetSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}

	result, err := h.widgetService.StartSession(c.Request.Context(), widgetapp.StartSessionInput{
		WidgetKey: c.Param("widget_key"),
		VisitorID: req.VisitorID,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// SendMessage godoc
// @Summary      Send a widget message
// @Description  One visitor chat turn; the bot reply is generated synchronously
// @Tags         widget
// @Accept       json
// @Produce      json
// @Param        request body WidgetMessageRequest true "Chat message"
// @Success      200 {object} dto.Response{data=widgetapp.ReplyDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Security     WidgetAuth
// @Router       /widget/messages [post]
func (h *WidgetHandler) SendMessage(c *gin.Context) {
	claims, tenantID, botID, ok := h.sessionIdentity(c)
	if !ok {
		return
	}

	var req WidgetMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.widgetService.SendMessage(c.Request.Context(), widgetapp.SendMessageInput{
		TenantID:     tenantID,
		BotID:        botID,
		VisitorID:    claims.VisitorID,
		Text:         req.Text,
		VisitorEmail: req.VisitorEmail,
		VisitorName:  req.VisitorName,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// SubmitReview godoc
// @Summary      Submit a review
// @Description  Visitor review submission; reviews await moderation before publishing
// @Tags         widget
// @Accept       json
// @Produce      json
// @Param        request body WidgetReviewRequest true "Review"
// @Success      201 {object} dto.Response{data=widgetapp.ReviewAckDTO}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     WidgetAuth
// @Router       /widget/reviews [post]
func (h *WidgetHandler) SubmitReview(c *gin.Context) {
	_, tenantID, botID, ok := h.sessionIdentity(c)
	if !ok {
		return
	}

	var req WidgetReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := widgetapp.SubmitReviewInput{
		TenantID:     tenantID,
		BotID:        botID,
		Rating:       req.Rating,
		Comment:      req.Comment,
		VisitorName:  req.VisitorName,
		VisitorEmail: req.VisitorEmail,
	}
	if req.ConversationID != "" {
		conversationID, err := uuid.Parse(req.ConversationID)
		if err != nil {
			h.BadRequest(c, "Invalid conversation ID format")
			return
		}
		input.ConversationID = &conversationID
	}

	result, err := h.widgetService.SubmitReview(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// sessionIdentity resolves the visitor identity from the widget session
// token set by the widget auth middleware
func (h *WidgetHandler) sessionIdentity(c *gin.Context) (claims *auth.Claims, tenantID, botID uuid.UUID, ok bool) {
	widgetClaims := middleware.GetWidgetClaims(c)
	if widgetClaims == nil {
		h.Unauthorized(c, "Widget session required")
		return nil, uuid.Nil, uuid.Nil, false
	}

	tenantID, err := uuid.Parse(widgetClaims.TenantID)
	if err != nil {
		h.Unauthorized(c, "Widget session is invalid")
		return nil, uuid.Nil, uuid.Nil, false
	}

	botID, err = uuid.Parse(widgetClaims.BotID)
	if err != nil {
		h.Unauthorized(c, "Widget session is invalid")
		return nil, uuid.Nil, uuid.Nil, false
	}

	return widgetClaims, tenantID, botID, true
}
