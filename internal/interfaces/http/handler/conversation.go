package handler

import (
	"context"
	"strconv"
	"time"

	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConversationHandler handles conversation-related API endpoints for the
// tenant dashboard. Visitor-facing traffic goes through the widget and
// webhook handlers instead.
type ConversationHandler struct {
	BaseHandler
	conversationService *conversationapp.ConversationService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(conversationService *conversationapp.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

// List godoc
// @Summary      List conversations
// @Description  Retrieve a paginated list of conversations with optional filtering
// @Tags         conversations
// @Produce      json
// @Param        bot_id query string false "Filter by bot" format(uuid)
// @Param        channel query string false "Channel" Enums(web, whatsapp, telegram, slack, discord)
// @Param        status query string false "Status" Enums(active, handed_off, closed)
// @Param        search query string false "Search term (visitor ID, email, name)"
// @Param        since query string false "Only conversations with activity after this time" format(date-time)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(last_message_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]conversationapp.ConversationDTO,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	input := conversationapp.ListConversationsInput{
		Channel:   c.Query("channel"),
		Status:    c.Query("status"),
		Keyword:   c.Query("search"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.DefaultQuery("order_by", "last_message_at"),
		SortOrder: c.DefaultQuery("order_dir", "desc"),
	}
	if raw := c.Query("bot_id"); raw != "" {
		botID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bot ID format")
			return
		}
		input.BotID = &botID
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid since timestamp, expected RFC 3339")
			return
		}
		input.Since = &since
	}

	result, err := h.conversationService.List(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Conversations, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @Summary      Get conversation by ID
// @Tags         conversations
// @Produce      json
// @Param        id path string true "Conversation ID" format(uuid)
// @Success      200 {object} dto.Response{data=conversationapp.ConversationDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conversation ID format")
		return
	}

	result, err := h.conversationService.Get(c.Request.Context(), conversationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// GetTranscript godoc
// @Summary      Get conversation transcript
// @Description  Retrieve the messages of a conversation in order
// @Tags         conversations
// @Produce      json
// @Param        id path string true "Conversation ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(50) maximum(100)
// @Success      200 {object} dto.Response{data=conversationapp.TranscriptResult}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /conversations/{id}/messages [get]
func (h *ConversationHandler) GetTranscript(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conversation ID format")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	result, err := h.conversationService.GetTranscript(c.Request.Context(), conversationID, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// HandOff godoc
// @Summary      Hand a conversation off to a human
// @Description  Stop automatic replies; an agent answers from here
// @Tags         conversations
// @Produce      json
// @Param        id path string true "Conversation ID" format(uuid)
// @Success      200 {object} dto.Response{data=conversationapp.ConversationDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /conversations/{id}/hand-off [post]
func (h *ConversationHandler) HandOff(c *gin.Context) {
	h.transition(c, h.conversationService.HandOff)
}

// Close godoc
// @Summary      Close a conversation
// @Tags         conversations
// @Produce      json
// @Param        id path string true "Conversation ID" format(uuid)
// @Success      200 {object} dto.Response{data=conversationapp.ConversationDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /conversations/{id}/close [post]
func (h *ConversationHandler) Close(c *gin.Context) {
	h.transition(c, h.conversationService.Close)
}

// Reopen godoc
// @Summary      Reopen a closed conversation
// @Tags         conversations
// @Produce      json
// @Param        id path string true "Conversation ID" format(uuid)
// @Success      200 {object} dto.Response{data=conversationapp.ConversationDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /conversations/{id}/reopen [post]
func (h *ConversationHandler) Reopen(c *gin.Context) {
	h.transition(c, h.conversationService.Reopen)
}

func (h *ConversationHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*conversationapp.ConversationDTO, error)) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid conversation ID format")
		return
	}

	result, err := apply(c.Request.Context(), conversationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
