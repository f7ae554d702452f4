package handler

import (
	"context"
	"strconv"

	channelapp "github.com/chatforge/backend/internal/application/channel"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChannelHandler handles channel account API endpoints
type ChannelHandler struct {
	BaseHandler
	accountService *channelapp.AccountService
}

// NewChannelHandler creates a new ChannelHandler
func NewChannelHandler(accountService *channelapp.AccountService) *ChannelHandler {
	return &ChannelHandler{accountService: accountService}
}

// ConnectChannelRequest represents a request to connect a channel account
// @Description Request body for connecting a bot to a messaging channel
type ConnectChannelRequest struct {
	BotID         string `json:"bot_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	ChannelType   string `json:"channel_type" binding:"required,oneof=whatsapp telegram slack discord" example:"telegram"`
	Name          string `json:"name" binding:"required,min=1,max=200" example:"Support Telegram"`
	Credentials   string `json:"credentials" binding:"required" example:"123456:AAbbCCdd..."`
	WebhookSecret string `json:"webhook_secret" binding:"max=500" example:"whsec_abc123"`
}

// UpdateChannelCredentialsRequest represents a request to rotate credentials
// @Description Request body for rotating a channel account's credentials
type UpdateChannelCredentialsRequest struct {
	Credentials   string `json:"credentials" binding:"required" example:"123456:AAnewtoken..."`
	WebhookSecret string `json:"webhook_secret" binding:"max=500" example:"whsec_new456"`
}

// RenameChannelRequest represents a request to rename a channel account
// @Description Request body for renaming a channel account
type RenameChannelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=200" example:"Sales Telegram"`
}

// Create godoc
// @Summary      Connect a channel account
// @Description  Connect a bot to an external messaging platform
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        request body ConnectChannelRequest true "Channel connection request"
// @Success      201 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req ConnectChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	botID, err := uuid.Parse(req.BotID)
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	result, err := h.accountService.Create(c.Request.Context(), channelapp.CreateAccountInput{
		TenantID:      tenantID,
		BotID:         botID,
		ChannelType:   req.ChannelType,
		Name:          req.Name,
		Credentials:   req.Credentials,
		WebhookSecret: req.WebhookSecret,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// List godoc
// @Summary      List channel accounts
// @Tags         channels
// @Produce      json
// @Param        bot_id query string false "Filter by bot" format(uuid)
// @Param        channel_type query string false "Channel type" Enums(whatsapp, telegram, slack, discord)
// @Param        status query string false "Status" Enums(active, inactive, error)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]channelapp.AccountDTO,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	input := channelapp.ListAccountsInput{
		ChannelType: c.Query("channel_type"),
		Status:      c.Query("status"),
		Page:        page,
		PageSize:    pageSize,
		SortBy:      c.DefaultQuery("order_by", "created_at"),
		SortOrder:   c.DefaultQuery("order_dir", "desc"),
	}
	if raw := c.Query("bot_id"); raw != "" {
		botID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bot ID format")
			return
		}
		input.BotID = &botID
	}

	result, err := h.accountService.List(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Accounts, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @Summary      Get channel account by ID
// @Tags         channels
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Success      200 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id} [get]
func (h *ChannelHandler) Get(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid channel account ID format")
		return
	}

	result, err := h.accountService.Get(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Rename godoc
// @Summary      Rename a channel account
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Param        request body RenameChannelRequest true "New name"
// @Success      200 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id}/rename [post]
func (h *ChannelHandler) Rename(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid channel account ID format")
		return
	}

	var req RenameChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.Rename(c.Request.Context(), accountID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdateCredentials godoc
// @Summary      Rotate channel credentials
// @Description  Replace the account's credentials and webhook secret
// @Tags         channels
// @Accept       json
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Param        request body UpdateChannelCredentialsRequest true "New credentials"
// @Success      200 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id}/credentials [put]
func (h *ChannelHandler) UpdateCredentials(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid channel account ID format")
		return
	}

	var req UpdateChannelCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.accountService.UpdateCredentials(c.Request.Context(), channelapp.UpdateCredentialsInput{
		ID:            accountID,
		Credentials:   req.Credentials,
		WebhookSecret: req.WebhookSecret,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Activate godoc
// @Summary      Activate a channel account
// @Tags         channels
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Success      200 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id}/activate [post]
func (h *ChannelHandler) Activate(c *gin.Context) {
	h.transition(c, h.accountService.Activate)
}

// Deactivate godoc
// @Summary      Deactivate a channel account
// @Description  Inbound webhooks for this account are acknowledged but dropped
// @Tags         channels
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Success      200 {object} dto.Response{data=channelapp.AccountDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id}/deactivate [post]
func (h *ChannelHandler) Deactivate(c *gin.Context) {
	h.transition(c, h.accountService.Deactivate)
}

// Delete godoc
// @Summary      Disconnect a channel account
// @Tags         channels
// @Produce      json
// @Param        id path string true "Channel account ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /channels/{id} [delete]
func (h *ChannelHandler) Delete(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid channel account ID format")
		return
	}

	if err := h.accountService.Delete(c.Request.Context(), accountID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

func (h *ChannelHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*channelapp.AccountDTO, error)) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid channel account ID format")
		return
	}

	result, err := apply(c.Request.Context(), accountID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
