package handler

import (
	"context"
	"strconv"

	botapp "github.com/chatforge/backend/internal/application/bot"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BotHandler handles bot-related API endpoints
type BotHandler struct {
	BaseHandler
	botService *botapp.BotService
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(botService *botapp.BotService) *BotHandler {
	return &BotHandler{botService: botService}
}

// CreateBotRequest represents a request to create a new bot
// @Description Request body for creating a new bot
type CreateBotRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100" example:"Support Bot"`
	Slug        string `json:"slug" binding:"omitempty,max=100" example:"support-bot"`
	Description string `json:"description" binding:"max=500" example:"Answers support questions"`
}

// UpdateBotRequest represents a request to update a bot
// @Description Request body for updating a bot
type UpdateBotRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100" example:"Support Bot"`
	Description string `json:"description" binding:"max=500" example:"Answers support questions"`
}

// ModelSettingsRequest represents a request to update a bot's model settings
// @Description Request body for updating a bot's AI model settings
type ModelSettingsRequest struct {
	Provider     string  `json:"provider" binding:"required,oneof=openai anthropic gemini" example:"openai"`
	Model        string  `json:"model" binding:"required,max=100" example:"gpt-4o-mini"`
	Temperature  float64 `json:"temperature" binding:"min=0,max=2" example:"0.7"`
	MaxTokens    int     `json:"max_tokens" binding:"min=0,max=32768" example:"1024"`
	SystemPrompt string  `json:"system_prompt" binding:"max=8000" example:"You are a helpful support assistant."`
}

// WidgetSettingsRequest represents a request to update a bot's widget settings
// @Description Request body for updating a bot's chat widget appearance
type WidgetSettingsRequest struct {
	WelcomeMessage string `json:"welcome_message" binding:"max=500" example:"Hi! How can I help?"`
	Placeholder    string `json:"placeholder" binding:"max=100" example:"Type your question..."`
	AccentColor    string `json:"accent_color" binding:"omitempty,hexcolor" example:"#4f46e5"`
	Position       string `json:"position" binding:"omitempty,oneof=bottom-right bottom-left" example:"bottom-right"`
	CollectEmail   bool   `json:"collect_email" example:"true"`
	ShowSources    bool   `json:"show_sources" example:"true"`
}

// RetrievalSettingsRequest represents a request to tune knowledge retrieval
// @Description Request body for tuning a bot's knowledge retrieval
type RetrievalSettingsRequest struct {
	TopK     int     `json:"top_k" binding:"required,min=1,max=20" example:"4"`
	MinScore float64 `json:"min_score" binding:"min=0,max=1" example:"0.55"`
}

// Create godoc
// @Summary      Create a new bot
// @Description  Create a new bot in draft status
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        request body CreateBotRequest true "Bot creation request"
// @Success      201 {object} dto.Response{data=botapp.BotDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots [post]
func (h *BotHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req CreateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.botService.Create(c.Request.Context(), botapp.CreateBotInput{
		TenantID:    tenantID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @Summary      Get bot by ID
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id} [get]
func (h *BotHandler) GetByID(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	result, err := h.botService.GetByID(c.Request.Context(), botID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
// @Summary      List bots
// @Description  Retrieve a paginated list of bots with optional filtering
// @Tags         bots
// @Produce      json
// @Param        search query string false "Search term (name, slug)"
// @Param        status query string false "Bot status" Enums(draft, published, archived)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=botapp.BotListResult}
// @Security     BearerAuth
// @Router       /bots [get]
func (h *BotHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.botService.List(c.Request.Context(), botapp.ListBotsInput{
		Keyword:  c.Query("search"),
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
		SortBy:   c.DefaultQuery("order_by", "created_at"),
		SortDir:  c.DefaultQuery("order_dir", "desc"),
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Bots, result.Total, result.Page, result.PageSize)
}

// Update godoc
// @Summary      Update a bot
// @Description  Update a bot's name and description
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body UpdateBotRequest true "Bot update request"
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id} [put]
func (h *BotHandler) Update(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req UpdateBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.botService.Update(c.Request.Context(), botapp.UpdateBotInput{
		ID:          botID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdateModelSettings godoc
// @Summary      Update bot model settings
// @Description  Update the AI provider, model and prompt of a bot
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body ModelSettingsRequest true "Model settings"
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/model-settings [put]
func (h *BotHandler) UpdateModelSettings(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req ModelSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.botService.UpdateModelSettings(c.Request.Context(), botID, botapp.ModelSettingsInput{
		Provider:     req.Provider,
		Model:        req.Model,
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// UpdateWidgetSettings godoc
// @Summary      Update bot widget settings
// @Description  Update the chat widget appearance of a bot
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body WidgetSettingsRequest true "Widget settings"
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/widget-settings [put]
func (h *BotHandler) UpdateWidgetSettings(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req WidgetSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.botService.UpdateWidgetSettings(c.Request.Context(), botID, botapp.WidgetSettingsInput{
		WelcomeMessage: req.WelcomeMessage,
		Placeholder:    req.Placeholder,
		AccentColor:    req.AccentColor,
		Position:       req.Position,
		CollectEmail:   req.CollectEmail,
		ShowSources:    req.ShowSources,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// SetRetrieval godoc
// @Summary      Tune knowledge retrieval
// @Description  Set the top-K and minimum similarity score for retrieval
// @Tags         bots
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body RetrievalSettingsRequest true "Retrieval settings"
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/retrieval [put]
func (h *BotHandler) SetRetrieval(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req RetrievalSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.botService.SetRetrieval(c.Request.Context(), botapp.RetrievalInput{
		ID:       botID,
		TopK:     req.TopK,
		MinScore: req.MinScore,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Publish godoc
// @Summary      Publish a bot
// @Description  Make the bot reachable on its channels and widget
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/publish [post]
func (h *BotHandler) Publish(c *gin.Context) {
	h.transition(c, h.botService.Publish)
}

// Unpublish godoc
// @Summary      Unpublish a bot
// @Description  Take the bot back to draft
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/unpublish [post]
func (h *BotHandler) Unpublish(c *gin.Context) {
	h.transition(c, h.botService.Unpublish)
}

// Archive godoc
// @Summary      Archive a bot
// @Description  Archive the bot and deactivate its channel accounts
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/archive [post]
func (h *BotHandler) Archive(c *gin.Context) {
	h.transition(c, h.botService.Archive)
}

// RotateWidgetKey godoc
// @Summary      Rotate the widget key
// @Description  Invalidate the current widget key and issue a new one
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=botapp.BotDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/rotate-widget-key [post]
func (h *BotHandler) RotateWidgetKey(c *gin.Context) {
	h.transition(c, h.botService.RotateWidgetKey)
}

// Delete godoc
// @Summary      Delete a bot
// @Description  Delete a bot that has no conversations
// @Tags         bots
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id} [delete]
func (h *BotHandler) Delete(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	if err := h.botService.Delete(c.Request.Context(), botID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetStats godoc
// @Summary      Bot statistics
// @Description  Count bots by status for the current tenant
// @Tags         bots
// @Produce      json
// @Success      200 {object} dto.Response{data=botapp.BotStatsDTO}
// @Security     BearerAuth
// @Router       /bots/stats [get]
func (h *BotHandler) GetStats(c *gin.Context) {
	result, err := h.botService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// transition runs a single-ID bot state change shared by the lifecycle
// endpoints
func (h *BotHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*botapp.BotDTO, error)) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	result, err := apply(c.Request.Context(), botID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
