package handler

import (
	"context"
	"strconv"

	reviewapp "github.com/chatforge/backend/internal/application/review"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReviewHandler handles review moderation API endpoints for the tenant
// dashboard. Visitor submissions arrive through the widget handler.
type ReviewHandler struct {
	BaseHandler
	reviewService *reviewapp.ReviewService
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviewService *reviewapp.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// List godoc
// @Summary      List reviews
// @Description  Retrieve a paginated list of reviews with optional filtering
// @Tags         reviews
// @Produce      json
// @Param        bot_id query string false "Filter by bot" format(uuid)
// @Param        status query string false "Moderation status" Enums(pending, approved, rejected)
// @Param        rating query int false "Exact rating" minimum(1) maximum(5)
// @Param        source query string false "Submission source" Enums(widget, api)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Param        order_by query string false "Order by field" default(created_at)
// @Param        order_dir query string false "Order direction" Enums(asc, desc) default(desc)
// @Success      200 {object} dto.Response{data=[]reviewapp.ReviewDTO,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /reviews [get]
func (h *ReviewHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	input := reviewapp.ListReviewsInput{
		Status:    c.Query("status"),
		Source:    c.Query("source"),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.DefaultQuery("order_by", "created_at"),
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
	if raw := c.Query("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			h.BadRequest(c, "Rating must be an integer between 1 and 5")
			return
		}
		input.Rating = &rating
	}

	result, err := h.reviewService.List(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Reviews, result.Total, result.Page, result.PageSize)
}

// Get godoc
// @Summary      Get review by ID
// @Tags         reviews
// @Produce      json
// @Param        id path string true "Review ID" format(uuid)
// @Success      200 {object} dto.Response{data=reviewapp.ReviewDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reviews/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid review ID format")
		return
	}

	result, err := h.reviewService.Get(c.Request.Context(), reviewID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Approve godoc
// @Summary      Approve a review
// @Description  Approved reviews become visible on the public endpoint
// @Tags         reviews
// @Produce      json
// @Param        id path string true "Review ID" format(uuid)
// @Success      200 {object} dto.Response{data=reviewapp.ReviewDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reviews/{id}/approve [post]
func (h *ReviewHandler) Approve(c *gin.Context) {
	h.transition(c, h.reviewService.Approve)
}

// Reject godoc
// @Summary      Reject a review
// @Tags         reviews
// @Produce      json
// @Param        id path string true "Review ID" format(uuid)
// @Success      200 {object} dto.Response{data=reviewapp.ReviewDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reviews/{id}/reject [post]
func (h *ReviewHandler) Reject(c *gin.Context) {
	h.transition(c, h.reviewService.Reject)
}

// Delete godoc
// @Summary      Delete a review
// @Tags         reviews
// @Produce      json
// @Param        id path string true "Review ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reviews/{id} [delete]
func (h *ReviewHandler) Delete(c *gin.Context) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid review ID format")
		return
	}

	if err := h.reviewService.Delete(c.Request.Context(), reviewID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// Stats godoc
// @Summary      Get rating statistics for a bot
// @Description  Count, average and per-rating histogram over approved reviews
// @Tags         reviews
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Success      200 {object} dto.Response{data=reviewapp.RatingStatsDTO}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/reviews/stats [get]
func (h *ReviewHandler) Stats(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	result, err := h.reviewService.Stats(c.Request.Context(), botID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// ListPublic godoc
// @Summary      List approved reviews for a bot
// @Description  Public endpoint serving approved reviews only
// @Tags         reviews
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]reviewapp.PublicReviewDTO,meta=dto.Meta}
// @Router       /public/bots/{bot_id}/reviews [get]
func (h *ReviewHandler) ListPublic(c *gin.Context) {
	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.reviewService.ListPublic(c.Request.Context(), botID, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Reviews, result.Total, result.Page, result.PageSize)
}

func (h *ReviewHandler) transition(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*reviewapp.ReviewDTO, error)) {
	reviewID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid review ID format")
		return
	}

	result, err := apply(c.Request.Context(), reviewID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
