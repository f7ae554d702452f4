package handler

import (
	eventapp "github.com/chatforge/backend/internal/application/event"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OutboxHandler exposes the transactional outbox to operators: stats,
// dead letter inspection and manual retries. Routes are owner-only.
type OutboxHandler struct {
	BaseHandler
	outboxService *eventapp.OutboxService
}

// NewOutboxHandler creates a new OutboxHandler
func NewOutboxHandler(outboxService *eventapp.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// GetStats godoc
// @Summary      Get outbox statistics
// @Description  Returns event counts per outbox status
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=eventapp.OutboxStatsDTO}
// @Security     BearerAuth
// @Router       /system/outbox/stats [get]
func (h *OutboxHandler) GetStats(c *gin.Context) {
	stats, err := h.outboxService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// ListDeadLetters godoc
// @Summary      List dead letter events
// @Description  Retrieve events that exhausted their retries, paginated
// @Tags         system
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]eventapp.OutboxEntryDTO,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /system/outbox/dead [get]
func (h *OutboxHandler) ListDeadLetters(c *gin.Context) {
	var filter eventapp.OutboxFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	result, err := h.outboxService.GetDeadLetterEntries(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

// RetryDeadLetter godoc
// @Summary      Retry a dead letter event
// @Description  Reset a dead event so the outbox processor picks it up again
// @Tags         system
// @Produce      json
// @Param        entry_id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=eventapp.OutboxEntryDTO}
// @Security     BearerAuth
// @Router       /system/outbox/dead/{entry_id}/retry [post]
func (h *OutboxHandler) RetryDeadLetter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("entry_id"))
	if err != nil {
		h.BadRequest(c, "Invalid outbox entry ID format")
		return
	}

	entry, err := h.outboxService.RetryDeadEntry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllDeadLetters godoc
// @Summary      Retry all dead letter events
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=map[string]int64}
// @Security     BearerAuth
// @Router       /system/outbox/dead/retry [post]
func (h *OutboxHandler) RetryAllDeadLetters(c *gin.Context) {
	count, err := h.outboxService.RetryAllDeadEntries(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"retried": count})
}
