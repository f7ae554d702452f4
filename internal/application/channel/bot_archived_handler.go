package channel

import (
	"context"
	"fmt"

	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BotArchivedHandler deactivates every channel account of a bot when
// the bot is archived, so vendors stop delivering webhooks to it.
type BotArchivedHandler struct {
	accounts *AccountService
	logger   *zap.Logger
}

// NewBotArchivedHandler creates a new handler for bot archived events
func NewBotArchivedHandler(accounts *AccountService, log *zap.Logger) *BotArchivedHandler {
	return &BotArchivedHandler{
		accounts: accounts,
		logger:   log,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *BotArchivedHandler) EventTypes() []string {
	return []string{bot.EventTypeBotArchived}
}

// Handle deactivates the archived bot's channel accounts
func (h *BotArchivedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	archived, ok := event.(*bot.BotArchivedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", bot.EventTypeBotArchived),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			bot.EventTypeBotArchived, event.EventType())
	}

	// Handlers run outside a request, repositories downstream expect
	// the bot's tenant on the context
	tenantCtx, _ := logger.WithTenantID(ctx, logger.FromContext(ctx), archived.TenantID().String())

	if err := h.accounts.DeactivateForBot(tenantCtx, archived.AggregateID()); err != nil {
		h.logger.Error("Failed to deactivate channel accounts for archived bot",
			zap.String("bot_id", archived.AggregateID().String()),
			zap.Error(err))
		return err
	}

	h.logger.Info("Deactivated channel accounts for archived bot",
		zap.String("bot_id", archived.AggregateID().String()),
		zap.String("tenant_id", archived.TenantID().String()))

	return nil
}

// Ensure BotArchivedHandler implements shared.EventHandler
var _ shared.EventHandler = (*BotArchivedHandler)(nil)
