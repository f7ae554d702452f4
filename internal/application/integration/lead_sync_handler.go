package integration

import (
	"context"
	"fmt"
	"strings"

	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/chatforge/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LeadSyncHandler pushes a visitor's contact details to the tenant's
// CRM platforms when they first share an email during a chat. Sync is
// best effort: a failing CRM is flipped into the error state and the
// event is acknowledged, conversations never block on a CRM.
type LeadSyncHandler struct {
	crmRepo      integration.CRMAccountRepository
	platforms    integration.CRMPlatformRegistry
	dashboardURL string
	logger       *zap.Logger
}

// NewLeadSyncHandler creates a new lead sync handler. dashboardURL is
// the public base URL of the dashboard, used to link the CRM contact
// back to the conversation transcript.
func NewLeadSyncHandler(
	crmRepo integration.CRMAccountRepository,
	platforms integration.CRMPlatformRegistry,
	dashboardURL string,
	logger *zap.Logger,
) *LeadSyncHandler {
	return &LeadSyncHandler{
		crmRepo:      crmRepo,
		platforms:    platforms,
		dashboardURL: strings.TrimRight(dashboardURL, "/"),
		logger:       logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *LeadSyncHandler) EventTypes() []string {
	return []string{conversation.EventTypeVisitorIdentified}
}

// Handle upserts the identified visitor as a contact in every active
// CRM account of the tenant
func (h *LeadSyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	identified, ok := event.(*conversation.VisitorIdentifiedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", conversation.EventTypeVisitorIdentified),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			conversation.EventTypeVisitorIdentified, event.EventType())
	}

	lead := integration.Lead{
		Email:  identified.VisitorEmail,
		Name:   identified.VisitorName,
		Source: leadSource(identified.Channel),
	}
	if h.dashboardURL != "" {
		lead.ConversationURL = h.dashboardURL + "/conversations/" + identified.AggregateID().String()
	}

	if err := lead.Validate(); err != nil {
		h.logger.Warn("Skipping lead with invalid contact details",
			zap.String("conversation_id", identified.AggregateID().String()),
			zap.Error(err))
		return nil
	}

	accounts, err := h.crmRepo.FindActive(ctx, identified.TenantID())
	if err != nil {
		h.logger.Error("Failed to load CRM accounts for lead sync",
			zap.String("tenant_id", identified.TenantID().String()),
			zap.Error(err))
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	for _, account := range accounts {
		platform, err := h.platforms.GetPlatform(account.Platform)
		if err != nil {
			h.logger.Warn("No adapter for connected CRM platform",
				zap.String("platform", string(account.Platform)))
			continue
		}

		if err := platform.UpsertContact(ctx, account, lead); err != nil {
			h.logger.Warn("CRM contact upsert failed",
				zap.String("account_id", account.ID.String()),
				zap.String("platform", string(account.Platform)),
				zap.Error(err))

			account.RecordError(err.Error())
			if updateErr := h.crmRepo.Update(ctx, account); updateErr != nil {
				h.logger.Error("Failed to record CRM account error",
					zap.String("account_id", account.ID.String()),
					zap.Error(updateErr))
			}
			continue
		}

		h.logger.Info("Synced lead to CRM",
			zap.String("conversation_id", identified.AggregateID().String()),
			zap.String("platform", string(account.Platform)))
	}

	return nil
}

// leadSource labels where the lead came from for the CRM record
func leadSource(ch conversation.Channel) string {
	if ch == conversation.ChannelWeb {
		return "chatforge-widget"
	}
	return "chatforge-" + string(ch)
}

// Ensure LeadSyncHandler implements shared.EventHandler
var _ shared.EventHandler = (*LeadSyncHandler)(nil)
