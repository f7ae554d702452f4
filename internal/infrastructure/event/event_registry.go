package event

import (
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/featureflag"
	"github.com/chatforge/backend/internal/domain/identity"
	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/review"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Bot lifecycle events
	serializer.Register(bot.EventTypeBotCreated, &bot.BotCreatedEvent{})
	serializer.Register(bot.EventTypeBotUpdated, &bot.BotUpdatedEvent{})
	serializer.Register(bot.EventTypeBotModelSettingsChanged, &bot.BotModelSettingsChangedEvent{})
	serializer.Register(bot.EventTypeBotPublished, &bot.BotPublishedEvent{})
	serializer.Register(bot.EventTypeBotUnpublished, &bot.BotUnpublishedEvent{})
	serializer.Register(bot.EventTypeBotArchived, &bot.BotArchivedEvent{})
	serializer.Register(bot.EventTypeBotWidgetKeyRotated, &bot.BotWidgetKeyRotatedEvent{})
	serializer.Register(bot.EventTypeBotDeleted, &bot.BotDeletedEvent{})

	// Knowledge document events
	serializer.Register(knowledge.EventTypeDocumentCreated, &knowledge.DocumentCreatedEvent{})
	serializer.Register(knowledge.EventTypeDocumentIngested, &knowledge.DocumentIngestedEvent{})
	serializer.Register(knowledge.EventTypeDocumentFailed, &knowledge.DocumentFailedEvent{})
	serializer.Register(knowledge.EventTypeDocumentReprocessed, &knowledge.DocumentReprocessedEvent{})
	serializer.Register(knowledge.EventTypeDocumentDeleted, &knowledge.DocumentDeletedEvent{})

	// Channel account events
	serializer.Register(channel.EventTypeChannelAccountCreated, &channel.ChannelAccountCreatedEvent{})
	serializer.Register(channel.EventTypeChannelAccountUpdated, &channel.ChannelAccountUpdatedEvent{})
	serializer.Register(channel.EventTypeChannelAccountActivated, &channel.ChannelAccountActivatedEvent{})
	serializer.Register(channel.EventTypeChannelAccountDeactivated, &channel.ChannelAccountDeactivatedEvent{})
	serializer.Register(channel.EventTypeChannelAccountErrored, &channel.ChannelAccountErroredEvent{})
	serializer.Register(channel.EventTypeChannelAccountDeleted, &channel.ChannelAccountDeletedEvent{})

	// Integration account events
	serializer.Register(integration.EventTypeCommerceAccountConnected, &integration.CommerceAccountConnectedEvent{})
	serializer.Register(integration.EventTypeCommerceAccountErrored, &integration.CommerceAccountErroredEvent{})
	serializer.Register(integration.EventTypeCommerceAccountDeleted, &integration.CommerceAccountDeletedEvent{})
	serializer.Register(integration.EventTypeCRMAccountConnected, &integration.CRMAccountConnectedEvent{})
	serializer.Register(integration.EventTypeCRMAccountErrored, &integration.CRMAccountErroredEvent{})
	serializer.Register(integration.EventTypeCRMAccountDeleted, &integration.CRMAccountDeletedEvent{})

	// Conversation lifecycle events
	serializer.Register(conversation.EventTypeConversationStarted, &conversation.ConversationStartedEvent{})
	serializer.Register(conversation.EventTypeConversationHandedOff, &conversation.ConversationHandedOffEvent{})
	serializer.Register(conversation.EventTypeConversationClosed, &conversation.ConversationClosedEvent{})
	serializer.Register(conversation.EventTypeConversationReopened, &conversation.ConversationReopenedEvent{})
	serializer.Register(conversation.EventTypeVisitorIdentified, &conversation.VisitorIdentifiedEvent{})
	serializer.Register(conversation.EventTypeMessageProcessed, &conversation.MessageProcessedEvent{})

	// Review events
	serializer.Register(review.EventTypeReviewSubmitted, &review.ReviewSubmittedEvent{})
	serializer.Register(review.EventTypeReviewApproved, &review.ReviewApprovedEvent{})
	serializer.Register(review.EventTypeReviewRejected, &review.ReviewRejectedEvent{})
	serializer.Register(review.EventTypeReviewDeleted, &review.ReviewDeletedEvent{})

	// Tenant events
	serializer.Register(identity.EventTypeTenantCreated, &identity.TenantCreatedEvent{})
	serializer.Register(identity.EventTypeTenantUpdated, &identity.TenantUpdatedEvent{})
	serializer.Register(identity.EventTypeTenantStatusChanged, &identity.TenantStatusChangedEvent{})
	serializer.Register(identity.EventTypeTenantPlanChanged, &identity.TenantPlanChangedEvent{})
	serializer.Register(identity.EventTypeTenantDeleted, &identity.TenantDeletedEvent{})

	// User events
	serializer.Register(identity.EventTypeUserCreated, &identity.UserCreatedEvent{})
	serializer.Register(identity.EventTypeUserDeactivated, &identity.UserDeactivatedEvent{})
	serializer.Register(identity.EventTypeUserPasswordChanged, &identity.UserPasswordChangedEvent{})
	serializer.Register(identity.EventTypeUserRoleChanged, &identity.UserRoleChangedEvent{})
	serializer.Register(identity.EventTypeUserStatusChanged, &identity.UserStatusChangedEvent{})

	// Feature flag events
	serializer.Register(featureflag.EventTypeFlagCreated, &featureflag.FlagCreatedEvent{})
	serializer.Register(featureflag.EventTypeFlagUpdated, &featureflag.FlagUpdatedEvent{})
	serializer.Register(featureflag.EventTypeFlagEnabled, &featureflag.FlagEnabledEvent{})
	serializer.Register(featureflag.EventTypeFlagDisabled, &featureflag.FlagDisabledEvent{})
	serializer.Register(featureflag.EventTypeFlagArchived, &featureflag.FlagArchivedEvent{})
	serializer.Register(featureflag.EventTypeOverrideCreated, &featureflag.OverrideCreatedEvent{})
	serializer.Register(featureflag.EventTypeOverrideRemoved, &featureflag.OverrideRemovedEvent{})
	serializer.Register(featureflag.EventTypeOverrideUpdated, &featureflag.OverrideUpdatedEvent{})
}
