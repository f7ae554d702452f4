package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/chatforge/backend/internal/domain/conversation"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConversationRepository implements ConversationRepository using GORM
type GormConversationRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormConversationRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Create creates a new conversation
func (r *GormConversationRepository) Create(ctx context.Context, c *conversation.Conversation) error {
	model := models.ConversationModelFromDomain(c)
	events := c.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.ClearDomainEvents()
	return nil
}

// Update updates an existing conversation with an optimistic version check
func (r *GormConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	model := models.ConversationModelFromDomain(c)

	events := c.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ConversationModel{}).
			Where("id = ? AND tenant_id = ? AND version = ?", c.ID, c.TenantID, c.Version-1).
			Select("*").
			Omit("id", "tenant_id", "created_at", "created_by").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		if r.outboxSaver != nil && len(events) > 0 {
			if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.ClearDomainEvents()
	return nil
}

// FindByID finds a conversation by ID.
// The lookup scopes by the context tenant when one is present; the reply
// engine and webhook pipeline run outside request scope and look up by
// the ID alone.
func (r *GormConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*conversation.Conversation, error) {
	query := r.db.WithContext(ctx)
	if tenantID, err := tenantFromContext(ctx); err == nil {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var model models.ConversationModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByVisitor finds the most recent active conversation for a
// visitor on a bot and channel within the idle window
func (r *GormConversationRepository) FindActiveByVisitor(ctx context.Context, botID uuid.UUID, channel conversation.Channel, visitorID string, idleWindow time.Duration) (*conversation.Conversation, error) {
	cutoff := time.Now().Add(-idleWindow)

	var model models.ConversationModel
	err := r.db.WithContext(ctx).
		Where("bot_id = ? AND channel = ? AND visitor_id = ? AND status = ?",
			botID, channel, visitorID, conversation.ConversationStatusActive).
		Where("last_message_at IS NULL OR last_message_at > ?", cutoff).
		Order("last_message_at DESC NULLS LAST").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternalThread finds a conversation by its vendor-side thread ID
func (r *GormConversationRepository) FindByExternalThread(ctx context.Context, botID uuid.UUID, channel conversation.Channel, externalThreadID string) (*conversation.Conversation, error) {
	var model models.ConversationModel
	err := r.db.WithContext(ctx).
		Where("bot_id = ? AND channel = ? AND external_thread_id = ?", botID, channel, externalThreadID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns conversations for the current tenant with pagination
func (r *GormConversationRepository) FindAll(ctx context.Context, filter conversation.ConversationFilter) ([]*conversation.Conversation, int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := scoped.Model(&models.ConversationModel{})

	if filter.BotID != nil {
		query = query.Where("bot_id = ?", *filter.BotID)
	}
	if filter.Channel != nil {
		query = query.Where("channel = ?", *filter.Channel)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where(
			"visitor_id ILIKE ? OR visitor_email ILIKE ? OR visitor_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.Since != nil {
		query = query.Where("last_message_at > ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.SortBy, ConversationSortFields, "last_message_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(sortBy + " " + sortOrder)

	var conversationModels []*models.ConversationModel
	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&conversationModels).Error; err != nil {
		return nil, 0, err
	}

	conversations := make([]*conversation.Conversation, len(conversationModels))
	for i, model := range conversationModels {
		conversations[i] = model.ToDomain()
	}
	return conversations, total, nil
}

// Count returns the total number of conversations for the current tenant
func (r *GormConversationRepository) Count(ctx context.Context) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.ConversationModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByBot counts conversations of a bot within the current tenant
func (r *GormConversationRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.ConversationModel{}).
		Where("bot_id = ?", botID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormConversationRepository implements ConversationRepository
var _ conversation.ConversationRepository = (*GormConversationRepository)(nil)

// GormMessageRepository implements MessageRepository using GORM
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository creates a new GormMessageRepository
func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create persists a message, assigning the next sequence number within
// its conversation. The max+1 read and the insert run in one transaction
// so concurrent appends to the same conversation cannot collide silently;
// the unique (conversation_id, sequence) index backs this up.
func (r *GormMessageRepository) Create(ctx context.Context, m *conversation.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq *int
		if err := tx.Model(&models.MessageModel{}).
			Where("conversation_id = ?", m.ConversationID).
			Select("MAX(sequence)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		m.Sequence = 0
		if maxSeq != nil {
			m.Sequence = *maxSeq + 1
		}

		model := models.MessageModelFromDomain(m)
		return tx.Create(model).Error
	})
}

// Update updates a message (failure annotation only)
func (r *GormMessageRepository) Update(ctx context.Context, m *conversation.Message) error {
	model := models.MessageModelFromDomain(m)

	result := r.db.WithContext(ctx).Model(&models.MessageModel{}).
		Where("id = ?", m.ID).
		Select("failure_reason", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a message by ID
func (r *GormMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*conversation.Message, error) {
	var model models.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByConversation returns the transcript of a conversation ordered by
// creation time then sequence
func (r *GormMessageRepository) FindByConversation(ctx context.Context, conversationID uuid.UUID, filter conversation.MessageFilter) ([]*conversation.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MessageModel{}).
		Where("conversation_id = ?", conversationID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messageModels []*models.MessageModel
	err := query.Order("created_at ASC, sequence ASC").
		Offset(filter.Offset()).Limit(filter.Limit()).
		Find(&messageModels).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]*conversation.Message, len(messageModels))
	for i, model := range messageModels {
		messages[i] = model.ToDomain()
	}
	return messages, total, nil
}

// FindRecent returns the latest N messages of a conversation in
// chronological order
func (r *GormMessageRepository) FindRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*conversation.Message, error) {
	if limit <= 0 {
		return []*conversation.Message{}, nil
	}

	var messageModels []*models.MessageModel
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("sequence DESC").
		Limit(limit).
		Find(&messageModels).Error
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order
	messages := make([]*conversation.Message, len(messageModels))
	for i, model := range messageModels {
		messages[len(messageModels)-1-i] = model.ToDomain()
	}
	return messages, nil
}

// CountByConversation counts messages in a conversation
func (r *GormMessageRepository) CountByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MessageModel{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormMessageRepository implements MessageRepository
var _ conversation.MessageRepository = (*GormMessageRepository)(nil)
