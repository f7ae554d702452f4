package persistence

import (
	"context"
	"errors"

	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBotRepository implements BotRepository using GORM.
// Bots carry their GORM mapping on the aggregate itself.
type GormBotRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormBotRepository creates a new GormBotRepository
func NewGormBotRepository(db *gorm.DB) *GormBotRepository {
	return &GormBotRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormBotRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// Create creates a new bot
func (r *GormBotRepository) Create(ctx context.Context, b *bot.Bot) error {
	events := b.GetDomainEvents()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
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
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	b.ClearDomainEvents()
	return nil
}

// Update updates an existing bot with an optimistic version check
func (r *GormBotRepository) Update(ctx context.Context, b *bot.Bot) error {
	tenantID, err := tenantFromContext(ctx)
	if err != nil {
		return err
	}

	events := b.GetDomainEvents()
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&bot.Bot{}).
			Where("id = ? AND tenant_id = ? AND version = ?", b.ID, tenantID, b.Version-1).
			Select("*").
			Omit("id", "tenant_id", "created_at", "created_by").
			Updates(b)
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
	b.ClearDomainEvents()
	return nil
}

// Delete deletes a bot by ID
func (r *GormBotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&bot.Bot{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a bot by ID within the current tenant
func (r *GormBotRepository) FindByID(ctx context.Context, id uuid.UUID) (*bot.Bot, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var b bot.Bot
	if err := scoped.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindBySlug finds a bot by slug within the current tenant
func (r *GormBotRepository) FindBySlug(ctx context.Context, slug string) (*bot.Bot, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var b bot.Bot
	if err := scoped.Where("slug = ?", slug).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindByWidgetKey finds a bot by its public widget key.
// The lookup is tenant-unscoped, the key itself is the credential.
func (r *GormBotRepository) FindByWidgetKey(ctx context.Context, key string) (*bot.Bot, error) {
	var b bot.Bot
	if err := r.db.WithContext(ctx).Where("widget_key = ?", key).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FindAll returns all bots for the current tenant with pagination
func (r *GormBotRepository) FindAll(ctx context.Context, filter bot.BotFilter) ([]*bot.Bot, int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := scoped.Model(&bot.Bot{})

	if filter.Keyword != "" {
		pattern := "%" + filter.Keyword + "%"
		query = query.Where("name ILIKE ? OR slug ILIKE ?", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.SortBy, BotSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(sortBy + " " + sortOrder)

	var bots []*bot.Bot
	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&bots).Error; err != nil {
		return nil, 0, err
	}

	return bots, total, nil
}

// ExistsBySlug checks if a slug already exists within the current tenant
func (r *GormBotRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return false, err
	}

	var count int64
	if err := scoped.Model(&bot.Bot{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the total number of bots for the current tenant
func (r *GormBotRepository) Count(ctx context.Context) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&bot.Bot{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts bots with a specific status within the current tenant
func (r *GormBotRepository) CountByStatus(ctx context.Context, status bot.BotStatus) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&bot.Bot{}).Where("status = ?", status).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormBotRepository implements BotRepository
var _ bot.BotRepository = (*GormBotRepository)(nil)
