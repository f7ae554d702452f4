package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/crypto"
	"github.com/chatforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormChannelAccountRepository implements ChannelAccountRepository using
// GORM. Credentials are sealed on the way in and opened on the way out,
// the database never holds them in plaintext.
type GormChannelAccountRepository struct {
	db     *gorm.DB
	sealer crypto.Sealer
}

// NewGormChannelAccountRepository creates a new GormChannelAccountRepository
func NewGormChannelAccountRepository(db *gorm.DB, sealer crypto.Sealer) *GormChannelAccountRepository {
	return &GormChannelAccountRepository{db: db, sealer: sealer}
}

func (r *GormChannelAccountRepository) sealModel(a *channel.ChannelAccount) (*models.ChannelAccountModel, error) {
	model := models.ChannelAccountModelFromDomain(a)
	if a.Credentials != "" {
		sealed, err := r.sealer.Seal(a.Credentials)
		if err != nil {
			return nil, fmt.Errorf("seal channel credentials: %w", err)
		}
		model.Credentials = sealed
	}
	return model, nil
}

func (r *GormChannelAccountRepository) openModel(m *models.ChannelAccountModel) (*channel.ChannelAccount, error) {
	account := m.ToDomain()
	if m.Credentials != "" {
		opened, err := r.sealer.Open(m.Credentials)
		if err != nil {
			return nil, fmt.Errorf("open channel credentials: %w", err)
		}
		account.Credentials = opened
	}
	return account, nil
}

// Create creates a new channel account
func (r *GormChannelAccountRepository) Create(ctx context.Context, a *channel.ChannelAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing channel account with an optimistic version
// check
func (r *GormChannelAccountRepository) Update(ctx context.Context, a *channel.ChannelAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.ChannelAccountModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", a.ID, a.TenantID, a.Version-1).
		Select("*").
		Omit("id", "tenant_id", "created_at", "created_by").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a channel account by ID
func (r *GormChannelAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&models.ChannelAccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a channel account by ID within the current tenant
func (r *GormChannelAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*channel.ChannelAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var model models.ChannelAccountModel
	if err := scoped.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.openModel(&model)
}

// FindForWebhook finds a channel account by ID without tenant scoping.
// Webhook ingress authenticates with the account's own secret.
func (r *GormChannelAccountRepository) FindForWebhook(ctx context.Context, id uuid.UUID) (*channel.ChannelAccount, error) {
	var model models.ChannelAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.openModel(&model)
}

// FindAll returns channel accounts for the current tenant with pagination
func (r *GormChannelAccountRepository) FindAll(ctx context.Context, filter channel.ChannelAccountFilter) ([]*channel.ChannelAccount, int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := scoped.Model(&models.ChannelAccountModel{})

	if filter.BotID != nil {
		query = query.Where("bot_id = ?", *filter.BotID)
	}
	if filter.ChannelType != nil {
		query = query.Where("channel_type = ?", *filter.ChannelType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.SortBy, ChannelAccountSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(sortBy + " " + sortOrder)

	var accountModels []*models.ChannelAccountModel
	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&accountModels).Error; err != nil {
		return nil, 0, err
	}

	accounts := make([]*channel.ChannelAccount, len(accountModels))
	for i, model := range accountModels {
		account, err := r.openModel(model)
		if err != nil {
			return nil, 0, err
		}
		accounts[i] = account
	}
	return accounts, total, nil
}

// FindByBot returns all channel accounts attached to a bot within the
// current tenant
func (r *GormChannelAccountRepository) FindByBot(ctx context.Context, botID uuid.UUID) ([]*channel.ChannelAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var accountModels []*models.ChannelAccountModel
	if err := scoped.Where("bot_id = ?", botID).Order("created_at ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}

	accounts := make([]*channel.ChannelAccount, len(accountModels))
	for i, model := range accountModels {
		account, err := r.openModel(model)
		if err != nil {
			return nil, err
		}
		accounts[i] = account
	}
	return accounts, nil
}

// Count returns the total number of channel accounts for the current tenant
func (r *GormChannelAccountRepository) Count(ctx context.Context) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.ChannelAccountModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByBot counts channel accounts attached to a bot within the
// current tenant
func (r *GormChannelAccountRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.ChannelAccountModel{}).
		Where("bot_id = ?", botID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormChannelAccountRepository implements ChannelAccountRepository
var _ channel.ChannelAccountRepository = (*GormChannelAccountRepository)(nil)
