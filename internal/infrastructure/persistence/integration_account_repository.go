package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/chatforge/backend/internal/domain/integration"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/crypto"
	"github.com/chatforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCommerceAccountRepository implements CommerceAccountRepository
// using GORM. Credentials are sealed before they hit the row.
type GormCommerceAccountRepository struct {
	db     *gorm.DB
	sealer crypto.Sealer
}

// NewGormCommerceAccountRepository creates a new GormCommerceAccountRepository
func NewGormCommerceAccountRepository(db *gorm.DB, sealer crypto.Sealer) *GormCommerceAccountRepository {
	return &GormCommerceAccountRepository{db: db, sealer: sealer}
}

func (r *GormCommerceAccountRepository) sealModel(a *integration.CommerceAccount) (*models.CommerceAccountModel, error) {
	model := models.CommerceAccountModelFromDomain(a)
	if a.Credentials != "" {
		sealed, err := r.sealer.Seal(a.Credentials)
		if err != nil {
			return nil, fmt.Errorf("seal commerce credentials: %w", err)
		}
		model.Credentials = sealed
	}
	return model, nil
}

func (r *GormCommerceAccountRepository) openModel(m *models.CommerceAccountModel) (*integration.CommerceAccount, error) {
	account := m.ToDomain()
	if m.Credentials != "" {
		opened, err := r.sealer.Open(m.Credentials)
		if err != nil {
			return nil, fmt.Errorf("open commerce credentials: %w", err)
		}
		account.Credentials = opened
	}
	return account, nil
}

// Create creates a new commerce account
func (r *GormCommerceAccountRepository) Create(ctx context.Context, a *integration.CommerceAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update updates an existing commerce account with an optimistic version
// check
func (r *GormCommerceAccountRepository) Update(ctx context.Context, a *integration.CommerceAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.CommerceAccountModel{}).
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

// Delete deletes a commerce account by ID
func (r *GormCommerceAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&models.CommerceAccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a commerce account by ID within the current tenant
func (r *GormCommerceAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.CommerceAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var model models.CommerceAccountModel
	if err := scoped.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.openModel(&model)
}

// FindAll returns all commerce accounts for the current tenant
func (r *GormCommerceAccountRepository) FindAll(ctx context.Context) ([]*integration.CommerceAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var accountModels []*models.CommerceAccountModel
	if err := scoped.Order("created_at ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return r.openAll(accountModels)
}

// FindActive returns the active commerce accounts of the given tenant
func (r *GormCommerceAccountRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*integration.CommerceAccount, error) {
	var accountModels []*models.CommerceAccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, integration.AccountStatusActive).
		Order("created_at ASC").
		Find(&accountModels).Error
	if err != nil {
		return nil, err
	}
	return r.openAll(accountModels)
}

func (r *GormCommerceAccountRepository) openAll(accountModels []*models.CommerceAccountModel) ([]*integration.CommerceAccount, error) {
	accounts := make([]*integration.CommerceAccount, len(accountModels))
	for i, model := range accountModels {
		account, err := r.openModel(model)
		if err != nil {
			return nil, err
		}
		accounts[i] = account
	}
	return accounts, nil
}

// ExistsByPlatform checks if the current tenant already connected a
// commerce platform
func (r *GormCommerceAccountRepository) ExistsByPlatform(ctx context.Context, platform integration.CommercePlatformCode) (bool, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return false, err
	}

	var count int64
	if err := scoped.Model(&models.CommerceAccountModel{}).
		Where("platform = ?", platform).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormCommerceAccountRepository implements CommerceAccountRepository
var _ integration.CommerceAccountRepository = (*GormCommerceAccountRepository)(nil)

// GormCRMAccountRepository implements CRMAccountRepository using GORM.
type GormCRMAccountRepository struct {
	db     *gorm.DB
	sealer crypto.Sealer
}

// NewGormCRMAccountRepository creates a new GormCRMAccountRepository
func NewGormCRMAccountRepository(db *gorm.DB, sealer crypto.Sealer) *GormCRMAccountRepository {
	return &GormCRMAccountRepository{db: db, sealer: sealer}
}

func (r *GormCRMAccountRepository) sealModel(a *integration.CRMAccount) (*models.CRMAccountModel, error) {
	model := models.CRMAccountModelFromDomain(a)
	if a.Credentials != "" {
		sealed, err := r.sealer.Seal(a.Credentials)
		if err != nil {
			return nil, fmt.Errorf("seal crm credentials: %w", err)
		}
		model.Credentials = sealed
	}
	return model, nil
}

func (r *GormCRMAccountRepository) openModel(m *models.CRMAccountModel) (*integration.CRMAccount, error) {
	account := m.ToDomain()
	if m.Credentials != "" {
		opened, err := r.sealer.Open(m.Credentials)
		if err != nil {
			return nil, fmt.Errorf("open crm credentials: %w", err)
		}
		account.Credentials = opened
	}
	return account, nil
}

// Create creates a new CRM account
func (r *GormCRMAccountRepository) Create(ctx context.Context, a *integration.CRMAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update updates an existing CRM account with an optimistic version check
func (r *GormCRMAccountRepository) Update(ctx context.Context, a *integration.CRMAccount) error {
	model, err := r.sealModel(a)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Model(&models.CRMAccountModel{}).
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

// Delete deletes a CRM account by ID
func (r *GormCRMAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&models.CRMAccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a CRM account by ID within the current tenant
func (r *GormCRMAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.CRMAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var model models.CRMAccountModel
	if err := scoped.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.openModel(&model)
}

// FindAll returns all CRM accounts for the current tenant
func (r *GormCRMAccountRepository) FindAll(ctx context.Context) ([]*integration.CRMAccount, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var accountModels []*models.CRMAccountModel
	if err := scoped.Order("created_at ASC").Find(&accountModels).Error; err != nil {
		return nil, err
	}
	return r.openAll(accountModels)
}

// FindActive returns the active CRM accounts of the given tenant
func (r *GormCRMAccountRepository) FindActive(ctx context.Context, tenantID uuid.UUID) ([]*integration.CRMAccount, error) {
	var accountModels []*models.CRMAccountModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, integration.AccountStatusActive).
		Order("created_at ASC").
		Find(&accountModels).Error
	if err != nil {
		return nil, err
	}
	return r.openAll(accountModels)
}

func (r *GormCRMAccountRepository) openAll(accountModels []*models.CRMAccountModel) ([]*integration.CRMAccount, error) {
	accounts := make([]*integration.CRMAccount, len(accountModels))
	for i, model := range accountModels {
		account, err := r.openModel(model)
		if err != nil {
			return nil, err
		}
		accounts[i] = account
	}
	return accounts, nil
}

// ExistsByPlatform checks if the current tenant already connected a CRM
// platform
func (r *GormCRMAccountRepository) ExistsByPlatform(ctx context.Context, platform integration.CRMPlatformCode) (bool, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return false, err
	}

	var count int64
	if err := scoped.Model(&models.CRMAccountModel{}).
		Where("platform = ?", platform).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormCRMAccountRepository implements CRMAccountRepository
var _ integration.CRMAccountRepository = (*GormCRMAccountRepository)(nil)
