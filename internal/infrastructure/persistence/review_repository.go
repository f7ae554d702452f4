package persistence

import (
	"context"
	"errors"

	"github.com/chatforge/backend/internal/domain/review"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReviewRepository implements ReviewRepository using GORM
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// Create creates a new review. A conversation can carry at most one
// review, enforced by the unique index on conversation_id.
func (r *GormReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	model := models.ReviewModelFromDomain(rv)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update updates an existing review with an optimistic version check
func (r *GormReviewRepository) Update(ctx context.Context, rv *review.Review) error {
	model := models.ReviewModelFromDomain(rv)

	result := r.db.WithContext(ctx).Model(&models.ReviewModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", rv.ID, rv.TenantID, rv.Version-1).
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

// Delete deletes a review by ID
func (r *GormReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&models.ReviewModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a review by ID within the current tenant
func (r *GormReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var model models.ReviewModel
	if err := scoped.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns reviews for the current tenant with pagination
func (r *GormReviewRepository) FindAll(ctx context.Context, filter review.ReviewFilter) ([]*review.Review, int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := scoped.Model(&models.ReviewModel{})

	if filter.BotID != nil {
		query = query.Where("bot_id = ?", *filter.BotID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Rating != nil {
		query = query.Where("rating = ?", *filter.Rating)
	}
	if filter.Source != nil {
		query = query.Where("source = ?", *filter.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.SortBy, ReviewSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(sortBy + " " + sortOrder)

	var reviewModels []*models.ReviewModel
	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&reviewModels).Error; err != nil {
		return nil, 0, err
	}

	reviews := make([]*review.Review, len(reviewModels))
	for i, model := range reviewModels {
		reviews[i] = model.ToDomain()
	}
	return reviews, total, nil
}

// ExistsByConversation checks if a conversation already has a review.
// Unscoped because widget visitors submit reviews without a tenant
// session.
func (r *GormReviewRepository) ExistsByConversation(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReviewModel{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Stats aggregates the approved reviews of a bot into count, average
// and a per-rating histogram
func (r *GormReviewRepository) Stats(ctx context.Context, botID uuid.UUID) (*review.RatingStats, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, err
	}

	type ratingRow struct {
		Rating int
		Count  int64
	}

	var rows []ratingRow
	err = scoped.Model(&models.ReviewModel{}).
		Select("rating, COUNT(*) as count").
		Where("bot_id = ? AND status = ?", botID, review.ReviewStatusApproved).
		Group("rating").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &review.RatingStats{Histogram: make(map[int]int64, 5)}
	var weighted int64
	for _, row := range rows {
		stats.Count += row.Count
		stats.Histogram[row.Rating] = row.Count
		weighted += int64(row.Rating) * row.Count
	}
	if stats.Count > 0 {
		stats.Average = float64(weighted) / float64(stats.Count)
	}
	return stats, nil
}

// Count returns the total number of reviews for the current tenant
func (r *GormReviewRepository) Count(ctx context.Context) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.ReviewModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormReviewRepository implements ReviewRepository
var _ review.ReviewRepository = (*GormReviewRepository)(nil)
