package review

import (
	"context"

	"github.com/google/uuid"
)

// RatingStats summarizes the approved reviews of a bot
type RatingStats struct {
	Count     int64         `json:"count"`
	Average   float64       `json:"average"`
	Histogram map[int]int64 `json:"histogram"` // rating → count, keys 1..5
}

// ReviewRepository defines the interface for review persistence
type ReviewRepository interface {
	// Create creates a new review
	Create(ctx context.Context, r *Review) error

	// Update updates an existing review
	Update(ctx context.Context, r *Review) error

	// Delete deletes a review by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a review by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// FindAll returns reviews for the current tenant with pagination
	FindAll(ctx context.Context, filter ReviewFilter) ([]*Review, int64, error)

	// ExistsByConversation checks if a conversation already has a review
	ExistsByConversation(ctx context.Context, conversationID uuid.UUID) (bool, error)

	// Stats aggregates the approved reviews of a bot
	Stats(ctx context.Context, botID uuid.UUID) (*RatingStats, error)

	// Count returns the total number of reviews for the tenant
	Count(ctx context.Context) (int64, error)
}

// ReviewFilter contains filter options for querying reviews
type ReviewFilter struct {
	// Filter by bot
	BotID *uuid.UUID

	// Filter by moderation status
	Status *ReviewStatus

	// Filter by exact rating
	Rating *int

	// Filter by source
	Source *ReviewSource

	// Pagination
	Page     int
	PageSize int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewReviewFilter creates a new ReviewFilter with default values
func NewReviewFilter() ReviewFilter {
	return ReviewFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// WithBot sets the bot filter
func (f ReviewFilter) WithBot(botID uuid.UUID) ReviewFilter {
	f.BotID = &botID
	return f
}

// WithStatus sets the status filter
func (f ReviewFilter) WithStatus(status ReviewStatus) ReviewFilter {
	f.Status = &status
	return f
}

// WithRating sets the rating filter
func (f ReviewFilter) WithRating(rating int) ReviewFilter {
	f.Rating = &rating
	return f
}

// WithSource sets the source filter
func (f ReviewFilter) WithSource(source ReviewSource) ReviewFilter {
	f.Source = &source
	return f
}

// WithPagination sets pagination parameters
func (f ReviewFilter) WithPagination(page, pageSize int) ReviewFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// Offset returns the offset for pagination
func (f ReviewFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f ReviewFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}
