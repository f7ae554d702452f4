package bot

import (
	"context"

	"github.com/google/uuid"
)

// BotRepository defines the interface for bot persistence
type BotRepository interface {
	// Create creates a new bot
	Create(ctx context.Context, b *Bot) error

	// Update updates an existing bot
	Update(ctx context.Context, b *Bot) error

	// Delete deletes a bot by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a bot by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Bot, error)

	// FindBySlug finds a bot by slug within the tenant
	FindBySlug(ctx context.Context, slug string) (*Bot, error)

	// FindByWidgetKey finds a bot by its public widget key.
	// This lookup is tenant-unscoped, the key itself is the credential.
	FindByWidgetKey(ctx context.Context, key string) (*Bot, error)

	// FindAll returns all bots for the current tenant with pagination
	FindAll(ctx context.Context, filter BotFilter) ([]*Bot, int64, error)

	// ExistsBySlug checks if a slug already exists within the tenant
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// Count returns the total number of bots for the tenant
	Count(ctx context.Context) (int64, error)

	// CountByStatus counts bots with a specific status within the tenant
	CountByStatus(ctx context.Context, status BotStatus) (int64, error)
}

// BotFilter contains filter options for querying bots
type BotFilter struct {
	// Search keyword for name or slug
	Keyword string

	// Filter by status
	Status *BotStatus

	// Pagination
	Page     int
	PageSize int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewBotFilter creates a new BotFilter with default values
func NewBotFilter() BotFilter {
	return BotFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// WithKeyword sets the search keyword
func (f BotFilter) WithKeyword(keyword string) BotFilter {
	f.Keyword = keyword
	return f
}

// WithStatus sets the status filter
func (f BotFilter) WithStatus(status BotStatus) BotFilter {
	f.Status = &status
	return f
}

// WithPagination sets pagination parameters
func (f BotFilter) WithPagination(page, pageSize int) BotFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// WithSorting sets sorting parameters
func (f BotFilter) WithSorting(sortBy, sortOrder string) BotFilter {
	f.SortBy = sortBy
	f.SortOrder = sortOrder
	return f
}

// Offset returns the offset for pagination
func (f BotFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f BotFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}
