package channel

import (
	"context"

	"github.com/google/uuid"
)

// ChannelAccountRepository defines the interface for channel account
// persistence
type ChannelAccountRepository interface {
	// Create creates a new channel account
	Create(ctx context.Context, a *ChannelAccount) error

	// Update updates an existing channel account
	Update(ctx context.Context, a *ChannelAccount) error

	// Delete deletes a channel account by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a channel account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ChannelAccount, error)

	// FindForWebhook finds a channel account by ID without tenant
	// scoping. Webhook ingress authenticates with the account's own
	// secret, not a tenant session.
	FindForWebhook(ctx context.Context, id uuid.UUID) (*ChannelAccount, error)

	// FindAll returns channel accounts for the current tenant with
	// pagination
	FindAll(ctx context.Context, filter ChannelAccountFilter) ([]*ChannelAccount, int64, error)

	// FindByBot returns all channel accounts attached to a bot
	FindByBot(ctx context.Context, botID uuid.UUID) ([]*ChannelAccount, error)

	// Count returns the total number of channel accounts for the tenant
	Count(ctx context.Context) (int64, error)

	// CountByBot counts channel accounts attached to a bot
	CountByBot(ctx context.Context, botID uuid.UUID) (int64, error)
}

// ChannelAccountFilter contains filter options for querying channel
// accounts
type ChannelAccountFilter struct {
	// Filter by bot
	BotID *uuid.UUID

	// Filter by channel type
	ChannelType *ChannelType

	// Filter by status
	Status *AccountStatus

	// Pagination
	Page     int
	PageSize int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewChannelAccountFilter creates a new ChannelAccountFilter with
// default values
func NewChannelAccountFilter() ChannelAccountFilter {
	return ChannelAccountFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// WithBot sets the bot filter
func (f ChannelAccountFilter) WithBot(botID uuid.UUID) ChannelAccountFilter {
	f.BotID = &botID
	return f
}

// WithChannelType sets the channel type filter
func (f ChannelAccountFilter) WithChannelType(channelType ChannelType) ChannelAccountFilter {
	f.ChannelType = &channelType
	return f
}

// WithStatus sets the status filter
func (f ChannelAccountFilter) WithStatus(status AccountStatus) ChannelAccountFilter {
	f.Status = &status
	return f
}

// WithPagination sets pagination parameters
func (f ChannelAccountFilter) WithPagination(page, pageSize int) ChannelAccountFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// Offset returns the offset for pagination
func (f ChannelAccountFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f ChannelAccountFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}
