package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTenantID is returned when a tenant ID is invalid or empty
var ErrInvalidTenantID = errors.New("billing: tenant ID cannot be empty")

// UsageHistory represents a daily snapshot of tenant usage metrics.
// These snapshots are created daily by a scheduled job and used for
// historical trend analysis and reporting.
type UsageHistory struct {
	ID                 uuid.UUID      `json:"id"`
	TenantID           uuid.UUID      `json:"tenant_id"`
	SnapshotDate       time.Time      `json:"snapshot_date"`
	UsersCount         int64          `json:"users_count"`
	BotsCount          int64          `json:"bots_count"`
	DocumentsCount     int64          `json:"documents_count"`
	ChannelsCount      int64          `json:"channels_count"`
	ConversationsCount int64          `json:"conversations_count"`
	MessagesCount      int64          `json:"messages_count"`
	TokensCount        int64          `json:"tokens_count"`
	StorageBytes       int64          `json:"storage_bytes"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// NewUsageHistory creates a new usage history snapshot with validation
func NewUsageHistory(tenantID uuid.UUID, snapshotDate time.Time) (*UsageHistory, error) {
	if tenantID == uuid.Nil {
		return nil, ErrInvalidTenantID
	}

	// Normalize snapshot date to start of day (UTC)
	normalizedDate := time.Date(
		snapshotDate.Year(),
		snapshotDate.Month(),
		snapshotDate.Day(),
		0, 0, 0, 0,
		time.UTC,
	)

	return &UsageHistory{
		ID:           uuid.New(),
		TenantID:     tenantID,
		SnapshotDate: normalizedDate,
		Metadata:     make(map[string]any),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// WithUsersCount sets the users count
func (h *UsageHistory) WithUsersCount(count int64) *UsageHistory {
	if count >= 0 {
		h.UsersCount = count
	}
	return h
}

// WithBotsCount sets the bots count
func (h *UsageHistory) WithBotsCount(count int64) *UsageHistory {
	if count >= 0 {
		h.BotsCount = count
	}
	return h
}

// WithDocumentsCount sets the documents count
func (h *UsageHistory) WithDocumentsCount(count int64) *UsageHistory {
	if count >= 0 {
		h.DocumentsCount = count
	}
	return h
}

// WithChannelsCount sets the connected channels count
func (h *UsageHistory) WithChannelsCount(count int64) *UsageHistory {
	if count >= 0 {
		h.ChannelsCount = count
	}
	return h
}

// WithConversationsCount sets the conversations count
func (h *UsageHistory) WithConversationsCount(count int64) *UsageHistory {
	if count >= 0 {
		h.ConversationsCount = count
	}
	return h
}

// WithMessagesCount sets the messages count
func (h *UsageHistory) WithMessagesCount(count int64) *UsageHistory {
	if count >= 0 {
		h.MessagesCount = count
	}
	return h
}

// WithTokensCount sets the AI tokens count
func (h *UsageHistory) WithTokensCount(count int64) *UsageHistory {
	if count >= 0 {
		h.TokensCount = count
	}
	return h
}

// WithStorageBytes sets the storage bytes
func (h *UsageHistory) WithStorageBytes(bytes int64) *UsageHistory {
	if bytes >= 0 {
		h.StorageBytes = bytes
	}
	return h
}

// WithMetadata adds a metadata entry
func (h *UsageHistory) WithMetadata(key string, value any) *UsageHistory {
	if h.Metadata == nil {
		h.Metadata = make(map[string]any)
	}
	h.Metadata[key] = value
	return h
}

// SetCounts sets all entity counts at once for convenience
// Negative values are ignored (counts remain unchanged)
func (h *UsageHistory) SetCounts(users, bots, documents, channels, conversations int64) *UsageHistory {
	if users >= 0 {
		h.UsersCount = users
	}
	if bots >= 0 {
		h.BotsCount = bots
	}
	if documents >= 0 {
		h.DocumentsCount = documents
	}
	if channels >= 0 {
		h.ChannelsCount = channels
	}
	if conversations >= 0 {
		h.ConversationsCount = conversations
	}
	return h
}

// UsageHistoryFilter defines filtering options for usage history queries
type UsageHistoryFilter struct {
	StartDate *time.Time // Filter snapshots from this date (inclusive)
	EndDate   *time.Time // Filter snapshots until this date (inclusive)
	Page      int        // Page number (1-based)
	PageSize  int        // Number of records per page
}

// DefaultUsageHistoryFilter returns a filter with default values
func DefaultUsageHistoryFilter() UsageHistoryFilter {
	return UsageHistoryFilter{
		Page:     1,
		PageSize: 100,
	}
}

// WithDateRange sets the date range for the filter
func (f UsageHistoryFilter) WithDateRange(start, end time.Time) UsageHistoryFilter {
	f.StartDate = &start
	f.EndDate = &end
	return f
}

// WithPagination sets pagination options
func (f UsageHistoryFilter) WithPagination(page, pageSize int) UsageHistoryFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// UsageHistoryRepository defines the interface for persisting and querying usage history
type UsageHistoryRepository interface {
	// Save persists a new usage history snapshot
	Save(ctx context.Context, history *UsageHistory) error

	// SaveBatch persists multiple usage history snapshots in a single transaction
	SaveBatch(ctx context.Context, histories []*UsageHistory) error

	// Upsert creates or updates a usage history snapshot for a tenant and date
	Upsert(ctx context.Context, history *UsageHistory) error

	// FindByID retrieves a usage history snapshot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*UsageHistory, error)

	// FindByTenantAndDate retrieves a specific snapshot for a tenant and date
	FindByTenantAndDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*UsageHistory, error)

	// FindByTenant retrieves all snapshots for a tenant within a date range
	FindByTenant(ctx context.Context, tenantID uuid.UUID, filter UsageHistoryFilter) ([]*UsageHistory, error)

	// FindLatestByTenant retrieves the most recent snapshot for a tenant
	FindLatestByTenant(ctx context.Context, tenantID uuid.UUID) (*UsageHistory, error)

	// CountByTenant counts snapshots for a tenant within a date range
	CountByTenant(ctx context.Context, tenantID uuid.UUID, filter UsageHistoryFilter) (int64, error)

	// DeleteOlderThan removes snapshots older than the specified date (for data retention)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)

	// DeleteByTenant removes all snapshots for a tenant
	DeleteByTenant(ctx context.Context, tenantID uuid.UUID) error

	// GetAllTenantIDs retrieves all unique tenant IDs that have usage history
	GetAllTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}
