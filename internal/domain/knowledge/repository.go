package knowledge

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, d *Document) error

	// Update updates an existing document
	Update(ctx context.Context, d *Document) error

	// Delete deletes a document by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// FindByID finds a document by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindAll returns documents for the current tenant with pagination
	FindAll(ctx context.Context, filter DocumentFilter) ([]*Document, int64, error)

	// FindPending returns up to limit pending documents, oldest first.
	// The ingestion worker polls this across tenants.
	FindPending(ctx context.Context, limit int) ([]*Document, error)

	// Count returns the total number of documents for the tenant
	Count(ctx context.Context) (int64, error)

	// CountByBot counts documents attached to a bot within the tenant
	CountByBot(ctx context.Context, botID uuid.UUID) (int64, error)
}

// ChunkRepository defines the interface for chunk persistence
type ChunkRepository interface {
	// ReplaceForDocument deletes the document's existing chunks and
	// inserts the new set in a single transaction
	ReplaceForDocument(ctx context.Context, documentID uuid.UUID, chunks []*Chunk) error

	// FindByDocument returns a document's chunks ordered by index
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error)

	// FindReadyByBot returns all chunks of a bot's ready documents,
	// embeddings included, for in-process retrieval
	FindReadyByBot(ctx context.Context, botID uuid.UUID) ([]*Chunk, error)

	// DeleteByDocument removes all chunks of a document
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error

	// CountByDocument counts the chunks of a document
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
}

// DocumentFilter contains filter options for querying documents
type DocumentFilter struct {
	// Filter by bot
	BotID *uuid.UUID

	// Filter by status
	Status *DocumentStatus

	// Filter by source type
	SourceType *SourceType

	// Search keyword for name
	Keyword string

	// Pagination
	Page     int
	PageSize int

	// Sorting
	SortBy    string
	SortOrder string // "asc" or "desc"
}

// NewDocumentFilter creates a new DocumentFilter with default values
func NewDocumentFilter() DocumentFilter {
	return DocumentFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}
}

// WithBot sets the bot filter
func (f DocumentFilter) WithBot(botID uuid.UUID) DocumentFilter {
	f.BotID = &botID
	return f
}

// WithStatus sets the status filter
func (f DocumentFilter) WithStatus(status DocumentStatus) DocumentFilter {
	f.Status = &status
	return f
}

// WithSourceType sets the source type filter
func (f DocumentFilter) WithSourceType(sourceType SourceType) DocumentFilter {
	f.SourceType = &sourceType
	return f
}

// WithKeyword sets the search keyword
func (f DocumentFilter) WithKeyword(keyword string) DocumentFilter {
	f.Keyword = keyword
	return f
}

// WithPagination sets pagination parameters
func (f DocumentFilter) WithPagination(page, pageSize int) DocumentFilter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// WithSorting sets sorting parameters
func (f DocumentFilter) WithSorting(sortBy, sortOrder string) DocumentFilter {
	f.SortBy = sortBy
	f.SortOrder = sortOrder
	return f
}

// Offset returns the offset for pagination
func (f DocumentFilter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Limit returns the limit for pagination
func (f DocumentFilter) Limit() int {
	if f.PageSize <= 0 {
		return 20
	}
	if f.PageSize > 100 {
		return 100
	}
	return f.PageSize
}
