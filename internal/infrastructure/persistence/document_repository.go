package persistence

import (
	"context"
	"errors"

	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create creates a new document
func (r *GormDocumentRepository) Create(ctx context.Context, d *knowledge.Document) error {
	model := models.DocumentModelFromDomain(d)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing document with an optimistic version check.
// The ingestion worker updates documents outside request scope, so the
// tenant comes from the aggregate rather than the context.
func (r *GormDocumentRepository) Update(ctx context.Context, d *knowledge.Document) error {
	model := models.DocumentModelFromDomain(d)

	result := r.db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("id = ? AND tenant_id = ? AND version = ?", d.ID, d.TenantID, d.Version-1).
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

// Delete deletes a document by ID
func (r *GormDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return err
	}

	result := scoped.Delete(&models.DocumentModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a document by ID.
// Scoped to the context tenant when one is present; the ingestion worker
// looks documents up by ID alone.
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*knowledge.Document, error) {
	query := r.db.WithContext(ctx)
	if tenantID, err := tenantFromContext(ctx); err == nil {
		query = query.Where("tenant_id = ?", tenantID)
	}

	var model models.DocumentModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns documents for the current tenant with pagination
func (r *GormDocumentRepository) FindAll(ctx context.Context, filter knowledge.DocumentFilter) ([]*knowledge.Document, int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return nil, 0, err
	}

	query := scoped.Model(&models.DocumentModel{})

	if filter.BotID != nil {
		query = query.Where("bot_id = ?", *filter.BotID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SourceType != nil {
		query = query.Where("source_type = ?", *filter.SourceType)
	}
	if filter.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Keyword+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.SortBy, DocumentSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.SortOrder)
	query = query.Order(sortBy + " " + sortOrder)

	var documentModels []*models.DocumentModel
	if err := query.Offset(filter.Offset()).Limit(filter.Limit()).Find(&documentModels).Error; err != nil {
		return nil, 0, err
	}

	documents := make([]*knowledge.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = model.ToDomain()
	}
	return documents, total, nil
}

// FindPending returns up to limit pending documents across all tenants,
// oldest first. Polled by the ingestion worker.
func (r *GormDocumentRepository) FindPending(ctx context.Context, limit int) ([]*knowledge.Document, error) {
	if limit <= 0 {
		limit = 10
	}

	var documentModels []*models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("status = ?", knowledge.DocumentStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&documentModels).Error
	if err != nil {
		return nil, err
	}

	documents := make([]*knowledge.Document, len(documentModels))
	for i, model := range documentModels {
		documents[i] = model.ToDomain()
	}
	return documents, nil
}

// Count returns the total number of documents for the current tenant
func (r *GormDocumentRepository) Count(ctx context.Context) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.DocumentModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByBot counts documents attached to a bot within the current tenant
func (r *GormDocumentRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	scoped, err := scopedToTenant(ctx, r.db)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := scoped.Model(&models.DocumentModel{}).
		Where("bot_id = ?", botID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormDocumentRepository implements DocumentRepository
var _ knowledge.DocumentRepository = (*GormDocumentRepository)(nil)

// GormChunkRepository implements ChunkRepository using GORM
type GormChunkRepository struct {
	db *gorm.DB
}

// NewGormChunkRepository creates a new GormChunkRepository
func NewGormChunkRepository(db *gorm.DB) *GormChunkRepository {
	return &GormChunkRepository{db: db}
}

// ReplaceForDocument deletes the document's existing chunks and inserts
// the new set in a single transaction, so retrieval never observes a
// half-replaced document.
func (r *GormChunkRepository) ReplaceForDocument(ctx context.Context, documentID uuid.UUID, chunks []*knowledge.Chunk) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ChunkModel{}, "document_id = ?", documentID).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}

		chunkModels := make([]*models.ChunkModel, len(chunks))
		for i, c := range chunks {
			chunkModels[i] = models.ChunkModelFromDomain(c)
		}
		return tx.CreateInBatches(chunkModels, 100).Error
	})
}

// FindByDocument returns a document's chunks ordered by index
func (r *GormChunkRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*knowledge.Chunk, error) {
	var chunkModels []*models.ChunkModel
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunkModels).Error
	if err != nil {
		return nil, err
	}

	chunks := make([]*knowledge.Chunk, len(chunkModels))
	for i, model := range chunkModels {
		chunks[i] = model.ToDomain()
	}
	return chunks, nil
}

// FindReadyByBot returns all chunks belonging to a bot's ready documents,
// embeddings included, for in-process similarity scoring
func (r *GormChunkRepository) FindReadyByBot(ctx context.Context, botID uuid.UUID) ([]*knowledge.Chunk, error) {
	var chunkModels []*models.ChunkModel
	err := r.db.WithContext(ctx).
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("chunks.bot_id = ? AND documents.status = ?", botID, knowledge.DocumentStatusReady).
		Find(&chunkModels).Error
	if err != nil {
		return nil, err
	}

	chunks := make([]*knowledge.Chunk, len(chunkModels))
	for i, model := range chunkModels {
		chunks[i] = model.ToDomain()
	}
	return chunks, nil
}

// DeleteByDocument removes all chunks of a document
func (r *GormChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.ChunkModel{}, "document_id = ?", documentID).Error
}

// CountByDocument counts the chunks of a document
func (r *GormChunkRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ChunkModel{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure GormChunkRepository implements ChunkRepository
var _ knowledge.ChunkRepository = (*GormChunkRepository)(nil)
