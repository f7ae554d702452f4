package knowledge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ObjectStorageService defines the interface for object storage operations
// This interface is implemented by the infrastructure layer (S3, RustFS, etc.)
type ObjectStorageService interface {
	// Upload writes an object to storage
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error

	// Download reads an object from storage
	Download(ctx context.Context, storageKey string) ([]byte, error)

	// DeleteObject deletes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error

	// ObjectExists checks if an object exists in storage
	ObjectExists(ctx context.Context, storageKey string) (bool, error)

	// GenerateDownloadURL generates a presigned URL for downloading a file
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// QuotaChecker verifies plan limits before creating billable resources
type QuotaChecker interface {
	CheckDocumentQuota(ctx context.Context, tenantID uuid.UUID) error
	CheckStorageQuota(ctx context.Context, tenantID uuid.UUID, sizeBytes int64) error
}

// BotResolver confirms that a bot exists before knowledge is attached to it
type BotResolver interface {
	ExistsForTenant(ctx context.Context, botID uuid.UUID) (bool, error)
}

// DocumentServiceConfig holds configuration for the document service
type DocumentServiceConfig struct {
	// DownloadURLExpiry is the duration for which download URLs are valid
	DownloadURLExpiry time.Duration
}

// DefaultDocumentServiceConfig returns the default configuration
func DefaultDocumentServiceConfig() DocumentServiceConfig {
	return DocumentServiceConfig{
		DownloadURLExpiry: 1 * time.Hour,
	}
}

// DocumentService handles knowledge document management
type DocumentService struct {
	docRepo   knowledge.DocumentRepository
	chunkRepo knowledge.ChunkRepository
	storage   ObjectStorageService
	quota     QuotaChecker
	bots      BotResolver
	config    DocumentServiceConfig
	logger    *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo knowledge.DocumentRepository,
	chunkRepo knowledge.ChunkRepository,
	storage ObjectStorageService,
	quota QuotaChecker,
	bots BotResolver,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		storage:   storage,
		quota:     quota,
		bots:      bots,
		config:    DefaultDocumentServiceConfig(),
		logger:    logger,
	}
}

// SetConfig sets the service configuration
func (s *DocumentService) SetConfig(config DocumentServiceConfig) {
	s.config = config
}

// UploadFileInput contains input for uploading a knowledge file
type UploadFileInput struct {
	TenantID uuid.UUID
	BotID    uuid.UUID
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// AddURLInput contains input for adding a crawled URL source
type AddURLInput struct {
	TenantID uuid.UUID
	BotID    uuid.UUID
	Name     string
	URL      string
}

// AddTextInput contains input for adding a raw text source
type AddTextInput struct {
	TenantID uuid.UUID
	BotID    uuid.UUID
	Name     string
	Content  string
}

// ListDocumentsInput contains input for listing documents
type ListDocumentsInput struct {
	BotID      *uuid.UUID
	Status     string
	SourceType string
	Keyword    string
	Page       int
	PageSize   int
}

// DocumentDTO represents document data transfer object
type DocumentDTO struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	BotID         uuid.UUID  `json:"bot_id"`
	SourceType    string     `json:"source_type"`
	Name          string     `json:"name"`
	SourceURL     string     `json:"source_url,omitempty"`
	MimeType      string     `json:"mime_type"`
	SizeBytes     int64      `json:"size_bytes"`
	Status        string     `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	ChunkCount    int        `json:"chunk_count"`
	EmbeddedAt    *time.Time `json:"embedded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DocumentListResult represents paginated document list result
type DocumentListResult struct {
	Documents  []DocumentDTO `json:"documents"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// UploadFile stores an uploaded file and queues it for ingestion
func (s *DocumentService) UploadFile(ctx context.Context, input UploadFileInput) (*DocumentDTO, error) {
	s.logger.Info("Uploading knowledge document",
		zap.String("file_name", input.FileName),
		zap.String("mime_type", input.MimeType),
		zap.Int64("size_bytes", input.Size),
		zap.String("bot_id", input.BotID.String()))

	if !knowledge.IsAllowedMimeType(input.MimeType) {
		return nil, shared.NewDomainError("UNSUPPORTED_MIME_TYPE", "This file type is not supported")
	}
	if input.Size <= 0 {
		return nil, shared.NewDomainError("INVALID_SIZE", "File size must be positive")
	}
	if input.Size > knowledge.MaxDocumentSizeBytes {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the 10 MB document limit")
	}

	if err := s.ensureBot(ctx, input.BotID); err != nil {
		return nil, err
	}
	if err := s.checkQuotas(ctx, input.TenantID, input.Size); err != nil {
		return nil, err
	}

	// Read fully before touching storage so a broken upload never leaves
	// a half-written object behind
	data, err := io.ReadAll(io.LimitReader(input.Body, knowledge.MaxDocumentSizeBytes+1))
	if err != nil {
		s.logger.Error("Failed to read upload body", zap.Error(err))
		return nil, shared.NewDomainError("UPLOAD_FAILED", "Failed to read uploaded file")
	}
	if int64(len(data)) > knowledge.MaxDocumentSizeBytes {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the 10 MB document limit")
	}

	storageKey := s.generateStorageKey(input.TenantID, input.BotID, input.FileName)
	if err := s.storage.Upload(ctx, storageKey, data, input.MimeType); err != nil {
		s.logger.Error("Failed to store document", zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to store document")
	}

	doc, err := knowledge.NewFileDocument(input.TenantID, input.BotID, input.FileName, storageKey, input.MimeType, int64(len(data)))
	if err != nil {
		// Clean up the orphaned object, the document row was never created
		if delErr := s.storage.DeleteObject(ctx, storageKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned object",
				zap.String("storage_key", storageKey),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create document", zap.Error(err))
		if delErr := s.storage.DeleteObject(ctx, storageKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned object",
				zap.String("storage_key", storageKey),
				zap.Error(delErr))
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create document")
	}

	s.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID.String()),
		zap.String("storage_key", storageKey))

	return s.toDocumentDTO(doc), nil
}

// AddURL registers a web page as a knowledge source. The page is crawled
// during ingestion, not here.
func (s *DocumentService) AddURL(ctx context.Context, input AddURLInput) (*DocumentDTO, error) {
	s.logger.Info("Adding URL knowledge source",
		zap.String("url", input.URL),
		zap.String("bot_id", input.BotID.String()))

	if err := s.ensureBot(ctx, input.BotID); err != nil {
		return nil, err
	}
	if s.quota != nil {
		if err := s.quota.CheckDocumentQuota(ctx, input.TenantID); err != nil {
			return nil, err
		}
	}

	name := input.Name
	if name == "" {
		name = input.URL
	}

	doc, err := knowledge.NewURLDocument(input.TenantID, input.BotID, name, input.URL)
	if err != nil {
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create URL document", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create document")
	}

	return s.toDocumentDTO(doc), nil
}

// AddText stores a raw text snippet and queues it for ingestion
func (s *DocumentService) AddText(ctx context.Context, input AddTextInput) (*DocumentDTO, error) {
	s.logger.Info("Adding text knowledge source",
		zap.String("name", input.Name),
		zap.String("bot_id", input.BotID.String()))

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, shared.NewDomainError("EMPTY_CONTENT", "Text content cannot be empty")
	}
	size := int64(len(content))
	if size > knowledge.MaxDocumentSizeBytes {
		return nil, shared.NewDomainError("FILE_TOO_LARGE", "Text exceeds the 10 MB document limit")
	}

	if err := s.ensureBot(ctx, input.BotID); err != nil {
		return nil, err
	}
	if err := s.checkQuotas(ctx, input.TenantID, size); err != nil {
		return nil, err
	}

	storageKey := s.generateStorageKey(input.TenantID, input.BotID, input.Name+".md")
	if err := s.storage.Upload(ctx, storageKey, []byte(content), "text/markdown"); err != nil {
		s.logger.Error("Failed to store text document", zap.Error(err))
		return nil, shared.NewDomainError("STORAGE_ERROR", "Failed to store document")
	}

	doc, err := knowledge.NewTextDocument(input.TenantID, input.BotID, input.Name, storageKey, size)
	if err != nil {
		if delErr := s.storage.DeleteObject(ctx, storageKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned object",
				zap.String("storage_key", storageKey),
				zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		s.logger.Error("Failed to create text document", zap.Error(err))
		if delErr := s.storage.DeleteObject(ctx, storageKey); delErr != nil {
			s.logger.Warn("Failed to remove orphaned object",
				zap.String("storage_key", storageKey),
				zap.Error(delErr))
		}
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create document")
	}

	return s.toDocumentDTO(doc), nil
}

// GetByID retrieves a document by ID
func (s *DocumentService) GetByID(ctx context.Context, id uuid.UUID) (*DocumentDTO, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDocumentDTO(doc), nil
}

// List returns documents for the current tenant with pagination
func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*DocumentListResult, error) {
	filter := knowledge.NewDocumentFilter()
	if input.BotID != nil {
		filter = filter.WithBot(*input.BotID)
	}
	if input.Status != "" {
		status := knowledge.DocumentStatus(input.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_STATUS", "Invalid document status")
		}
		filter = filter.WithStatus(status)
	}
	if input.SourceType != "" {
		sourceType := knowledge.SourceType(input.SourceType)
		if !sourceType.IsValid() {
			return nil, shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type")
		}
		filter = filter.WithSourceType(sourceType)
	}
	if input.Keyword != "" {
		filter = filter.WithKeyword(input.Keyword)
	}
	if input.Page > 0 && input.PageSize > 0 {
		filter = filter.WithPagination(input.Page, input.PageSize)
	}

	docs, total, err := s.docRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list documents", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list documents")
	}

	dtos := make([]DocumentDTO, len(docs))
	for i, doc := range docs {
		dtos[i] = *s.toDocumentDTO(doc)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &DocumentListResult{
		Documents:  dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages,
	}, nil
}

// Rename updates a document's display name
func (s *DocumentService) Rename(ctx context.Context, id uuid.UUID, name string) (*DocumentDTO, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := doc.Rename(name); err != nil {
		return nil, err
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to rename document", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to rename document")
	}

	return s.toDocumentDTO(doc), nil
}

// Reprocess queues a ready or failed document for re-ingestion
func (s *DocumentService) Reprocess(ctx context.Context, id uuid.UUID) (*DocumentDTO, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := doc.Reprocess(); err != nil {
		return nil, err
	}

	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Error("Failed to queue document for reprocessing", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to reprocess document")
	}

	s.logger.Info("Document queued for reprocessing", zap.String("document_id", id.String()))

	return s.toDocumentDTO(doc), nil
}

// Delete removes a document, its chunks, and its stored object
func (s *DocumentService) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return err
	}

	if err := s.chunkRepo.DeleteByDocument(ctx, id); err != nil {
		s.logger.Error("Failed to delete document chunks", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete document")
	}

	if err := s.docRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete document", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete document")
	}

	// Storage cleanup is best-effort, the object is unreachable once the
	// row is gone
	if doc.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			s.logger.Warn("Failed to delete stored object",
				zap.String("storage_key", doc.StorageKey),
				zap.Error(err))
		}
	}

	s.logger.Info("Document deleted", zap.String("document_id", id.String()))

	return nil
}

// GetDownloadURL returns a presigned URL for the original file
func (s *DocumentService) GetDownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return "", err
	}

	if doc.StorageKey == "" {
		return "", shared.NewDomainError("NO_STORED_FILE", "This document has no stored file")
	}

	url, _, err := s.storage.GenerateDownloadURL(ctx, doc.StorageKey, s.config.DownloadURLExpiry)
	if err != nil {
		s.logger.Error("Failed to generate download URL", zap.Error(err))
		return "", shared.NewDomainError("STORAGE_ERROR", "Failed to generate download URL")
	}

	return url, nil
}

func (s *DocumentService) ensureBot(ctx context.Context, botID uuid.UUID) error {
	if s.bots == nil {
		return nil
	}
	exists, err := s.bots.ExistsForTenant(ctx, botID)
	if err != nil {
		s.logger.Error("Failed to check bot existence", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to validate bot")
	}
	if !exists {
		return shared.NewDomainError("BOT_NOT_FOUND", "Bot not found")
	}
	return nil
}

func (s *DocumentService) checkQuotas(ctx context.Context, tenantID uuid.UUID, sizeBytes int64) error {
	if s.quota == nil {
		return nil
	}
	if err := s.quota.CheckDocumentQuota(ctx, tenantID); err != nil {
		return err
	}
	return s.quota.CheckStorageQuota(ctx, tenantID, sizeBytes)
}

func (s *DocumentService) findDocument(ctx context.Context, id uuid.UUID) (*knowledge.Document, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("DOCUMENT_NOT_FOUND", "Document not found")
		}
		s.logger.Error("Failed to find document", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find document")
	}
	return doc, nil
}

// generateStorageKey generates a unique storage key for a file
func (s *DocumentService) generateStorageKey(tenantID, botID uuid.UUID, fileName string) string {
	ext := filepath.Ext(fileName)
	uniqueID := uuid.New().String()
	// Format: tenants/{tenantID}/bots/{botID}/documents/{uniqueID}{ext}
	return fmt.Sprintf("tenants/%s/bots/%s/documents/%s%s",
		tenantID.String(),
		botID.String(),
		uniqueID,
		ext,
	)
}

func (s *DocumentService) toDocumentDTO(doc *knowledge.Document) *DocumentDTO {
	return &DocumentDTO{
		ID:            doc.ID,
		TenantID:      doc.TenantID,
		BotID:         doc.BotID,
		SourceType:    string(doc.SourceType),
		Name:          doc.Name,
		SourceURL:     doc.SourceURL,
		MimeType:      doc.MimeType,
		SizeBytes:     doc.SizeBytes,
		Status:        string(doc.Status),
		FailureReason: doc.FailureReason,
		ChunkCount:    doc.ChunkCount,
		EmbeddedAt:    doc.EmbeddedAt,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
}
