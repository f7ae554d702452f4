package knowledge

import (
	"net/url"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SourceType identifies where a document's content comes from
type SourceType string

const (
	SourceTypeFile SourceType = "file" // Uploaded file stored in object storage
	SourceTypeURL  SourceType = "url"  // Web page fetched by the crawler
	SourceTypeText SourceType = "text" // Raw text pasted in the dashboard
)

// IsValid returns true if the source type is known
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeFile, SourceTypeURL, SourceTypeText:
		return true
	default:
		return false
	}
}

// DocumentStatus represents the ingestion state of a document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"    // Waiting for the ingestion worker
	DocumentStatusProcessing DocumentStatus = "processing" // Being extracted, chunked and embedded
	DocumentStatusReady      DocumentStatus = "ready"      // Chunks stored, available for retrieval
	DocumentStatusFailed     DocumentStatus = "failed"     // Ingestion failed, see FailureReason
)

// IsValid returns true if the status is known
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusReady, DocumentStatusFailed:
		return true
	default:
		return false
	}
}

// MaxDocumentSizeBytes is the upload size limit for a single document
const MaxDocumentSizeBytes = 10 << 20 // 10 MB

const maxFailureReasonLength = 500

// ErrUnsupportedFormat is returned when text extraction is requested for a
// format the extractor cannot handle. Such files are stored but never reach
// the ready state.
var ErrUnsupportedFormat = shared.NewDomainError("UNSUPPORTED_FORMAT", "Text extraction is not supported for this file format")

// Document represents a knowledge source attached to a bot
// It is the aggregate root for knowledge base operations
type Document struct {
	shared.TenantAggregateRoot
	BotID         uuid.UUID
	SourceType    SourceType
	Name          string
	StorageKey    string // Object storage key, empty for URL sources
	SourceURL     string
	MimeType      string
	SizeBytes     int64
	Status        DocumentStatus
	FailureReason string
	ChunkCount    int
	EmbeddedAt    *time.Time
}

// NewFileDocument creates a document backed by an uploaded file.
// The file must already be stored under storageKey.
func NewFileDocument(tenantID, botID uuid.UUID, name, storageKey, mimeType string, sizeBytes int64) (*Document, error) {
	if err := validateDocumentName(name); err != nil {
		return nil, err
	}
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT", "Bot ID is required")
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}
	if !IsAllowedMimeType(mimeType) {
		return nil, shared.NewDomainError("UNSUPPORTED_FORMAT", "File type is not supported")
	}
	if err := validateDocumentSize(sizeBytes); err != nil {
		return nil, err
	}

	d := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		SourceType:          SourceTypeFile,
		Name:                name,
		StorageKey:          storageKey,
		MimeType:            strings.ToLower(mimeType),
		SizeBytes:           sizeBytes,
		Status:              DocumentStatusPending,
	}

	d.AddDomainEvent(NewDocumentCreatedEvent(d))

	return d, nil
}

// NewURLDocument creates a document backed by a web page. The crawler
// fetches and renders the page during ingestion.
func NewURLDocument(tenantID, botID uuid.UUID, name, sourceURL string) (*Document, error) {
	if err := validateDocumentName(name); err != nil {
		return nil, err
	}
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT", "Bot ID is required")
	}
	if err := validateSourceURL(sourceURL); err != nil {
		return nil, err
	}

	d := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		SourceType:          SourceTypeURL,
		Name:                name,
		SourceURL:           sourceURL,
		MimeType:            "text/html",
		Status:              DocumentStatusPending,
	}

	d.AddDomainEvent(NewDocumentCreatedEvent(d))

	return d, nil
}

// NewTextDocument creates a document from raw text. The text is stored
// in object storage under storageKey so ingestion reads all sources the
// same way.
func NewTextDocument(tenantID, botID uuid.UUID, name, storageKey string, sizeBytes int64) (*Document, error) {
	if err := validateDocumentName(name); err != nil {
		return nil, err
	}
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT", "Bot ID is required")
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Storage key cannot be empty")
	}
	if err := validateDocumentSize(sizeBytes); err != nil {
		return nil, err
	}

	d := &Document{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		SourceType:          SourceTypeText,
		Name:                name,
		StorageKey:          storageKey,
		MimeType:            "text/markdown",
		SizeBytes:           sizeBytes,
		Status:              DocumentStatusPending,
	}

	d.AddDomainEvent(NewDocumentCreatedEvent(d))

	return d, nil
}

// Rename updates the display name of the document
func (d *Document) Rename(name string) error {
	if err := validateDocumentName(name); err != nil {
		return err
	}

	d.Name = name
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// StartProcessing claims the document for ingestion
func (d *Document) StartProcessing() error {
	if d.Status != DocumentStatusPending {
		return shared.NewDomainError("INVALID_STATUS", "Only pending documents can start processing")
	}

	d.Status = DocumentStatusProcessing
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	return nil
}

// MarkReady completes ingestion with the number of chunks stored
func (d *Document) MarkReady(chunkCount int) error {
	if d.Status != DocumentStatusProcessing {
		return shared.NewDomainError("INVALID_STATUS", "Only processing documents can be marked ready")
	}
	if chunkCount <= 0 {
		return shared.NewDomainError("INVALID_CHUNK_COUNT", "Chunk count must be positive")
	}

	now := time.Now()
	d.Status = DocumentStatusReady
	d.ChunkCount = chunkCount
	d.FailureReason = ""
	d.EmbeddedAt = &now
	d.UpdatedAt = now
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentIngestedEvent(d))

	return nil
}

// MarkFailed records an ingestion failure with a reason
func (d *Document) MarkFailed(reason string) error {
	if d.Status != DocumentStatusProcessing {
		return shared.NewDomainError("INVALID_STATUS", "Only processing documents can be marked failed")
	}

	if len(reason) > maxFailureReasonLength {
		reason = reason[:maxFailureReasonLength]
	}

	d.Status = DocumentStatusFailed
	d.FailureReason = reason
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentFailedEvent(d))

	return nil
}

// Reprocess queues the document for another ingestion run. Existing
// chunks are replaced atomically when the new run completes.
func (d *Document) Reprocess() error {
	if d.Status == DocumentStatusProcessing {
		return shared.NewDomainError("ALREADY_PROCESSING", "Document is already being processed")
	}
	if d.Status == DocumentStatusPending {
		return shared.NewDomainError("ALREADY_PENDING", "Document is already queued")
	}

	d.Status = DocumentStatusPending
	d.FailureReason = ""
	d.UpdatedAt = time.Now()
	d.IncrementVersion()

	d.AddDomainEvent(NewDocumentReprocessedEvent(d))

	return nil
}

// IsReady returns true if the document's chunks are available for retrieval
func (d *Document) IsReady() bool {
	return d.Status == DocumentStatusReady
}

// IsFailed returns true if the last ingestion run failed
func (d *Document) IsFailed() bool {
	return d.Status == DocumentStatusFailed
}

// IsPending returns true if the document is waiting for ingestion
func (d *Document) IsPending() bool {
	return d.Status == DocumentStatusPending
}

// HasStoredObject returns true if the document owns an object in storage
func (d *Document) HasStoredObject() bool {
	return d.StorageKey != ""
}

// IsAllowedMimeType reports whether uploads of this type are accepted
func IsAllowedMimeType(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "text/markdown", "text/plain", "text/html", "application/pdf", "text/csv":
		return true
	default:
		return false
	}
}

// IsExtractableMimeType reports whether text can be extracted from this
// type. Allowed but non-extractable types fail ingestion with
// ErrUnsupportedFormat.
func IsExtractableMimeType(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "text/markdown", "text/plain", "text/html":
		return true
	default:
		return false
	}
}

// Validation functions

func validateDocumentName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_NAME", "Document name cannot be empty")
	}
	if len(name) > 255 {
		return shared.NewDomainError("INVALID_NAME", "Document name cannot exceed 255 characters")
	}
	return nil
}

func validateDocumentSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return shared.NewDomainError("INVALID_SIZE", "Document size must be positive")
	}
	if sizeBytes > MaxDocumentSizeBytes {
		return shared.NewDomainError("DOCUMENT_TOO_LARGE", "Document cannot exceed 10 MB")
	}
	return nil
}

func validateSourceURL(sourceURL string) error {
	if strings.TrimSpace(sourceURL) == "" {
		return shared.NewDomainError("INVALID_URL", "Source URL cannot be empty")
	}
	if len(sourceURL) > 2000 {
		return shared.NewDomainError("INVALID_URL", "Source URL cannot exceed 2000 characters")
	}
	u, err := url.Parse(sourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return shared.NewDomainError("INVALID_URL", "Source URL must be a valid http or https URL")
	}
	return nil
}
