package knowledge

import (
	"github.com/chatforge/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeDocument = "Document"

// Event type constants
const (
	EventTypeDocumentCreated     = "DocumentCreated"
	EventTypeDocumentIngested    = "DocumentIngested"
	EventTypeDocumentFailed      = "DocumentFailed"
	EventTypeDocumentReprocessed = "DocumentReprocessed"
	EventTypeDocumentDeleted     = "DocumentDeleted"
)

// DocumentCreatedEvent is published when a knowledge source is added
type DocumentCreatedEvent struct {
	shared.BaseDomainEvent
	BotID      string     `json:"bot_id"`
	Name       string     `json:"name"`
	SourceType SourceType `json:"source_type"`
}

// NewDocumentCreatedEvent creates a new DocumentCreatedEvent
func NewDocumentCreatedEvent(d *Document) *DocumentCreatedEvent {
	return &DocumentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentCreated, AggregateTypeDocument, d.ID, d.TenantID),
		BotID:           d.BotID.String(),
		Name:            d.Name,
		SourceType:      d.SourceType,
	}
}

// DocumentIngestedEvent is published when ingestion completes and the
// document's chunks become retrievable
type DocumentIngestedEvent struct {
	shared.BaseDomainEvent
	BotID      string `json:"bot_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
}

// NewDocumentIngestedEvent creates a new DocumentIngestedEvent
func NewDocumentIngestedEvent(d *Document) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentIngested, AggregateTypeDocument, d.ID, d.TenantID),
		BotID:           d.BotID.String(),
		Name:            d.Name,
		ChunkCount:      d.ChunkCount,
	}
}

// DocumentFailedEvent is published when an ingestion run fails
type DocumentFailedEvent struct {
	shared.BaseDomainEvent
	BotID  string `json:"bot_id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// NewDocumentFailedEvent creates a new DocumentFailedEvent
func NewDocumentFailedEvent(d *Document) *DocumentFailedEvent {
	return &DocumentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentFailed, AggregateTypeDocument, d.ID, d.TenantID),
		BotID:           d.BotID.String(),
		Name:            d.Name,
		Reason:          d.FailureReason,
	}
}

// DocumentReprocessedEvent is published when a document is queued for
// another ingestion run
type DocumentReprocessedEvent struct {
	shared.BaseDomainEvent
	BotID string `json:"bot_id"`
	Name  string `json:"name"`
}

// NewDocumentReprocessedEvent creates a new DocumentReprocessedEvent
func NewDocumentReprocessedEvent(d *Document) *DocumentReprocessedEvent {
	return &DocumentReprocessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentReprocessed, AggregateTypeDocument, d.ID, d.TenantID),
		BotID:           d.BotID.String(),
		Name:            d.Name,
	}
}

// DocumentDeletedEvent is published when a document is removed.
// The storage cleanup handler uses StorageKey to delete the object.
type DocumentDeletedEvent struct {
	shared.BaseDomainEvent
	BotID      string `json:"bot_id"`
	Name       string `json:"name"`
	StorageKey string `json:"storage_key"`
}

// NewDocumentDeletedEvent creates a new DocumentDeletedEvent
func NewDocumentDeletedEvent(d *Document) *DocumentDeletedEvent {
	return &DocumentDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentDeleted, AggregateTypeDocument, d.ID, d.TenantID),
		BotID:           d.BotID.String(),
		Name:            d.Name,
		StorageKey:      d.StorageKey,
	}
}
