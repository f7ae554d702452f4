package models

import (
	"time"

	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DocumentModel is the persistence model for the Document aggregate.
type DocumentModel struct {
	TenantAggregateModel
	BotID         uuid.UUID                `gorm:"type:uuid;not null;index:idx_document_bot,priority:1"`
	SourceType    knowledge.SourceType     `gorm:"type:varchar(20);not null"`
	Name          string                   `gorm:"type:varchar(300);not null"`
	StorageKey    string                   `gorm:"type:varchar(500)"`
	SourceURL     string                   `gorm:"type:varchar(1000)"`
	MimeType      string                   `gorm:"type:varchar(100)"`
	SizeBytes     int64                    `gorm:"not null;default:0"`
	Status        knowledge.DocumentStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	FailureReason string                   `gorm:"type:text"`
	ChunkCount    int                      `gorm:"not null;default:0"`
	EmbeddedAt    *time.Time
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "documents"
}

// ToDomain converts the persistence model to a domain Document entity.
func (m *DocumentModel) ToDomain() *knowledge.Document {
	return &knowledge.Document{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: shared.BaseEntity{
					ID:        m.ID,
					CreatedAt: m.CreatedAt,
					UpdatedAt: m.UpdatedAt,
				},
				Version: m.Version,
			},
			TenantID:  m.TenantID,
			CreatedBy: m.CreatedBy,
		},
		BotID:         m.BotID,
		SourceType:    m.SourceType,
		Name:          m.Name,
		StorageKey:    m.StorageKey,
		SourceURL:     m.SourceURL,
		MimeType:      m.MimeType,
		SizeBytes:     m.SizeBytes,
		Status:        m.Status,
		FailureReason: m.FailureReason,
		ChunkCount:    m.ChunkCount,
		EmbeddedAt:    m.EmbeddedAt,
	}
}

// FromDomain populates the persistence model from a domain Document entity.
func (m *DocumentModel) FromDomain(d *knowledge.Document) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.BotID = d.BotID
	m.SourceType = d.SourceType
	m.Name = d.Name
	m.StorageKey = d.StorageKey
	m.SourceURL = d.SourceURL
	m.MimeType = d.MimeType
	m.SizeBytes = d.SizeBytes
	m.Status = d.Status
	m.FailureReason = d.FailureReason
	m.ChunkCount = d.ChunkCount
	m.EmbeddedAt = d.EmbeddedAt
}

// DocumentModelFromDomain creates a persistence model from a domain Document entity.
func DocumentModelFromDomain(d *knowledge.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// ChunkModel is the persistence model for document chunks.
type ChunkModel struct {
	BaseModel
	TenantID      uuid.UUID `gorm:"type:uuid;not null;index"`
	BotID         uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chunk_document_index,priority:1"`
	ChunkIndex    int       `gorm:"not null;uniqueIndex:idx_chunk_document_index,priority:2;column:chunk_index"`
	Heading       string    `gorm:"type:varchar(500)"`
	Content       string    `gorm:"type:text;not null"`
	TokenEstimate int       `gorm:"not null;default:0"`
	Embedding     Vector    `gorm:"type:float8[]"`
}

// TableName returns the table name for GORM
func (ChunkModel) TableName() string {
	return "chunks"
}

// ToDomain converts the persistence model to a domain Chunk entity.
func (m *ChunkModel) ToDomain() *knowledge.Chunk {
	return &knowledge.Chunk{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:      m.TenantID,
		BotID:         m.BotID,
		DocumentID:    m.DocumentID,
		Index:         m.ChunkIndex,
		Heading:       m.Heading,
		Content:       m.Content,
		TokenEstimate: m.TokenEstimate,
		Embedding:     []float32(m.Embedding),
	}
}

// FromDomain populates the persistence model from a domain Chunk entity.
func (m *ChunkModel) FromDomain(c *knowledge.Chunk) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.TenantID = c.TenantID
	m.BotID = c.BotID
	m.DocumentID = c.DocumentID
	m.ChunkIndex = c.Index
	m.Heading = c.Heading
	m.Content = c.Content
	m.TokenEstimate = c.TokenEstimate
	m.Embedding = Vector(c.Embedding)
}

// ChunkModelFromDomain creates a persistence model from a domain Chunk entity.
func ChunkModelFromDomain(c *knowledge.Chunk) *ChunkModel {
	m := &ChunkModel{}
	m.FromDomain(c)
	return m
}
