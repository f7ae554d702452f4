package models

import (
	"time"

	"github.com/chatforge/backend/internal/domain/review"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReviewModel is the persistence model for the Review aggregate.
type ReviewModel struct {
	TenantAggregateModel
	BotID          uuid.UUID           `gorm:"type:uuid;not null;index:idx_review_bot,priority:1"`
	ConversationID *uuid.UUID          `gorm:"type:uuid;uniqueIndex:idx_review_conversation"`
	Rating         int                 `gorm:"not null"`
	Comment        string              `gorm:"type:varchar(2000)"`
	VisitorName    string              `gorm:"type:varchar(200)"`
	VisitorEmail   string              `gorm:"type:varchar(200)"`
	Status         review.ReviewStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	Source         review.ReviewSource `gorm:"type:varchar(20);not null"`
	ModeratedAt    *time.Time
}

// TableName returns the table name for GORM
func (ReviewModel) TableName() string {
	return "reviews"
}

// ToDomain converts the persistence model to a domain Review entity.
func (m *ReviewModel) ToDomain() *review.Review {
	return &review.Review{
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
		BotID:          m.BotID,
		ConversationID: m.ConversationID,
		Rating:         m.Rating,
		Comment:        m.Comment,
		VisitorName:    m.VisitorName,
		VisitorEmail:   m.VisitorEmail,
		Status:         m.Status,
		Source:         m.Source,
		ModeratedAt:    m.ModeratedAt,
	}
}

// FromDomain populates the persistence model from a domain Review entity.
func (m *ReviewModel) FromDomain(r *review.Review) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.BotID = r.BotID
	m.ConversationID = r.ConversationID
	m.Rating = r.Rating
	m.Comment = r.Comment
	m.VisitorName = r.VisitorName
	m.VisitorEmail = r.VisitorEmail
	m.Status = r.Status
	m.Source = r.Source
	m.ModeratedAt = r.ModeratedAt
}

// ReviewModelFromDomain creates a persistence model from a domain Review entity.
func ReviewModelFromDomain(r *review.Review) *ReviewModel {
	m := &ReviewModel{}
	m.FromDomain(r)
	return m
}
