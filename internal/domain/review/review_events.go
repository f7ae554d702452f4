package review

import (
	"github.com/chatforge/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeReview = "Review"

// Event type constants
const (
	EventTypeReviewSubmitted = "ReviewSubmitted"
	EventTypeReviewApproved  = "ReviewApproved"
	EventTypeReviewRejected  = "ReviewRejected"
	EventTypeReviewDeleted   = "ReviewDeleted"
)

// ReviewSubmittedEvent is published when a visitor submits a review
type ReviewSubmittedEvent struct {
	shared.BaseDomainEvent
	BotID  string       `json:"bot_id"`
	Rating int          `json:"rating"`
	Source ReviewSource `json:"source"`
}

// NewReviewSubmittedEvent creates a new ReviewSubmittedEvent
func NewReviewSubmittedEvent(r *Review) *ReviewSubmittedEvent {
	return &ReviewSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReviewSubmitted, AggregateTypeReview, r.ID, r.TenantID),
		BotID:           r.BotID.String(),
		Rating:          r.Rating,
		Source:          r.Source,
	}
}

// ReviewApprovedEvent is published when a review passes moderation
type ReviewApprovedEvent struct {
	shared.BaseDomainEvent
	BotID  string `json:"bot_id"`
	Rating int    `json:"rating"`
}

// NewReviewApprovedEvent creates a new ReviewApprovedEvent
func NewReviewApprovedEvent(r *Review) *ReviewApprovedEvent {
	return &ReviewApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReviewApproved, AggregateTypeReview, r.ID, r.TenantID),
		BotID:           r.BotID.String(),
		Rating:          r.Rating,
	}
}

// ReviewRejectedEvent is published when a review fails moderation
type ReviewRejectedEvent struct {
	shared.BaseDomainEvent
	BotID string `json:"bot_id"`
}

// NewReviewRejectedEvent creates a new ReviewRejectedEvent
func NewReviewRejectedEvent(r *Review) *ReviewRejectedEvent {
	return &ReviewRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReviewRejected, AggregateTypeReview, r.ID, r.TenantID),
		BotID:           r.BotID.String(),
	}
}

// ReviewDeletedEvent is published when a review is removed
type ReviewDeletedEvent struct {
	shared.BaseDomainEvent
	BotID string `json:"bot_id"`
}

// NewReviewDeletedEvent creates a new ReviewDeletedEvent
func NewReviewDeletedEvent(r *Review) *ReviewDeletedEvent {
	return &ReviewDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReviewDeleted, AggregateTypeReview, r.ID, r.TenantID),
		BotID:           r.BotID.String(),
	}
}
