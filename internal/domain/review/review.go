package review

import (
	"regexp"
	"strings"
	"time"

	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReviewStatus represents the moderation state of a review
type ReviewStatus string

const (
	ReviewStatusPending  ReviewStatus = "pending"
	ReviewStatusApproved ReviewStatus = "approved"
	ReviewStatusRejected ReviewStatus = "rejected"
)

// ReviewSource identifies where a review was submitted from
type ReviewSource string

const (
	ReviewSourceWidget ReviewSource = "widget"
	ReviewSourceAPI    ReviewSource = "api"
)

const maxCommentLength = 2000

// Review is a visitor rating collected through the widget or the API.
// Reviews start pending and only approved ones are served publicly.
type Review struct {
	shared.TenantAggregateRoot
	BotID          uuid.UUID
	ConversationID *uuid.UUID
	Rating         int
	Comment        string
	VisitorName    string
	VisitorEmail   string
	Status         ReviewStatus
	Source         ReviewSource
	ModeratedAt    *time.Time
}

// NewReview creates a pending review for a bot
func NewReview(tenantID, botID uuid.UUID, rating int, comment string, source ReviewSource) (*Review, error) {
	if botID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOT", "Bot ID is required")
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	if err := validateComment(comment); err != nil {
		return nil, err
	}
	if err := validateSource(source); err != nil {
		return nil, err
	}

	r := &Review{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		BotID:               botID,
		Rating:              rating,
		Comment:             strings.TrimSpace(comment),
		Status:              ReviewStatusPending,
		Source:              source,
	}

	r.AddDomainEvent(NewReviewSubmittedEvent(r))

	return r, nil
}

// SetVisitor attaches the visitor's name and email
func (r *Review) SetVisitor(name, email string) error {
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Visitor name cannot exceed 100 characters")
	}
	if email != "" && !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}

	r.VisitorName = strings.TrimSpace(name)
	r.VisitorEmail = strings.ToLower(strings.TrimSpace(email))
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// LinkConversation ties the review to the conversation it came from.
// One review per conversation, the repository enforces uniqueness.
func (r *Review) LinkConversation(conversationID uuid.UUID) error {
	if conversationID == uuid.Nil {
		return shared.NewDomainError("INVALID_CONVERSATION", "Conversation ID is required")
	}

	r.ConversationID = &conversationID
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// Approve makes the review publicly visible
func (r *Review) Approve() error {
	if r.Status == ReviewStatusApproved {
		return shared.NewDomainError("ALREADY_APPROVED", "Review is already approved")
	}

	now := time.Now()
	r.Status = ReviewStatusApproved
	r.ModeratedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReviewApprovedEvent(r))

	return nil
}

// Reject hides the review from public listings
func (r *Review) Reject() error {
	if r.Status == ReviewStatusRejected {
		return shared.NewDomainError("ALREADY_REJECTED", "Review is already rejected")
	}

	now := time.Now()
	r.Status = ReviewStatusRejected
	r.ModeratedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReviewRejectedEvent(r))

	return nil
}

// IsApproved returns true if the review is publicly visible
func (r *Review) IsApproved() bool {
	return r.Status == ReviewStatusApproved
}

// IsPending returns true if the review awaits moderation
func (r *Review) IsPending() bool {
	return r.Status == ReviewStatusPending
}

// Validation functions

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return shared.NewDomainError("INVALID_RATING", "Rating must be between 1 and 5")
	}
	return nil
}

func validateComment(comment string) error {
	if len(comment) > maxCommentLength {
		return shared.NewDomainError("INVALID_COMMENT", "Comment cannot exceed 2000 characters")
	}
	return nil
}

func validateSource(source ReviewSource) error {
	switch source {
	case ReviewSourceWidget, ReviewSourceAPI:
		return nil
	default:
		return shared.NewDomainError("INVALID_SOURCE", "Invalid review source")
	}
}
