package review

import (
	"context"
	"errors"
	"time"

	"github.com/chatforge/backend/internal/domain/review"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewService handles review collection and moderation
type ReviewService struct {
	reviewRepo review.ReviewRepository
	logger     *zap.Logger
}

// NewReviewService creates a new review service
func NewReviewService(reviewRepo review.ReviewRepository, logger *zap.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		logger:     logger,
	}
}

// SubmitReviewInput contains input for submitting a review
type SubmitReviewInput struct {
	TenantID       uuid.UUID
	BotID          uuid.UUID
	ConversationID *uuid.UUID
	Rating         int
	Comment        string
	VisitorName    string
	VisitorEmail   string
	Source         string
}

// ListReviewsInput contains input for listing reviews
type ListReviewsInput struct {
	BotID     *uuid.UUID
	Status    string
	Rating    *int
	Source    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// ReviewDTO represents review data transfer object
type ReviewDTO struct {
	ID             uuid.UUID  `json:"id"`
	BotID          uuid.UUID  `json:"bot_id"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"`
	Rating         int        `json:"rating"`
	Comment        string     `json:"comment,omitempty"`
	VisitorName    string     `json:"visitor_name,omitempty"`
	Status         string     `json:"status"`
	Source         string     `json:"source"`
	ModeratedAt    *time.Time `json:"moderated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PublicReviewDTO is the published shape of an approved review.
// It omits moderation state and the visitor's email.
type PublicReviewDTO struct {
	ID          uuid.UUID `json:"id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment,omitempty"`
	VisitorName string    `json:"visitor_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReviewListResult represents paginated review list result
type ReviewListResult struct {
	Reviews    []ReviewDTO `json:"reviews"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// PublicReviewListResult represents the public approved review list
type PublicReviewListResult struct {
	Reviews    []PublicReviewDTO `json:"reviews"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// RatingStatsDTO summarizes the approved reviews of a bot
type RatingStatsDTO struct {
	Count     int64         `json:"count"`
	Average   float64       `json:"average"`
	Histogram map[int]int64 `json:"histogram"`
}

// Submit stores a new pending review. A conversation can be reviewed
// only once.
func (s *ReviewService) Submit(ctx context.Context, input SubmitReviewInput) (*ReviewDTO, error) {
	if input.ConversationID != nil {
		exists, err := s.reviewRepo.ExistsByConversation(ctx, *input.ConversationID)
		if err != nil {
			s.logger.Error("Failed to check existing review",
				zap.String("conversation_id", input.ConversationID.String()),
				zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to submit review")
		}
		if exists {
			return nil, shared.ErrAlreadyExists
		}
	}

	source := review.ReviewSource(input.Source)
	if input.Source == "" {
		source = review.ReviewSourceAPI
	}

	r, err := review.NewReview(input.TenantID, input.BotID, input.Rating, input.Comment, source)
	if err != nil {
		return nil, err
	}
	if input.VisitorName != "" || input.VisitorEmail != "" {
		if err := r.SetVisitor(input.VisitorName, input.VisitorEmail); err != nil {
			return nil, err
		}
	}
	if input.ConversationID != nil {
		if err := r.LinkConversation(*input.ConversationID); err != nil {
			return nil, err
		}
	}

	if err := s.reviewRepo.Create(ctx, r); err != nil {
		s.logger.Error("Failed to create review",
			zap.String("bot_id", input.BotID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to submit review")
	}

	s.logger.Info("Review submitted",
		zap.String("review_id", r.ID.String()),
		zap.String("bot_id", input.BotID.String()),
		zap.Int("rating", input.Rating))

	return s.toDTO(r), nil
}

// Approve makes a review publicly visible
func (s *ReviewService) Approve(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	return s.moderate(ctx, id, func(r *review.Review) error { return r.Approve() })
}

// Reject hides a review from public listings
func (s *ReviewService) Reject(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	return s.moderate(ctx, id, func(r *review.Review) error { return r.Reject() })
}

// Delete removes a review
func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.findReview(ctx, id)
	if err != nil {
		return err
	}

	if err := s.reviewRepo.Delete(ctx, r.ID); err != nil {
		s.logger.Error("Failed to delete review",
			zap.String("review_id", r.ID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete review")
	}
	return nil
}

// Get returns a review by ID
func (s *ReviewService) Get(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	r, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toDTO(r), nil
}

// List returns reviews matching the filter for moderation
func (s *ReviewService) List(ctx context.Context, input ListReviewsInput) (*ReviewListResult, error) {
	filter := s.buildFilter(input)

	reviews, total, err := s.reviewRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list reviews", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list reviews")
	}

	dtos := make([]ReviewDTO, len(reviews))
	for i, r := range reviews {
		dtos[i] = *s.toDTO(r)
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &ReviewListResult{
		Reviews:    dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages,
	}, nil
}

// ListPublic returns the approved reviews of a bot for embedding
func (s *ReviewService) ListPublic(ctx context.Context, botID uuid.UUID, page, pageSize int) (*PublicReviewListResult, error) {
	filter := review.NewReviewFilter().
		WithBot(botID).
		WithStatus(review.ReviewStatusApproved)
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	reviews, total, err := s.reviewRepo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list public reviews",
			zap.String("bot_id", botID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list reviews")
	}

	dtos := make([]PublicReviewDTO, len(reviews))
	for i, r := range reviews {
		dtos[i] = PublicReviewDTO{
			ID:          r.ID,
			Rating:      r.Rating,
			Comment:     r.Comment,
			VisitorName: r.VisitorName,
			CreatedAt:   r.CreatedAt,
		}
	}

	totalPages := int(total) / filter.Limit()
	if int(total)%filter.Limit() > 0 {
		totalPages++
	}

	return &PublicReviewListResult{
		Reviews:    dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.Limit(),
		TotalPages: totalPages,
	}, nil
}

// Stats aggregates the approved reviews of a bot
func (s *ReviewService) Stats(ctx context.Context, botID uuid.UUID) (*RatingStatsDTO, error) {
	stats, err := s.reviewRepo.Stats(ctx, botID)
	if err != nil {
		s.logger.Error("Failed to aggregate review stats",
			zap.String("bot_id", botID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to compute review stats")
	}

	return &RatingStatsDTO{
		Count:     stats.Count,
		Average:   stats.Average,
		Histogram: stats.Histogram,
	}, nil
}

// moderate applies a moderation decision and persists it
func (s *ReviewService) moderate(ctx context.Context, id uuid.UUID, apply func(*review.Review) error) (*ReviewDTO, error) {
	r, err := s.findReview(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(r); err != nil {
		return nil, err
	}

	if err := s.reviewRepo.Update(ctx, r); err != nil {
		s.logger.Error("Failed to update review",
			zap.String("review_id", r.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update review")
	}

	return s.toDTO(r), nil
}

// findReview finds a review or returns a typed error
func (s *ReviewService) findReview(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	r, err := s.reviewRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("REVIEW_NOT_FOUND", "Review not found")
		}
		s.logger.Error("Failed to find review",
			zap.String("review_id", id.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find review")
	}
	return r, nil
}

func (s *ReviewService) buildFilter(input ListReviewsInput) review.ReviewFilter {
	filter := review.NewReviewFilter()
	filter.BotID = input.BotID
	filter.Rating = input.Rating
	if input.Status != "" {
		st := review.ReviewStatus(input.Status)
		filter.Status = &st
	}
	if input.Source != "" {
		src := review.ReviewSource(input.Source)
		filter.Source = &src
	}
	if input.Page > 0 {
		filter.Page = input.Page
	}
	if input.PageSize > 0 {
		filter.PageSize = input.PageSize
	}
	if input.SortBy != "" {
		filter.SortBy = input.SortBy
	}
	if input.SortOrder != "" {
		filter.SortOrder = input.SortOrder
	}
	return filter
}

// toDTO converts a domain review to DTO
func (s *ReviewService) toDTO(r *review.Review) *ReviewDTO {
	return &ReviewDTO{
		ID:             r.ID,
		BotID:          r.BotID,
		ConversationID: r.ConversationID,
		Rating:         r.Rating,
		Comment:        r.Comment,
		VisitorName:    r.VisitorName,
		Status:         string(r.Status),
		Source:         string(r.Source),
		ModeratedAt:    r.ModeratedAt,
		CreatedAt:      r.CreatedAt,
	}
}
