package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	reviewapp "github.com/chatforge/backend/internal/application/review"
	"github.com/chatforge/backend/internal/domain/review"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockReviewRepository is a mock implementation of review.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, r *review.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReviewRepository) Update(ctx context.Context, r *review.Review) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (*review.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.Review), args.Error(1)
}

func (m *MockReviewRepository) FindAll(ctx context.Context, filter review.ReviewFilter) ([]*review.Review, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*review.Review), args.Get(1).(int64), args.Error(2)
}

func (m *MockReviewRepository) ExistsByConversation(ctx context.Context, conversationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, conversationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewRepository) Stats(ctx context.Context, botID uuid.UUID) (*review.RatingStats, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*review.RatingStats), args.Error(1)
}

func (m *MockReviewRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupReviewRouter(h *ReviewHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	reviewGroup := r.Group("/api/v1/reviews")
	{
		reviewGroup.GET("", h.List)
		reviewGroup.GET("/:id", h.Get)
		reviewGroup.DELETE("/:id", h.Delete)
		reviewGroup.POST("/:id/approve", h.Approve)
		reviewGroup.POST("/:id/reject", h.Reject)
	}

	r.GET("/api/v1/bots/:bot_id/reviews/stats", h.Stats)
	r.GET("/api/public/bots/:bot_id/reviews", h.ListPublic)

	return r
}

func newReviewHandlerForTest(repo *MockReviewRepository) *ReviewHandler {
	return NewReviewHandler(reviewapp.NewReviewService(repo, zap.NewNop()))
}

func createReviewForHandlerTest(t *testing.T, rating int) *review.Review {
	t.Helper()
	r, err := review.NewReview(uuid.New(), uuid.New(), rating, "Answered everything instantly.", review.ReviewSourceWidget)
	require.NoError(t, err)
	r.ClearDomainEvents()
	return r
}

func TestReviewHandler_List_Success(t *testing.T) {
	repo := new(MockReviewRepository)
	r := createReviewForHandlerTest(t, 5)
	repo.On("FindAll", mock.Anything, mock.Anything).Return([]*review.Review{r}, int64(1), nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?status=pending", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "pending", first["status"])
	assert.Equal(t, float64(5), first["rating"])
}

func TestReviewHandler_List_InvalidRatingFilter(t *testing.T) {
	repo := new(MockReviewRepository)
	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews?rating=7", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "FindAll")
}

func TestReviewHandler_Get_NotFound(t *testing.T) {
	reviewID := uuid.New()
	repo := new(MockReviewRepository)
	repo.On("FindByID", mock.Anything, reviewID).Return(nil, shared.ErrNotFound)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/"+reviewID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReviewHandler_Approve_Success(t *testing.T) {
	repo := new(MockReviewRepository)
	r := createReviewForHandlerTest(t, 4)

	repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Update", mock.Anything, r).Return(nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+r.ID.String()+"/approve", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "approved", data["status"])
	assert.NotEmpty(t, data["moderated_at"])
}

func TestReviewHandler_Reject_Success(t *testing.T) {
	repo := new(MockReviewRepository)
	r := createReviewForHandlerTest(t, 1)

	repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Update", mock.Anything, r).Return(nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews/"+r.ID.String()+"/reject", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "rejected", data["status"])
}

func TestReviewHandler_Delete_Success(t *testing.T) {
	repo := new(MockReviewRepository)
	r := createReviewForHandlerTest(t, 3)

	repo.On("FindByID", mock.Anything, r.ID).Return(r, nil)
	repo.On("Delete", mock.Anything, r.ID).Return(nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+r.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestReviewHandler_Stats_Success(t *testing.T) {
	botID := uuid.New()
	repo := new(MockReviewRepository)
	repo.On("Stats", mock.Anything, botID).Return(&review.RatingStats{
		Count:   4,
		Average: 4.25,
		Histogram: map[int]int64{
			1: 0, 2: 0, 3: 1, 4: 1, 5: 2,
		},
	}, nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/"+botID.String()+"/reviews/stats", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["count"])
	assert.Equal(t, 4.25, data["average"])
	histogram := data["histogram"].(map[string]interface{})
	assert.Equal(t, float64(2), histogram["5"])
}

func TestReviewHandler_ListPublic_OnlyApproved(t *testing.T) {
	botID := uuid.New()
	repo := new(MockReviewRepository)

	approved := createReviewForHandlerTest(t, 5)
	require.NoError(t, approved.Approve())
	approved.ClearDomainEvents()

	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter review.ReviewFilter) bool {
		return filter.Status != nil && *filter.Status == review.ReviewStatusApproved &&
			filter.BotID != nil && *filter.BotID == botID
	})).Return([]*review.Review{approved}, int64(1), nil)

	handler := newReviewHandlerForTest(repo)
	router := setupReviewRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/public/bots/"+botID.String()+"/reviews", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, float64(5), first["rating"])
	// The public shape never exposes moderation state or visitor email
	_, hasStatus := first["status"]
	assert.False(t, hasStatus)
	repo.AssertExpectations(t)
}
