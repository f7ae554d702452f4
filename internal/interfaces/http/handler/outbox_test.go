package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	eventapp "github.com/chatforge/backend/internal/application/event"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockOutboxRepository is a mock implementation of shared.OutboxRepository
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Error(1)
}

func (m *MockOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

func setupOutboxRouter(h *OutboxHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	outboxGroup := r.Group("/api/v1/system/outbox")
	{
		outboxGroup.GET("/stats", h.GetStats)
		outboxGroup.GET("/dead", h.ListDeadLetters)
		outboxGroup.POST("/dead/retry", h.RetryAllDeadLetters)
		outboxGroup.POST("/dead/:entry_id/retry", h.RetryDeadLetter)
	}

	return r
}

func newOutboxHandlerForTest(repo *MockOutboxRepository) *OutboxHandler {
	return NewOutboxHandler(eventapp.NewOutboxService(repo, zap.NewNop()))
}

func deadOutboxEntryForTest() *shared.OutboxEntry {
	now := time.Now()
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		EventID:       uuid.New(),
		EventType:     "bot.archived",
		AggregateID:   uuid.New(),
		AggregateType: "Bot",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "connection refused",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestOutboxHandler_GetStats_Success(t *testing.T) {
	repo := new(MockOutboxRepository)
	repo.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 3,
		shared.OutboxStatusSent:    10,
		shared.OutboxStatusDead:    2,
	}, nil)

	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/outbox/stats", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["pending"])
	assert.Equal(t, float64(10), data["sent"])
	assert.Equal(t, float64(2), data["dead"])
	assert.Equal(t, float64(15), data["total"])
}

func TestOutboxHandler_ListDeadLetters_Success(t *testing.T) {
	repo := new(MockOutboxRepository)
	entry := deadOutboxEntryForTest()
	repo.On("FindDead", mock.Anything, 1, 20).Return([]*shared.OutboxEntry{entry}, int64(1), nil)

	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/outbox/dead", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "bot.archived", first["event_type"])
	assert.Equal(t, "DEAD", first["status"])
	assert.Equal(t, "connection refused", first["last_error"])

	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["total"])
}

func TestOutboxHandler_ListDeadLetters_InvalidPagination(t *testing.T) {
	repo := new(MockOutboxRepository)
	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/outbox/dead?page=0", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "FindDead")
}

func TestOutboxHandler_RetryDeadLetter_Success(t *testing.T) {
	repo := new(MockOutboxRepository)
	entry := deadOutboxEntryForTest()

	repo.On("FindByID", mock.Anything, entry.ID).Return(entry, nil)
	repo.On("Update", mock.Anything, entry).Return(nil)

	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/outbox/dead/"+entry.ID.String()+"/retry", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, float64(0), data["retry_count"])
	repo.AssertExpectations(t)
}

func TestOutboxHandler_RetryDeadLetter_InvalidID(t *testing.T) {
	repo := new(MockOutboxRepository)
	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/outbox/dead/not-a-uuid/retry", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "FindByID")
}

func TestOutboxHandler_RetryDeadLetter_NotDead(t *testing.T) {
	repo := new(MockOutboxRepository)
	entry := deadOutboxEntryForTest()
	entry.Status = shared.OutboxStatusSent

	repo.On("FindByID", mock.Anything, entry.ID).Return(entry, nil)

	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/outbox/dead/"+entry.ID.String()+"/retry", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Update")
}

func TestOutboxHandler_RetryAllDeadLetters_Success(t *testing.T) {
	repo := new(MockOutboxRepository)
	first := deadOutboxEntryForTest()
	second := deadOutboxEntryForTest()

	repo.On("FindDead", mock.Anything, 1, 100).Return([]*shared.OutboxEntry{first, second}, int64(2), nil)
	repo.On("Update", mock.Anything, mock.Anything).Return(nil)

	handler := newOutboxHandlerForTest(repo)
	router := setupOutboxRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/system/outbox/dead/retry", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["retried"])
}
