package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	botapp "github.com/chatforge/backend/internal/application/bot"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockBotRepository is a mock implementation of bot.BotRepository
type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) Create(ctx context.Context, b *bot.Bot) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBotRepository) Update(ctx context.Context, b *bot.Bot) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockBotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBotRepository) FindByID(ctx context.Context, id uuid.UUID) (*bot.Bot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *MockBotRepository) FindBySlug(ctx context.Context, slug string) (*bot.Bot, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *MockBotRepository) FindByWidgetKey(ctx context.Context, key string) (*bot.Bot, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bot.Bot), args.Error(1)
}

func (m *MockBotRepository) FindAll(ctx context.Context, filter bot.BotFilter) ([]*bot.Bot, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*bot.Bot), args.Get(1).(int64), args.Error(2)
}

func (m *MockBotRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockBotRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBotRepository) CountByStatus(ctx context.Context, status bot.BotStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockBotQuotaChecker is a mock implementation of botapp.QuotaChecker
type MockBotQuotaChecker struct {
	mock.Mock
}

func (m *MockBotQuotaChecker) CheckBotQuota(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func setupBotRouter(h *BotHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	botGroup := r.Group("/api/v1/bots")
	{
		botGroup.POST("", h.Create)
		botGroup.GET("", h.List)
		botGroup.GET("/stats", h.GetStats)
		botGroup.GET("/:bot_id", h.GetByID)
		botGroup.PUT("/:bot_id", h.Update)
		botGroup.DELETE("/:bot_id", h.Delete)
		botGroup.POST("/:bot_id/publish", h.Publish)
		botGroup.POST("/:bot_id/archive", h.Archive)
		botGroup.POST("/:bot_id/rotate-widget-key", h.RotateWidgetKey)
	}

	return r
}

func newBotHandlerForTest(repo *MockBotRepository, quota botapp.QuotaChecker) *BotHandler {
	return NewBotHandler(botapp.NewBotService(repo, quota, zap.NewNop()))
}

func createBotForHandlerTest(t *testing.T, tenantID uuid.UUID) *bot.Bot {
	t.Helper()
	b, err := bot.NewBot(tenantID, "Support Bot", "support-bot")
	require.NoError(t, err)
	b.ClearDomainEvents()
	return b
}

func TestBotHandler_Create_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	repo.On("ExistsBySlug", mock.Anything, "support-bot").Return(false, nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	body, _ := json.Marshal(CreateBotRequest{
		Name: "Support Bot",
		Slug: "support-bot",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Support Bot", data["name"])
	assert.Equal(t, "support-bot", data["slug"])
	assert.Equal(t, "draft", data["status"])
	assert.NotEmpty(t, data["widget_key"])
}

func TestBotHandler_Create_InvalidBody(t *testing.T) {
	repo := new(MockBotRepository)
	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	repo.AssertNotCalled(t, "Create")
}

func TestBotHandler_Create_SlugConflict(t *testing.T) {
	repo := new(MockBotRepository)
	repo.On("ExistsBySlug", mock.Anything, "support-bot").Return(true, nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	body, _ := json.Marshal(CreateBotRequest{Name: "Support Bot", Slug: "support-bot"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errInfo := response["error"].(map[string]interface{})
	assert.Equal(t, "ERR_ALREADY_EXISTS", errInfo["code"])
}

func TestBotHandler_Create_QuotaExceeded(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)
	quota := new(MockBotQuotaChecker)

	quota.On("CheckBotQuota", mock.Anything, tenantID).
		Return(shared.NewDomainError("QUOTA_EXCEEDED", "Bot limit reached for the current plan"))

	handler := newBotHandlerForTest(repo, quota)
	router := setupBotRouter(handler)

	body, _ := json.Marshal(CreateBotRequest{Name: "Support Bot", Slug: "support-bot"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	repo.AssertNotCalled(t, "Create")
}

func TestBotHandler_GetByID_InvalidID(t *testing.T) {
	repo := new(MockBotRepository)
	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/not-a-uuid", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBotHandler_GetByID_NotFound(t *testing.T) {
	botID := uuid.New()
	repo := new(MockBotRepository)
	repo.On("FindByID", mock.Anything, botID).Return(nil, shared.ErrNotFound)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/"+botID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errInfo := response["error"].(map[string]interface{})
	assert.Equal(t, "ERR_NOT_FOUND", errInfo["code"])
}

func TestBotHandler_List_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	repo.On("FindAll", mock.Anything, mock.Anything).Return([]*bot.Bot{b}, int64(1), nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots?page=1&page_size=20", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response["success"].(bool))

	data := response["data"].([]interface{})
	assert.Len(t, data, 1)

	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["total"])
	assert.Equal(t, float64(1), meta["page"])
}

func TestBotHandler_Publish_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	settings := b.ModelSettings
	settings.SystemPrompt = "You are a helpful support assistant."
	require.NoError(t, b.UpdateModelSettings(settings))
	b.ClearDomainEvents()

	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("Update", mock.Anything, b).Return(nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+b.ID.String()+"/publish", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "published", data["status"])
	assert.NotEmpty(t, data["published_at"])
}

func TestBotHandler_Archive_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("Update", mock.Anything, b).Return(nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+b.ID.String()+"/archive", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "archived", data["status"])
}

func TestBotHandler_RotateWidgetKey_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	oldKey := b.WidgetKey
	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("Update", mock.Anything, b).Return(nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+b.ID.String()+"/rotate-widget-key", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.NotEmpty(t, data["widget_key"])
	assert.NotEqual(t, oldKey, data["widget_key"])
}

func TestBotHandler_Delete_NotArchived(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bots/"+b.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	repo.AssertNotCalled(t, "Delete")
}

func TestBotHandler_Delete_Success(t *testing.T) {
	tenantID := uuid.New()
	repo := new(MockBotRepository)

	b := createBotForHandlerTest(t, tenantID)
	require.NoError(t, b.Archive())
	b.ClearDomainEvents()

	repo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	repo.On("Delete", mock.Anything, b.ID).Return(nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/bots/"+b.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	repo.AssertExpectations(t)
}

func TestBotHandler_GetStats_Success(t *testing.T) {
	repo := new(MockBotRepository)
	repo.On("Count", mock.Anything).Return(int64(5), nil)
	repo.On("CountByStatus", mock.Anything, bot.BotStatusDraft).Return(int64(2), nil)
	repo.On("CountByStatus", mock.Anything, bot.BotStatusPublished).Return(int64(2), nil)
	repo.On("CountByStatus", mock.Anything, bot.BotStatusArchived).Return(int64(1), nil)

	handler := newBotHandlerForTest(repo, nil)
	router := setupBotRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/stats", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["total"])
	assert.Equal(t, float64(2), data["draft"])
	assert.Equal(t, float64(2), data["published"])
	assert.Equal(t, float64(1), data["archived"])
}
