package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	channelapp "github.com/chatforge/backend/internal/application/channel"
	"github.com/chatforge/backend/internal/domain/channel"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockChannelAccountRepository is a mock implementation of channel.ChannelAccountRepository
type MockChannelAccountRepository struct {
	mock.Mock
}

func (m *MockChannelAccountRepository) Create(ctx context.Context, a *channel.ChannelAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockChannelAccountRepository) Update(ctx context.Context, a *channel.ChannelAccount) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockChannelAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChannelAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*channel.ChannelAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.ChannelAccount), args.Error(1)
}

func (m *MockChannelAccountRepository) FindForWebhook(ctx context.Context, id uuid.UUID) (*channel.ChannelAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*channel.ChannelAccount), args.Error(1)
}

func (m *MockChannelAccountRepository) FindAll(ctx context.Context, filter channel.ChannelAccountFilter) ([]*channel.ChannelAccount, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*channel.ChannelAccount), args.Get(1).(int64), args.Error(2)
}

func (m *MockChannelAccountRepository) FindByBot(ctx context.Context, botID uuid.UUID) ([]*channel.ChannelAccount, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*channel.ChannelAccount), args.Error(1)
}

func (m *MockChannelAccountRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChannelAccountRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

// MockChannelQuotaChecker is a mock implementation of channelapp.QuotaChecker
type MockChannelQuotaChecker struct {
	mock.Mock
}

func (m *MockChannelQuotaChecker) CheckChannelQuota(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

type channelTestDeps struct {
	repo  *MockChannelAccountRepository
	quota *MockChannelQuotaChecker
	bots  *MockBotResolver
}

func newChannelHandlerForTest() (*ChannelHandler, *channelTestDeps) {
	deps := &channelTestDeps{
		repo:  new(MockChannelAccountRepository),
		quota: new(MockChannelQuotaChecker),
		bots:  new(MockBotResolver),
	}
	service := channelapp.NewAccountService(deps.repo, nil, deps.quota, deps.bots, zap.NewNop())
	return NewChannelHandler(service), deps
}

func setupChannelRouter(h *ChannelHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	channels := r.Group("/api/v1/channels")
	{
		channels.POST("", h.Create)
		channels.GET("", h.List)
		channels.GET("/:id", h.Get)
		channels.DELETE("/:id", h.Delete)
		channels.POST("/:id/rename", h.Rename)
		channels.PUT("/:id/credentials", h.UpdateCredentials)
		channels.POST("/:id/activate", h.Activate)
		channels.POST("/:id/deactivate", h.Deactivate)
	}

	return r
}

func createChannelAccountForHandlerTest(t *testing.T) *channel.ChannelAccount {
	t.Helper()
	a, err := channel.NewChannelAccount(uuid.New(), uuid.New(), channel.ChannelTypeTelegram,
		"Support Telegram", "123456:AAbbCCdd", "whsec_abc123")
	require.NoError(t, err)
	a.ClearDomainEvents()
	return a
}

func TestChannelHandler_Create_Success(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newChannelHandlerForTest()
	deps.quota.On("CheckChannelQuota", mock.Anything, tenantID).Return(nil)
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(true, nil)
	deps.repo.On("Create", mock.Anything, mock.MatchedBy(func(a *channel.ChannelAccount) bool {
		return a.TenantID == tenantID && a.BotID == botID &&
			a.ChannelType == channel.ChannelTypeTelegram &&
			a.Status == channel.AccountStatusActive
	})).Return(nil)

	router := setupChannelRouter(handler)

	payload := `{
		"bot_id": "` + botID.String() + `",
		"channel_type": "telegram",
		"name": "Support Telegram",
		"credentials": "123456:AAbbCCdd",
		"webhook_secret": "whsec_abc123"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "telegram", data["channel_type"])
	assert.Equal(t, "active", data["status"])
	assert.Contains(t, data["webhook_path"], "/api/v1/webhooks/telegram/")
	// Credentials never appear in API responses
	_, hasCredentials := data["credentials"]
	assert.False(t, hasCredentials)
	deps.repo.AssertExpectations(t)
}

func TestChannelHandler_Create_UnknownChannelType(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	router := setupChannelRouter(handler)

	payload := `{
		"bot_id": "` + uuid.New().String() + `",
		"channel_type": "email",
		"name": "Email",
		"credentials": "secret"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.repo.AssertNotCalled(t, "Create")
}

func TestChannelHandler_Create_QuotaExceeded(t *testing.T) {
	tenantID := uuid.New()

	handler, deps := newChannelHandlerForTest()
	deps.quota.On("CheckChannelQuota", mock.Anything, tenantID).
		Return(shared.NewDomainError("QUOTA_EXCEEDED", "Channel limit reached for the current plan"))

	router := setupChannelRouter(handler)

	payload := `{
		"bot_id": "` + uuid.New().String() + `",
		"channel_type": "slack",
		"name": "Support Slack",
		"credentials": "xoxb-token"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	deps.repo.AssertNotCalled(t, "Create")
}

func TestChannelHandler_Get_NotFound(t *testing.T) {
	accountID := uuid.New()

	handler, deps := newChannelHandlerForTest()
	deps.repo.On("FindByID", mock.Anything, accountID).Return(nil, shared.ErrNotFound)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels/"+accountID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChannelHandler_List_Success(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)
	deps.repo.On("FindAll", mock.Anything, mock.Anything).Return([]*channel.ChannelAccount{a}, int64(1), nil)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/channels?channel_type=telegram", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "Support Telegram", first["name"])
	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["total"])
}

func TestChannelHandler_Rename_Success(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	deps.repo.On("Update", mock.Anything, a).Return(nil)

	router := setupChannelRouter(handler)

	payload := `{"name": "Sales Telegram"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+a.ID.String()+"/rename", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Sales Telegram", data["name"])
}

func TestChannelHandler_UpdateCredentials_RecoversFromError(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)
	a.RecordError("telegram: 401 unauthorized")
	a.ClearDomainEvents()

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	deps.repo.On("Update", mock.Anything, a).Return(nil)

	router := setupChannelRouter(handler)

	payload := `{"credentials": "123456:AAnewtoken", "webhook_secret": "whsec_new456"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/channels/"+a.ID.String()+"/credentials", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "active", data["status"])
	assert.Empty(t, data["last_error"])
}

func TestChannelHandler_Deactivate_Success(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	deps.repo.On("Update", mock.Anything, a).Return(nil)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+a.ID.String()+"/deactivate", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "inactive", data["status"])
}

func TestChannelHandler_Deactivate_AlreadyInactive(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)
	require.NoError(t, a.Deactivate())
	a.ClearDomainEvents()

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+a.ID.String()+"/deactivate", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	deps.repo.AssertNotCalled(t, "Update")
}

func TestChannelHandler_Activate_Success(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)
	require.NoError(t, a.Deactivate())
	a.ClearDomainEvents()

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	deps.repo.On("Update", mock.Anything, a).Return(nil)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/channels/"+a.ID.String()+"/activate", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "active", data["status"])
}

func TestChannelHandler_Delete_Success(t *testing.T) {
	handler, deps := newChannelHandlerForTest()
	a := createChannelAccountForHandlerTest(t)

	deps.repo.On("FindByID", mock.Anything, a.ID).Return(a, nil)
	deps.repo.On("Delete", mock.Anything, a.ID).Return(nil)

	router := setupChannelRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/channels/"+a.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	deps.repo.AssertExpectations(t)
}
