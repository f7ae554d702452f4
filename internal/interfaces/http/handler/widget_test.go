package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	conversationapp "github.com/chatforge/backend/internal/application/conversation"
	reviewapp "github.com/chatforge/backend/internal/application/review"
	widgetapp "github.com/chatforge/backend/internal/application/widget"
	"github.com/chatforge/backend/internal/domain/bot"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/chatforge/backend/internal/infrastructure/auth"
	"github.com/chatforge/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockConversationFlow is a mock implementation of widgetapp.ConversationFlow
type MockConversationFlow struct {
	mock.Mock
}

func (m *MockConversationFlow) StartOrResume(ctx context.Context, input conversationapp.StartConversationInput) (*conversationapp.ConversationDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ConversationDTO), args.Error(1)
}

func (m *MockConversationFlow) SendMessage(ctx context.Context, input conversationapp.SendMessageInput) (*conversationapp.ReplyResultDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ReplyResultDTO), args.Error(1)
}

func (m *MockConversationFlow) IdentifyVisitor(ctx context.Context, input conversationapp.IdentifyVisitorInput) (*conversationapp.ConversationDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*conversationapp.ConversationDTO), args.Error(1)
}

// MockReviewSubmitter is a mock implementation of widgetapp.ReviewSubmitter
type MockReviewSubmitter struct {
	mock.Mock
}

func (m *MockReviewSubmitter) Submit(ctx context.Context, input reviewapp.SubmitReviewInput) (*reviewapp.ReviewDTO, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reviewapp.ReviewDTO), args.Error(1)
}

// MockTokenIssuer is a mock implementation of widgetapp.TokenIssuer
type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueWidgetToken(ctx context.Context, tenantID, botID uuid.UUID, visitorID string) (string, time.Time, error) {
	args := m.Called(ctx, tenantID, botID, visitorID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

type widgetTestDeps struct {
	botRepo *MockBotRepository
	flow    *MockConversationFlow
	reviews *MockReviewSubmitter
	tokens  *MockTokenIssuer
}

func newWidgetHandlerForTest() (*WidgetHandler, *widgetTestDeps) {
	deps := &widgetTestDeps{
		botRepo: new(MockBotRepository),
		flow:    new(MockConversationFlow),
		reviews: new(MockReviewSubmitter),
		tokens:  new(MockTokenIssuer),
	}
	service := widgetapp.NewWidgetService(deps.botRepo, deps.flow, deps.reviews, deps.tokens, zap.NewNop())
	return NewWidgetHandler(service), deps
}

// setupWidgetRouter installs the public widget routes; when claims is
// non-nil the session routes see it as the widget token identity
func setupWidgetRouter(h *WidgetHandler, claims *auth.Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	widgetGroup := r.Group("/api/widget")
	{
		widgetGroup.GET("/:widget_key/config", h.GetConfig)
		widgetGroup.POST("/:widget_key/session", h.StartSession)
	}

	sessionGroup := r.Group("/api/widget")
	sessionGroup.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(middleware.WidgetClaimsKey, claims)
		}
		c.Next()
	})
	{
		sessionGroup.POST("/messages", h.SendMessage)
		sessionGroup.POST("/reviews", h.SubmitReview)
	}

	return r
}

func publishedBotForWidgetTest(t *testing.T, tenantID uuid.UUID) *bot.Bot {
	t.Helper()
	b := createBotForHandlerTest(t, tenantID)
	settings := b.ModelSettings
	settings.SystemPrompt = "You are a helpful support assistant."
	require.NoError(t, b.UpdateModelSettings(settings))
	require.NoError(t, b.Publish())
	b.ClearDomainEvents()
	return b
}

func widgetClaimsForTest(tenantID, botID uuid.UUID, visitorID string) *auth.Claims {
	return &auth.Claims{
		TenantID:  tenantID.String(),
		BotID:     botID.String(),
		VisitorID: visitorID,
		TokenType: auth.TokenTypeWidget,
	}
}

func TestWidgetHandler_GetConfig_Success(t *testing.T) {
	tenantID := uuid.New()
	b := publishedBotForWidgetTest(t, tenantID)

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByWidgetKey", mock.Anything, b.WidgetKey).Return(b, nil)

	router := setupWidgetRouter(handler, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/widget/"+b.WidgetKey+"/config", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, b.ID.String(), data["bot_id"])
	assert.Equal(t, "Support Bot", data["bot_name"])
}

func TestWidgetHandler_GetConfig_UnknownKey(t *testing.T) {
	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByWidgetKey", mock.Anything, "wk_unknown").Return(nil, shared.ErrNotFound)

	router := setupWidgetRouter(handler, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/widget/wk_unknown/config", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWidgetHandler_GetConfig_DraftBotHidden(t *testing.T) {
	tenantID := uuid.New()
	b := createBotForHandlerTest(t, tenantID)

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByWidgetKey", mock.Anything, b.WidgetKey).Return(b, nil)

	router := setupWidgetRouter(handler, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/widget/"+b.WidgetKey+"/config", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Unpublished bots are indistinguishable from absent ones
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWidgetHandler_StartSession_Success(t *testing.T) {
	tenantID := uuid.New()
	b := publishedBotForWidgetTest(t, tenantID)
	expiresAt := time.Now().Add(time.Hour)

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByWidgetKey", mock.Anything, b.WidgetKey).Return(b, nil)
	deps.tokens.On("IssueWidgetToken", mock.Anything, b.TenantID, b.ID, "vis_42").
		Return("widget-token", expiresAt, nil)

	router := setupWidgetRouter(handler, nil)

	body, _ := json.Marshal(StartWidgetSessionRequest{VisitorID: "vis_42"})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/"+b.WidgetKey+"/session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "vis_42", data["visitor_id"])
	assert.Equal(t, "widget-token", data["token"])
	assert.Equal(t, "Bearer", data["token_type"])
}

func TestWidgetHandler_StartSession_GeneratesVisitorID(t *testing.T) {
	tenantID := uuid.New()
	b := publishedBotForWidgetTest(t, tenantID)

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByWidgetKey", mock.Anything, b.WidgetKey).Return(b, nil)
	deps.tokens.On("IssueWidgetToken", mock.Anything, b.TenantID, b.ID, mock.Anything).
		Return("widget-token", time.Now().Add(time.Hour), nil)

	router := setupWidgetRouter(handler, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/widget/"+b.WidgetKey+"/session", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.NotEmpty(t, data["visitor_id"])
}

func TestWidgetHandler_SendMessage_Success(t *testing.T) {
	tenantID := uuid.New()
	b := publishedBotForWidgetTest(t, tenantID)
	conversationID := uuid.New()

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	deps.flow.On("StartOrResume", mock.Anything, mock.Anything).Return(&conversationapp.ConversationDTO{
		ID:        conversationID,
		TenantID:  tenantID,
		BotID:     b.ID,
		Channel:   "web",
		VisitorID: "vis_42",
		Status:    "active",
	}, nil)
	deps.flow.On("SendMessage", mock.Anything, conversationapp.SendMessageInput{
		ConversationID: conversationID,
		Content:        "Do you ship to Canada?",
	}).Return(&conversationapp.ReplyResultDTO{
		Conversation: &conversationapp.ConversationDTO{ID: conversationID, Status: "active"},
		Reply: &conversationapp.MessageDTO{
			ID:      uuid.New(),
			Role:    "assistant",
			Content: "Yes, we ship to Canada.",
		},
	}, nil)

	claims := widgetClaimsForTest(tenantID, b.ID, "vis_42")
	router := setupWidgetRouter(handler, claims)

	body, _ := json.Marshal(WidgetMessageRequest{Text: "Do you ship to Canada?"})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, conversationID.String(), data["conversation_id"])
	reply := data["reply"].(map[string]interface{})
	assert.Equal(t, "assistant", reply["role"])
	assert.Equal(t, "Yes, we ship to Canada.", reply["content"])
}

func TestWidgetHandler_SendMessage_NoSession(t *testing.T) {
	handler, _ := newWidgetHandlerForTest()
	router := setupWidgetRouter(handler, nil)

	body, _ := json.Marshal(WidgetMessageRequest{Text: "hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWidgetHandler_SendMessage_EmptyText(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newWidgetHandlerForTest()
	claims := widgetClaimsForTest(tenantID, botID, "vis_42")
	router := setupWidgetRouter(handler, claims)

	body, _ := json.Marshal(WidgetMessageRequest{Text: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.flow.AssertNotCalled(t, "SendMessage")
}

func TestWidgetHandler_SubmitReview_Success(t *testing.T) {
	tenantID := uuid.New()
	b := publishedBotForWidgetTest(t, tenantID)
	reviewID := uuid.New()

	handler, deps := newWidgetHandlerForTest()
	deps.botRepo.On("FindByID", mock.Anything, b.ID).Return(b, nil)
	deps.reviews.On("Submit", mock.Anything, mock.MatchedBy(func(input reviewapp.SubmitReviewInput) bool {
		return input.BotID == b.ID && input.Rating == 5 && input.Source == "widget"
	})).Return(&reviewapp.ReviewDTO{
		ID:     reviewID,
		BotID:  b.ID,
		Rating: 5,
		Status: "pending",
		Source: "widget",
	}, nil)

	claims := widgetClaimsForTest(tenantID, b.ID, "vis_42")
	router := setupWidgetRouter(handler, claims)

	body, _ := json.Marshal(WidgetReviewRequest{
		Rating:  5,
		Comment: "Answered everything instantly.",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, reviewID.String(), data["id"])
	assert.Equal(t, float64(5), data["rating"])
	assert.Equal(t, "pending", data["status"])
}

func TestWidgetHandler_SubmitReview_InvalidRating(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newWidgetHandlerForTest()
	claims := widgetClaimsForTest(tenantID, botID, "vis_42")
	router := setupWidgetRouter(handler, claims)

	body, _ := json.Marshal(WidgetReviewRequest{Rating: 6})
	req := httptest.NewRequest(http.MethodPost, "/api/widget/reviews", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.reviews.AssertNotCalled(t, "Submit")
}
