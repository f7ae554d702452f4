package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	knowledgeapp "github.com/chatforge/backend/internal/application/knowledge"
	"github.com/chatforge/backend/internal/domain/knowledge"
	"github.com/chatforge/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockDocumentRepository is a mock implementation of knowledge.DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *knowledge.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Update(ctx context.Context, d *knowledge.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*knowledge.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*knowledge.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindAll(ctx context.Context, filter knowledge.DocumentFilter) ([]*knowledge.Document, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*knowledge.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentRepository) FindPending(ctx context.Context, limit int) ([]*knowledge.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*knowledge.Document), args.Error(1)
}

func (m *MockDocumentRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDocumentRepository) CountByBot(ctx context.Context, botID uuid.UUID) (int64, error) {
	args := m.Called(ctx, botID)
	return args.Get(0).(int64), args.Error(1)
}

// MockChunkRepository is a mock implementation of knowledge.ChunkRepository
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) ReplaceForDocument(ctx context.Context, documentID uuid.UUID, chunks []*knowledge.Chunk) error {
	args := m.Called(ctx, documentID, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*knowledge.Chunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*knowledge.Chunk), args.Error(1)
}

func (m *MockChunkRepository) FindReadyByBot(ctx context.Context, botID uuid.UUID) ([]*knowledge.Chunk, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*knowledge.Chunk), args.Error(1)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockChunkRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockObjectStorage is a mock implementation of knowledgeapp.ObjectStorageService
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	args := m.Called(ctx, storageKey, data, contentType)
	return args.Error(0)
}

func (m *MockObjectStorage) Download(ctx context.Context, storageKey string) ([]byte, error) {
	args := m.Called(ctx, storageKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	args := m.Called(ctx, storageKey)
	return args.Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

// MockDocumentQuotaChecker is a mock implementation of knowledgeapp.QuotaChecker
type MockDocumentQuotaChecker struct {
	mock.Mock
}

func (m *MockDocumentQuotaChecker) CheckDocumentQuota(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockDocumentQuotaChecker) CheckStorageQuota(ctx context.Context, tenantID uuid.UUID, sizeBytes int64) error {
	args := m.Called(ctx, tenantID, sizeBytes)
	return args.Error(0)
}

// MockBotResolver is a mock implementation of knowledgeapp.BotResolver
type MockBotResolver struct {
	mock.Mock
}

func (m *MockBotResolver) ExistsForTenant(ctx context.Context, botID uuid.UUID) (bool, error) {
	args := m.Called(ctx, botID)
	return args.Bool(0), args.Error(1)
}

type documentTestDeps struct {
	docRepo   *MockDocumentRepository
	chunkRepo *MockChunkRepository
	storage   *MockObjectStorage
	quota     *MockDocumentQuotaChecker
	bots      *MockBotResolver
}

func newDocumentHandlerForTest() (*DocumentHandler, *documentTestDeps) {
	deps := &documentTestDeps{
		docRepo:   new(MockDocumentRepository),
		chunkRepo: new(MockChunkRepository),
		storage:   new(MockObjectStorage),
		quota:     new(MockDocumentQuotaChecker),
		bots:      new(MockBotResolver),
	}
	service := knowledgeapp.NewDocumentService(deps.docRepo, deps.chunkRepo, deps.storage, deps.quota, deps.bots, zap.NewNop())
	return NewDocumentHandler(service), deps
}

func setupDocumentRouter(h *DocumentHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	botDocs := r.Group("/api/v1/bots/:bot_id/documents")
	{
		botDocs.POST("/upload", h.Upload)
		botDocs.POST("/url", h.AddURL)
		botDocs.POST("/text", h.AddText)
	}

	docs := r.Group("/api/v1/documents")
	{
		docs.GET("", h.List)
		docs.GET("/:id", h.GetByID)
		docs.DELETE("/:id", h.Delete)
		docs.POST("/:id/rename", h.Rename)
		docs.POST("/:id/reprocess", h.Reprocess)
		docs.GET("/:id/download-url", h.GetDownloadURL)
	}

	return r
}

func createTextDocumentForHandlerTest(t *testing.T) *knowledge.Document {
	t.Helper()
	doc, err := knowledge.NewTextDocument(uuid.New(), uuid.New(), "Return policy",
		"tenants/t/bots/b/documents/abc.md", 512)
	require.NoError(t, err)
	doc.ClearDomainEvents()
	return doc
}

func multipartFileBody(t *testing.T, fieldName, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+fieldName+`"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestDocumentHandler_Upload_Success(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(true, nil)
	deps.quota.On("CheckDocumentQuota", mock.Anything, tenantID).Return(nil)
	deps.quota.On("CheckStorageQuota", mock.Anything, tenantID, int64(len("# Shipping\nWe ship worldwide."))).Return(nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything, []byte("# Shipping\nWe ship worldwide."), "text/markdown").Return(nil)
	deps.docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *knowledge.Document) bool {
		return d.TenantID == tenantID && d.BotID == botID &&
			d.SourceType == knowledge.SourceTypeFile &&
			d.Status == knowledge.DocumentStatusPending
	})).Return(nil)

	router := setupDocumentRouter(handler)

	body, contentType := multipartFileBody(t, "file", "shipping.md", "text/markdown", "# Shipping\nWe ship worldwide.")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID.String()+"/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "shipping.md", data["name"])
	assert.Equal(t, "file", data["source_type"])
	assert.Equal(t, "pending", data["status"])
	deps.docRepo.AssertExpectations(t)
	deps.storage.AssertExpectations(t)
}

func TestDocumentHandler_Upload_MissingFile(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+uuid.New().String()+"/documents/upload", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.storage.AssertNotCalled(t, "Upload")
}

func TestDocumentHandler_Upload_UnsupportedMimeType(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	router := setupDocumentRouter(handler)

	body, contentType := multipartFileBody(t, "file", "setup.exe", "application/x-msdownload", "MZ")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+uuid.New().String()+"/documents/upload", body)
	req.Header.Set("Content-Type", contentType)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorInfo := response["error"].(map[string]interface{})
	assert.Equal(t, "ERR_UNSUPPORTED_MEDIA", errorInfo["code"])
	deps.storage.AssertNotCalled(t, "Upload")
}

func TestDocumentHandler_AddText_Success(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(true, nil)
	deps.quota.On("CheckDocumentQuota", mock.Anything, tenantID).Return(nil)
	deps.quota.On("CheckStorageQuota", mock.Anything, tenantID, mock.Anything).Return(nil)
	deps.storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, "text/markdown").Return(nil)
	deps.docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *knowledge.Document) bool {
		return d.SourceType == knowledge.SourceTypeText && d.Name == "Return policy"
	})).Return(nil)

	router := setupDocumentRouter(handler)

	payload := `{"name": "Return policy", "content": "Returns are accepted within 30 days of delivery."}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID.String()+"/documents/text", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "text", data["source_type"])
	assert.Equal(t, "pending", data["status"])
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentHandler_AddText_MissingContent(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	router := setupDocumentRouter(handler)

	payload := `{"name": "Return policy"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+uuid.New().String()+"/documents/text", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.docRepo.AssertNotCalled(t, "Create")
}

func TestDocumentHandler_AddText_QuotaExceeded(t *testing.T) {
	tenantID := uuid.New()
	botID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(true, nil)
	deps.quota.On("CheckDocumentQuota", mock.Anything, tenantID).
		Return(shared.NewDomainError("QUOTA_EXCEEDED", "Document limit reached for the current plan"))

	router := setupDocumentRouter(handler)

	payload := `{"name": "FAQ", "content": "Answers to common questions."}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID.String()+"/documents/text", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	deps.storage.AssertNotCalled(t, "Upload")
}

func TestDocumentHandler_AddURL_Success(t *testing.T) {
	botID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(true, nil)
	deps.quota.On("CheckDocumentQuota", mock.Anything, mock.Anything).Return(nil)
	deps.docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *knowledge.Document) bool {
		return d.SourceType == knowledge.SourceTypeURL && d.SourceURL == "https://example.com/pricing"
	})).Return(nil)

	router := setupDocumentRouter(handler)

	payload := `{"name": "Pricing page", "url": "https://example.com/pricing"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID.String()+"/documents/url", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "url", data["source_type"])
	assert.Equal(t, "https://example.com/pricing", data["source_url"])
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentHandler_AddURL_InvalidURL(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	router := setupDocumentRouter(handler)

	payload := `{"url": "not-a-url"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+uuid.New().String()+"/documents/url", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.docRepo.AssertNotCalled(t, "Create")
}

func TestDocumentHandler_AddURL_BotNotFound(t *testing.T) {
	botID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.bots.On("ExistsForTenant", mock.Anything, botID).Return(false, nil)

	router := setupDocumentRouter(handler)

	payload := `{"url": "https://example.com/docs"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bots/"+botID.String()+"/documents/url", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	deps.docRepo.AssertNotCalled(t, "Create")
}

func TestDocumentHandler_GetByID_NotFound(t *testing.T) {
	documentID := uuid.New()

	handler, deps := newDocumentHandlerForTest()
	deps.docRepo.On("FindByID", mock.Anything, documentID).Return(nil, shared.ErrNotFound)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+documentID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	errorInfo := response["error"].(map[string]interface{})
	assert.Equal(t, "ERR_NOT_FOUND", errorInfo["code"])
}

func TestDocumentHandler_List_Success(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)
	deps.docRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter knowledge.DocumentFilter) bool {
		return filter.Status != nil && *filter.Status == knowledge.DocumentStatusPending
	})).Return([]*knowledge.Document{doc}, int64(1), nil)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=pending", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "Return policy", first["name"])
	meta := response["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["total"])
}

func TestDocumentHandler_List_InvalidStatus(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=stuck", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	deps.docRepo.AssertNotCalled(t, "FindAll")
}

func TestDocumentHandler_Rename_Success(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)
	deps.docRepo.On("FindByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.docRepo.On("Update", mock.Anything, doc).Return(nil)

	router := setupDocumentRouter(handler)

	payload := `{"name": "Return policy (2026)"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/rename", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "Return policy (2026)", data["name"])
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentHandler_Reprocess_Pending(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)

	deps.docRepo.On("FindByID", mock.Anything, doc.ID).Return(doc, nil)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/reprocess", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// A document that is already queued cannot be queued again
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	deps.docRepo.AssertNotCalled(t, "Update")
}

func TestDocumentHandler_Reprocess_Ready(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)
	require.NoError(t, doc.StartProcessing())
	require.NoError(t, doc.MarkReady(7))
	doc.ClearDomainEvents()

	deps.docRepo.On("FindByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.docRepo.On("Update", mock.Anything, doc).Return(nil)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/reprocess", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	deps.docRepo.AssertExpectations(t)
}

func TestDocumentHandler_Delete_Success(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)

	deps.docRepo.On("FindByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.chunkRepo.On("DeleteByDocument", mock.Anything, doc.ID).Return(nil)
	deps.docRepo.On("Delete", mock.Anything, doc.ID).Return(nil)
	deps.storage.On("DeleteObject", mock.Anything, doc.StorageKey).Return(nil)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+doc.ID.String(), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	deps.docRepo.AssertExpectations(t)
	deps.chunkRepo.AssertExpectations(t)
	deps.storage.AssertExpectations(t)
}

func TestDocumentHandler_GetDownloadURL_Success(t *testing.T) {
	handler, deps := newDocumentHandlerForTest()
	doc := createTextDocumentForHandlerTest(t)

	deps.docRepo.On("FindByID", mock.Anything, doc.ID).Return(doc, nil)
	deps.storage.On("GenerateDownloadURL", mock.Anything, doc.StorageKey, 1*time.Hour).
		Return("https://cdn.example.com/signed/abc.md", time.Now().Add(time.Hour), nil)

	router := setupDocumentRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID.String()+"/download-url", nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "https://cdn.example.com/signed/abc.md", data["download_url"])
}
