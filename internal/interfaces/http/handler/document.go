package handler

import (
	"strconv"

	knowledgeapp "github.com/chatforge/backend/internal/application/knowledge"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles knowledge document API endpoints
type DocumentHandler struct {
	BaseHandler
	documentService *knowledgeapp.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(documentService *knowledgeapp.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// AddURLSourceRequest represents a request to add a crawled URL source
// @Description Request body for adding a web page as a knowledge source
type AddURLSourceRequest struct {
	Name string `json:"name" binding:"max=300" example:"Pricing page"`
	URL  string `json:"url" binding:"required,url,max=1000" example:"https://example.com/pricing"`
}

// AddTextSourceRequest represents a request to add a raw text source
// @Description Request body for adding pasted text as a knowledge source
type AddTextSourceRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=300" example:"Return policy"`
	Content string `json:"content" binding:"required,min=1" example:"Returns are accepted within 30 days..."`
}

// RenameDocumentRequest represents a request to rename a document
// @Description Request body for renaming a knowledge document
type RenameDocumentRequest struct {
	Name string `json:"name" binding:"required,min=1,max=300" example:"Pricing (2026)"`
}

// Upload godoc
// @Summary      Upload a knowledge file
// @Description  Upload a file (markdown, text, HTML) for a bot's knowledge base
// @Tags         knowledge
// @Accept       multipart/form-data
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        file formData file true "Document file"
// @Success      201 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/documents/upload [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "Missing file upload")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Unable to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.documentService.UploadFile(c.Request.Context(), knowledgeapp.UploadFileInput{
		TenantID: tenantID,
		BotID:    botID,
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Body:     file,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// AddURL godoc
// @Summary      Add a URL source
// @Description  Queue a web page for crawling into a bot's knowledge base
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body AddURLSourceRequest true "URL source"
// @Success      201 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/documents/url [post]
func (h *DocumentHandler) AddURL(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req AddURLSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.documentService.AddURL(c.Request.Context(), knowledgeapp.AddURLInput{
		TenantID: tenantID,
		BotID:    botID,
		Name:     req.Name,
		URL:      req.URL,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// AddText godoc
// @Summary      Add a text source
// @Description  Add pasted text to a bot's knowledge base
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Param        bot_id path string true "Bot ID" format(uuid)
// @Param        request body AddTextSourceRequest true "Text source"
// @Success      201 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /bots/{bot_id}/documents/text [post]
func (h *DocumentHandler) AddText(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	botID, err := uuid.Parse(c.Param("bot_id"))
	if err != nil {
		h.BadRequest(c, "Invalid bot ID format")
		return
	}

	var req AddTextSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.documentService.AddText(c.Request.Context(), knowledgeapp.AddTextInput{
		TenantID: tenantID,
		BotID:    botID,
		Name:     req.Name,
		Content:  req.Content,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @Summary      Get document by ID
// @Tags         knowledge
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id} [get]
func (h *DocumentHandler) GetByID(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	result, err := h.documentService.GetByID(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// List godoc
// @Summary      List documents
// @Description  Retrieve a paginated list of knowledge documents
// @Tags         knowledge
// @Produce      json
// @Param        bot_id query string false "Filter by bot" format(uuid)
// @Param        status query string false "Document status" Enums(pending, processing, ready, failed)
// @Param        source_type query string false "Source type" Enums(file, url, text)
// @Param        search query string false "Search term (name)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]knowledgeapp.DocumentDTO,meta=dto.Meta}
// @Security     BearerAuth
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	input := knowledgeapp.ListDocumentsInput{
		Status:     c.Query("status"),
		SourceType: c.Query("source_type"),
		Keyword:    c.Query("search"),
		Page:       page,
		PageSize:   pageSize,
	}
	if raw := c.Query("bot_id"); raw != "" {
		botID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid bot ID format")
			return
		}
		input.BotID = &botID
	}

	result, err := h.documentService.List(c.Request.Context(), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Documents, result.Total, result.Page, result.PageSize)
}

// Rename godoc
// @Summary      Rename a document
// @Tags         knowledge
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body RenameDocumentRequest true "New name"
// @Success      200 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/rename [post]
func (h *DocumentHandler) Rename(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	var req RenameDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.documentService.Rename(c.Request.Context(), documentID, req.Name)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Reprocess godoc
// @Summary      Reprocess a document
// @Description  Queue the document for re-chunking and re-embedding
// @Tags         knowledge
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=knowledgeapp.DocumentDTO}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/reprocess [post]
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	result, err := h.documentService.Reprocess(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// Delete godoc
// @Summary      Delete a document
// @Description  Remove the document, its chunks and its stored file
// @Tags         knowledge
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), documentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetDownloadURL godoc
// @Summary      Get a download URL
// @Description  Generate a presigned download URL for a file-sourced document
// @Tags         knowledge
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=object}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /documents/{id}/download-url [get]
func (h *DocumentHandler) GetDownloadURL(c *gin.Context) {
	documentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	url, err := h.documentService.GetDownloadURL(c.Request.Context(), documentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, gin.H{"download_url": url})
}
