package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/middleware"
	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/response"
	"github.com/noah-isme/accrediflow-api/pkg/storage"
)

type documentService interface {
	Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateDocumentRequest) (*models.Document, error)
	ApplyDecision(ctx context.Context, actor *models.JWTClaims, id string, req dto.DecisionRequest) (*models.Document, error)
	AddComment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.Document, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Document, error)
	ListForRole(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error)
	HODQueue(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error)
	CoordinatorQueue(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error)
	ReportView(ctx context.Context, actor *models.JWTClaims, body string) ([]models.DocumentSummary, error)
	Categories(actor *models.JWTClaims) ([]dto.CategoryGroup, error)
}

type bookletBuilder interface {
	BuildBooklet(ctx context.Context, actor *models.JWTClaims, body string, format models.ReportFormat) (*dto.Booklet, error)
}

type fileOpener interface {
	Open(ref string) (*os.File, error)
}

// DocumentHandler exposes the approval workflow.
type DocumentHandler struct {
	documents documentService
	booklets  bookletBuilder
	files     fileOpener
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(documents documentService, booklets bookletBuilder, files fileOpener) *DocumentHandler {
	return &DocumentHandler{documents: documents, booklets: booklets, files: files}
}

// Create godoc
// @Summary Submit a document for review
// @Description Registers an uploaded file. The initial status depends on the uploader's role.
// @Tags Documents
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}

// List godoc
// @Summary List documents visible to the caller
// @Description Admins see the institute, everyone else sees their own uploads
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	h.respondList(c, h.documents.ListForRole)
}

// HODQueue godoc
// @Summary Faculty documents awaiting HOD review
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/faculty [get]
func (h *DocumentHandler) HODQueue(c *gin.Context) {
	h.respondList(c, h.documents.HODQueue)
}

// CoordinatorQueue godoc
// @Summary Documents awaiting coordinator review
// @Tags Documents
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/hod-approved [get]
func (h *DocumentHandler) CoordinatorQueue(c *gin.Context) {
	h.respondList(c, h.documents.CoordinatorQueue)
}

type listFunc func(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error)

func (h *DocumentHandler) respondList(c *gin.Context, list listFunc) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	items, pagination, err := list(c.Request.Context(), claims, pageQuery(c, 50))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination, middleware.ExtractMeta(c))
}

// Categories godoc
// @Summary Category catalog for the caller's role
// @Tags Documents
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /documents/categories [get]
func (h *DocumentHandler) Categories(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	groups, err := h.documents.Categories(claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, groups, nil)
}

// ReportView godoc
// @Summary Approved documents for one accreditation body
// @Description Ordered by category; the body matches the category prefix
// @Tags Documents
// @Produce json
// @Param body query string true "Accreditation body, e.g. NAAC"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/report [get]
func (h *DocumentHandler) ReportView(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	body := strings.TrimSpace(c.Query("body"))
	if body == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "body is required"))
		return
	}

	items, err := h.documents.ReportView(c.Request.Context(), claims, body)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMeta(c, "body", strings.ToUpper(body))
	middleware.SetMeta(c, "count", len(items))
	response.JSON(c, http.StatusOK, items, nil, middleware.ExtractMeta(c))
}

// BookletPDF godoc
// @Summary Download the PDF booklet for a body
// @Tags Documents
// @Produce application/pdf
// @Param body path string true "Accreditation body"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/report/pdf/{body} [get]
func (h *DocumentHandler) BookletPDF(c *gin.Context) {
	h.streamBooklet(c, models.ReportFormatPDF)
}

// BookletCSV godoc
// @Summary Download the CSV index for a body
// @Tags Documents
// @Produce text/csv
// @Param body path string true "Accreditation body"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/report/csv/{body} [get]
func (h *DocumentHandler) BookletCSV(c *gin.Context) {
	h.streamBooklet(c, models.ReportFormatCSV)
}

func (h *DocumentHandler) streamBooklet(c *gin.Context, format models.ReportFormat) {
	if h.booklets == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "report export not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	booklet, err := h.booklets.BuildBooklet(c.Request.Context(), claims, c.Param("body"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("X-Skipped-Documents", strconv.Itoa(booklet.Skipped))
	response.Attachment(c, booklet.Filename, booklet.ContentType, booklet.Content)
}

// Get godoc
// @Summary Document detail with history
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// File godoc
// @Summary Stream the stored file of a document
// @Tags Documents
// @Produce octet-stream
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{id}/file [get]
func (h *DocumentHandler) File(c *gin.Context) {
	if h.files == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "file storage not configured"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	doc, err := h.documents.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	file, err := h.files.Open(doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document file not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document file"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document file"))
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(doc.FilePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	response.Stream(c, "inline", filepath.Base(doc.FilePath), contentType, info.Size(), file)
}

// UpdateStatus godoc
// @Summary Approve or reject a document
// @Description Applies the reviewer's decision. Fails with 409 when another decision landed first.
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /documents/{id}/status [put]
func (h *DocumentHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}

	doc, err := h.documents.ApplyDecision(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, doc, nil)
}

// AddComment godoc
// @Summary Comment on a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /documents/{id}/comments [post]
func (h *DocumentHandler) AddComment(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	doc, err := h.documents.AddComment(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, doc)
}
