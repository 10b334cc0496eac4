package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/internal/service"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/response"
)

type reportService interface {
	CreateJob(ctx context.Context, actor *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error)
	GetStatus(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ReportStatusResponse, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
}

// ReportHandler exposes queued booklet generation.
type ReportHandler struct {
	service reportService
	logger  *zap.Logger
}

// NewReportHandler constructs handler.
func NewReportHandler(svc reportService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{service: svc, logger: logger}
}

// GenerateReport godoc
// @Summary Queue a report booklet
// @Description Builds the booklet for one accreditation body in the background
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) GenerateReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report payload"))
		return
	}

	job, err := h.service.CreateJob(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Accepted(c, job)
}

// ReportStatus godoc
// @Summary Report job status
// @Tags Reports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) ReportStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status, nil)
}

// DownloadReport godoc
// @Summary Download a finished booklet
// @Description Streams the artifact referenced by a signed token
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /export/{token} [get]
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	download, err := h.service.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	info, err := download.File.Stat()
	if err != nil {
		h.logger.Warn("stat report artifact", zap.String("filename", download.Filename), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read report"))
		return
	}

	c.Header("Expires", download.ExpiresAt.UTC().Format(http.TimeFormat))
	response.Stream(c, "attachment", download.Filename, contentTypeFor(download.Format), info.Size(), download.File)
}

func contentTypeFor(format models.ReportFormat) string {
	if format == models.ReportFormatCSV {
		return "text/csv"
	}
	return "application/pdf"
}
