package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/response"
)

const uploadField = "document"

type streamStore interface {
	SaveStream(name string, r io.Reader) (string, error)
}

// UploadConfig limits what the upload endpoint accepts.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadHandler stores evidence files before they are registered as documents.
type UploadHandler struct {
	store  streamStore
	cfg    UploadConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewUploadHandler constructs the handler. An empty MIME list accepts PDF only.
func NewUploadHandler(store streamStore, cfg UploadConfig, logger *zap.Logger) *UploadHandler {
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"application/pdf"}
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 20 * 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Upload godoc
// @Summary Upload an evidence file
// @Description Stores the file and returns the path to pass to POST /documents
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param document formData file true "Evidence file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	if claimsFromContext(c) == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "no file uploaded"))
		return
	}
	if fileHeader.Size > h.cfg.MaxFileSizeBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", h.cfg.MaxFileSizeBytes)))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read file"))
		return
	}
	head = head[:n]
	detected := http.DetectContentType(head)
	if !h.allowed(detected) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed", detected)))
		return
	}

	name := h.storedName(fileHeader.Filename)
	ref, err := h.store.SaveStream(name, io.MultiReader(bytes.NewReader(head), src))
	if err != nil {
		h.logger.Error("store upload", zap.String("name", name), zap.Error(err))
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file"))
		return
	}

	response.Created(c, dto.UploadResponse{Message: "file uploaded", FilePath: ref})
}

func (h *UploadHandler) allowed(detected string) bool {
	mediaType := strings.TrimSpace(strings.SplitN(detected, ";", 2)[0])
	for _, candidate := range h.cfg.AllowedMIMEs {
		if strings.EqualFold(candidate, mediaType) {
			return true
		}
	}
	return false
}

func (h *UploadHandler) storedName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("document-%d-%s%s", h.now().UnixNano(), suffix, ext)
}
