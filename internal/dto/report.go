package dto

import "github.com/noah-isme/accrediflow-api/internal/models"

// ReportRequest asks for a booklet to be built in the background.
type ReportRequest struct {
	Body   string              `json:"body" validate:"required"`
	Format models.ReportFormat `json:"format" validate:"omitempty,oneof=pdf csv"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// Booklet is a rendered report artifact ready to stream.
type Booklet struct {
	Filename    string
	ContentType string
	Content     []byte
	Entries     []models.ReportEntry
	Skipped     int
}
