package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportFormat enumerates supported booklet formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportJob is a queued booklet build for one accreditation body.
type ReportJob struct {
	ID            string          `db:"id" json:"id"`
	InstituteName string          `db:"institute_name" json:"institute_name"`
	Params        ReportJobParams `db:"params" json:"params"`
	Status        ReportStatus    `db:"status" json:"status"`
	Progress      int             `db:"progress" json:"progress"`
	ResultURL     *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy     string          `db:"created_by" json:"created_by"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	FinishedAt    *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"error_message,omitempty"`
}

// ReportJobParams stores request-scoped options persisted as JSONB.
type ReportJobParams struct {
	Body   string       `json:"body"`
	Format ReportFormat `json:"format"`
}

// Value marshals params to JSON for persistence.
func (p ReportJobParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ReportJobParams", value)
	}
	if len(data) == 0 {
		*p = ReportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal report job params: %w", err)
	}
	return nil
}

// ReportEntry is one row of a booklet: an approved document and whether its
// file made it into the artifact.
type ReportEntry struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	OwnerName  string    `json:"owner_name"`
	ApprovedAt time.Time `json:"approved_at"`
	Included   bool      `json:"included"`
}
