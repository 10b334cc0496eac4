package models

import "time"

// DocumentStatus is the workflow position of a document.
type DocumentStatus string

const (
	StatusPendingHODApproval         DocumentStatus = "PendingHODApproval"
	StatusPendingCoordinatorApproval DocumentStatus = "PendingCoordinatorApproval"
	StatusApproved                   DocumentStatus = "Approved"
	StatusRejected                   DocumentStatus = "Rejected"
)

// Terminal reports whether no further decision can move the document.
func (s DocumentStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is a member of the status enumeration.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPendingHODApproval, StatusPendingCoordinatorApproval, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// HistoryAction labels one entry of a document's audit trail.
type HistoryAction string

const (
	HistoryUploaded  HistoryAction = "Uploaded"
	HistoryApproved  HistoryAction = "Approved"
	HistoryRejected  HistoryAction = "Rejected"
	HistoryCommented HistoryAction = "Commented"
)

// Decision is what a reviewer asks for. It is logged verbatim as the history
// action, regardless of the resulting status.
type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

// Document is an evidence file moving through the approval chain. Version
// always equals len(History) once persisted.
type Document struct {
	ID            string         `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Category      string         `db:"category" json:"category"`
	Status        DocumentStatus `db:"status" json:"status"`
	FilePath      string         `db:"file_path" json:"file_path"`
	OwnerID       string         `db:"owner_id" json:"owner_id"`
	InstituteName string         `db:"institute_name" json:"institute_name"`
	Version       int            `db:"version" json:"version"`
	History       []HistoryEntry `db:"-" json:"history,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// HistoryEntry is one immutable action on a document.
type HistoryEntry struct {
	ID         string        `db:"id" json:"id"`
	DocumentID string        `db:"document_id" json:"-"`
	Position   int           `db:"position" json:"position"`
	Action     HistoryAction `db:"action" json:"action"`
	By         string        `db:"actor_id" json:"by"`
	ByName     string        `db:"actor_name" json:"by_name,omitempty"`
	ByRole     UserRole      `db:"actor_role" json:"by_role,omitempty"`
	Comment    *string       `db:"comment" json:"comment,omitempty"`
	Timestamp  time.Time     `db:"created_at" json:"timestamp"`
}

// DocumentSummary is a list row: the document plus its owner's display fields.
type DocumentSummary struct {
	Document
	OwnerName  string   `db:"owner_name" json:"owner_name"`
	OwnerEmail string   `db:"owner_email" json:"owner_email"`
	OwnerRole  UserRole `db:"owner_role" json:"owner_role"`
}

// DocumentFilter drives every role-scoped list query. Empty fields do not filter.
type DocumentFilter struct {
	OwnerID         string
	InstituteName   string
	Statuses        []DocumentStatus
	OwnerRole       UserRole
	CategoryPrefix  string
	OrderByCategory bool
	Limit           int
	Offset          int
}
