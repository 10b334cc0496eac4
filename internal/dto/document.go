package dto

import "github.com/noah-isme/accrediflow-api/internal/models"

// CreateDocumentRequest registers an uploaded file for review.
type CreateDocumentRequest struct {
	Title    string `json:"title" validate:"required,notblank"`
	Category string `json:"category" validate:"required,notblank"`
	FilePath string `json:"filePath" validate:"required,notblank"`
}

// DecisionRequest is a reviewer's verdict on a pending document.
type DecisionRequest struct {
	Status  models.Decision `json:"status" validate:"required,oneof=Approved Rejected"`
	Comment string          `json:"comment"`
}

// CommentRequest appends a note to a document's history.
type CommentRequest struct {
	Comment string `json:"comment" validate:"required,notblank"`
}

// DocumentListQuery carries paging for list endpoints.
type DocumentListQuery struct {
	Page     int
	PageSize int
}

// UploadResponse mirrors what the upload endpoint returns.
type UploadResponse struct {
	Message  string `json:"message"`
	FilePath string `json:"filePath"`
}

// CategoryGroup lists the catalog for one role.
type CategoryGroup struct {
	Role       models.UserRole  `json:"role"`
	Categories []CategoryOption `json:"categories"`
}

// CategoryOption is one selectable category.
type CategoryOption struct {
	Body  string `json:"body"`
	Name  string `json:"name"`
	Label string `json:"label"`
}
