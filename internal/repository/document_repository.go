package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/pkg/database"
)

const documentSummaryColumns = `d.id, d.title, d.category, d.status, d.file_path, d.owner_id, d.institute_name,
       d.version, d.created_at, d.updated_at, u.name AS owner_name, u.email AS owner_email, u.role AS owner_role`

// DocumentRepository persists documents and their append-only history.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts the document together with its first history entry.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document, first *models.HistoryEntry) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt
	doc.Version = 1

	if first.ID == "" {
		first.ID = uuid.NewString()
	}
	first.DocumentID = doc.ID
	first.Position = 0
	if first.Timestamp.IsZero() {
		first.Timestamp = doc.CreatedAt
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insertDoc = `INSERT INTO documents
	(id, title, category, status, file_path, owner_id, institute_name, version, created_at, updated_at)
	VALUES (:id, :title, :category, :status, :file_path, :owner_id, :institute_name, :version, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, insertDoc, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := insertHistory(ctx, tx, first); err != nil {
			return err
		}
		doc.History = []models.HistoryEntry{*first}
		return nil
	})
}

// GetByID fetches a document without its history.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, title, category, status, file_path, owner_id, institute_name, version, created_at, updated_at
	FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// History returns a document's entries in append order.
func (r *DocumentRepository) History(ctx context.Context, documentID string) ([]models.HistoryEntry, error) {
	const query = `SELECT h.id, h.document_id, h.position, h.action, h.actor_id, h.comment, h.created_at,
       COALESCE(u.name, '') AS actor_name, COALESCE(u.role, '') AS actor_role
	FROM document_history h
	LEFT JOIN users u ON u.id = h.actor_id
	WHERE h.document_id = $1
	ORDER BY h.position ASC`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, documentID); err != nil {
		return nil, fmt.Errorf("list document history: %w", err)
	}
	return entries, nil
}

// List returns documents matching the filter plus the unpaged total.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentSummary, int, error) {
	where, args := buildDocumentConditions(filter)

	builder := strings.Builder{}
	builder.WriteString("SELECT ")
	builder.WriteString(documentSummaryColumns)
	builder.WriteString(" FROM documents d JOIN users u ON u.id = d.owner_id")
	builder.WriteString(where)
	if filter.OrderByCategory {
		builder.WriteString(" ORDER BY d.category ASC, d.created_at ASC")
	} else {
		builder.WriteString(" ORDER BY d.created_at DESC")
	}
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset))
	}

	var docs []models.DocumentSummary
	if err := r.db.SelectContext(ctx, &docs, builder.String(), args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	total := len(docs)
	if filter.Limit > 0 {
		countQuery := "SELECT COUNT(*) FROM documents d JOIN users u ON u.id = d.owner_id" + where
		if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
			return nil, 0, fmt.Errorf("count documents: %w", err)
		}
	}
	return docs, total, nil
}

// AppendParams describes one conditional write against a document.
type AppendParams struct {
	DocumentID      string
	ExpectedVersion int
	// NewStatus is nil for entries that do not move the workflow.
	NewStatus *models.DocumentStatus
	Entry     *models.HistoryEntry
}

// Append bumps the document version, optionally moves its status and records
// the history entry, all in one transaction. It returns sql.ErrNoRows when the
// stored version no longer matches ExpectedVersion.
func (r *DocumentRepository) Append(ctx context.Context, params AppendParams) (*models.Document, error) {
	now := time.Now().UTC()
	entry := params.Entry
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.DocumentID = params.DocumentID
	entry.Position = params.ExpectedVersion
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}

	var doc models.Document
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		args := []interface{}{params.DocumentID, params.ExpectedVersion, now}
		set := "version = version + 1, updated_at = $3"
		if params.NewStatus != nil {
			args = append(args, *params.NewStatus)
			set += ", status = $4"
		}
		query := fmt.Sprintf(`UPDATE documents SET %s WHERE id = $1 AND version = $2
	RETURNING id, title, category, status, file_path, owner_id, institute_name, version, created_at, updated_at`, set)
		if err := tx.GetContext(ctx, &doc, query, args...); err != nil {
			if err == sql.ErrNoRows {
				return err
			}
			return fmt.Errorf("advance document: %w", err)
		}
		return insertHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, entry *models.HistoryEntry) error {
	const query = `INSERT INTO document_history (id, document_id, position, action, actor_id, comment, created_at)
	VALUES (:id, :document_id, :position, :action, :actor_id, :comment, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append document history: %w", err)
	}
	return nil
}

func buildDocumentConditions(filter models.DocumentFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 5)

	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		conditions = append(conditions, fmt.Sprintf("d.owner_id = $%d", len(args)))
	}
	if filter.InstituteName != "" {
		args = append(args, filter.InstituteName)
		conditions = append(conditions, fmt.Sprintf("d.institute_name = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("d.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.OwnerRole != "" {
		args = append(args, filter.OwnerRole)
		conditions = append(conditions, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if filter.CategoryPrefix != "" {
		args = append(args, escapeLike(filter.CategoryPrefix)+"%")
		conditions = append(conditions, fmt.Sprintf(`d.category ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(raw string) string {
	return likeEscaper.Replace(raw)
}
