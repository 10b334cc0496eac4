package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/internal/repository"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/storage"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document, first *models.HistoryEntry) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	History(ctx context.Context, documentID string) ([]models.HistoryEntry, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.DocumentSummary, int, error)
	Append(ctx context.Context, params repository.AppendParams) (*models.Document, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type viewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

type blobStatter interface {
	Stat(ref string) (os.FileInfo, error)
}

type decisionRecorder interface {
	RecordDecision(decision, outcome string)
}

// DocumentService owns document creation, approval decisions and the
// role-scoped views over the document store.
type DocumentService struct {
	repo           documentStore
	audit          auditLogger
	validator      *validator.Validate
	logger         *zap.Logger
	cache          viewCache
	cacheTTL       time.Duration
	metrics        decisionRecorder
	uploads        blobStatter
	enforceCatalog bool
	now            func() time.Time
}

// DocumentServiceOption configures the service.
type DocumentServiceOption func(*DocumentService)

// WithCategoryCatalog restricts new documents to the uploader's catalog.
func WithCategoryCatalog(enforce bool) DocumentServiceOption {
	return func(s *DocumentService) { s.enforceCatalog = enforce }
}

// WithReportCache caches report views until the next approval in the institute.
func WithReportCache(cache viewCache, ttl time.Duration) DocumentServiceOption {
	return func(s *DocumentService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithDecisionMetrics counts decisions by outcome.
func WithDecisionMetrics(recorder decisionRecorder) DocumentServiceOption {
	return func(s *DocumentService) { s.metrics = recorder }
}

// WithUploadStore requires new documents to reference a stored upload.
func WithUploadStore(uploads blobStatter) DocumentServiceOption {
	return func(s *DocumentService) { s.uploads = uploads }
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger, opts ...DocumentServiceOption) *DocumentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DocumentService{repo: repo, audit: audit, validator: validate, logger: logger, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create registers an uploaded file and enters it into the approval chain.
func (s *DocumentService) Create(ctx context.Context, actor *models.JWTClaims, req dto.CreateDocumentRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	category := strings.TrimSpace(req.Category)
	if s.enforceCatalog && !models.CategoryAllowed(actor.Role, category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("category %q is not available to role %s", category, actor.Role))
	}
	filePath := strings.TrimSpace(req.FilePath)
	if err := s.checkUpload(filePath); err != nil {
		return nil, err
	}

	doc := &models.Document{
		Title:         strings.TrimSpace(req.Title),
		Category:      category,
		Status:        InitialStatus(actor.Role),
		FilePath:      filePath,
		OwnerID:       actor.UserID,
		InstituteName: actor.InstituteName,
		CreatedAt:     s.now().UTC(),
	}
	first := &models.HistoryEntry{
		Action:    models.HistoryUploaded,
		By:        actor.UserID,
		ByName:    actor.Name,
		ByRole:    actor.Role,
		Timestamp: doc.CreatedAt,
	}
	if err := s.repo.Create(ctx, doc, first); err != nil {
		return nil, dependencyError(err, "failed to create document")
	}

	s.emitAudit(ctx, actor, models.AuditActionDocumentCreate, doc.ID, nil, doc)
	return doc, nil
}

// ApplyDecision moves a pending document one step along the chain. Only the
// role the document is waiting on may decide, and only within its institute.
func (s *DocumentService) ApplyDecision(ctx context.Context, actor *models.JWTClaims, id string, req dto.DecisionRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.Status != models.DecisionApproved && req.Status != models.DecisionRejected {
		s.recordDecision(req.Status, "invalid")
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Approved or Rejected")
	}

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.InstituteName != actor.InstituteName {
		s.recordDecision(req.Status, "forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document belongs to another institute")
	}
	next, err := NextStatus(doc.Status, actor.Role, req.Status)
	if err != nil {
		s.recordDecision(req.Status, "forbidden")
		return nil, err
	}

	comment := strings.TrimSpace(req.Comment)
	if comment == "" {
		comment = defaultDecisionComment(next, actor.Role)
	}
	entry := &models.HistoryEntry{
		Action:    models.HistoryAction(req.Status),
		By:        actor.UserID,
		ByName:    actor.Name,
		ByRole:    actor.Role,
		Comment:   &comment,
		Timestamp: s.now().UTC(),
	}
	previous := doc.Status
	updated, err := s.repo.Append(ctx, repository.AppendParams{
		DocumentID:      doc.ID,
		ExpectedVersion: doc.Version,
		NewStatus:       &next,
		Entry:           entry,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.recordDecision(req.Status, "conflict")
			return nil, appErrors.Clone(appErrors.ErrConflict, "document was modified concurrently; reload and retry")
		}
		s.recordDecision(req.Status, "error")
		return nil, dependencyError(err, "failed to record decision")
	}
	updated.History = append(doc.History, *entry)
	s.recordDecision(req.Status, "applied")

	if next == models.StatusApproved {
		s.invalidateReports(ctx, updated.InstituteName)
	}
	s.emitAudit(ctx, actor, models.AuditActionDocumentDecision, updated.ID,
		map[string]interface{}{"status": previous},
		map[string]interface{}{"status": next, "decision": req.Status, "comment": comment})
	return updated, nil
}

// AddComment appends a Commented entry without moving the document.
func (s *DocumentService) AddComment(ctx context.Context, actor *models.JWTClaims, id string, req dto.CommentRequest) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, doc) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not visible to you")
	}

	comment := strings.TrimSpace(req.Comment)
	entry := &models.HistoryEntry{
		Action:    models.HistoryCommented,
		By:        actor.UserID,
		ByName:    actor.Name,
		ByRole:    actor.Role,
		Comment:   &comment,
		Timestamp: s.now().UTC(),
	}
	updated, err := s.repo.Append(ctx, repository.AppendParams{
		DocumentID:      doc.ID,
		ExpectedVersion: doc.Version,
		Entry:           entry,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "document was modified concurrently; reload and retry")
		}
		return nil, dependencyError(err, "failed to add comment")
	}
	updated.History = append(doc.History, *entry)
	s.emitAudit(ctx, actor, models.AuditActionDocumentComment, updated.ID, nil, map[string]interface{}{"comment": comment})
	return updated, nil
}

// Get returns a document with its full history.
func (s *DocumentService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, doc) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "document is not visible to you")
	}
	return doc, nil
}

// ListOwn is the owner view: documents uploaded by the actor.
func (s *DocumentService) ListOwn(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	return s.list(ctx, models.DocumentFilter{OwnerID: actor.UserID}, page)
}

// ListInstitute is the admin view over every document of the institute.
func (s *DocumentService) ListInstitute(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.DocumentFilter{InstituteName: actor.InstituteName}, page)
}

// ListForRole picks the institute view for admins and the owner view otherwise.
func (s *DocumentService) ListForRole(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	if actor != nil && actor.Role == models.RoleAdmin {
		return s.ListInstitute(ctx, actor, page)
	}
	return s.ListOwn(ctx, actor, page)
}

// HODQueue lists faculty uploads awaiting an HOD decision.
func (s *DocumentService) HODQueue(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleHOD); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.DocumentFilter{
		InstituteName: actor.InstituteName,
		OwnerRole:     models.RoleFaculty,
		Statuses:      []models.DocumentStatus{models.StatusPendingHODApproval},
	}, page)
}

// CoordinatorQueue lists documents awaiting a coordinator decision.
func (s *DocumentService) CoordinatorQueue(ctx context.Context, actor *models.JWTClaims, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	if err := requireRole(actor, models.RoleCoordinator); err != nil {
		return nil, nil, err
	}
	return s.list(ctx, models.DocumentFilter{
		InstituteName: actor.InstituteName,
		Statuses:      []models.DocumentStatus{models.StatusPendingCoordinatorApproval},
	}, page)
}

// ReportView returns the institute's approved documents whose category starts
// with body (case-insensitive), ordered by category.
func (s *DocumentService) ReportView(ctx context.Context, actor *models.JWTClaims, body string) ([]models.DocumentSummary, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.ApprovedForReport(ctx, actor.InstituteName, body)
}

// ApprovedForReport is the query contract used by report aggregation.
func (s *DocumentService) ApprovedForReport(ctx context.Context, institute, body string) ([]models.DocumentSummary, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "accreditation body is required")
	}

	key := reportCacheKey(institute, body)
	if s.cache != nil {
		var cached []models.DocumentSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	docs, _, err := s.repo.List(ctx, models.DocumentFilter{
		InstituteName:   institute,
		Statuses:        []models.DocumentStatus{models.StatusApproved},
		CategoryPrefix:  body,
		OrderByCategory: true,
	})
	if err != nil {
		return nil, dependencyError(err, "failed to load report view")
	}
	if docs == nil {
		docs = []models.DocumentSummary{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, docs, s.cacheTTL)
	}
	return docs, nil
}

// Categories returns the catalog for the actor's role, or every role's catalog
// for admins.
func (s *DocumentService) Categories(actor *models.JWTClaims) ([]dto.CategoryGroup, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	roles := []models.UserRole{actor.Role}
	if actor.Role == models.RoleAdmin || actor.Role == models.RoleSuperAdmin {
		roles = []models.UserRole{models.RoleFaculty, models.RoleHOD, models.RoleCoordinator}
	}
	groups := make([]dto.CategoryGroup, 0, len(roles))
	for _, role := range roles {
		group := dto.CategoryGroup{Role: role, Categories: []dto.CategoryOption{}}
		for _, c := range models.CategoryCatalog[role] {
			group.Categories = append(group.Categories, dto.CategoryOption{Body: c.Body, Name: c.Name, Label: c.Label()})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func (s *DocumentService) checkUpload(ref string) error {
	if s.uploads == nil {
		return nil
	}
	if _, err := s.uploads.Stat(ref); err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidPath) {
			return appErrors.Clone(appErrors.ErrValidation, "file_path does not reference an uploaded file")
		}
		return dependencyError(err, "failed to check uploaded file")
	}
	return nil
}

// load returns NotFound for ids that cannot be document keys.
func (s *DocumentService) load(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, dependencyError(err, "failed to load document")
	}
	history, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, dependencyError(err, "failed to load document history")
	}
	doc.History = history
	return doc, nil
}

func (s *DocumentService) list(ctx context.Context, filter models.DocumentFilter, page dto.DocumentListQuery) ([]models.DocumentSummary, *models.Pagination, error) {
	p, size := normalizePage(page.Page, page.PageSize)
	filter.Limit = size
	filter.Offset = (p - 1) * size
	docs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, dependencyError(err, "failed to list documents")
	}
	if docs == nil {
		docs = []models.DocumentSummary{}
	}
	return docs, &models.Pagination{Page: p, PageSize: size, TotalCount: total}, nil
}

func (s *DocumentService) invalidateReports(ctx context.Context, institute string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, reportCachePrefix(institute)+"*"); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("institute", institute), zap.Error(err))
	}
}

func (s *DocumentService) recordDecision(decision models.Decision, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordDecision(string(decision), outcome)
	}
}

func (s *DocumentService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, documentID string, oldValues, newValues interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "document",
		ResourceID: &documentID,
		IPAddress:  "system",
		UserAgent:  "document-service",
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to persist audit log", zap.String("action", action), zap.Error(err))
	}
}

// canView allows the owner plus the institute's admin and reviewers.
func canView(actor *models.JWTClaims, doc *models.Document) bool {
	if doc.InstituteName != actor.InstituteName {
		return false
	}
	if doc.OwnerID == actor.UserID {
		return true
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleHOD, models.RoleCoordinator:
		return true
	}
	return false
}

func requireRole(actor *models.JWTClaims, role models.UserRole) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != role {
		return appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("requires role %s", role))
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	return page, size
}

func reportCachePrefix(institute string) string {
	return "reports:" + url.QueryEscape(strings.ToLower(institute)) + ":"
}

func reportCacheKey(institute, body string) string {
	return reportCachePrefix(institute) + url.QueryEscape(strings.ToUpper(body))
}

func dependencyError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, message)
}
