package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	"github.com/noah-isme/accrediflow-api/internal/repository"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/jobs"
	"github.com/noah-isme/accrediflow-api/pkg/storage"
)

// ReportJobType is the queue job type for booklet builds.
const ReportJobType = "report_booklet"

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type exportFiles interface {
	ParseToken(token string, allowExpired bool) (storage.Grant, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

// ReportService manages background booklet jobs.
type ReportService struct {
	repo      reportJobStore
	queue     jobDispatcher
	exports   exportFiles
	validator *validator.Validate
	audit     auditLogger
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	Format    models.ReportFormat
	ExpiresAt time.Time
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, queue jobDispatcher, exports exportFiles, audit auditLogger, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		queue:     queue,
		exports:   exports,
		validator: NewValidator(),
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob persists a booklet request for the actor's institute and enqueues it.
func (s *ReportService) CreateJob(ctx context.Context, actor *models.JWTClaims, req dto.ReportRequest) (*dto.ReportJobResponse, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	format := req.Format
	if format == "" {
		format = models.ReportFormatPDF
	}
	job := &models.ReportJob{
		InstituteName: actor.InstituteName,
		Params:        models.ReportJobParams{Body: strings.ToUpper(strings.TrimSpace(req.Body)), Format: format},
		Status:        models.ReportStatusQueued,
		CreatedBy:     actor.UserID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ReportJobType}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to enqueue report job")
	}
	if s.audit != nil {
		jobID := job.ID
		entry := &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionReportGenerate,
			Resource:   "report_job",
			ResourceID: &jobID,
			IPAddress:  "system",
			UserAgent:  "report-service",
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to persist audit log", zap.String("action", entry.Action), zap.Error(err))
		}
	}
	return &dto.ReportJobResponse{ID: job.ID, Status: job.Status, Progress: job.Progress}, nil
}

// GetStatus exposes job metadata to admins of the same institute.
func (s *ReportService) GetStatus(ctx context.Context, actor *models.JWTClaims, id string) (*dto.ReportStatusResponse, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.InstituteName != actor.InstituteName {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report belongs to another institute")
	}
	resp := &dto.ReportStatusResponse{
		ID:        job.ID,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp, nil
}

// ResolveDownload validates a signed token and opens the stored booklet.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	grant, err := s.exports.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.load(ctx, grant.JobID)
	if err != nil {
		return nil, err
	}
	if job.ResultURL == nil || !strings.HasSuffix(*job.ResultURL, token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exports.Open(grant.Path)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report file no longer available")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(grant.Path),
		Format:    job.Params.Format,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued report jobs", "error", err)
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: ReportJobType}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue pending job", "job_id", job.ID, "error", err)
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports periodically.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	for {
		finished, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
		if err != nil {
			s.logger.Sugar().Warnw("cleanup list failed", "error", err)
			return
		}
		for _, job := range finished {
			if job.ResultURL == nil {
				continue
			}
			token := extractToken(*job.ResultURL)
			if token == "" {
				continue
			}
			grant, err := s.exports.ParseToken(token, true)
			if err != nil {
				continue
			}
			if err := s.exports.Delete(grant.Path); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
				s.logger.Sugar().Warnw("cleanup delete failed", "job_id", job.ID, "error", err)
			}
		}
		if len(finished) < 100 {
			break
		}
	}
	if _, err := s.exports.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Sugar().Warnw("filesystem cleanup failed", "error", err)
	}
}

func (s *ReportService) load(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report job")
	}
	return job, nil
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	parts := strings.Split(url, "/")
	return parts[len(parts)-1]
}

// ReportWorker bridges queue jobs to the export service.
type ReportWorker struct {
	repo     reportJobStore
	exporter exportGenerator
	logger   *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{repo: repo, exporter: exporter, logger: logger}
}

// Handle processes a queue job. A failed attempt puts the job back to QUEUED;
// the queue decides whether it is retried.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:   &processing,
		Progress: &progress,
	}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		msg := err.Error()
		queued := models.ReportStatusQueued
		reset := 0
		if updateErr := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Sugar().Warnw("failed to mark job queued", "job_id", job.ID, "error", updateErr)
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job finished", "job_id", job.ID, "error", err)
		return err
	}
	return nil
}

// MarkFailed is the queue's exhausted-retries hook.
func (w *ReportWorker) MarkFailed(ctx context.Context, job jobs.Job, cause error) {
	failed := models.ReportStatusFailed
	progress := 100
	now := time.Now().UTC()
	msg := cause.Error()
	if err := w.repo.Update(ctx, job.ID, repository.UpdateReportJobParams{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", err)
	}
}
