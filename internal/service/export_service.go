package service

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/accrediflow-api/internal/dto"
	"github.com/noah-isme/accrediflow-api/internal/models"
	appErrors "github.com/noah-isme/accrediflow-api/pkg/errors"
	"github.com/noah-isme/accrediflow-api/pkg/export"
	"github.com/noah-isme/accrediflow-api/pkg/storage"
)

type approvedDocumentSource interface {
	ApprovedForReport(ctx context.Context, institute, body string) ([]models.DocumentSummary, error)
}

type blobReader interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

type fileStorage interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Open(ref string) (*os.File, error)
	Delete(ref string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type pdfMerger interface {
	Merge(ctx context.Context, parts [][]byte) ([]byte, error)
}

// pdfValidator is implemented by mergers that can reject a part up front.
type pdfValidator interface {
	Validate(data []byte) error
}

type reportBuildObserver interface {
	ObserveReportBuild(format string, skipped int, duration time.Duration)
}

// ExportConfig tunes booklet generation and stored exports.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	ReadConcurrency int
}

// ExportResult captures a stored booklet and its signed download link.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportDeps groups the collaborators of ExportService.
type ExportDeps struct {
	Documents approvedDocumentSource
	Blobs     blobReader
	Exports   fileStorage
	Signer    *storage.SignedURLSigner
	CSV       csvRenderer
	PDF       pdfRenderer
	Merger    pdfMerger
	Metrics   reportBuildObserver
}

// ExportService assembles approved evidence into accreditation booklets.
type ExportService struct {
	documents approvedDocumentSource
	blobs     blobReader
	exports   fileStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	merger    pdfMerger
	metrics   reportBuildObserver
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(deps ExportDeps, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.ReadConcurrency <= 0 {
		cfg.ReadConcurrency = 4
	}
	if deps.CSV == nil {
		deps.CSV = export.NewCSVExporter()
	}
	if deps.PDF == nil {
		deps.PDF = export.NewPDFExporter()
	}
	if deps.Merger == nil {
		deps.Merger = export.NewPDFMerger()
	}
	return &ExportService{
		documents: deps.Documents,
		blobs:     deps.Blobs,
		exports:   deps.Exports,
		signer:    deps.Signer,
		csv:       deps.CSV,
		pdf:       deps.PDF,
		merger:    deps.Merger,
		metrics:   deps.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// BuildBooklet renders the actor's institute booklet for body. Admin only.
func (s *ExportService) BuildBooklet(ctx context.Context, actor *models.JWTClaims, body string, format models.ReportFormat) (*dto.Booklet, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.buildBooklet(ctx, actor.InstituteName, body, format)
}

// buildBooklet gathers the institute's approved documents for body and
// renders them. Files that cannot be read are left out of the artifact and
// marked as skipped in its index.
func (s *ExportService) buildBooklet(ctx context.Context, institute, body string, format models.ReportFormat) (*dto.Booklet, error) {
	started := s.now()
	body = strings.ToUpper(strings.TrimSpace(body))
	if format == "" {
		format = models.ReportFormatPDF
	}
	if format != models.ReportFormatPDF && format != models.ReportFormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	docs, err := s.documents.ApprovedForReport(ctx, institute, body)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no approved documents for %s", body))
	}

	var contents [][]byte
	if format == models.ReportFormatPDF {
		contents = s.readFiles(ctx, docs)
	} else {
		contents = s.probeFiles(ctx, docs)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := make([]models.ReportEntry, len(docs))
	skipped := 0
	for i, doc := range docs {
		entries[i] = models.ReportEntry{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Category:   doc.Category,
			OwnerName:  doc.OwnerName,
			ApprovedAt: doc.UpdatedAt,
			Included:   contents[i] != nil,
		}
		if contents[i] == nil {
			skipped++
		}
	}

	title := fmt.Sprintf("%s Accreditation Report - %s", body, institute)
	index := bookletIndex(entries)
	booklet := &dto.Booklet{
		Filename: fmt.Sprintf("%s_Report.%s", body, format),
		Entries:  entries,
		Skipped:  skipped,
	}

	switch format {
	case models.ReportFormatCSV:
		booklet.ContentType = "text/csv"
		booklet.Content, err = s.csv.Render(index)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report index")
		}
	default:
		booklet.ContentType = "application/pdf"
		cover, err := s.pdf.Render(index, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report cover")
		}
		parts := make([][]byte, 0, len(contents)+1)
		parts = append(parts, cover)
		for _, content := range contents {
			if content != nil {
				parts = append(parts, content)
			}
		}
		booklet.Content, err = s.merger.Merge(ctx, parts)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDependency.Code, appErrors.ErrDependency.Status, "failed to merge report documents")
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveReportBuild(string(format), skipped, s.now().Sub(started))
	}
	s.logger.Info("report booklet built",
		zap.String("institute", institute),
		zap.String("body", body),
		zap.String("format", string(format)),
		zap.Int("documents", len(docs)),
		zap.Int("skipped", skipped),
	)
	return booklet, nil
}

// readFiles loads every document file with bounded parallelism. The result is
// positional: a nil slot means the file was skipped.
func (s *ExportService) readFiles(ctx context.Context, docs []models.DocumentSummary) [][]byte {
	out := make([][]byte, len(docs))
	sem := make(chan struct{}, s.cfg.ReadConcurrency)
	var wg sync.WaitGroup
	for i := range docs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return out
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = s.readOne(ctx, docs[i])
		}(i)
	}
	wg.Wait()
	return out
}

// probeFiles is readFiles for index-only formats: contents are dropped once
// the file is known to be readable.
func (s *ExportService) probeFiles(ctx context.Context, docs []models.DocumentSummary) [][]byte {
	out := s.readFiles(ctx, docs)
	for i := range out {
		if out[i] != nil {
			out[i] = []byte{}
		}
	}
	return out
}

func (s *ExportService) readOne(ctx context.Context, doc models.DocumentSummary) []byte {
	fields := []zap.Field{zap.String("document_id", doc.ID), zap.String("file_path", doc.FilePath)}
	if s.blobs == nil {
		s.logger.Warn("skipping document: no blob store configured", fields...)
		return nil
	}
	data, err := s.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		s.logger.Warn("skipping unreadable document", append(fields, zap.Error(err))...)
		return nil
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		s.logger.Warn("skipping document that is not a PDF", fields...)
		return nil
	}
	if v, ok := s.merger.(pdfValidator); ok {
		if err := v.Validate(data); err != nil {
			s.logger.Warn("skipping corrupt PDF", append(fields, zap.Error(err))...)
			return nil
		}
	}
	return data
}

func bookletIndex(entries []models.ReportEntry) export.Dataset {
	headers := []string{"#", "Category", "Title", "Uploaded By", "Approved At", "Included"}
	rows := make([]map[string]string, 0, len(entries))
	for i, entry := range entries {
		included := "yes"
		if !entry.Included {
			included = "skipped"
		}
		rows = append(rows, map[string]string{
			"#":           fmt.Sprintf("%d", i+1),
			"Category":    entry.Category,
			"Title":       entry.Title,
			"Uploaded By": entry.OwnerName,
			"Approved At": entry.ApprovedAt.UTC().Format(time.RFC3339),
			"Included":    included,
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

// Generate builds the booklet described by a queued job, stores it and signs
// a download link for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format := job.Params.Format
	if format == "" {
		format = models.ReportFormatPDF
	}
	booklet, err := s.buildBooklet(ctx, job.InstituteName, job.Params.Body, format)
	if err != nil {
		return nil, err
	}
	relPath, err := s.exports.Put(ctx, s.buildFilename(job.InstituteName, booklet.Filename), booklet.Content)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to a stored export.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.exports.Open(relPath)
}

// Delete removes a stored export.
func (s *ExportService) Delete(relPath string) error {
	return s.exports.Delete(relPath)
}

// Cleanup removes exports older than ttl (defaults to ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.exports.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(institute, bookletName string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	ext := filepath.Ext(bookletName)
	base := strings.TrimSuffix(bookletName, ext)
	return fmt.Sprintf("%s_%s_%s%s", sanitizeFilename(institute), sanitizeFilename(base), timestamp, ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
