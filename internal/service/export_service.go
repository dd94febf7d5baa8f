package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shams-connect/school-needs-api/internal/listing"
	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/repository"
	appErrors "github.com/shams-connect/school-needs-api/pkg/errors"
	"github.com/shams-connect/school-needs-api/pkg/export"
	"github.com/shams-connect/school-needs-api/pkg/jobs"
	"github.com/shams-connect/school-needs-api/pkg/storage"
)

const exportBatchSize = 500

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type exportNeedSource interface {
	ListAll(ctx context.Context, schoolID string) ([]models.NeedDetail, error)
}

type exportEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateExportRequest freezes a need-listing scope into a job.
type CreateExportRequest struct {
	Format      models.ExportFormat `json:"format" validate:"required"`
	SchoolID    string              `json:"school_id,omitempty"`
	Category    string              `json:"category,omitempty"`
	Priority    string              `json:"priority,omitempty"`
	Status      string              `json:"status,omitempty"`
	Governorate string              `json:"governorate,omitempty"`
	Search      string              `json:"search,omitempty"`
	Sort        string              `json:"sort,omitempty"`
}

// ExportDownload describes a ready export file.
type ExportDownload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportService runs asynchronous need-listing exports through the job
// queue, renders them to local storage and hands out signed download
// tokens.
type ExportService struct {
	repo    exportJobRepository
	needs   exportNeedSource
	queue   exportEnqueuer
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	fileTTL time.Duration
	logger  *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(repo exportJobRepository, needs exportNeedSource, store *storage.LocalStorage, signer *storage.SignedURLSigner, fileTTL time.Duration, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fileTTL <= 0 {
		fileTTL = 24 * time.Hour
	}
	return &ExportService{
		repo:    repo,
		needs:   needs,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		fileTTL: fileTTL,
		logger:  logger,
	}
}

// AttachQueue wires the queue used for dispatching jobs. Set after
// construction because the queue handler needs the service.
func (s *ExportService) AttachQueue(queue exportEnqueuer) {
	s.queue = queue
}

// Create enqueues a new export job and returns its record.
func (s *ExportService) Create(ctx context.Context, actorID string, req CreateExportRequest) (*models.ExportJob, error) {
	if req.Format != models.ExportFormatCSV && req.Format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ExportJob{
		ID: uuid.NewString(),
		Params: models.ExportJobParams{
			SchoolID:    req.SchoolID,
			Category:    req.Category,
			Priority:    req.Priority,
			Status:      req.Status,
			Governorate: req.Governorate,
			Search:      req.Search,
			Sort:        req.Sort,
			Format:      req.Format,
		},
		Status:    models.ExportStatusQueued,
		CreatedBy: actorID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export", Payload: job.ID}); err != nil {
			s.logger.Warn("failed to enqueue export job, recovery sweep will pick it up", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
	return job, nil
}

// Get returns the job status. Non-admin callers only see their own jobs.
func (s *ExportService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.ExportJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if actor.Role != models.RoleAdmin && job.CreatedBy != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Download exchanges a finished job for a signed download token.
func (s *ExportService) Download(ctx context.Context, id string, actor *models.JWTClaims) (*ExportDownload, error) {
	job, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if job.Status != models.ExportStatusDone || job.FilePath == nil || *job.FilePath == "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, "export is not ready for download")
	}

	token, expiresAt, err := s.signer.Generate(job.ID, *job.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download")
	}
	return &ExportDownload{Token: token, ExpiresAt: expiresAt}, nil
}

// Resolve validates a signed token and opens the referenced file.
func (s *ExportService) Resolve(ctx context.Context, token string) (*models.ExportJob, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}

	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.FilePath == nil || *job.FilePath == "" || *job.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "token does not match the stored file")
	}
	return job, s.store.Path(relPath), nil
}

// Handle is the queue handler. The payload is the job ID; the record is
// reloaded so a restart-recovered job runs identically.
func (s *ExportService) Handle(ctx context.Context, job jobs.Job) error {
	jobID, ok := job.Payload.(string)
	if !ok || jobID == "" {
		return fmt.Errorf("export job payload must be a job id")
	}
	return s.process(ctx, jobID)
}

func (s *ExportService) process(ctx context.Context, jobID string) error {
	record, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if record.Status == models.ExportStatusDone {
		return nil
	}

	now := time.Now().UTC()
	processing := models.ExportStatusProcessing
	if err := s.repo.Update(ctx, jobID, repository.UpdateExportJobParams{Status: &processing, StartedAt: &now}); err != nil {
		return fmt.Errorf("mark export job processing: %w", err)
	}

	data, renderErr := s.render(ctx, record.Params)
	if renderErr != nil {
		s.markFailed(ctx, jobID, renderErr)
		return renderErr
	}

	filename := path.Join("exports", fmt.Sprintf("needs-%s.%s", jobID, record.Params.Format))
	if _, err := s.store.Save(filename, data); err != nil {
		s.markFailed(ctx, jobID, err)
		return fmt.Errorf("store export file: %w", err)
	}

	done := models.ExportStatusDone
	progress := 100
	finished := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:     &done,
		Progress:   &progress,
		FilePath:   &filename,
		FinishedAt: &finished,
	}); err != nil {
		return fmt.Errorf("mark export job done: %w", err)
	}

	s.logger.Info("export job completed", zap.String("job_id", jobID), zap.String("file", filename))
	return nil
}

func (s *ExportService) render(ctx context.Context, params models.ExportJobParams) ([]byte, error) {
	needs, err := s.needs.ListAll(ctx, params.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("load needs for export: %w", err)
	}
	needs = filterForExport(needs, params)

	dataset := export.Dataset{
		Headers: []string{"ID", "School", "Governorate", "Title", "Category", "Priority", "Quantity", "Status", "Created"},
	}
	for _, need := range needs {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":          need.ID,
			"School":      need.SchoolName,
			"Governorate": need.SchoolGovernorate,
			"Title":       need.Title,
			"Category":    string(need.Category),
			"Priority":    string(need.Priority),
			"Quantity":    strconv.Itoa(need.Quantity),
			"Status":      string(need.Status),
			"Created":     need.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	switch params.Format {
	case models.ExportFormatPDF:
		return s.pdf.Render(dataset, "School Needs")
	default:
		return s.csv.Render(dataset)
	}
}

func (s *ExportService) markFailed(ctx context.Context, jobID string, cause error) {
	failed := models.ExportStatusFailed
	message := cause.Error()
	finished := time.Now().UTC()
	if err := s.repo.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &message,
		FinishedAt:   &finished,
	}); err != nil {
		s.logger.Error("failed to mark export job failed", zap.Error(err), zap.String("job_id", jobID))
	}
}

// RecoverQueued re-enqueues jobs that were queued before a restart.
func (s *ExportService) RecoverQueued(ctx context.Context) error {
	queued, err := s.repo.ListQueued(ctx, exportBatchSize)
	if err != nil {
		return fmt.Errorf("list queued export jobs: %w", err)
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "export", Payload: job.ID}); err != nil {
			s.logger.Warn("failed to re-enqueue export job", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
	if len(queued) > 0 {
		s.logger.Info("recovered queued export jobs", zap.Int("count", len(queued)))
	}
	return nil
}

// Cleanup removes files and truncates records for finished jobs older
// than the TTL. Run on a ticker from main.
func (s *ExportService) Cleanup(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.fileTTL)
	finished, err := s.repo.ListFinishedBefore(ctx, cutoff, exportBatchSize)
	if err != nil {
		return fmt.Errorf("list finished export jobs: %w", err)
	}
	for _, job := range finished {
		if job.FilePath == nil || *job.FilePath == "" {
			continue
		}
		if err := s.store.Delete(*job.FilePath); err != nil {
			s.logger.Warn("failed to delete export file", zap.Error(err), zap.String("job_id", job.ID))
			continue
		}
		cleared := ""
		if err := s.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{FilePath: &cleared}); err != nil {
			s.logger.Warn("failed to clear export file path", zap.Error(err), zap.String("job_id", job.ID))
		}
	}
	return nil
}

func filterForExport(needs []models.NeedDetail, params models.ExportJobParams) []models.NeedDetail {
	filtered := listing.FilterNeeds(needs, listing.NeedCriteria{
		Category:    params.Category,
		Priority:    params.Priority,
		Status:      params.Status,
		Governorate: params.Governorate,
		Search:      params.Search,
	})
	return listing.SortNeeds(filtered, listing.ParseSortKey(params.Sort))
}
