package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shams-connect/school-needs-api/internal/models"
)

// ExportRepository manages persistence for export job records.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// UpdateExportJobParams describes a partial job update.
type UpdateExportJobParams struct {
	Status       *models.ExportStatus
	Progress     *int
	FilePath     *string
	ErrorMessage *string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

type exportJobRow struct {
	ID           string     `db:"id"`
	Params       []byte     `db:"params"`
	Status       string     `db:"status"`
	Progress     int        `db:"progress"`
	FilePath     *string    `db:"file_path"`
	ErrorMessage *string    `db:"error_message"`
	CreatedBy    string     `db:"created_by"`
	CreatedAt    time.Time  `db:"created_at"`
	StartedAt    *time.Time `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
}

func (row exportJobRow) toModel() (*models.ExportJob, error) {
	job := &models.ExportJob{
		ID:           row.ID,
		Status:       models.ExportStatus(row.Status),
		Progress:     row.Progress,
		FilePath:     row.FilePath,
		ErrorMessage: row.ErrorMessage,
		CreatedBy:    row.CreatedBy,
		CreatedAt:    row.CreatedAt,
		StartedAt:    row.StartedAt,
		FinishedAt:   row.FinishedAt,
	}
	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &job.Params); err != nil {
			return nil, fmt.Errorf("decode export params: %w", err)
		}
	}
	return job, nil
}

// Create inserts a new export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("encode export params: %w", err)
	}
	const query = `INSERT INTO export_jobs (id, params, status, progress, created_by, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, job.ID, params, job.Status, job.Progress, job.CreatedBy, job.CreatedAt); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID loads a single export job.
func (r *ExportRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, params, status, progress, file_path, error_message, created_by, created_at, started_at, finished_at
        FROM export_jobs WHERE id = $1`
	var row exportJobRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Update applies a partial update to a job.
func (r *ExportRepository) Update(ctx context.Context, id string, params UpdateExportJobParams) error {
	sets := []string{}
	args := []interface{}{id}

	appendSet := func(column string, value interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)+1))
		args = append(args, value)
	}

	if params.Status != nil {
		appendSet("status", *params.Status)
	}
	if params.Progress != nil {
		appendSet("progress", *params.Progress)
	}
	if params.FilePath != nil {
		appendSet("file_path", *params.FilePath)
	}
	if params.ErrorMessage != nil {
		appendSet("error_message", *params.ErrorMessage)
	}
	if params.StartedAt != nil {
		appendSet("started_at", *params.StartedAt)
	}
	if params.FinishedAt != nil {
		appendSet("finished_at", *params.FinishedAt)
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $1", strings.Join(sets, ", "))
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}

// ListQueued returns jobs waiting to be processed, oldest first.
func (r *ExportRepository) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, params, status, progress, file_path, error_message, created_by, created_at, started_at, finished_at
        FROM export_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT %d`, limit)

	var rows []exportJobRow
	if err := r.db.SelectContext(ctx, &rows, query, models.ExportStatusQueued); err != nil {
		return nil, fmt.Errorf("list queued export jobs: %w", err)
	}
	jobs := make([]models.ExportJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toModel()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

// ListFinishedBefore returns completed jobs older than the cutoff, for cleanup.
func (r *ExportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, params, status, progress, file_path, error_message, created_by, created_at, started_at, finished_at
        FROM export_jobs WHERE status IN ($1, $2) AND finished_at IS NOT NULL AND finished_at < $3 ORDER BY finished_at ASC LIMIT %d`, limit)

	var rows []exportJobRow
	if err := r.db.SelectContext(ctx, &rows, query, models.ExportStatusDone, models.ExportStatusFailed, cutoff); err != nil {
		return nil, fmt.Errorf("list finished export jobs: %w", err)
	}
	jobs := make([]models.ExportJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toModel()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
