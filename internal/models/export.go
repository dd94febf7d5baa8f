package models

import "time"

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks asynchronous export job progress.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusDone       ExportStatus = "DONE"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJobParams captures the listing scope frozen into a job.
type ExportJobParams struct {
	SchoolID    string       `json:"school_id,omitempty"`
	Category    string       `json:"category,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Status      string       `json:"status,omitempty"`
	Governorate string       `json:"governorate,omitempty"`
	Search      string       `json:"search,omitempty"`
	Sort        string       `json:"sort,omitempty"`
	Format      ExportFormat `json:"format"`
}

// ExportJob represents a queued need-listing export.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	FilePath     *string         `db:"file_path" json:"-"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	StartedAt    *time.Time      `db:"started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
}
