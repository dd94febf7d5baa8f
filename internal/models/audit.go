package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionLogout         = "LOGOUT"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionSchoolCreate   = "SCHOOL_CREATE"
	AuditActionSchoolUpdate   = "SCHOOL_UPDATE"
	AuditActionSchoolModerate = "SCHOOL_MODERATE"
	AuditActionSchoolDelete   = "SCHOOL_DELETE"
	AuditActionNeedCreate     = "NEED_CREATE"
	AuditActionNeedUpdate     = "NEED_UPDATE"
	AuditActionNeedStatus     = "NEED_STATUS"
	AuditActionNeedDelete     = "NEED_DELETE"
	AuditActionPageChange     = "PAGE_CHANGE"
	AuditActionUpload         = "UPLOAD"
	AuditActionExportCreate   = "EXPORT_CREATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	UserID   string
	Action   string
	Resource string
	Page     int
	PageSize int
}
