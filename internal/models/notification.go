package models

import "time"

// NotificationType categorises what triggered a notification.
type NotificationType string

const (
	NotificationTypeNeedCreated    NotificationType = "NEED_CREATED"
	NotificationTypeNeedStatus     NotificationType = "NEED_STATUS_CHANGED"
	NotificationTypeSchoolModerate NotificationType = "SCHOOL_MODERATED"
	NotificationTypeSystem         NotificationType = "SYSTEM"
)

// Notification represents a persisted per-user notification row.
type Notification struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"user_id"`
	Type       NotificationType `db:"type" json:"type"`
	Title      string           `db:"title" json:"title"`
	Body       string           `db:"body" json:"body"`
	ResourceID *string          `db:"resource_id" json:"resource_id,omitempty"`
	Read       bool             `db:"read" json:"read"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter narrows notification listings.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	PageSize   int
}
