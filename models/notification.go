package models

import (
	"database/sql"
	"time"
)

// Notification types emitted by the workflow engine
const (
	NotificationSlaAlert       = "sla_alert"
	NotificationSopFailure     = "sop_failure"
	NotificationSopReassigned  = "sop_reassigned"
	NotificationSopEscalation  = "sop_escalation"
	NotificationSopHodDecision = "sop_hod_decision"
	NotificationMaintenanceDue = "maintenance_due"
	NotificationPmAssigned     = "preventive_maintenance"
)

// Notification is an in-app notification row consumed by the notifications
// API; the engine treats creation as fire-and-forget
type Notification struct {
	NotificationID    int64          `db:"id" json:"id"`
	RecipientID       int64          `db:"recipient_id" json:"recipient_id"`
	NotificationType  string         `db:"notification_type" json:"notification_type"`
	Title             string         `db:"title" json:"title"`
	Message           string         `db:"message" json:"message"`
	RelatedEntityType sql.NullString `db:"related_entity_type" json:"related_entity_type"`
	RelatedEntityID   sql.NullInt64  `db:"related_entity_id" json:"related_entity_id"`
	ActionURL         sql.NullString `db:"action_url" json:"action_url"`
	Priority          Priority       `db:"priority" json:"priority"`
	IsRead            bool           `db:"is_read" json:"is_read"`
	ReadAt            sql.NullTime   `db:"read_at" json:"read_at"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}

// NotificationRequest is what engine components hand to the sink
type NotificationRequest struct {
	RecipientID       int64
	NotificationType  string
	Title             string
	Message           string
	RelatedEntityType string
	RelatedEntityID   int64
	ActionURL         string
	Priority          Priority
}
