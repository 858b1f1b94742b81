package models

import (
	"database/sql"
	"time"
)

// SlaStatus represents the monitoring state of an SLA tracking row
type SlaStatus string

const (
	SlaOnTrack  SlaStatus = "on_track"
	SlaAtRisk   SlaStatus = "at_risk"
	SlaBreached SlaStatus = "breached"
	SlaResolved SlaStatus = "resolved"
)

// SlaConfiguration defines response/resolution deadlines, the escalation
// ladder and notification routing for one entity type (optionally scoped to
// a department and priority)
type SlaConfiguration struct {
	ConfigID              int64          `db:"id" json:"id"`
	SlaName               string         `db:"sla_name" json:"sla_name"`
	EntityType            string         `db:"entity_type" json:"entity_type"`
	DepartmentID          sql.NullInt64  `db:"department_id" json:"department_id"`
	Priority              Priority       `db:"priority" json:"priority"`
	ResponseTimeMinutes   sql.NullInt64  `db:"response_time_minutes" json:"response_time_minutes"`
	ResolutionTimeMinutes sql.NullInt64  `db:"resolution_time_minutes" json:"resolution_time_minutes"`
	EscalationLevels      sql.NullString `db:"escalation_levels" json:"escalation_levels"`   // JSON
	NotificationRules     sql.NullString `db:"notification_rules" json:"notification_rules"` // JSON
	IsActive              bool           `db:"is_active" json:"is_active"`
	CreatedByID           sql.NullInt64  `db:"created_by_id" json:"created_by_id"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// EscalationStep is one rung of the configured escalation ladder
type EscalationStep struct {
	Level      int   `json:"level"`
	EscalateTo int64 `json:"escalate_to"`
}

// NotificationRules maps an SLA event name (response_at_risk,
// response_breached, resolution_breached, escalated) to recipient user ids.
// A missing key means nobody is notified for that event.
type NotificationRules map[string][]int64

// EscalationEvent is one append-only entry of a tracking row's escalation history
type EscalationEvent struct {
	Level       int    `json:"level"`
	EscalatedAt string `json:"escalated_at"`
	EscalatedTo int64  `json:"escalated_to,omitempty"`
	EscalatedBy int64  `json:"escalated_by,omitempty"`
	Reason      string `json:"reason"`
}

// SlaTracking monitors one (entity_type, entity_id) pair against the
// deadlines of its configuration
type SlaTracking struct {
	TrackingID             int64          `db:"id" json:"id"`
	SlaConfigID            int64          `db:"sla_config_id" json:"sla_config_id"`
	EntityType             string         `db:"entity_type" json:"entity_type"`
	EntityID               int64          `db:"entity_id" json:"entity_id"`
	ResponseDueAt          sql.NullTime   `db:"response_due_at" json:"response_due_at"`
	ResolutionDueAt        sql.NullTime   `db:"resolution_due_at" json:"resolution_due_at"`
	RespondedAt            sql.NullTime   `db:"responded_at" json:"responded_at"`
	ResolvedAt             sql.NullTime   `db:"resolved_at" json:"resolved_at"`
	Status                 SlaStatus      `db:"status" json:"status"`
	CurrentEscalationLevel int            `db:"current_escalation_level" json:"current_escalation_level"`
	EscalationHistory      sql.NullString `db:"escalation_history" json:"escalation_history"` // JSON
	CreatedAt              time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt              sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// TrackedSla is a tracking row joined with the configuration fields the
// breach checks need (rule JSON is carried raw and parsed lazily)
type TrackedSla struct {
	SlaTracking
	SlaName           sql.NullString `db:"sla_name" json:"sla_name"`
	EscalationLevels  sql.NullString `db:"escalation_levels" json:"escalation_levels"`
	NotificationRules sql.NullString `db:"notification_rules" json:"notification_rules"`
}

// SlaConfigFilter narrows configuration list queries
type SlaConfigFilter struct {
	EntityType   string
	DepartmentID int64 // 0 = any
	ActiveOnly   bool
}

// SlaTrackingFilter narrows tracking list queries
type SlaTrackingFilter struct {
	EntityType string
	EntityID   int64 // 0 = any
	Status     SlaStatus
}

// CreateSlaConfigRequest is the POST /api/sla/configurations payload
type CreateSlaConfigRequest struct {
	SlaName               string            `json:"sla_name"`
	EntityType            string            `json:"entity_type"`
	DepartmentID          *int64            `json:"department_id,omitempty"`
	Priority              Priority          `json:"priority,omitempty"`
	ResponseTimeMinutes   *int64            `json:"response_time_minutes,omitempty"`
	ResolutionTimeMinutes *int64            `json:"resolution_time_minutes,omitempty"`
	EscalationLevels      []EscalationStep  `json:"escalation_levels"`
	NotificationRules     NotificationRules `json:"notification_rules,omitempty"`
}

// CreateSlaTrackingRequest is the POST /api/sla/tracking payload
type CreateSlaTrackingRequest struct {
	SlaConfigID int64  `json:"sla_config_id"`
	EntityType  string `json:"entity_type"`
	EntityID    int64  `json:"entity_id"`
}

// SlaCheckSummary reports what one breach-check pass did
type SlaCheckSummary struct {
	AtRisk             int       `json:"at_risk"`
	ResponseBreached   int       `json:"response_breached"`
	ResolutionBreached int       `json:"resolution_breached"`
	Escalated          int       `json:"escalated"`
	ProcessedAt        time.Time `json:"processed_at"`
}
