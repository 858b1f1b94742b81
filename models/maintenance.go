package models

import (
	"database/sql"
	"time"
)

// FrequencyType represents a preventive-maintenance recurrence rule.
// Monthly/quarterly/yearly use fixed day counts rather than calendar
// arithmetic; unknown types fall back to 30 days.
type FrequencyType string

const (
	FrequencyDaily     FrequencyType = "daily"
	FrequencyWeekly    FrequencyType = "weekly"
	FrequencyMonthly   FrequencyType = "monthly"
	FrequencyQuarterly FrequencyType = "quarterly"
	FrequencyYearly    FrequencyType = "yearly"
)

// MaintenanceLogStatus is the outcome recorded for a performed maintenance event
type MaintenanceLogStatus string

const (
	MaintenanceCompleted MaintenanceLogStatus = "completed"
	MaintenancePartial   MaintenanceLogStatus = "partial"
	MaintenanceAborted   MaintenanceLogStatus = "aborted"
)

// PreventiveMaintenanceSchedule is a recurring maintenance obligation for one machine
type PreventiveMaintenanceSchedule struct {
	ScheduleID               int64          `db:"id" json:"id"`
	ScheduleName             string         `db:"schedule_name" json:"schedule_name"`
	MachineID                int64          `db:"machine_id" json:"machine_id"`
	MaintenanceType          string         `db:"maintenance_type" json:"maintenance_type"`
	Description              sql.NullString `db:"description" json:"description"`
	FrequencyType            FrequencyType  `db:"frequency_type" json:"frequency_type"`
	FrequencyValue           int            `db:"frequency_value" json:"frequency_value"`
	NextDueAt                time.Time      `db:"next_due_at" json:"next_due_at"`
	LastPerformedAt          sql.NullTime   `db:"last_performed_at" json:"last_performed_at"`
	EstimatedDurationMinutes sql.NullInt64  `db:"estimated_duration_minutes" json:"estimated_duration_minutes"`
	AssignedTechnicianID     sql.NullInt64  `db:"assigned_technician_id" json:"assigned_technician_id"`
	Priority                 Priority       `db:"priority" json:"priority"`
	Checklist                sql.NullString `db:"checklist" json:"checklist"`           // JSON
	PartsRequired            sql.NullString `db:"parts_required" json:"parts_required"` // JSON
	IsActive                 bool           `db:"is_active" json:"is_active"`
	CreatedByID              sql.NullInt64  `db:"created_by_id" json:"created_by_id"`
	CreatedAt                time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt                sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// DueSchedule joins a schedule with the machine fields the due-soon
// notification needs
type DueSchedule struct {
	PreventiveMaintenanceSchedule
	MachineName  sql.NullString `db:"machine_name" json:"machine_name"`
	DepartmentID sql.NullInt64  `db:"department_id" json:"department_id"`
}

// PreventiveMaintenanceLog is one performed maintenance event (immutable)
type PreventiveMaintenanceLog struct {
	LogID               int64                `db:"id" json:"id"`
	ScheduleID          int64                `db:"schedule_id" json:"schedule_id"`
	PerformedAt         time.Time            `db:"performed_at" json:"performed_at"`
	PerformedByID       int64                `db:"performed_by_id" json:"performed_by_id"`
	DurationMinutes     sql.NullInt64        `db:"duration_minutes" json:"duration_minutes"`
	ChecklistResults    sql.NullString       `db:"checklist_results" json:"checklist_results"` // JSON
	PartsUsed           sql.NullString       `db:"parts_used" json:"parts_used"`               // JSON
	Observations        sql.NullString       `db:"observations" json:"observations"`
	NextRecommendedDate sql.NullTime         `db:"next_recommended_date" json:"next_recommended_date"`
	Status              MaintenanceLogStatus `db:"status" json:"status"`
	CreatedAt           time.Time            `db:"created_at" json:"created_at"`
}

// CreatePmScheduleRequest is the POST /api/maintenance/preventive payload
type CreatePmScheduleRequest struct {
	ScheduleName             string        `json:"schedule_name"`
	MachineID                int64         `json:"machine_id"`
	MaintenanceType          string        `json:"maintenance_type"`
	Description              string        `json:"description,omitempty"`
	FrequencyType            FrequencyType `json:"frequency_type"`
	FrequencyValue           int           `json:"frequency_value"`
	LastPerformedAt          *time.Time    `json:"last_performed_at,omitempty"`
	EstimatedDurationMinutes *int64        `json:"estimated_duration_minutes,omitempty"`
	AssignedTechnicianID     *int64        `json:"assigned_technician_id,omitempty"`
	Priority                 Priority      `json:"priority,omitempty"`
	Checklist                []string      `json:"checklist,omitempty"`
	PartsRequired            []string      `json:"parts_required,omitempty"`
}

// UpdatePmScheduleRequest is the PUT payload; nil fields keep current values
type UpdatePmScheduleRequest struct {
	ScheduleName             *string        `json:"schedule_name,omitempty"`
	MaintenanceType          *string        `json:"maintenance_type,omitempty"`
	Description              *string        `json:"description,omitempty"`
	FrequencyType            *FrequencyType `json:"frequency_type,omitempty"`
	FrequencyValue           *int           `json:"frequency_value,omitempty"`
	EstimatedDurationMinutes *int64         `json:"estimated_duration_minutes,omitempty"`
	AssignedTechnicianID     *int64         `json:"assigned_technician_id,omitempty"`
	Priority                 *Priority      `json:"priority,omitempty"`
	IsActive                 *bool          `json:"is_active,omitempty"`
}

// LogPmRequest is the POST .../log payload
type LogPmRequest struct {
	PerformedAt         *time.Time           `json:"performed_at,omitempty"` // defaults to now
	DurationMinutes     *int64               `json:"duration_minutes,omitempty"`
	ChecklistResults    map[string]bool      `json:"checklist_results,omitempty"`
	PartsUsed           []string             `json:"parts_used,omitempty"`
	Observations        string               `json:"observations,omitempty"`
	NextRecommendedDate *time.Time           `json:"next_recommended_date,omitempty"`
	Status              MaintenanceLogStatus `json:"status,omitempty"` // defaults to completed
	MachineStatus       MachineStatus        `json:"machine_status,omitempty"`
}
