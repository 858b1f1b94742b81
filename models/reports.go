package models

import (
	"database/sql"
	"time"
)

// EmailReport is a scheduled report definition; the engine only dispatches
// and advances the recurrence, generation belongs to the reporting layer
type EmailReport struct {
	ReportID       int64          `db:"id" json:"id"`
	ReportName     string         `db:"report_name" json:"report_name"`
	ScheduleConfig sql.NullString `db:"schedule_config" json:"schedule_config"` // JSON {"frequency": "daily"|"weekly"|"monthly"}
	LastRunAt      sql.NullTime   `db:"last_run_at" json:"last_run_at"`
	NextRunAt      time.Time      `db:"next_run_at" json:"next_run_at"`
	IsActive       bool           `db:"is_active" json:"is_active"`
}

// ReportScheduleConfig is the parsed schedule_config payload
type ReportScheduleConfig struct {
	Frequency string `json:"frequency"`
}

// D365SyncConfig is a Dynamics 365 sync trigger definition (sync itself is
// handled by the integration layer)
type D365SyncConfig struct {
	ConfigID   int64        `db:"id" json:"id"`
	ConfigName string       `db:"config_name" json:"config_name"`
	LastSyncAt sql.NullTime `db:"last_sync_at" json:"last_sync_at"`
	NextSyncAt time.Time    `db:"next_sync_at" json:"next_sync_at"`
	IsActive   bool         `db:"is_active" json:"is_active"`
}
