package repository

import (
	"database/sql"
	"fmt"
	"time"

	"prodline/models"
)

// ReportRepository handles database operations for scheduled email reports
// and Dynamics 365 sync triggers
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// DueReports returns active reports whose next run is at or before now
func (r *ReportRepository) DueReports(now time.Time) ([]models.EmailReport, error) {
	query := `
		SELECT id, report_name, schedule_config, last_run_at, next_run_at, is_active
		FROM email_reports
		WHERE is_active = TRUE AND next_run_at <= ?`

	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reports: %w", err)
	}
	defer rows.Close()

	var reports []models.EmailReport
	for rows.Next() {
		var rep models.EmailReport
		err := rows.Scan(
			&rep.ReportID,
			&rep.ReportName,
			&rep.ScheduleConfig,
			&rep.LastRunAt,
			&rep.NextRunAt,
			&rep.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// UpdateReportRun records a dispatch and advances the recurrence
func (r *ReportRepository) UpdateReportRun(id int64, lastRun, nextRun time.Time) error {
	_, err := r.db.Exec(`UPDATE email_reports SET last_run_at = ?, next_run_at = ? WHERE id = ?`,
		lastRun, nextRun, id)
	if err != nil {
		return fmt.Errorf("failed to update report run: %w", err)
	}
	return nil
}

// DueSyncConfigs returns active D365 sync configs whose next sync is at or before now
func (r *ReportRepository) DueSyncConfigs(now time.Time) ([]models.D365SyncConfig, error) {
	query := `
		SELECT id, config_name, last_sync_at, next_sync_at, is_active
		FROM d365_integration_config
		WHERE is_active = TRUE AND next_sync_at <= ?`

	rows, err := r.db.Query(query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due sync configs: %w", err)
	}
	defer rows.Close()

	var configs []models.D365SyncConfig
	for rows.Next() {
		var c models.D365SyncConfig
		err := rows.Scan(&c.ConfigID, &c.ConfigName, &c.LastSyncAt, &c.NextSyncAt, &c.IsActive)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// UpdateSyncRun records a sync trigger and advances the recurrence
func (r *ReportRepository) UpdateSyncRun(id int64, lastSync, nextSync time.Time) error {
	_, err := r.db.Exec(`UPDATE d365_integration_config SET last_sync_at = ?, next_sync_at = ? WHERE id = ?`,
		lastSync, nextSync, id)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return nil
}
