package repository

import (
	"database/sql"
	"fmt"
	"time"

	"prodline/models"
)

// MaintenanceRepository handles database operations for preventive
// maintenance schedules and logs
type MaintenanceRepository struct {
	db *sql.DB
}

// NewMaintenanceRepository creates a new maintenance repository
func NewMaintenanceRepository(db *sql.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

const pmScheduleColumns = `
	ps.id, ps.schedule_name, ps.machine_id, ps.maintenance_type, ps.description,
	ps.frequency_type, ps.frequency_value, ps.next_due_at, ps.last_performed_at,
	ps.estimated_duration_minutes, ps.assigned_technician_id, ps.priority,
	ps.checklist, ps.parts_required, ps.is_active, ps.created_by_id,
	ps.created_at, ps.updated_at
`

func scanPmSchedule(row interface{ Scan(...interface{}) error }) (*models.PreventiveMaintenanceSchedule, error) {
	var s models.PreventiveMaintenanceSchedule
	err := row.Scan(
		&s.ScheduleID,
		&s.ScheduleName,
		&s.MachineID,
		&s.MaintenanceType,
		&s.Description,
		&s.FrequencyType,
		&s.FrequencyValue,
		&s.NextDueAt,
		&s.LastPerformedAt,
		&s.EstimatedDurationMinutes,
		&s.AssignedTechnicianID,
		&s.Priority,
		&s.Checklist,
		&s.PartsRequired,
		&s.IsActive,
		&s.CreatedByID,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSchedule inserts a new preventive maintenance schedule
func (r *MaintenanceRepository) CreateSchedule(s *models.PreventiveMaintenanceSchedule) error {
	query := `
		INSERT INTO preventive_maintenance_schedules
		(schedule_name, machine_id, maintenance_type, description, frequency_type,
		 frequency_value, next_due_at, estimated_duration_minutes, assigned_technician_id,
		 priority, checklist, parts_required, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		s.ScheduleName,
		s.MachineID,
		s.MaintenanceType,
		s.Description,
		s.FrequencyType,
		s.FrequencyValue,
		s.NextDueAt,
		s.EstimatedDurationMinutes,
		s.AssignedTechnicianID,
		s.Priority,
		s.Checklist,
		s.PartsRequired,
		s.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("failed to create PM schedule: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get PM schedule ID: %w", err)
	}
	s.ScheduleID = id
	s.IsActive = true
	return nil
}

// GetSchedule retrieves one schedule by id
func (r *MaintenanceRepository) GetSchedule(id int64) (*models.PreventiveMaintenanceSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM preventive_maintenance_schedules ps WHERE ps.id = ?`, pmScheduleColumns)
	s, err := scanPmSchedule(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get PM schedule: %w", err)
	}
	return s, nil
}

// ListSchedules retrieves schedules, optionally narrowed to one machine and
// to active rows only, ordered by due date
func (r *MaintenanceRepository) ListSchedules(machineID int64, activeOnly bool) ([]models.PreventiveMaintenanceSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM preventive_maintenance_schedules ps WHERE 1=1`, pmScheduleColumns)
	args := []interface{}{}

	if machineID > 0 {
		query += " AND ps.machine_id = ?"
		args = append(args, machineID)
	}
	if activeOnly {
		query += " AND ps.is_active = TRUE"
	}
	query += " ORDER BY ps.next_due_at"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query PM schedules: %w", err)
	}
	defer rows.Close()

	var schedules []models.PreventiveMaintenanceSchedule
	for rows.Next() {
		s, err := scanPmSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan PM schedule: %w", err)
		}
		schedules = append(schedules, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating PM schedules: %w", err)
	}
	return schedules, nil
}

// UpdateSchedule updates every mutable field of a schedule
func (r *MaintenanceRepository) UpdateSchedule(s *models.PreventiveMaintenanceSchedule) error {
	query := `
		UPDATE preventive_maintenance_schedules SET
			schedule_name = ?, maintenance_type = ?, description = ?,
			frequency_type = ?, frequency_value = ?, estimated_duration_minutes = ?,
			assigned_technician_id = ?, priority = ?, checklist = ?,
			parts_required = ?, is_active = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(
		query,
		s.ScheduleName,
		s.MaintenanceType,
		s.Description,
		s.FrequencyType,
		s.FrequencyValue,
		s.EstimatedDurationMinutes,
		s.AssignedTechnicianID,
		s.Priority,
		s.Checklist,
		s.PartsRequired,
		s.IsActive,
		s.ScheduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to update PM schedule: %w", err)
	}
	return nil
}

// DeactivateSchedule soft-deletes a schedule
func (r *MaintenanceRepository) DeactivateSchedule(id int64) error {
	_, err := r.db.Exec(
		`UPDATE preventive_maintenance_schedules SET is_active = FALSE WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate PM schedule: %w", err)
	}
	return nil
}

// SaveRecurrence stamps the performed time and the recomputed due date
func (r *MaintenanceRepository) SaveRecurrence(id int64, performedAt, nextDueAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE preventive_maintenance_schedules
		 SET last_performed_at = ?, next_due_at = ?
		 WHERE id = ?`,
		performedAt, nextDueAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save PM recurrence: %w", err)
	}
	return nil
}

// CreateLog inserts one performed maintenance event
func (r *MaintenanceRepository) CreateLog(l *models.PreventiveMaintenanceLog) error {
	query := `
		INSERT INTO preventive_maintenance_logs
		(schedule_id, performed_at, performed_by_id, duration_minutes,
		 checklist_results, parts_used, observations, next_recommended_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		l.ScheduleID,
		l.PerformedAt,
		l.PerformedByID,
		l.DurationMinutes,
		l.ChecklistResults,
		l.PartsUsed,
		l.Observations,
		l.NextRecommendedDate,
		l.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create PM log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get PM log ID: %w", err)
	}
	l.LogID = id
	return nil
}

// ListLogs retrieves a schedule's performed events, newest first
func (r *MaintenanceRepository) ListLogs(scheduleID int64) ([]models.PreventiveMaintenanceLog, error) {
	query := `
		SELECT id, schedule_id, performed_at, performed_by_id, duration_minutes,
		       checklist_results, parts_used, observations, next_recommended_date,
		       status, created_at
		FROM preventive_maintenance_logs
		WHERE schedule_id = ?
		ORDER BY performed_at DESC
	`
	rows, err := r.db.Query(query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query PM logs: %w", err)
	}
	defer rows.Close()

	var logs []models.PreventiveMaintenanceLog
	for rows.Next() {
		var l models.PreventiveMaintenanceLog
		err := rows.Scan(
			&l.LogID,
			&l.ScheduleID,
			&l.PerformedAt,
			&l.PerformedByID,
			&l.DurationMinutes,
			&l.ChecklistResults,
			&l.PartsUsed,
			&l.Observations,
			&l.NextRecommendedDate,
			&l.Status,
			&l.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan PM log: %w", err)
		}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating PM logs: %w", err)
	}
	return logs, nil
}

// DueSoon retrieves active schedules whose due date falls on or before the
// cutoff, joined with machine name and owning department
func (r *MaintenanceRepository) DueSoon(cutoff time.Time) ([]models.DueSchedule, error) {
	query := fmt.Sprintf(`
		SELECT %s, m.machine_name, m.department_id
		FROM preventive_maintenance_schedules ps
		LEFT JOIN machines m ON ps.machine_id = m.id
		WHERE ps.next_due_at <= ?
		AND ps.is_active = TRUE
	`, pmScheduleColumns)

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query due PM schedules: %w", err)
	}
	defer rows.Close()

	var due []models.DueSchedule
	for rows.Next() {
		var d models.DueSchedule
		err := rows.Scan(
			&d.ScheduleID,
			&d.ScheduleName,
			&d.MachineID,
			&d.MaintenanceType,
			&d.Description,
			&d.FrequencyType,
			&d.FrequencyValue,
			&d.NextDueAt,
			&d.LastPerformedAt,
			&d.EstimatedDurationMinutes,
			&d.AssignedTechnicianID,
			&d.Priority,
			&d.Checklist,
			&d.PartsRequired,
			&d.IsActive,
			&d.CreatedByID,
			&d.CreatedAt,
			&d.UpdatedAt,
			&d.MachineName,
			&d.DepartmentID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due PM schedule: %w", err)
		}
		due = append(due, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due PM schedules: %w", err)
	}
	return due, nil
}
