package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"prodline/models"
)

// SlaRepository handles database operations for SLA configurations and tracking
type SlaRepository struct {
	db *sql.DB
}

// NewSlaRepository creates a new SLA repository
func NewSlaRepository(db *sql.DB) *SlaRepository {
	return &SlaRepository{db: db}
}

const slaConfigColumns = `
	id, sla_name, entity_type, department_id, priority,
	response_time_minutes, resolution_time_minutes,
	escalation_levels, notification_rules, is_active,
	created_by_id, created_at, updated_at
`

func scanSlaConfig(row interface{ Scan(...interface{}) error }) (*models.SlaConfiguration, error) {
	var c models.SlaConfiguration
	err := row.Scan(
		&c.ConfigID,
		&c.SlaName,
		&c.EntityType,
		&c.DepartmentID,
		&c.Priority,
		&c.ResponseTimeMinutes,
		&c.ResolutionTimeMinutes,
		&c.EscalationLevels,
		&c.NotificationRules,
		&c.IsActive,
		&c.CreatedByID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConfiguration retrieves one SLA configuration by id
func (r *SlaRepository) GetConfiguration(id int64) (*models.SlaConfiguration, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_configurations WHERE id = ?`, slaConfigColumns)
	c, err := scanSlaConfig(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SLA configuration: %w", err)
	}
	return c, nil
}

// ListConfigurations retrieves SLA configurations matching the filter
func (r *SlaRepository) ListConfigurations(filter models.SlaConfigFilter) ([]models.SlaConfiguration, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_configurations WHERE 1=1`, slaConfigColumns)
	args := []interface{}{}

	if filter.EntityType != "" {
		query += " AND entity_type = ?"
		args = append(args, filter.EntityType)
	}
	if filter.DepartmentID > 0 {
		query += " AND department_id = ?"
		args = append(args, filter.DepartmentID)
	}
	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY entity_type, priority"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query SLA configurations: %w", err)
	}
	defer rows.Close()

	var configs []models.SlaConfiguration
	for rows.Next() {
		c, err := scanSlaConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SLA configuration: %w", err)
		}
		configs = append(configs, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating SLA configurations: %w", err)
	}
	return configs, nil
}

// CreateConfiguration inserts a new SLA configuration
func (r *SlaRepository) CreateConfiguration(c *models.SlaConfiguration) error {
	query := `
		INSERT INTO sla_configurations
		(sla_name, entity_type, department_id, priority,
		 response_time_minutes, resolution_time_minutes,
		 escalation_levels, notification_rules, created_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		c.SlaName,
		c.EntityType,
		c.DepartmentID,
		c.Priority,
		c.ResponseTimeMinutes,
		c.ResolutionTimeMinutes,
		c.EscalationLevels,
		c.NotificationRules,
		c.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("failed to create SLA configuration: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get SLA configuration ID: %w", err)
	}
	c.ConfigID = id
	return nil
}

// UpdateConfiguration updates every mutable field of an SLA configuration
func (r *SlaRepository) UpdateConfiguration(c *models.SlaConfiguration) error {
	query := `
		UPDATE sla_configurations SET
			sla_name = ?, entity_type = ?, department_id = ?,
			priority = ?, response_time_minutes = ?,
			resolution_time_minutes = ?, escalation_levels = ?,
			notification_rules = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(
		query,
		c.SlaName,
		c.EntityType,
		c.DepartmentID,
		c.Priority,
		c.ResponseTimeMinutes,
		c.ResolutionTimeMinutes,
		c.EscalationLevels,
		c.NotificationRules,
		c.ConfigID,
	)
	if err != nil {
		return fmt.Errorf("failed to update SLA configuration: %w", err)
	}
	return nil
}

const slaTrackingColumns = `
	st.id, st.sla_config_id, st.entity_type, st.entity_id,
	st.response_due_at, st.resolution_due_at, st.responded_at, st.resolved_at,
	st.status, st.current_escalation_level, st.escalation_history,
	st.created_at, st.updated_at
`

func scanTracking(row interface{ Scan(...interface{}) error }) (*models.SlaTracking, error) {
	var t models.SlaTracking
	err := row.Scan(
		&t.TrackingID,
		&t.SlaConfigID,
		&t.EntityType,
		&t.EntityID,
		&t.ResponseDueAt,
		&t.ResolutionDueAt,
		&t.RespondedAt,
		&t.ResolvedAt,
		&t.Status,
		&t.CurrentEscalationLevel,
		&t.EscalationHistory,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTracking inserts a new tracking row; status defaults to on_track
func (r *SlaRepository) CreateTracking(t *models.SlaTracking) error {
	query := `
		INSERT INTO sla_tracking
		(sla_config_id, entity_type, entity_id, response_due_at, resolution_due_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		t.SlaConfigID,
		t.EntityType,
		t.EntityID,
		t.ResponseDueAt,
		t.ResolutionDueAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create SLA tracking: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get SLA tracking ID: %w", err)
	}
	t.TrackingID = id
	t.Status = models.SlaOnTrack
	return nil
}

// GetTracking retrieves one tracking row by id
func (r *SlaRepository) GetTracking(id int64) (*models.SlaTracking, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_tracking st WHERE st.id = ?`, slaTrackingColumns)
	t, err := scanTracking(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SLA tracking: %w", err)
	}
	return t, nil
}

// ListTracking retrieves tracking rows matching the filter
func (r *SlaRepository) ListTracking(filter models.SlaTrackingFilter) ([]models.SlaTracking, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_tracking st WHERE 1=1`, slaTrackingColumns)
	args := []interface{}{}

	if filter.EntityType != "" {
		query += " AND st.entity_type = ?"
		args = append(args, filter.EntityType)
	}
	if filter.EntityID > 0 {
		query += " AND st.entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.Status != "" {
		query += " AND st.status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY st.response_due_at"

	return r.queryTracking(query, args...)
}

// ListBreached retrieves unresolved rows that are at risk or breached
func (r *SlaRepository) ListBreached() ([]models.SlaTracking, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sla_tracking st
		WHERE st.status IN ('at_risk', 'breached')
		AND st.resolved_at IS NULL
		ORDER BY st.resolution_due_at
	`, slaTrackingColumns)
	return r.queryTracking(query)
}

func (r *SlaRepository) queryTracking(query string, args ...interface{}) ([]models.SlaTracking, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query SLA tracking: %w", err)
	}
	defer rows.Close()

	var tracking []models.SlaTracking
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SLA tracking: %w", err)
		}
		tracking = append(tracking, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating SLA tracking: %w", err)
	}
	return tracking, nil
}

const trackedSlaQuery = `
	SELECT st.id, st.sla_config_id, st.entity_type, st.entity_id,
	       st.response_due_at, st.resolution_due_at, st.responded_at, st.resolved_at,
	       st.status, st.current_escalation_level, st.escalation_history,
	       st.created_at, st.updated_at,
	       sc.sla_name, sc.escalation_levels, sc.notification_rules
	FROM sla_tracking st
	LEFT JOIN sla_configurations sc ON st.sla_config_id = sc.id
`

func (r *SlaRepository) queryTracked(query string, args ...interface{}) ([]models.TrackedSla, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked SLAs: %w", err)
	}
	defer rows.Close()

	var tracked []models.TrackedSla
	for rows.Next() {
		var t models.TrackedSla
		err := rows.Scan(
			&t.TrackingID,
			&t.SlaConfigID,
			&t.EntityType,
			&t.EntityID,
			&t.ResponseDueAt,
			&t.ResolutionDueAt,
			&t.RespondedAt,
			&t.ResolvedAt,
			&t.Status,
			&t.CurrentEscalationLevel,
			&t.EscalationHistory,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.SlaName,
			&t.EscalationLevels,
			&t.NotificationRules,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked SLA: %w", err)
		}
		tracked = append(tracked, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked SLAs: %w", err)
	}
	return tracked, nil
}

// ResponseAtRisk retrieves on-track rows whose response deadline falls inside
// the (now, until] warning window without a recorded response
func (r *SlaRepository) ResponseAtRisk(now, until time.Time) ([]models.TrackedSla, error) {
	query := trackedSlaQuery + `
		WHERE st.response_due_at BETWEEN ? AND ?
		AND st.responded_at IS NULL
		AND st.status = 'on_track'
	`
	return r.queryTracked(query, now, until)
}

// ResponseBreached retrieves rows whose response deadline has passed without
// a recorded response and that have not yet been marked breached
func (r *SlaRepository) ResponseBreached(now time.Time) ([]models.TrackedSla, error) {
	query := trackedSlaQuery + `
		WHERE st.response_due_at < ?
		AND st.responded_at IS NULL
		AND st.status IN ('on_track', 'at_risk')
	`
	return r.queryTracked(query, now)
}

// ResolutionBreached retrieves unresolved rows past their resolution deadline
// that have not yet been marked breached
func (r *SlaRepository) ResolutionBreached(now time.Time) ([]models.TrackedSla, error) {
	query := trackedSlaQuery + `
		WHERE st.resolution_due_at < ?
		AND st.resolved_at IS NULL
		AND st.status NOT IN ('breached', 'resolved')
	`
	return r.queryTracked(query, now)
}

// MarkAtRisk transitions a row to at_risk. The WHERE predicate repeats the
// selection condition so a concurrent pass cannot fire the transition twice;
// the return value reports whether this call performed the transition.
func (r *SlaRepository) MarkAtRisk(id int64) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE sla_tracking SET status = 'at_risk'
		 WHERE id = ? AND status = 'on_track' AND responded_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark SLA at risk: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// MarkBreached transitions a row to breached, guarded the same way as MarkAtRisk
func (r *SlaRepository) MarkBreached(id int64) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE sla_tracking SET status = 'breached'
		 WHERE id = ? AND status IN ('on_track', 'at_risk')`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark SLA breached: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

// MarkResponded stamps responded_at
func (r *SlaRepository) MarkResponded(id int64, at time.Time) error {
	_, err := r.db.Exec(`UPDATE sla_tracking SET responded_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark SLA responded: %w", err)
	}
	return nil
}

// MarkResolved stamps resolved_at and moves the row to its terminal status
func (r *SlaRepository) MarkResolved(id int64, at time.Time) error {
	_, err := r.db.Exec(
		`UPDATE sla_tracking SET resolved_at = ?, status = 'resolved' WHERE id = ?`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark SLA resolved: %w", err)
	}
	return nil
}

// SaveEscalation persists an advanced escalation level and its history
func (r *SlaRepository) SaveEscalation(id int64, level int, historyJSON string) error {
	_, err := r.db.Exec(
		`UPDATE sla_tracking
		 SET current_escalation_level = ?, escalation_history = ?
		 WHERE id = ?`,
		level, historyJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save SLA escalation: %w", err)
	}
	return nil
}

// SaveManualEscalation persists a manual escalation; the row is flagged
// at_risk so the next breach pass re-evaluates it
func (r *SlaRepository) SaveManualEscalation(id int64, level int, historyJSON string) error {
	_, err := r.db.Exec(
		`UPDATE sla_tracking
		 SET current_escalation_level = ?, escalation_history = ?, status = 'at_risk'
		 WHERE id = ?`,
		level, historyJSON, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save manual SLA escalation: %w", err)
	}
	return nil
}

// ParseEscalationLevels parses the escalation_levels JSON column
func ParseEscalationLevels(levelsJSON sql.NullString) ([]models.EscalationStep, error) {
	if !levelsJSON.Valid || levelsJSON.String == "" {
		return nil, nil
	}
	var levels []models.EscalationStep
	if err := json.Unmarshal([]byte(levelsJSON.String), &levels); err != nil {
		return nil, fmt.Errorf("failed to parse escalation levels: %w", err)
	}
	return levels, nil
}

// ParseNotificationRules parses the notification_rules JSON column
func ParseNotificationRules(rulesJSON sql.NullString) (models.NotificationRules, error) {
	if !rulesJSON.Valid || rulesJSON.String == "" {
		return models.NotificationRules{}, nil
	}
	var rules models.NotificationRules
	if err := json.Unmarshal([]byte(rulesJSON.String), &rules); err != nil {
		return nil, fmt.Errorf("failed to parse notification rules: %w", err)
	}
	return rules, nil
}

// ParseEscalationHistory parses the escalation_history JSON column
func ParseEscalationHistory(historyJSON sql.NullString) ([]models.EscalationEvent, error) {
	if !historyJSON.Valid || historyJSON.String == "" {
		return nil, nil
	}
	var history []models.EscalationEvent
	if err := json.Unmarshal([]byte(historyJSON.String), &history); err != nil {
		return nil, fmt.Errorf("failed to parse escalation history: %w", err)
	}
	return history, nil
}
