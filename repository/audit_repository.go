package repository

import (
	"database/sql"
	"fmt"

	"prodline/models"
)

// AuditRepository handles the append-only audit trail
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog inserts one audit entry
func (r *AuditRepository) CreateAuditLog(a *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs
		(user_id, action, entity_type, entity_id, old_values, new_values)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		a.UserID,
		a.Action,
		a.EntityType,
		a.EntityID,
		a.OldValues,
		a.NewValues,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit log ID: %w", err)
	}
	a.AuditID = id
	return nil
}
