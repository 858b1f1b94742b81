package repository

import (
	"database/sql"
	"fmt"

	"prodline/models"
)

// MachineRepository handles database operations for machines
type MachineRepository struct {
	db *sql.DB
}

// NewMachineRepository creates a new machine repository
func NewMachineRepository(db *sql.DB) *MachineRepository {
	return &MachineRepository{db: db}
}

// GetMachine retrieves one machine by id
func (r *MachineRepository) GetMachine(id int64) (*models.Machine, error) {
	query := `
		SELECT id, machine_name, machine_number, department_id, status, created_at, updated_at
		FROM machines
		WHERE id = ?
	`
	var m models.Machine
	err := r.db.QueryRow(query, id).Scan(
		&m.MachineID,
		&m.MachineName,
		&m.MachineNumber,
		&m.DepartmentID,
		&m.Status,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}
	return &m, nil
}

// UpdateStatus sets a machine's status unconditionally
func (r *MachineRepository) UpdateStatus(id int64, status models.MachineStatus) error {
	_, err := r.db.Exec(`UPDATE machines SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update machine status: %w", err)
	}
	return nil
}

// RestoreAvailable flips a machine back to available only when it is
// currently under maintenance; a machine flagged broken stays broken
func (r *MachineRepository) RestoreAvailable(id int64) error {
	_, err := r.db.Exec(
		`UPDATE machines SET status = 'available' WHERE id = ? AND status = 'maintenance'`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to restore machine availability: %w", err)
	}
	return nil
}
