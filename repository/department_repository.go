package repository

import (
	"database/sql"
	"fmt"

	"prodline/models"
)

// DepartmentRepository handles database operations for departments and employees
type DepartmentRepository struct {
	db *sql.DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// GetDepartment retrieves one department by id
func (r *DepartmentRepository) GetDepartment(id int64) (*models.Department, error) {
	query := `SELECT id, name, manager_id, description, created_at FROM departments WHERE id = ?`
	var d models.Department
	err := r.db.QueryRow(query, id).Scan(
		&d.DepartmentID,
		&d.Name,
		&d.ManagerID,
		&d.Description,
		&d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &d, nil
}

// GetManagerID returns the department manager's user id; nil when the
// department has no manager assigned
func (r *DepartmentRepository) GetManagerID(departmentID int64) (*int64, error) {
	var managerID sql.NullInt64
	err := r.db.QueryRow(
		`SELECT manager_id FROM departments WHERE id = ?`,
		departmentID,
	).Scan(&managerID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get department manager: %w", err)
	}
	if !managerID.Valid {
		return nil, nil
	}
	return &managerID.Int64, nil
}

// GetEmployeeUserID resolves an employee to their login user id; nil when
// the employee has no linked user
func (r *DepartmentRepository) GetEmployeeUserID(employeeID int64) (*int64, error) {
	var userID sql.NullInt64
	err := r.db.QueryRow(
		`SELECT user_id FROM employees WHERE id = ?`,
		employeeID,
	).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee user: %w", err)
	}
	if !userID.Valid {
		return nil, nil
	}
	return &userID.Int64, nil
}

// GetEmployeeByUserID resolves a login user to their employee record
func (r *DepartmentRepository) GetEmployeeByUserID(userID int64) (*models.Employee, error) {
	query := `
		SELECT id, user_id, first_name, last_name, department_id, is_active
		FROM employees
		WHERE user_id = ?
	`
	var e models.Employee
	err := r.db.QueryRow(query, userID).Scan(
		&e.EmployeeID,
		&e.UserID,
		&e.FirstName,
		&e.LastName,
		&e.DepartmentID,
		&e.IsActive,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}
