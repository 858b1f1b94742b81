package models

import (
	"database/sql"
	"time"
)

// MachineStatus represents the operational state of a machine
type MachineStatus string

const (
	MachineAvailable   MachineStatus = "available"
	MachineInUse       MachineStatus = "in_use"
	MachineMaintenance MachineStatus = "maintenance"
	MachineBroken      MachineStatus = "broken"
	MachineRetired     MachineStatus = "retired"
)

// Schedulable reports whether a machine in this status can accept new jobs
func (s MachineStatus) Schedulable() bool {
	return s == MachineAvailable || s == MachineInUse
}

// Priority represents priority levels used across tickets, schedules and notifications
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
)

// Machine represents a production machine
type Machine struct {
	MachineID     int64          `db:"id" json:"id"`
	MachineName   string         `db:"machine_name" json:"machine_name"`
	MachineNumber sql.NullString `db:"machine_number" json:"machine_number"`
	DepartmentID  sql.NullInt64  `db:"department_id" json:"department_id"`
	Status        MachineStatus  `db:"status" json:"status"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// Department represents an organizational department
type Department struct {
	DepartmentID int64          `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	ManagerID    sql.NullInt64  `db:"manager_id" json:"manager_id"`
	Description  sql.NullString `db:"description" json:"description"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Employee links a person record to a login user; maintenance technicians are employees
type Employee struct {
	EmployeeID   int64         `db:"id" json:"id"`
	UserID       sql.NullInt64 `db:"user_id" json:"user_id"`
	FirstName    string        `db:"first_name" json:"first_name"`
	LastName     string        `db:"last_name" json:"last_name"`
	DepartmentID sql.NullInt64 `db:"department_id" json:"department_id"`
	IsActive     bool          `db:"is_active" json:"is_active"`
}

// User represents a login account
type User struct {
	UserID       int64          `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	FirstName    sql.NullString `db:"first_name" json:"first_name"`
	LastName     sql.NullString `db:"last_name" json:"last_name"`
	Role         string         `db:"role" json:"role"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// AuditLog represents an audit trail entry (immutable)
type AuditLog struct {
	AuditID    int64          `db:"id" json:"id"`
	UserID     sql.NullInt64  `db:"user_id" json:"user_id"` // NULL for system actions
	Action     string         `db:"action" json:"action"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   int64          `db:"entity_id" json:"entity_id"`
	OldValues  sql.NullString `db:"old_values" json:"old_values"` // JSON
	NewValues  sql.NullString `db:"new_values" json:"new_values"` // JSON
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// SuccessResponse is the envelope returned by every successful endpoint
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the envelope returned by every failing endpoint
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
