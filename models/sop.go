package models

import (
	"database/sql"
	"fmt"
	"time"
)

// SopTicketStatus represents the lifecycle state of an SOP failure ticket
type SopTicketStatus string

const (
	SopOpen          SopTicketStatus = "open"
	SopReassigned    SopTicketStatus = "reassigned"
	SopNcrInProgress SopTicketStatus = "ncr_in_progress"
	SopRejected      SopTicketStatus = "rejected"
	SopNcrCompleted  SopTicketStatus = "ncr_completed"
	SopClosed        SopTicketStatus = "closed"
	SopEscalated     SopTicketStatus = "escalated"
)

// Terminal reports whether no further status transition is allowed
func (s SopTicketStatus) Terminal() bool {
	return s == SopNcrCompleted || s == SopClosed
}

// sopTransitions is the single source of truth for legal status changes.
// Reassignment-count and HOD-escalation rules are enforced separately on the
// ticket fields; this table only governs the status value itself.
var sopTransitions = map[SopTicketStatus][]SopTicketStatus{
	SopOpen:          {SopReassigned, SopNcrInProgress, SopRejected, SopNcrCompleted, SopClosed},
	SopReassigned:    {SopNcrInProgress, SopRejected, SopNcrCompleted, SopClosed},
	SopNcrInProgress: {SopRejected, SopNcrCompleted, SopClosed},
	SopRejected:      {SopOpen, SopClosed},
	SopEscalated:     {SopOpen, SopClosed},
	SopNcrCompleted:  {},
	SopClosed:        {},
}

// ValidateSopTransition returns a BusinessRuleError when from -> to is not a
// legal status change
func ValidateSopTransition(from, to SopTicketStatus) error {
	for _, allowed := range sopTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return NewBusinessRuleError("sop_transition",
		fmt.Sprintf("cannot transition SOP ticket from '%s' to '%s'", from, to))
}

// HodDecision is the Head-of-Department ruling on an escalated ticket
type HodDecision string

const (
	HodAssign HodDecision = "assign"
	HodReject HodDecision = "reject"
	HodClose  HodDecision = "close"
)

// SopFailureTicket represents a standard-operating-procedure failure charged
// against a department. original_charged_department_id is stamped at creation
// and never changes; it is the reassign-at-most-once guard.
type SopFailureTicket struct {
	TicketID                    int64           `db:"id" json:"id"`
	TicketNumber                string          `db:"ticket_number" json:"ticket_number"`
	SopReference                string          `db:"sop_reference" json:"sop_reference"`
	FailureDescription          string          `db:"failure_description" json:"failure_description"`
	ImpactDescription           sql.NullString  `db:"impact_description" json:"impact_description"`
	ChargingDepartmentID        int64           `db:"charging_department_id" json:"charging_department_id"`
	ChargedDepartmentID         int64           `db:"charged_department_id" json:"charged_department_id"`
	OriginalChargedDepartmentID int64           `db:"original_charged_department_id" json:"original_charged_department_id"`
	Status                      SopTicketStatus `db:"status" json:"status"`
	ReassignmentReason          sql.NullString  `db:"reassignment_reason" json:"reassignment_reason"`
	RejectionReason             sql.NullString  `db:"rejection_reason" json:"rejection_reason"`
	EscalatedToHod              bool            `db:"escalated_to_hod" json:"escalated_to_hod"`
	HodDecision                 sql.NullString  `db:"hod_decision" json:"hod_decision"`
	HodDecisionDate             sql.NullTime    `db:"hod_decision_date" json:"hod_decision_date"`
	HodNotes                    sql.NullString  `db:"hod_notes" json:"hod_notes"`
	NcrCompletedAt              sql.NullTime    `db:"ncr_completed_at" json:"ncr_completed_at"`
	ClosedAt                    sql.NullTime    `db:"closed_at" json:"closed_at"`
	Notes                       sql.NullString  `db:"notes" json:"notes"`
	CreatedByID                 int64           `db:"created_by_id" json:"created_by_id"`
	CreatedAt                   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                   sql.NullTime    `db:"updated_at" json:"updated_at"`
}

// NcrReport is the non-conformance report that closes out a ticket (immutable)
type NcrReport struct {
	NcrID                int64          `db:"id" json:"id"`
	SopTicketID          int64          `db:"sop_ticket_id" json:"sop_ticket_id"`
	RootCauseAnalysis    string         `db:"root_cause_analysis" json:"root_cause_analysis"`
	CorrectiveActions    string         `db:"corrective_actions" json:"corrective_actions"`
	PreventiveMeasures   string         `db:"preventive_measures" json:"preventive_measures"`
	ResponsiblePersonID  sql.NullInt64  `db:"responsible_person_id" json:"responsible_person_id"`
	TargetCompletionDate sql.NullTime   `db:"target_completion_date" json:"target_completion_date"`
	CompletedByID        int64          `db:"completed_by_id" json:"completed_by_id"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
}

// SopTicketFilter narrows ticket list queries
type SopTicketFilter struct {
	Status       SopTicketStatus
	DepartmentID int64 // matches charging or charged department
}

// CreateSopTicketRequest is the POST /api/sop/tickets payload
type CreateSopTicketRequest struct {
	SopReference         string `json:"sop_reference"`
	FailureDescription   string `json:"failure_description"`
	ImpactDescription    string `json:"impact_description,omitempty"`
	ChargingDepartmentID int64  `json:"charging_department_id"`
	ChargedDepartmentID  int64  `json:"charged_department_id"`
	Notes                string `json:"notes,omitempty"`
}

// ReassignSopTicketRequest is the reassign payload
type ReassignSopTicketRequest struct {
	NewDepartmentID int64  `json:"new_department_id"`
	Reason          string `json:"reason"`
}

// RejectSopTicketRequest is the reject payload
type RejectSopTicketRequest struct {
	Reason string `json:"reason"`
}

// CreateNcrRequest is the NCR completion payload
type CreateNcrRequest struct {
	RootCauseAnalysis    string     `json:"root_cause_analysis"`
	CorrectiveActions    string     `json:"corrective_actions"`
	PreventiveMeasures   string     `json:"preventive_measures"`
	ResponsiblePersonID  *int64     `json:"responsible_person_id,omitempty"`
	TargetCompletionDate *time.Time `json:"target_completion_date,omitempty"`
}

// HodDecisionRequest is the HOD ruling payload
type HodDecisionRequest struct {
	Decision          HodDecision `json:"decision"`
	FinalDepartmentID *int64      `json:"final_department_id,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}
