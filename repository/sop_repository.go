package repository

import (
	"database/sql"
	"fmt"
	"time"

	"prodline/models"
)

// SopRepository handles database operations for SOP failure tickets and NCR reports
type SopRepository struct {
	db *sql.DB
}

// NewSopRepository creates a new SOP repository
func NewSopRepository(db *sql.DB) *SopRepository {
	return &SopRepository{db: db}
}

const sopTicketColumns = `
	st.id, st.ticket_number, st.sop_reference, st.failure_description,
	st.impact_description, st.charging_department_id, st.charged_department_id,
	st.original_charged_department_id, st.status, st.reassignment_reason,
	st.rejection_reason, st.escalated_to_hod, st.hod_decision, st.hod_decision_date,
	st.hod_notes, st.ncr_completed_at, st.closed_at, st.notes, st.created_by_id,
	st.created_at, st.updated_at
`

func scanSopTicket(row interface{ Scan(...interface{}) error }) (*models.SopFailureTicket, error) {
	var t models.SopFailureTicket
	err := row.Scan(
		&t.TicketID,
		&t.TicketNumber,
		&t.SopReference,
		&t.FailureDescription,
		&t.ImpactDescription,
		&t.ChargingDepartmentID,
		&t.ChargedDepartmentID,
		&t.OriginalChargedDepartmentID,
		&t.Status,
		&t.ReassignmentReason,
		&t.RejectionReason,
		&t.EscalatedToHod,
		&t.HodDecision,
		&t.HodDecisionDate,
		&t.HodNotes,
		&t.NcrCompletedAt,
		&t.ClosedAt,
		&t.Notes,
		&t.CreatedByID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTicket inserts a new ticket; original_charged_department_id is
// stamped from charged_department_id and never updated afterwards
func (r *SopRepository) CreateTicket(t *models.SopFailureTicket) error {
	query := `
		INSERT INTO sop_failure_tickets
		(ticket_number, sop_reference, failure_description, impact_description,
		 charging_department_id, charged_department_id, original_charged_department_id,
		 created_by_id, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		t.TicketNumber,
		t.SopReference,
		t.FailureDescription,
		t.ImpactDescription,
		t.ChargingDepartmentID,
		t.ChargedDepartmentID,
		t.ChargedDepartmentID,
		t.CreatedByID,
		t.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create SOP ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get SOP ticket ID: %w", err)
	}
	t.TicketID = id
	t.OriginalChargedDepartmentID = t.ChargedDepartmentID
	t.Status = models.SopOpen
	return nil
}

// GetTicket retrieves one ticket by id
func (r *SopRepository) GetTicket(id int64) (*models.SopFailureTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM sop_failure_tickets st WHERE st.id = ?`, sopTicketColumns)
	t, err := scanSopTicket(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get SOP ticket: %w", err)
	}
	return t, nil
}

// ListTickets retrieves tickets matching the filter, newest first
func (r *SopRepository) ListTickets(filter models.SopTicketFilter) ([]models.SopFailureTicket, error) {
	query := fmt.Sprintf(`SELECT %s FROM sop_failure_tickets st WHERE 1=1`, sopTicketColumns)
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND st.status = ?"
		args = append(args, filter.Status)
	}
	if filter.DepartmentID > 0 {
		query += " AND (st.charging_department_id = ? OR st.charged_department_id = ?)"
		args = append(args, filter.DepartmentID, filter.DepartmentID)
	}
	query += " ORDER BY st.created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query SOP tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.SopFailureTicket
	for rows.Next() {
		t, err := scanSopTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan SOP ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating SOP tickets: %w", err)
	}
	return tickets, nil
}

// SaveReassignment moves the ticket to its one allowed replacement department
func (r *SopRepository) SaveReassignment(id, newDepartmentID int64, reason string) error {
	_, err := r.db.Exec(
		`UPDATE sop_failure_tickets
		 SET charged_department_id = ?, status = 'reassigned', reassignment_reason = ?
		 WHERE id = ?`,
		newDepartmentID, reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to reassign SOP ticket: %w", err)
	}
	return nil
}

// SaveRejection marks the ticket rejected and escalates it to the HOD
func (r *SopRepository) SaveRejection(id int64, reason string) error {
	_, err := r.db.Exec(
		`UPDATE sop_failure_tickets
		 SET status = 'rejected', rejection_reason = ?, escalated_to_hod = TRUE
		 WHERE id = ?`,
		reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to reject SOP ticket: %w", err)
	}
	return nil
}

// CreateNcr inserts the NCR report for a ticket
func (r *SopRepository) CreateNcr(n *models.NcrReport) error {
	query := `
		INSERT INTO ncr_reports
		(sop_ticket_id, root_cause_analysis, corrective_actions, preventive_measures,
		 responsible_person_id, target_completion_date, completed_by_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(
		query,
		n.SopTicketID,
		n.RootCauseAnalysis,
		n.CorrectiveActions,
		n.PreventiveMeasures,
		n.ResponsiblePersonID,
		n.TargetCompletionDate,
		n.CompletedByID,
	)
	if err != nil {
		return fmt.Errorf("failed to create NCR report: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get NCR report ID: %w", err)
	}
	n.NcrID = id
	return nil
}

// GetNcrByTicket retrieves the NCR report linked to a ticket, if any
func (r *SopRepository) GetNcrByTicket(ticketID int64) (*models.NcrReport, error) {
	query := `
		SELECT id, sop_ticket_id, root_cause_analysis, corrective_actions,
		       preventive_measures, responsible_person_id, target_completion_date,
		       completed_by_id, created_at
		FROM ncr_reports
		WHERE sop_ticket_id = ?
	`
	var n models.NcrReport
	err := r.db.QueryRow(query, ticketID).Scan(
		&n.NcrID,
		&n.SopTicketID,
		&n.RootCauseAnalysis,
		&n.CorrectiveActions,
		&n.PreventiveMeasures,
		&n.ResponsiblePersonID,
		&n.TargetCompletionDate,
		&n.CompletedByID,
		&n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get NCR report: %w", err)
	}
	return &n, nil
}

// CompleteNcr closes the ticket after NCR completion
func (r *SopRepository) CompleteNcr(id int64, at time.Time) error {
	_, err := r.db.Exec(
		`UPDATE sop_failure_tickets
		 SET status = 'ncr_completed', ncr_completed_at = ?, closed_at = ?
		 WHERE id = ?`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete NCR on SOP ticket: %w", err)
	}
	return nil
}

// SaveHodDecision records the HOD ruling. An assign decision re-opens the
// ticket under the final department; reject/close decisions close it.
func (r *SopRepository) SaveHodDecision(id int64, decision models.HodDecision, finalDepartmentID sql.NullInt64, notes string, at time.Time) error {
	var err error
	if decision == models.HodAssign {
		_, err = r.db.Exec(
			`UPDATE sop_failure_tickets
			 SET charged_department_id = ?, status = 'open',
			     hod_decision = ?, hod_decision_date = ?, hod_notes = ?
			 WHERE id = ?`,
			finalDepartmentID, string(decision), at, notes, id,
		)
	} else {
		_, err = r.db.Exec(
			`UPDATE sop_failure_tickets
			 SET status = 'closed', closed_at = ?,
			     hod_decision = ?, hod_decision_date = ?, hod_notes = ?
			 WHERE id = ?`,
			at, string(decision), at, notes, id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to save HOD decision: %w", err)
	}
	return nil
}

// StaleOpenTickets retrieves tickets still open past the cutoff that have not
// been escalated to the HOD yet
func (r *SopRepository) StaleOpenTickets(cutoff time.Time) ([]models.SopFailureTicket, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sop_failure_tickets st
		WHERE st.status IN ('open', 'ncr_in_progress')
		AND st.escalated_to_hod = FALSE
		AND st.created_at <= ?
	`, sopTicketColumns)

	rows, err := r.db.Query(query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale SOP tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.SopFailureTicket
	for rows.Next() {
		t, err := scanSopTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stale SOP ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stale SOP tickets: %w", err)
	}
	return tickets, nil
}

// MarkEscalatedToHod flips the HOD flag, guarded so overlapping scheduler
// passes escalate each ticket only once
func (r *SopRepository) MarkEscalatedToHod(id int64) (bool, error) {
	result, err := r.db.Exec(
		`UPDATE sop_failure_tickets
		 SET escalated_to_hod = TRUE
		 WHERE id = ? AND escalated_to_hod = FALSE`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to escalate SOP ticket to HOD: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}
