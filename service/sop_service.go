package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"prodline/models"
)

// hodEscalationAge is how long a ticket may sit unescalated before the
// scheduler hands it to the Head of Department
const hodEscalationAge = 48 * time.Hour

// SopStore is the persistence surface the SOP workflow needs
type SopStore interface {
	CreateTicket(t *models.SopFailureTicket) error
	GetTicket(id int64) (*models.SopFailureTicket, error)
	ListTickets(filter models.SopTicketFilter) ([]models.SopFailureTicket, error)
	SaveReassignment(id, newDepartmentID int64, reason string) error
	SaveRejection(id int64, reason string) error
	CreateNcr(n *models.NcrReport) error
	GetNcrByTicket(ticketID int64) (*models.NcrReport, error)
	CompleteNcr(id int64, at time.Time) error
	SaveHodDecision(id int64, decision models.HodDecision, finalDepartmentID sql.NullInt64, notes string, at time.Time) error
	StaleOpenTickets(cutoff time.Time) ([]models.SopFailureTicket, error)
	MarkEscalatedToHod(id int64) (bool, error)
}

// DepartmentStore resolves departments and their managers
type DepartmentStore interface {
	GetDepartment(id int64) (*models.Department, error)
	GetManagerID(departmentID int64) (*int64, error)
}

// SopService drives the SOP failure ticket state machine
type SopService struct {
	tickets     SopStore
	departments DepartmentStore
	notifier    NotificationSink
	audits      AuditStore
	now         func() time.Time
}

// NewSopService creates a new SOP service
func NewSopService(tickets SopStore, departments DepartmentStore, notifier NotificationSink, audits AuditStore) *SopService {
	return &SopService{
		tickets:     tickets,
		departments: departments,
		notifier:    notifier,
		audits:      audits,
		now:         time.Now,
	}
}

// CreateTicket opens a new failure ticket charged against a department and
// notifies that department's manager
func (s *SopService) CreateTicket(req *models.CreateSopTicketRequest, createdBy int64) (*models.SopFailureTicket, error) {
	if req.SopReference == "" {
		return nil, models.NewValidationError("sop_reference")
	}
	if req.FailureDescription == "" {
		return nil, models.NewValidationError("failure_description")
	}
	if req.ChargingDepartmentID == 0 {
		return nil, models.NewValidationError("charging_department_id")
	}
	if req.ChargedDepartmentID == 0 {
		return nil, models.NewValidationError("charged_department_id")
	}
	if _, err := s.departments.GetDepartment(req.ChargedDepartmentID); err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.SopFailureTicket{
		TicketNumber:         generateTicketNumber(now),
		SopReference:         req.SopReference,
		FailureDescription:   req.FailureDescription,
		ChargingDepartmentID: req.ChargingDepartmentID,
		ChargedDepartmentID:  req.ChargedDepartmentID,
		CreatedByID:          createdBy,
	}
	if req.ImpactDescription != "" {
		t.ImpactDescription = sql.NullString{String: req.ImpactDescription, Valid: true}
	}
	if req.Notes != "" {
		t.Notes = sql.NullString{String: req.Notes, Valid: true}
	}

	if err := s.tickets.CreateTicket(t); err != nil {
		return nil, err
	}
	s.audit(createdBy, "create", t.TicketID, nil, t)
	s.notifyManager(req.ChargedDepartmentID, models.NotificationRequest{
		NotificationType:  models.NotificationSopFailure,
		Title:             "SOP failure charged to your department",
		Message:           fmt.Sprintf("Ticket %s: %s", t.TicketNumber, t.FailureDescription),
		RelatedEntityType: "sop_ticket",
		RelatedEntityID:   t.TicketID,
		Priority:          models.PriorityHigh,
	})
	log.Printf("[SOP] Created ticket %s charged to department %d", t.TicketNumber, t.ChargedDepartmentID)
	return t, nil
}

// GetTicket retrieves one ticket
func (s *SopService) GetTicket(id int64) (*models.SopFailureTicket, error) {
	return s.tickets.GetTicket(id)
}

// ListTickets retrieves tickets matching the filter
func (s *SopService) ListTickets(filter models.SopTicketFilter) ([]models.SopFailureTicket, error) {
	return s.tickets.ListTickets(filter)
}

// GetNcr retrieves the NCR report attached to a ticket
func (s *SopService) GetNcr(ticketID int64) (*models.NcrReport, error) {
	return s.tickets.GetNcrByTicket(ticketID)
}

// Reassign moves the ticket to a different charged department. A ticket may
// be reassigned at most once, which the original-department comparison
// enforces regardless of how the ticket got its current department.
func (s *SopService) Reassign(id int64, req *models.ReassignSopTicketRequest, userID int64) (*models.SopFailureTicket, error) {
	if req.NewDepartmentID == 0 {
		return nil, models.NewValidationError("new_department_id")
	}
	if req.Reason == "" {
		return nil, models.NewValidationError("reason")
	}

	t, err := s.tickets.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateSopTransition(t.Status, models.SopReassigned); err != nil {
		return nil, err
	}
	if t.ChargedDepartmentID != t.OriginalChargedDepartmentID {
		return nil, models.NewBusinessRuleError("sop_reassign_once",
			"ticket has already been reassigned once")
	}
	if req.NewDepartmentID == t.ChargedDepartmentID {
		return nil, models.NewBusinessRuleError("sop_reassign_same",
			"ticket is already charged to that department")
	}
	if _, err := s.departments.GetDepartment(req.NewDepartmentID); err != nil {
		return nil, err
	}

	if err := s.tickets.SaveReassignment(id, req.NewDepartmentID, req.Reason); err != nil {
		return nil, err
	}
	s.audit(userID, "reassign", id, t, nil)
	s.notifyManager(req.NewDepartmentID, models.NotificationRequest{
		NotificationType:  models.NotificationSopReassigned,
		Title:             "SOP ticket reassigned to your department",
		Message:           fmt.Sprintf("Ticket %s: %s", t.TicketNumber, req.Reason),
		RelatedEntityType: "sop_ticket",
		RelatedEntityID:   id,
		Priority:          models.PriorityHigh,
	})
	log.Printf("[SOP] Reassigned ticket %s to department %d", t.TicketNumber, req.NewDepartmentID)
	return s.tickets.GetTicket(id)
}

// Reject marks the ticket rejected by the charged department, which always
// escalates it to the HOD
func (s *SopService) Reject(id int64, req *models.RejectSopTicketRequest, userID int64) (*models.SopFailureTicket, error) {
	if req.Reason == "" {
		return nil, models.NewValidationError("reason")
	}

	t, err := s.tickets.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateSopTransition(t.Status, models.SopRejected); err != nil {
		return nil, err
	}

	if err := s.tickets.SaveRejection(id, req.Reason); err != nil {
		return nil, err
	}
	s.audit(userID, "reject", id, t, nil)
	s.notifyManager(t.ChargingDepartmentID, models.NotificationRequest{
		NotificationType:  models.NotificationSopEscalation,
		Title:             "SOP ticket rejected and escalated to HOD",
		Message:           fmt.Sprintf("Ticket %s rejected: %s", t.TicketNumber, req.Reason),
		RelatedEntityType: "sop_ticket",
		RelatedEntityID:   id,
		Priority:          models.PriorityHigh,
	})
	log.Printf("[SOP] Rejected ticket %s, escalated to HOD", t.TicketNumber)
	return s.tickets.GetTicket(id)
}

// CreateNcr attaches the non-conformance report and closes the ticket
func (s *SopService) CreateNcr(ticketID int64, req *models.CreateNcrRequest, userID int64) (*models.NcrReport, error) {
	if req.RootCauseAnalysis == "" {
		return nil, models.NewValidationError("root_cause_analysis")
	}
	if req.CorrectiveActions == "" {
		return nil, models.NewValidationError("corrective_actions")
	}
	if req.PreventiveMeasures == "" {
		return nil, models.NewValidationError("preventive_measures")
	}

	t, err := s.tickets.GetTicket(ticketID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateSopTransition(t.Status, models.SopNcrCompleted); err != nil {
		return nil, err
	}

	n := &models.NcrReport{
		SopTicketID:        ticketID,
		RootCauseAnalysis:  req.RootCauseAnalysis,
		CorrectiveActions:  req.CorrectiveActions,
		PreventiveMeasures: req.PreventiveMeasures,
		CompletedByID:      userID,
	}
	if req.ResponsiblePersonID != nil {
		n.ResponsiblePersonID = sql.NullInt64{Int64: *req.ResponsiblePersonID, Valid: true}
	}
	if req.TargetCompletionDate != nil {
		n.TargetCompletionDate = sql.NullTime{Time: *req.TargetCompletionDate, Valid: true}
	}

	if err := s.tickets.CreateNcr(n); err != nil {
		return nil, err
	}
	if err := s.tickets.CompleteNcr(ticketID, s.now()); err != nil {
		return nil, err
	}
	s.audit(userID, "complete_ncr", ticketID, t, n)
	s.notifyManager(t.ChargingDepartmentID, models.NotificationRequest{
		NotificationType:  models.NotificationSopFailure,
		Title:             "NCR completed",
		Message:           fmt.Sprintf("Ticket %s closed with a completed NCR", t.TicketNumber),
		RelatedEntityType: "sop_ticket",
		RelatedEntityID:   ticketID,
		Priority:          models.PriorityNormal,
	})
	log.Printf("[SOP] NCR completed for ticket %s", t.TicketNumber)
	return n, nil
}

// HodDecision records the Head of Department's ruling on an escalated ticket
func (s *SopService) HodDecision(id int64, req *models.HodDecisionRequest, userID int64) (*models.SopFailureTicket, error) {
	t, err := s.tickets.GetTicket(id)
	if err != nil {
		return nil, err
	}
	if !t.EscalatedToHod {
		return nil, models.NewBusinessRuleError("sop_not_escalated",
			"ticket has not been escalated to the HOD")
	}
	if t.Status.Terminal() {
		return nil, models.NewBusinessRuleError("sop_terminal",
			fmt.Sprintf("ticket is already %s", t.Status))
	}

	var finalDept sql.NullInt64
	switch req.Decision {
	case models.HodAssign:
		if req.FinalDepartmentID == nil {
			return nil, models.NewValidationError("final_department_id")
		}
		if _, err := s.departments.GetDepartment(*req.FinalDepartmentID); err != nil {
			return nil, err
		}
		finalDept = sql.NullInt64{Int64: *req.FinalDepartmentID, Valid: true}
	case models.HodReject, models.HodClose:
	default:
		return nil, &models.ValidationError{
			Field:   "decision",
			Message: "decision must be one of assign, reject, close",
		}
	}

	if err := s.tickets.SaveHodDecision(id, req.Decision, finalDept, req.Notes, s.now()); err != nil {
		return nil, err
	}
	s.audit(userID, "hod_decision", id, t, nil)
	if req.Decision == models.HodAssign {
		s.notifyManager(finalDept.Int64, models.NotificationRequest{
			NotificationType:  models.NotificationSopHodDecision,
			Title:             "SOP ticket assigned by HOD",
			Message:           fmt.Sprintf("Ticket %s assigned to your department for NCR", t.TicketNumber),
			RelatedEntityType: "sop_ticket",
			RelatedEntityID:   id,
			Priority:          models.PriorityHigh,
		})
	}
	log.Printf("[SOP] HOD decision '%s' on ticket %s", req.Decision, t.TicketNumber)
	return s.tickets.GetTicket(id)
}

// EscalateStale hands tickets that sat open past the timeout to the HOD.
// The status does not change; the guarded flag update keeps each ticket from
// being escalated by more than one pass.
func (s *SopService) EscalateStale() (int, error) {
	now := s.now()
	stale, err := s.tickets.StaleOpenTickets(now.Add(-hodEscalationAge))
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, t := range stale {
		transitioned, err := s.tickets.MarkEscalatedToHod(t.TicketID)
		if err != nil {
			log.Printf("[SOP] Failed to escalate ticket %s to HOD: %v", t.TicketNumber, err)
			continue
		}
		if !transitioned {
			continue
		}
		escalated++
		s.audit(0, "timeout_escalation", t.TicketID, nil, nil)
		s.notifyManager(t.ChargedDepartmentID, models.NotificationRequest{
			NotificationType:  models.NotificationSopEscalation,
			Title:             "SOP ticket escalated to HOD",
			Message:           fmt.Sprintf("Ticket %s has been open over 48 hours without resolution", t.TicketNumber),
			RelatedEntityType: "sop_ticket",
			RelatedEntityID:   t.TicketID,
			Priority:          models.PriorityUrgent,
		})
	}
	if escalated > 0 {
		log.Printf("[SOP] Escalated %d stale tickets to HOD", escalated)
	}
	return escalated, nil
}

// notifyManager delivers a notification to a department's manager; a
// department without a manager is skipped silently
func (s *SopService) notifyManager(departmentID int64, req models.NotificationRequest) {
	managerID, err := s.departments.GetManagerID(departmentID)
	if err != nil {
		log.Printf("[SOP] Failed to resolve manager for department %d: %v", departmentID, err)
		return
	}
	if managerID == nil {
		return
	}
	req.RecipientID = *managerID
	if err := s.notifier.Notify(req); err != nil {
		log.Printf("[SOP] Failed to notify user %d: %v", req.RecipientID, err)
	}
}

func (s *SopService) audit(userID int64, action string, ticketID int64, oldValue, newValue interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: "sop_ticket",
		EntityID:   ticketID,
	}
	if userID > 0 {
		entry.UserID = sql.NullInt64{Int64: userID, Valid: true}
	}
	if oldValue != nil {
		if data, err := json.Marshal(oldValue); err == nil {
			entry.OldValues = sql.NullString{String: string(data), Valid: true}
		}
	}
	if newValue != nil {
		if data, err := json.Marshal(newValue); err == nil {
			entry.NewValues = sql.NullString{String: string(data), Valid: true}
		}
	}
	if err := s.audits.CreateAuditLog(entry); err != nil {
		log.Printf("[SOP] Failed to write audit log for ticket %d: %v", ticketID, err)
	}
}

// generateTicketNumber builds a human-readable unique ticket number,
// e.g. SOP-20260830-a1b2c3d4
func generateTicketNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("SOP-%s-%s", now.Format("20060102"), suffix)
}
