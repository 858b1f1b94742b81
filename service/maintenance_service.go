package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"prodline/models"
)

// dueSoonWindow is how far ahead the scheduler warns about upcoming maintenance
const dueSoonWindow = 72 * time.Hour

// MaintenanceStore is the persistence surface the PM recurrence needs
type MaintenanceStore interface {
	CreateSchedule(s *models.PreventiveMaintenanceSchedule) error
	GetSchedule(id int64) (*models.PreventiveMaintenanceSchedule, error)
	ListSchedules(machineID int64, activeOnly bool) ([]models.PreventiveMaintenanceSchedule, error)
	UpdateSchedule(s *models.PreventiveMaintenanceSchedule) error
	DeactivateSchedule(id int64) error
	SaveRecurrence(id int64, performedAt, nextDueAt time.Time) error
	CreateLog(l *models.PreventiveMaintenanceLog) error
	ListLogs(scheduleID int64) ([]models.PreventiveMaintenanceLog, error)
	DueSoon(cutoff time.Time) ([]models.DueSchedule, error)
}

// MachineStore reads and mutates machine state
type MachineStore interface {
	GetMachine(id int64) (*models.Machine, error)
	UpdateStatus(id int64, status models.MachineStatus) error
	RestoreAvailable(id int64) error
}

// EmployeeStore resolves technicians and departments to notifiable users
type EmployeeStore interface {
	GetEmployeeUserID(employeeID int64) (*int64, error)
	GetManagerID(departmentID int64) (*int64, error)
}

// MaintenanceService owns preventive maintenance schedules, their recurrence
// and the performed-event log
type MaintenanceService struct {
	schedules MaintenanceStore
	machines  MachineStore
	employees EmployeeStore
	notifier  NotificationSink
	audits    AuditStore
	now       func() time.Time
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(schedules MaintenanceStore, machines MachineStore, employees EmployeeStore, notifier NotificationSink, audits AuditStore) *MaintenanceService {
	return &MaintenanceService{
		schedules: schedules,
		machines:  machines,
		employees: employees,
		notifier:  notifier,
		audits:    audits,
		now:       time.Now,
	}
}

// CalculateNextDue advances a date by one recurrence interval. Monthly,
// quarterly and yearly use fixed day counts rather than calendar months;
// an unrecognized frequency type falls back to 30 days.
func CalculateNextDue(frequencyType models.FrequencyType, frequencyValue int, from time.Time) time.Time {
	if frequencyValue < 1 {
		frequencyValue = 1
	}
	days := 30
	switch frequencyType {
	case models.FrequencyDaily:
		days = 1
	case models.FrequencyWeekly:
		days = 7
	case models.FrequencyMonthly:
		days = 30
	case models.FrequencyQuarterly:
		days = 90
	case models.FrequencyYearly:
		days = 365
	}
	return from.Add(time.Duration(days*frequencyValue) * 24 * time.Hour)
}

// CreateSchedule registers a recurring maintenance obligation; the first due
// date is computed from the supplied last performed time, or from now
func (s *MaintenanceService) CreateSchedule(req *models.CreatePmScheduleRequest, createdBy int64) (*models.PreventiveMaintenanceSchedule, error) {
	if req.ScheduleName == "" {
		return nil, models.NewValidationError("schedule_name")
	}
	if req.MachineID == 0 {
		return nil, models.NewValidationError("machine_id")
	}
	if req.MaintenanceType == "" {
		return nil, models.NewValidationError("maintenance_type")
	}
	if req.FrequencyType == "" {
		return nil, models.NewValidationError("frequency_type")
	}
	if req.FrequencyValue < 1 {
		return nil, &models.ValidationError{
			Field:   "frequency_value",
			Message: "frequency_value must be a positive integer",
		}
	}
	if _, err := s.machines.GetMachine(req.MachineID); err != nil {
		return nil, err
	}

	from := s.now()
	if req.LastPerformedAt != nil {
		from = *req.LastPerformedAt
	}
	schedule := &models.PreventiveMaintenanceSchedule{
		ScheduleName:    req.ScheduleName,
		MachineID:       req.MachineID,
		MaintenanceType: req.MaintenanceType,
		FrequencyType:   req.FrequencyType,
		FrequencyValue:  req.FrequencyValue,
		NextDueAt:       CalculateNextDue(req.FrequencyType, req.FrequencyValue, from),
		Priority:        req.Priority,
		CreatedByID:     sql.NullInt64{Int64: createdBy, Valid: createdBy > 0},
	}
	if schedule.Priority == "" {
		schedule.Priority = models.PriorityNormal
	}
	if req.Description != "" {
		schedule.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if req.LastPerformedAt != nil {
		schedule.LastPerformedAt = sql.NullTime{Time: *req.LastPerformedAt, Valid: true}
	}
	if req.EstimatedDurationMinutes != nil {
		schedule.EstimatedDurationMinutes = sql.NullInt64{Int64: *req.EstimatedDurationMinutes, Valid: true}
	}
	if req.AssignedTechnicianID != nil {
		schedule.AssignedTechnicianID = sql.NullInt64{Int64: *req.AssignedTechnicianID, Valid: true}
	}
	if len(req.Checklist) > 0 {
		data, err := json.Marshal(req.Checklist)
		if err != nil {
			return nil, fmt.Errorf("failed to encode checklist: %w", err)
		}
		schedule.Checklist = sql.NullString{String: string(data), Valid: true}
	}
	if len(req.PartsRequired) > 0 {
		data, err := json.Marshal(req.PartsRequired)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parts list: %w", err)
		}
		schedule.PartsRequired = sql.NullString{String: string(data), Valid: true}
	}

	if err := s.schedules.CreateSchedule(schedule); err != nil {
		return nil, err
	}
	s.audit(createdBy, "create", "pm_schedule", schedule.ScheduleID, nil, schedule)

	if schedule.AssignedTechnicianID.Valid {
		s.notifyTechnician(schedule.AssignedTechnicianID.Int64, models.NotificationRequest{
			NotificationType:  models.NotificationPmAssigned,
			Title:             "Maintenance schedule assigned to you",
			Message:           fmt.Sprintf("%s (%s), next due %s", schedule.ScheduleName, schedule.MaintenanceType, schedule.NextDueAt.Format("2006-01-02")),
			RelatedEntityType: "pm_schedule",
			RelatedEntityID:   schedule.ScheduleID,
			Priority:          schedule.Priority,
		})
	}
	log.Printf("[PM] Created schedule %q for machine %d, next due %s",
		schedule.ScheduleName, schedule.MachineID, schedule.NextDueAt.Format(time.RFC3339))
	return schedule, nil
}

// GetSchedule retrieves one schedule
func (s *MaintenanceService) GetSchedule(id int64) (*models.PreventiveMaintenanceSchedule, error) {
	return s.schedules.GetSchedule(id)
}

// ListSchedules retrieves schedules, optionally for one machine
func (s *MaintenanceService) ListSchedules(machineID int64, activeOnly bool) ([]models.PreventiveMaintenanceSchedule, error) {
	return s.schedules.ListSchedules(machineID, activeOnly)
}

// ListLogs retrieves a schedule's performed events
func (s *MaintenanceService) ListLogs(scheduleID int64) ([]models.PreventiveMaintenanceLog, error) {
	if _, err := s.schedules.GetSchedule(scheduleID); err != nil {
		return nil, err
	}
	return s.schedules.ListLogs(scheduleID)
}

// UpdateSchedule applies the non-nil request fields over the stored schedule.
// Changing the frequency recomputes next_due_at from the last performed time
// (or now, if never performed).
func (s *MaintenanceService) UpdateSchedule(id int64, req *models.UpdatePmScheduleRequest, updatedBy int64) (*models.PreventiveMaintenanceSchedule, error) {
	schedule, err := s.schedules.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	old := *schedule

	frequencyChanged := false
	if req.ScheduleName != nil {
		schedule.ScheduleName = *req.ScheduleName
	}
	if req.MaintenanceType != nil {
		schedule.MaintenanceType = *req.MaintenanceType
	}
	if req.Description != nil {
		schedule.Description = sql.NullString{String: *req.Description, Valid: *req.Description != ""}
	}
	if req.FrequencyType != nil {
		schedule.FrequencyType = *req.FrequencyType
		frequencyChanged = true
	}
	if req.FrequencyValue != nil {
		if *req.FrequencyValue < 1 {
			return nil, &models.ValidationError{
				Field:   "frequency_value",
				Message: "frequency_value must be a positive integer",
			}
		}
		schedule.FrequencyValue = *req.FrequencyValue
		frequencyChanged = true
	}
	if req.EstimatedDurationMinutes != nil {
		schedule.EstimatedDurationMinutes = sql.NullInt64{Int64: *req.EstimatedDurationMinutes, Valid: true}
	}
	if req.AssignedTechnicianID != nil {
		schedule.AssignedTechnicianID = sql.NullInt64{Int64: *req.AssignedTechnicianID, Valid: true}
	}
	if req.Priority != nil {
		schedule.Priority = *req.Priority
	}
	if req.IsActive != nil {
		schedule.IsActive = *req.IsActive
	}

	if err := s.schedules.UpdateSchedule(schedule); err != nil {
		return nil, err
	}
	if frequencyChanged {
		from := s.now()
		if schedule.LastPerformedAt.Valid {
			from = schedule.LastPerformedAt.Time
		}
		nextDue := CalculateNextDue(schedule.FrequencyType, schedule.FrequencyValue, from)
		if err := s.schedules.SaveRecurrence(id, from, nextDue); err != nil {
			return nil, err
		}
		schedule.NextDueAt = nextDue
	}
	s.audit(updatedBy, "update", "pm_schedule", id, &old, schedule)
	return schedule, nil
}

// DeactivateSchedule soft-deletes a schedule so the scheduler stops
// considering it
func (s *MaintenanceService) DeactivateSchedule(id, userID int64) error {
	if _, err := s.schedules.GetSchedule(id); err != nil {
		return err
	}
	if err := s.schedules.DeactivateSchedule(id); err != nil {
		return err
	}
	s.audit(userID, "deactivate", "pm_schedule", id, nil, nil)
	return nil
}

// StartMaintenance flags the machine as under maintenance before work begins
func (s *MaintenanceService) StartMaintenance(scheduleID, userID int64) error {
	schedule, err := s.schedules.GetSchedule(scheduleID)
	if err != nil {
		return err
	}
	machine, err := s.machines.GetMachine(schedule.MachineID)
	if err != nil {
		return err
	}
	if machine.Status == models.MachineRetired {
		return models.NewBusinessRuleError("machine_retired",
			"cannot start maintenance on a retired machine")
	}
	if err := s.machines.UpdateStatus(schedule.MachineID, models.MachineMaintenance); err != nil {
		return err
	}
	s.audit(userID, "start_maintenance", "machine", schedule.MachineID, nil, nil)
	return nil
}

// LogMaintenance records one performed event, advances the recurrence from
// the performed time, and settles the machine's status: an explicit machine
// status in the request wins; otherwise a completed event restores the
// machine to available only if it is currently under maintenance.
func (s *MaintenanceService) LogMaintenance(scheduleID int64, req *models.LogPmRequest, userID int64) (*models.PreventiveMaintenanceLog, error) {
	schedule, err := s.schedules.GetSchedule(scheduleID)
	if err != nil {
		return nil, err
	}

	performedAt := s.now()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}
	status := req.Status
	if status == "" {
		status = models.MaintenanceCompleted
	}

	entry := &models.PreventiveMaintenanceLog{
		ScheduleID:    scheduleID,
		PerformedAt:   performedAt,
		PerformedByID: userID,
		Status:        status,
	}
	if req.DurationMinutes != nil {
		entry.DurationMinutes = sql.NullInt64{Int64: *req.DurationMinutes, Valid: true}
	}
	if len(req.ChecklistResults) > 0 {
		data, err := json.Marshal(req.ChecklistResults)
		if err != nil {
			return nil, fmt.Errorf("failed to encode checklist results: %w", err)
		}
		entry.ChecklistResults = sql.NullString{String: string(data), Valid: true}
	}
	if len(req.PartsUsed) > 0 {
		data, err := json.Marshal(req.PartsUsed)
		if err != nil {
			return nil, fmt.Errorf("failed to encode parts used: %w", err)
		}
		entry.PartsUsed = sql.NullString{String: string(data), Valid: true}
	}
	if req.Observations != "" {
		entry.Observations = sql.NullString{String: req.Observations, Valid: true}
	}
	if req.NextRecommendedDate != nil {
		entry.NextRecommendedDate = sql.NullTime{Time: *req.NextRecommendedDate, Valid: true}
	}

	if err := s.schedules.CreateLog(entry); err != nil {
		return nil, err
	}

	nextDue := CalculateNextDue(schedule.FrequencyType, schedule.FrequencyValue, performedAt)
	if err := s.schedules.SaveRecurrence(scheduleID, performedAt, nextDue); err != nil {
		return nil, err
	}

	if req.MachineStatus != "" {
		if err := s.machines.UpdateStatus(schedule.MachineID, req.MachineStatus); err != nil {
			return nil, err
		}
	} else if status == models.MaintenanceCompleted {
		if err := s.machines.RestoreAvailable(schedule.MachineID); err != nil {
			return nil, err
		}
	}

	s.audit(userID, "log_maintenance", "pm_schedule", scheduleID, nil, entry)
	log.Printf("[PM] Logged %s maintenance on schedule %d, next due %s",
		status, scheduleID, nextDue.Format(time.RFC3339))
	return entry, nil
}

// NotifyDueSoon is the scheduler pass warning about maintenance coming due
// inside the next three days. Both the assigned technician and the owning
// department's manager are notified when resolvable.
func (s *MaintenanceService) NotifyDueSoon() (int, error) {
	now := s.now()
	due, err := s.schedules.DueSoon(now.Add(dueSoonWindow))
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, d := range due {
		machineName := "machine"
		if d.MachineName.Valid {
			machineName = d.MachineName.String
		}
		req := models.NotificationRequest{
			NotificationType:  models.NotificationMaintenanceDue,
			Title:             "Preventive maintenance due",
			Message:           fmt.Sprintf("%s on %s is due %s", d.ScheduleName, machineName, d.NextDueAt.Format("2006-01-02")),
			RelatedEntityType: "pm_schedule",
			RelatedEntityID:   d.ScheduleID,
			Priority:          d.Priority,
		}
		if d.AssignedTechnicianID.Valid {
			if s.notifyTechnician(d.AssignedTechnicianID.Int64, req) {
				notified++
			}
		}
		if d.DepartmentID.Valid {
			managerID, err := s.employees.GetManagerID(d.DepartmentID.Int64)
			if err != nil {
				log.Printf("[PM] Failed to resolve manager for department %d: %v", d.DepartmentID.Int64, err)
				continue
			}
			if managerID != nil {
				req.RecipientID = *managerID
				if err := s.notifier.Notify(req); err != nil {
					log.Printf("[PM] Failed to notify user %d: %v", *managerID, err)
				} else {
					notified++
				}
			}
		}
	}
	if notified > 0 {
		log.Printf("[PM] Sent %d due-soon notifications for %d schedules", notified, len(due))
	}
	return notified, nil
}

// notifyTechnician resolves the technician's login user and delivers the
// notification; technicians without a linked user are skipped
func (s *MaintenanceService) notifyTechnician(technicianID int64, req models.NotificationRequest) bool {
	userID, err := s.employees.GetEmployeeUserID(technicianID)
	if err != nil {
		log.Printf("[PM] Failed to resolve technician %d: %v", technicianID, err)
		return false
	}
	if userID == nil {
		return false
	}
	req.RecipientID = *userID
	if err := s.notifier.Notify(req); err != nil {
		log.Printf("[PM] Failed to notify user %d: %v", *userID, err)
		return false
	}
	return true
}

func (s *MaintenanceService) audit(userID int64, action, entityType string, entityID int64, oldValue, newValue interface{}) {
	entry := &models.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
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
		log.Printf("[PM] Failed to write audit log for %s %d: %v", entityType, entityID, err)
	}
}
