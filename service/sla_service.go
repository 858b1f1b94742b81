package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"prodline/models"
	"prodline/repository"
)

// atRiskWindow is how far ahead of a response deadline a row is flagged at_risk
const atRiskWindow = 30 * time.Minute

// SlaStore is the persistence surface the SLA engine needs
type SlaStore interface {
	GetConfiguration(id int64) (*models.SlaConfiguration, error)
	ListConfigurations(filter models.SlaConfigFilter) ([]models.SlaConfiguration, error)
	CreateConfiguration(c *models.SlaConfiguration) error
	UpdateConfiguration(c *models.SlaConfiguration) error
	CreateTracking(t *models.SlaTracking) error
	GetTracking(id int64) (*models.SlaTracking, error)
	ListTracking(filter models.SlaTrackingFilter) ([]models.SlaTracking, error)
	ListBreached() ([]models.SlaTracking, error)
	ResponseAtRisk(now, until time.Time) ([]models.TrackedSla, error)
	ResponseBreached(now time.Time) ([]models.TrackedSla, error)
	ResolutionBreached(now time.Time) ([]models.TrackedSla, error)
	MarkAtRisk(id int64) (bool, error)
	MarkBreached(id int64) (bool, error)
	MarkResponded(id int64, at time.Time) error
	MarkResolved(id int64, at time.Time) error
	SaveEscalation(id int64, level int, historyJSON string) error
	SaveManualEscalation(id int64, level int, historyJSON string) error
}

// NotificationSink delivers workflow notifications; failures are logged by
// callers, never propagated
type NotificationSink interface {
	Notify(req models.NotificationRequest) error
}

// AuditStore records audit trail entries
type AuditStore interface {
	CreateAuditLog(a *models.AuditLog) error
}

// SlaService monitors SLA tracking rows against their deadlines and drives
// the escalation ladder
type SlaService struct {
	slas     SlaStore
	notifier NotificationSink
	audits   AuditStore
	now      func() time.Time
}

// NewSlaService creates a new SLA service
func NewSlaService(slas SlaStore, notifier NotificationSink, audits AuditStore) *SlaService {
	return &SlaService{
		slas:     slas,
		notifier: notifier,
		audits:   audits,
		now:      time.Now,
	}
}

// CreateConfiguration validates and stores a new SLA configuration
func (s *SlaService) CreateConfiguration(req *models.CreateSlaConfigRequest, createdBy int64) (*models.SlaConfiguration, error) {
	if req.SlaName == "" {
		return nil, models.NewValidationError("sla_name")
	}
	if req.EntityType == "" {
		return nil, models.NewValidationError("entity_type")
	}
	if req.ResponseTimeMinutes == nil && req.ResolutionTimeMinutes == nil {
		return nil, &models.ValidationError{
			Field:   "response_time_minutes",
			Message: "at least one of response_time_minutes and resolution_time_minutes is required",
		}
	}

	c := &models.SlaConfiguration{
		SlaName:     req.SlaName,
		EntityType:  req.EntityType,
		Priority:    req.Priority,
		IsActive:    true,
		CreatedByID: sql.NullInt64{Int64: createdBy, Valid: createdBy > 0},
	}
	if c.Priority == "" {
		c.Priority = models.PriorityNormal
	}
	if req.DepartmentID != nil {
		c.DepartmentID = sql.NullInt64{Int64: *req.DepartmentID, Valid: true}
	}
	if req.ResponseTimeMinutes != nil {
		c.ResponseTimeMinutes = sql.NullInt64{Int64: *req.ResponseTimeMinutes, Valid: true}
	}
	if req.ResolutionTimeMinutes != nil {
		c.ResolutionTimeMinutes = sql.NullInt64{Int64: *req.ResolutionTimeMinutes, Valid: true}
	}
	if len(req.EscalationLevels) > 0 {
		levelsJSON, err := json.Marshal(req.EscalationLevels)
		if err != nil {
			return nil, fmt.Errorf("failed to encode escalation levels: %w", err)
		}
		c.EscalationLevels = sql.NullString{String: string(levelsJSON), Valid: true}
	}
	if len(req.NotificationRules) > 0 {
		rulesJSON, err := json.Marshal(req.NotificationRules)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification rules: %w", err)
		}
		c.NotificationRules = sql.NullString{String: string(rulesJSON), Valid: true}
	}

	if err := s.slas.CreateConfiguration(c); err != nil {
		return nil, err
	}
	s.audit(createdBy, "create", "sla_configuration", c.ConfigID, nil, c)
	return c, nil
}

// UpdateConfiguration applies request fields over the stored configuration
func (s *SlaService) UpdateConfiguration(id int64, req *models.CreateSlaConfigRequest, updatedBy int64) (*models.SlaConfiguration, error) {
	c, err := s.slas.GetConfiguration(id)
	if err != nil {
		return nil, err
	}
	old := *c

	if req.SlaName != "" {
		c.SlaName = req.SlaName
	}
	if req.EntityType != "" {
		c.EntityType = req.EntityType
	}
	if req.Priority != "" {
		c.Priority = req.Priority
	}
	if req.DepartmentID != nil {
		c.DepartmentID = sql.NullInt64{Int64: *req.DepartmentID, Valid: true}
	}
	if req.ResponseTimeMinutes != nil {
		c.ResponseTimeMinutes = sql.NullInt64{Int64: *req.ResponseTimeMinutes, Valid: true}
	}
	if req.ResolutionTimeMinutes != nil {
		c.ResolutionTimeMinutes = sql.NullInt64{Int64: *req.ResolutionTimeMinutes, Valid: true}
	}
	if req.EscalationLevels != nil {
		levelsJSON, err := json.Marshal(req.EscalationLevels)
		if err != nil {
			return nil, fmt.Errorf("failed to encode escalation levels: %w", err)
		}
		c.EscalationLevels = sql.NullString{String: string(levelsJSON), Valid: true}
	}
	if req.NotificationRules != nil {
		rulesJSON, err := json.Marshal(req.NotificationRules)
		if err != nil {
			return nil, fmt.Errorf("failed to encode notification rules: %w", err)
		}
		c.NotificationRules = sql.NullString{String: string(rulesJSON), Valid: true}
	}

	if err := s.slas.UpdateConfiguration(c); err != nil {
		return nil, err
	}
	s.audit(updatedBy, "update", "sla_configuration", c.ConfigID, &old, c)
	return c, nil
}

// GetConfiguration retrieves one configuration
func (s *SlaService) GetConfiguration(id int64) (*models.SlaConfiguration, error) {
	return s.slas.GetConfiguration(id)
}

// ListConfigurations retrieves configurations matching the filter
func (s *SlaService) ListConfigurations(filter models.SlaConfigFilter) ([]models.SlaConfiguration, error) {
	return s.slas.ListConfigurations(filter)
}

// CreateTracking places an entity under SLA monitoring. Due dates are the
// creation instant advanced by the configured response and resolution minutes.
func (s *SlaService) CreateTracking(req *models.CreateSlaTrackingRequest) (*models.SlaTracking, error) {
	if req.SlaConfigID == 0 {
		return nil, models.NewValidationError("sla_config_id")
	}
	if req.EntityType == "" {
		return nil, models.NewValidationError("entity_type")
	}
	if req.EntityID == 0 {
		return nil, models.NewValidationError("entity_id")
	}

	config, err := s.slas.GetConfiguration(req.SlaConfigID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.SlaTracking{
		SlaConfigID: config.ConfigID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Status:      models.SlaOnTrack,
	}
	if config.ResponseTimeMinutes.Valid {
		t.ResponseDueAt = sql.NullTime{
			Time:  now.Add(time.Duration(config.ResponseTimeMinutes.Int64) * time.Minute),
			Valid: true,
		}
	}
	if config.ResolutionTimeMinutes.Valid {
		t.ResolutionDueAt = sql.NullTime{
			Time:  now.Add(time.Duration(config.ResolutionTimeMinutes.Int64) * time.Minute),
			Valid: true,
		}
	}

	if err := s.slas.CreateTracking(t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTracking retrieves one tracking row
func (s *SlaService) GetTracking(id int64) (*models.SlaTracking, error) {
	return s.slas.GetTracking(id)
}

// ListTracking retrieves tracking rows matching the filter
func (s *SlaService) ListTracking(filter models.SlaTrackingFilter) ([]models.SlaTracking, error) {
	return s.slas.ListTracking(filter)
}

// ListBreached retrieves rows currently at risk or breached
func (s *SlaService) ListBreached() ([]models.SlaTracking, error) {
	return s.slas.ListBreached()
}

// MarkResponded records that the tracked entity got its first response
func (s *SlaService) MarkResponded(id, userID int64) error {
	if _, err := s.slas.GetTracking(id); err != nil {
		return err
	}
	if err := s.slas.MarkResponded(id, s.now()); err != nil {
		return err
	}
	s.audit(userID, "respond", "sla_tracking", id, nil, nil)
	return nil
}

// MarkResolved records resolution and retires the row from monitoring
func (s *SlaService) MarkResolved(id, userID int64) error {
	if _, err := s.slas.GetTracking(id); err != nil {
		return err
	}
	if err := s.slas.MarkResolved(id, s.now()); err != nil {
		return err
	}
	s.audit(userID, "resolve", "sla_tracking", id, nil, nil)
	return nil
}

// ManualEscalate advances the escalation ladder on a user's request rather
// than a breach check
func (s *SlaService) ManualEscalate(id, userID int64, reason string) (*models.SlaTracking, error) {
	if reason == "" {
		return nil, models.NewValidationError("reason")
	}
	t, err := s.slas.GetTracking(id)
	if err != nil {
		return nil, err
	}
	if t.Status == models.SlaResolved {
		return nil, models.NewBusinessRuleError("sla_resolved",
			"cannot escalate a resolved SLA tracking row")
	}

	config, err := s.slas.GetConfiguration(t.SlaConfigID)
	if err != nil {
		return nil, err
	}
	levels, err := repository.ParseEscalationLevels(config.EscalationLevels)
	if err != nil {
		return nil, err
	}
	if t.CurrentEscalationLevel >= len(levels) {
		return nil, models.NewBusinessRuleError("sla_escalation_exhausted",
			"all escalation levels have been used")
	}

	step := levels[t.CurrentEscalationLevel]
	now := s.now()
	history, err := repository.ParseEscalationHistory(t.EscalationHistory)
	if err != nil {
		return nil, err
	}
	history = append(history, models.EscalationEvent{
		Level:       t.CurrentEscalationLevel + 1,
		EscalatedAt: now.Format(time.RFC3339),
		EscalatedTo: step.EscalateTo,
		EscalatedBy: userID,
		Reason:      reason,
	})
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode escalation history: %w", err)
	}

	if err := s.slas.SaveManualEscalation(id, t.CurrentEscalationLevel+1, string(historyJSON)); err != nil {
		return nil, err
	}
	s.audit(userID, "escalate", "sla_tracking", id, nil, nil)
	s.notify(models.NotificationRequest{
		RecipientID:       step.EscalateTo,
		NotificationType:  models.NotificationSlaAlert,
		Title:             "SLA escalated to you",
		Message:           fmt.Sprintf("SLA for %s #%d was escalated to level %d: %s", t.EntityType, t.EntityID, t.CurrentEscalationLevel+1, reason),
		RelatedEntityType: "sla_tracking",
		RelatedEntityID:   t.TrackingID,
		Priority:          models.PriorityHigh,
	})
	return s.slas.GetTracking(id)
}

// RunBreachChecks is one monitoring pass: flag upcoming response deadlines,
// mark overdue responses and resolutions breached, and escalate newly
// breached rows. Every status transition is detected through the guarded
// UPDATE, so overlapping passes escalate and notify each breach exactly once.
func (s *SlaService) RunBreachChecks() (*models.SlaCheckSummary, error) {
	now := s.now()
	summary := &models.SlaCheckSummary{ProcessedAt: now}

	atRisk, err := s.slas.ResponseAtRisk(now, now.Add(atRiskWindow))
	if err != nil {
		return summary, err
	}
	for _, t := range atRisk {
		transitioned, err := s.slas.MarkAtRisk(t.TrackingID)
		if err != nil {
			log.Printf("[SLA] Failed to mark tracking %d at risk: %v", t.TrackingID, err)
			continue
		}
		if !transitioned {
			continue
		}
		summary.AtRisk++
		s.notifyRule(&t, "response_at_risk", models.PriorityHigh,
			"SLA response at risk",
			fmt.Sprintf("Response for %s #%d is due by %s", t.EntityType, t.EntityID, dueString(t.ResponseDueAt)))
	}

	respBreached, err := s.slas.ResponseBreached(now)
	if err != nil {
		return summary, err
	}
	for _, t := range respBreached {
		transitioned, err := s.slas.MarkBreached(t.TrackingID)
		if err != nil {
			log.Printf("[SLA] Failed to mark tracking %d breached: %v", t.TrackingID, err)
			continue
		}
		if !transitioned {
			continue
		}
		summary.ResponseBreached++
		s.notifyRule(&t, "response_breached", models.PriorityCritical,
			"SLA response breached",
			fmt.Sprintf("Response for %s #%d was due by %s", t.EntityType, t.EntityID, dueString(t.ResponseDueAt)))
		if s.escalate(&t, now, "response time breached") {
			summary.Escalated++
		}
	}

	resBreached, err := s.slas.ResolutionBreached(now)
	if err != nil {
		return summary, err
	}
	for _, t := range resBreached {
		transitioned, err := s.slas.MarkBreached(t.TrackingID)
		if err != nil {
			log.Printf("[SLA] Failed to mark tracking %d breached: %v", t.TrackingID, err)
			continue
		}
		if !transitioned {
			continue
		}
		summary.ResolutionBreached++
		s.notifyRule(&t, "resolution_breached", models.PriorityCritical,
			"SLA resolution breached",
			fmt.Sprintf("Resolution for %s #%d was due by %s", t.EntityType, t.EntityID, dueString(t.ResolutionDueAt)))
		if s.escalate(&t, now, "resolution time breached") {
			summary.Escalated++
		}
	}

	if summary.AtRisk > 0 || summary.ResponseBreached > 0 || summary.ResolutionBreached > 0 {
		log.Printf("[SLA] Breach check: %d at risk, %d response breached, %d resolution breached, %d escalated",
			summary.AtRisk, summary.ResponseBreached, summary.ResolutionBreached, summary.Escalated)
	}
	return summary, nil
}

// escalate advances one rung of the configured ladder for a freshly breached
// row. Callers only invoke it after a guarded status transition, which is
// what keeps escalation to once per breach. Returns whether a rung fired.
func (s *SlaService) escalate(t *models.TrackedSla, now time.Time, reason string) bool {
	levels, err := repository.ParseEscalationLevels(t.EscalationLevels)
	if err != nil {
		log.Printf("[SLA] Tracking %d has invalid escalation levels: %v", t.TrackingID, err)
		return false
	}
	if t.CurrentEscalationLevel >= len(levels) {
		return false
	}
	step := levels[t.CurrentEscalationLevel]

	history, err := repository.ParseEscalationHistory(t.EscalationHistory)
	if err != nil {
		log.Printf("[SLA] Tracking %d has invalid escalation history: %v", t.TrackingID, err)
		return false
	}
	history = append(history, models.EscalationEvent{
		Level:       t.CurrentEscalationLevel + 1,
		EscalatedAt: now.Format(time.RFC3339),
		EscalatedTo: step.EscalateTo,
		Reason:      reason,
	})
	historyJSON, err := json.Marshal(history)
	if err != nil {
		log.Printf("[SLA] Failed to encode escalation history for tracking %d: %v", t.TrackingID, err)
		return false
	}

	if err := s.slas.SaveEscalation(t.TrackingID, t.CurrentEscalationLevel+1, string(historyJSON)); err != nil {
		log.Printf("[SLA] Failed to save escalation for tracking %d: %v", t.TrackingID, err)
		return false
	}
	s.audit(0, "escalate", "sla_tracking", t.TrackingID, nil, nil)

	s.notify(models.NotificationRequest{
		RecipientID:       step.EscalateTo,
		NotificationType:  models.NotificationSlaAlert,
		Title:             "SLA escalated to you",
		Message:           fmt.Sprintf("SLA for %s #%d escalated to level %d: %s", t.EntityType, t.EntityID, t.CurrentEscalationLevel+1, reason),
		RelatedEntityType: "sla_tracking",
		RelatedEntityID:   t.TrackingID,
		Priority:          models.PriorityCritical,
	})
	s.notifyRule(t, "escalated", models.PriorityCritical,
		"SLA escalated",
		fmt.Sprintf("SLA for %s #%d escalated to level %d", t.EntityType, t.EntityID, t.CurrentEscalationLevel+1))
	return true
}

// notifyRule fans a breach event out to the recipients configured for it.
// A missing event key means nobody gets notified.
func (s *SlaService) notifyRule(t *models.TrackedSla, event string, priority models.Priority, title, message string) {
	rules, err := repository.ParseNotificationRules(t.NotificationRules)
	if err != nil {
		log.Printf("[SLA] Tracking %d has invalid notification rules: %v", t.TrackingID, err)
		return
	}
	for _, recipientID := range rules[event] {
		s.notify(models.NotificationRequest{
			RecipientID:       recipientID,
			NotificationType:  models.NotificationSlaAlert,
			Title:             title,
			Message:           message,
			RelatedEntityType: "sla_tracking",
			RelatedEntityID:   t.TrackingID,
			Priority:          priority,
		})
	}
}

func (s *SlaService) notify(req models.NotificationRequest) {
	if err := s.notifier.Notify(req); err != nil {
		log.Printf("[SLA] Failed to notify user %d: %v", req.RecipientID, err)
	}
}

func (s *SlaService) audit(userID int64, action, entityType string, entityID int64, oldValue, newValue interface{}) {
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
		log.Printf("[SLA] Failed to write audit log for %s %d: %v", entityType, entityID, err)
	}
}

func dueString(t sql.NullTime) string {
	if !t.Valid {
		return "unknown"
	}
	return t.Time.Format(time.RFC3339)
}
