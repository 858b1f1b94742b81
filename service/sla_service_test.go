package service

import (
	"database/sql"
	"testing"
	"time"

	"prodline/models"
)

// fakeSlaStore mirrors the repository's query predicates in memory
type fakeSlaStore struct {
	configs  map[int64]*models.SlaConfiguration
	tracking map[int64]*models.SlaTracking
	nextID   int64
}

func newFakeSlaStore() *fakeSlaStore {
	return &fakeSlaStore{
		configs:  make(map[int64]*models.SlaConfiguration),
		tracking: make(map[int64]*models.SlaTracking),
	}
}

func (f *fakeSlaStore) GetConfiguration(id int64) (*models.SlaConfiguration, error) {
	c, ok := f.configs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeSlaStore) ListConfigurations(filter models.SlaConfigFilter) ([]models.SlaConfiguration, error) {
	var out []models.SlaConfiguration
	for _, c := range f.configs {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeSlaStore) CreateConfiguration(c *models.SlaConfiguration) error {
	f.nextID++
	c.ConfigID = f.nextID
	copied := *c
	f.configs[c.ConfigID] = &copied
	return nil
}

func (f *fakeSlaStore) UpdateConfiguration(c *models.SlaConfiguration) error {
	copied := *c
	f.configs[c.ConfigID] = &copied
	return nil
}

func (f *fakeSlaStore) CreateTracking(t *models.SlaTracking) error {
	f.nextID++
	t.TrackingID = f.nextID
	t.Status = models.SlaOnTrack
	copied := *t
	f.tracking[t.TrackingID] = &copied
	return nil
}

func (f *fakeSlaStore) GetTracking(id int64) (*models.SlaTracking, error) {
	t, ok := f.tracking[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeSlaStore) ListTracking(filter models.SlaTrackingFilter) ([]models.SlaTracking, error) {
	var out []models.SlaTracking
	for _, t := range f.tracking {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeSlaStore) ListBreached() ([]models.SlaTracking, error) {
	var out []models.SlaTracking
	for _, t := range f.tracking {
		if (t.Status == models.SlaAtRisk || t.Status == models.SlaBreached) && !t.ResolvedAt.Valid {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeSlaStore) joined(t *models.SlaTracking) models.TrackedSla {
	tracked := models.TrackedSla{SlaTracking: *t}
	if c, ok := f.configs[t.SlaConfigID]; ok {
		tracked.SlaName = sql.NullString{String: c.SlaName, Valid: true}
		tracked.EscalationLevels = c.EscalationLevels
		tracked.NotificationRules = c.NotificationRules
	}
	return tracked
}

func (f *fakeSlaStore) ResponseAtRisk(now, until time.Time) ([]models.TrackedSla, error) {
	var out []models.TrackedSla
	for _, t := range f.tracking {
		if t.Status == models.SlaOnTrack && !t.RespondedAt.Valid && t.ResponseDueAt.Valid &&
			!t.ResponseDueAt.Time.Before(now) && !t.ResponseDueAt.Time.After(until) {
			out = append(out, f.joined(t))
		}
	}
	return out, nil
}

func (f *fakeSlaStore) ResponseBreached(now time.Time) ([]models.TrackedSla, error) {
	var out []models.TrackedSla
	for _, t := range f.tracking {
		if (t.Status == models.SlaOnTrack || t.Status == models.SlaAtRisk) &&
			!t.RespondedAt.Valid && t.ResponseDueAt.Valid && t.ResponseDueAt.Time.Before(now) {
			out = append(out, f.joined(t))
		}
	}
	return out, nil
}

func (f *fakeSlaStore) ResolutionBreached(now time.Time) ([]models.TrackedSla, error) {
	var out []models.TrackedSla
	for _, t := range f.tracking {
		if t.Status != models.SlaBreached && t.Status != models.SlaResolved &&
			!t.ResolvedAt.Valid && t.ResolutionDueAt.Valid && t.ResolutionDueAt.Time.Before(now) {
			out = append(out, f.joined(t))
		}
	}
	return out, nil
}

func (f *fakeSlaStore) MarkAtRisk(id int64) (bool, error) {
	t, ok := f.tracking[id]
	if !ok || t.Status != models.SlaOnTrack || t.RespondedAt.Valid {
		return false, nil
	}
	t.Status = models.SlaAtRisk
	return true, nil
}

func (f *fakeSlaStore) MarkBreached(id int64) (bool, error) {
	t, ok := f.tracking[id]
	if !ok || (t.Status != models.SlaOnTrack && t.Status != models.SlaAtRisk) {
		return false, nil
	}
	t.Status = models.SlaBreached
	return true, nil
}

func (f *fakeSlaStore) MarkResponded(id int64, at time.Time) error {
	if t, ok := f.tracking[id]; ok {
		t.RespondedAt = sql.NullTime{Time: at, Valid: true}
	}
	return nil
}

func (f *fakeSlaStore) MarkResolved(id int64, at time.Time) error {
	if t, ok := f.tracking[id]; ok {
		t.ResolvedAt = sql.NullTime{Time: at, Valid: true}
		t.Status = models.SlaResolved
	}
	return nil
}

func (f *fakeSlaStore) SaveEscalation(id int64, level int, historyJSON string) error {
	if t, ok := f.tracking[id]; ok {
		t.CurrentEscalationLevel = level
		t.EscalationHistory = sql.NullString{String: historyJSON, Valid: true}
	}
	return nil
}

func (f *fakeSlaStore) SaveManualEscalation(id int64, level int, historyJSON string) error {
	if err := f.SaveEscalation(id, level, historyJSON); err != nil {
		return err
	}
	f.tracking[id].Status = models.SlaAtRisk
	return nil
}

// fakeSink collects delivered notifications
type fakeSink struct {
	sent []models.NotificationRequest
}

func (f *fakeSink) Notify(req models.NotificationRequest) error {
	f.sent = append(f.sent, req)
	return nil
}

func (f *fakeSink) sentTo(recipientID int64) int {
	n := 0
	for _, req := range f.sent {
		if req.RecipientID == recipientID {
			n++
		}
	}
	return n
}

// fakeAudit counts audit entries
type fakeAudit struct {
	entries []*models.AuditLog
}

func (f *fakeAudit) CreateAuditLog(a *models.AuditLog) error {
	f.entries = append(f.entries, a)
	return nil
}

func newTestSlaService(store *fakeSlaStore, sink *fakeSink, at time.Time) *SlaService {
	s := NewSlaService(store, sink, &fakeAudit{})
	s.now = func() time.Time { return at }
	return s
}

func TestCreateTrackingDueDates(t *testing.T) {
	store := newFakeSlaStore()
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSlaService(store, sink, t0)

	resp := int64(60)
	res := int64(240)
	config, err := svc.CreateConfiguration(&models.CreateSlaConfigRequest{
		SlaName:               "sop response",
		EntityType:            "sop_ticket",
		ResponseTimeMinutes:   &resp,
		ResolutionTimeMinutes: &res,
	}, 1)
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}

	tracking, err := svc.CreateTracking(&models.CreateSlaTrackingRequest{
		SlaConfigID: config.ConfigID,
		EntityType:  "sop_ticket",
		EntityID:    42,
	})
	if err != nil {
		t.Fatalf("CreateTracking: %v", err)
	}
	if got, want := tracking.ResponseDueAt.Time, t0.Add(60*time.Minute); !got.Equal(want) {
		t.Errorf("response_due_at = %v, want %v", got, want)
	}
	if got, want := tracking.ResolutionDueAt.Time, t0.Add(240*time.Minute); !got.Equal(want) {
		t.Errorf("resolution_due_at = %v, want %v", got, want)
	}
	if tracking.Status != models.SlaOnTrack {
		t.Errorf("status = %s, want on_track", tracking.Status)
	}
}

func TestBreachCheckEscalates(t *testing.T) {
	store := newFakeSlaStore()
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSlaService(store, sink, t0)

	resp := int64(60)
	config, err := svc.CreateConfiguration(&models.CreateSlaConfigRequest{
		SlaName:             "sop response",
		EntityType:          "sop_ticket",
		ResponseTimeMinutes: &resp,
		EscalationLevels:    []models.EscalationStep{{Level: 1, EscalateTo: 5}},
		NotificationRules:   models.NotificationRules{"response_breached": {9}},
	}, 1)
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}
	tracking, err := svc.CreateTracking(&models.CreateSlaTrackingRequest{
		SlaConfigID: config.ConfigID,
		EntityType:  "sop_ticket",
		EntityID:    42,
	})
	if err != nil {
		t.Fatalf("CreateTracking: %v", err)
	}

	// 65 minutes later, no response recorded
	svc.now = func() time.Time { return t0.Add(65 * time.Minute) }
	summary, err := svc.RunBreachChecks()
	if err != nil {
		t.Fatalf("RunBreachChecks: %v", err)
	}
	if summary.ResponseBreached != 1 {
		t.Errorf("response breached = %d, want 1", summary.ResponseBreached)
	}
	if summary.Escalated != 1 {
		t.Errorf("escalated = %d, want 1", summary.Escalated)
	}

	got := store.tracking[tracking.TrackingID]
	if got.Status != models.SlaBreached {
		t.Errorf("status = %s, want breached", got.Status)
	}
	if got.CurrentEscalationLevel != 1 {
		t.Errorf("current_escalation_level = %d, want 1", got.CurrentEscalationLevel)
	}
	if sink.sentTo(5) != 1 {
		t.Errorf("escalation recipient 5 got %d notifications, want 1", sink.sentTo(5))
	}
	if sink.sentTo(9) != 1 {
		t.Errorf("rule recipient 9 got %d notifications, want 1", sink.sentTo(9))
	}
}

func TestBreachCheckIdempotent(t *testing.T) {
	store := newFakeSlaStore()
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSlaService(store, sink, t0)

	res := int64(60)
	config, err := svc.CreateConfiguration(&models.CreateSlaConfigRequest{
		SlaName:               "resolution",
		EntityType:            "sop_ticket",
		ResolutionTimeMinutes: &res,
		EscalationLevels: []models.EscalationStep{
			{Level: 1, EscalateTo: 5},
			{Level: 2, EscalateTo: 6},
		},
	}, 1)
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}
	tracking, err := svc.CreateTracking(&models.CreateSlaTrackingRequest{
		SlaConfigID: config.ConfigID,
		EntityType:  "sop_ticket",
		EntityID:    7,
	})
	if err != nil {
		t.Fatalf("CreateTracking: %v", err)
	}

	svc.now = func() time.Time { return t0.Add(2 * time.Hour) }
	if _, err := svc.RunBreachChecks(); err != nil {
		t.Fatalf("first RunBreachChecks: %v", err)
	}
	first := *store.tracking[tracking.TrackingID]
	sentAfterFirst := len(sink.sent)

	// Same clock, no row changes: the second pass must not re-escalate
	summary, err := svc.RunBreachChecks()
	if err != nil {
		t.Fatalf("second RunBreachChecks: %v", err)
	}
	if summary.ResolutionBreached != 0 || summary.Escalated != 0 {
		t.Errorf("second pass did work: %+v", summary)
	}
	second := *store.tracking[tracking.TrackingID]
	if second.CurrentEscalationLevel != first.CurrentEscalationLevel {
		t.Errorf("escalation level advanced from %d to %d on an unchanged row",
			first.CurrentEscalationLevel, second.CurrentEscalationLevel)
	}
	if second.EscalationHistory.String != first.EscalationHistory.String {
		t.Error("escalation history changed on an unchanged row")
	}
	if len(sink.sent) != sentAfterFirst {
		t.Errorf("second pass sent %d extra notifications", len(sink.sent)-sentAfterFirst)
	}
}

func TestAtRiskWindow(t *testing.T) {
	store := newFakeSlaStore()
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSlaService(store, sink, t0)

	resp := int64(60)
	config, err := svc.CreateConfiguration(&models.CreateSlaConfigRequest{
		SlaName:             "response",
		EntityType:          "sop_ticket",
		ResponseTimeMinutes: &resp,
		NotificationRules:   models.NotificationRules{"response_at_risk": {3}},
	}, 1)
	if err != nil {
		t.Fatalf("CreateConfiguration: %v", err)
	}
	tracking, err := svc.CreateTracking(&models.CreateSlaTrackingRequest{
		SlaConfigID: config.ConfigID,
		EntityType:  "sop_ticket",
		EntityID:    1,
	})
	if err != nil {
		t.Fatalf("CreateTracking: %v", err)
	}

	// 20 minutes before the deadline: inside the 30-minute warning window
	svc.now = func() time.Time { return t0.Add(40 * time.Minute) }
	summary, err := svc.RunBreachChecks()
	if err != nil {
		t.Fatalf("RunBreachChecks: %v", err)
	}
	if summary.AtRisk != 1 {
		t.Errorf("at risk = %d, want 1", summary.AtRisk)
	}
	if store.tracking[tracking.TrackingID].Status != models.SlaAtRisk {
		t.Errorf("status = %s, want at_risk", store.tracking[tracking.TrackingID].Status)
	}
	if sink.sentTo(3) != 1 {
		t.Errorf("rule recipient 3 got %d notifications, want 1", sink.sentTo(3))
	}
}

func TestMarkRespondedStopsBreach(t *testing.T) {
	store := newFakeSlaStore()
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newTestSlaService(store, sink, t0)

	resp := int64(30)
	config, _ := svc.CreateConfiguration(&models.CreateSlaConfigRequest{
		SlaName:             "response",
		EntityType:          "sop_ticket",
		ResponseTimeMinutes: &resp,
	}, 1)
	tracking, _ := svc.CreateTracking(&models.CreateSlaTrackingRequest{
		SlaConfigID: config.ConfigID,
		EntityType:  "sop_ticket",
		EntityID:    1,
	})

	if err := svc.MarkResponded(tracking.TrackingID, 2); err != nil {
		t.Fatalf("MarkResponded: %v", err)
	}

	svc.now = func() time.Time { return t0.Add(2 * time.Hour) }
	summary, err := svc.RunBreachChecks()
	if err != nil {
		t.Fatalf("RunBreachChecks: %v", err)
	}
	if summary.ResponseBreached != 0 {
		t.Errorf("responded row was marked breached")
	}
}
