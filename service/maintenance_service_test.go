package service

import (
	"database/sql"
	"testing"
	"time"

	"prodline/models"
)

type fakeMaintenanceStore struct {
	schedules map[int64]*models.PreventiveMaintenanceSchedule
	logs      []models.PreventiveMaintenanceLog
	nextID    int64
}

func newFakeMaintenanceStore() *fakeMaintenanceStore {
	return &fakeMaintenanceStore{schedules: make(map[int64]*models.PreventiveMaintenanceSchedule)}
}

func (f *fakeMaintenanceStore) CreateSchedule(s *models.PreventiveMaintenanceSchedule) error {
	f.nextID++
	s.ScheduleID = f.nextID
	s.IsActive = true
	copied := *s
	f.schedules[s.ScheduleID] = &copied
	return nil
}

func (f *fakeMaintenanceStore) GetSchedule(id int64) (*models.PreventiveMaintenanceSchedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeMaintenanceStore) ListSchedules(machineID int64, activeOnly bool) ([]models.PreventiveMaintenanceSchedule, error) {
	var out []models.PreventiveMaintenanceSchedule
	for _, s := range f.schedules {
		if machineID > 0 && s.MachineID != machineID {
			continue
		}
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeMaintenanceStore) UpdateSchedule(s *models.PreventiveMaintenanceSchedule) error {
	copied := *s
	f.schedules[s.ScheduleID] = &copied
	return nil
}

func (f *fakeMaintenanceStore) DeactivateSchedule(id int64) error {
	f.schedules[id].IsActive = false
	return nil
}

func (f *fakeMaintenanceStore) SaveRecurrence(id int64, performedAt, nextDueAt time.Time) error {
	s := f.schedules[id]
	s.LastPerformedAt = sql.NullTime{Time: performedAt, Valid: true}
	s.NextDueAt = nextDueAt
	return nil
}

func (f *fakeMaintenanceStore) CreateLog(l *models.PreventiveMaintenanceLog) error {
	f.nextID++
	l.LogID = f.nextID
	f.logs = append(f.logs, *l)
	return nil
}

func (f *fakeMaintenanceStore) ListLogs(scheduleID int64) ([]models.PreventiveMaintenanceLog, error) {
	var out []models.PreventiveMaintenanceLog
	for _, l := range f.logs {
		if l.ScheduleID == scheduleID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeMaintenanceStore) DueSoon(cutoff time.Time) ([]models.DueSchedule, error) {
	var out []models.DueSchedule
	for _, s := range f.schedules {
		if s.IsActive && !s.NextDueAt.After(cutoff) {
			out = append(out, models.DueSchedule{
				PreventiveMaintenanceSchedule: *s,
				MachineName:                   sql.NullString{String: "CNC-7", Valid: true},
				DepartmentID:                  sql.NullInt64{Int64: 2, Valid: true},
			})
		}
	}
	return out, nil
}

type fakeMachineStore struct {
	machines map[int64]*models.Machine
}

func (f *fakeMachineStore) GetMachine(id int64) (*models.Machine, error) {
	m, ok := f.machines[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMachineStore) UpdateStatus(id int64, status models.MachineStatus) error {
	f.machines[id].Status = status
	return nil
}

func (f *fakeMachineStore) RestoreAvailable(id int64) error {
	if f.machines[id].Status == models.MachineMaintenance {
		f.machines[id].Status = models.MachineAvailable
	}
	return nil
}

type fakeEmployeeStore struct {
	technicianUsers map[int64]int64 // employee id -> user id
	managers        map[int64]int64 // department id -> manager user id
}

func (f *fakeEmployeeStore) GetEmployeeUserID(employeeID int64) (*int64, error) {
	userID, ok := f.technicianUsers[employeeID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &userID, nil
}

func (f *fakeEmployeeStore) GetManagerID(departmentID int64) (*int64, error) {
	managerID, ok := f.managers[departmentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &managerID, nil
}

func newTestMaintenanceService(store *fakeMaintenanceStore, machines *fakeMachineStore, sink *fakeSink, at time.Time) *MaintenanceService {
	employees := &fakeEmployeeStore{
		technicianUsers: map[int64]int64{7: 207},
		managers:        map[int64]int64{2: 102},
	}
	s := NewMaintenanceService(store, machines, employees, sink, &fakeAudit{})
	s.now = func() time.Time { return at }
	return s
}

func TestCalculateNextDue(t *testing.T) {
	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name           string
		frequencyType  models.FrequencyType
		frequencyValue int
		wantDays       int
	}{
		{"daily", models.FrequencyDaily, 1, 1},
		{"every 3 days", models.FrequencyDaily, 3, 3},
		{"weekly", models.FrequencyWeekly, 1, 7},
		{"biweekly", models.FrequencyWeekly, 2, 14},
		{"monthly", models.FrequencyMonthly, 1, 30},
		{"quarterly", models.FrequencyQuarterly, 1, 90},
		{"yearly", models.FrequencyYearly, 1, 365},
		{"unknown type falls back", models.FrequencyType("fortnightly"), 1, 30},
		{"zero value treated as one", models.FrequencyDaily, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateNextDue(tt.frequencyType, tt.frequencyValue, from)
			want := from.Add(time.Duration(tt.wantDays) * 24 * time.Hour)
			if !got.Equal(want) {
				t.Errorf("CalculateNextDue(%s, %d) = %v, want %v",
					tt.frequencyType, tt.frequencyValue, got, want)
			}
		})
	}
}

func TestLogMaintenanceRecurrence(t *testing.T) {
	store := newFakeMaintenanceStore()
	machines := &fakeMachineStore{machines: map[int64]*models.Machine{
		1: {MachineID: 1, MachineName: "CNC-7", Status: models.MachineMaintenance},
	}}
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestMaintenanceService(store, machines, sink, t0)

	schedule, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:    "spindle lubrication",
		MachineID:       1,
		MaintenanceType: "lubrication",
		FrequencyType:   models.FrequencyMonthly,
		FrequencyValue:  1,
	}, 10)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if got, want := schedule.NextDueAt, t0.Add(30*24*time.Hour); !got.Equal(want) {
		t.Errorf("initial next_due_at = %v, want %v", got, want)
	}

	// Performed ten days in, completed, no explicit machine status
	performedAt := t0.Add(10 * 24 * time.Hour)
	svc.now = func() time.Time { return performedAt }
	entry, err := svc.LogMaintenance(schedule.ScheduleID, &models.LogPmRequest{}, 7)
	if err != nil {
		t.Fatalf("LogMaintenance: %v", err)
	}
	if entry.Status != models.MaintenanceCompleted {
		t.Errorf("log status = %s, want completed", entry.Status)
	}

	got := store.schedules[schedule.ScheduleID]
	if want := performedAt.Add(30 * 24 * time.Hour); !got.NextDueAt.Equal(want) {
		t.Errorf("next_due_at = %v, want %v", got.NextDueAt, want)
	}
	if !got.LastPerformedAt.Valid || !got.LastPerformedAt.Time.Equal(performedAt) {
		t.Errorf("last_performed_at = %v, want %v", got.LastPerformedAt, performedAt)
	}
	if machines.machines[1].Status != models.MachineAvailable {
		t.Errorf("machine status = %s, want available", machines.machines[1].Status)
	}
}

func TestLogMaintenanceExplicitMachineStatus(t *testing.T) {
	store := newFakeMaintenanceStore()
	machines := &fakeMachineStore{machines: map[int64]*models.Machine{
		1: {MachineID: 1, Status: models.MachineMaintenance},
	}}
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestMaintenanceService(store, machines, sink, t0)

	schedule, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:    "belt inspection",
		MachineID:       1,
		MaintenanceType: "inspection",
		FrequencyType:   models.FrequencyWeekly,
		FrequencyValue:  1,
	}, 10)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	// Inspection found damage: machine goes broken even though work completed
	_, err = svc.LogMaintenance(schedule.ScheduleID, &models.LogPmRequest{
		MachineStatus: models.MachineBroken,
	}, 7)
	if err != nil {
		t.Fatalf("LogMaintenance: %v", err)
	}
	if machines.machines[1].Status != models.MachineBroken {
		t.Errorf("machine status = %s, want broken", machines.machines[1].Status)
	}
}

func TestLogMaintenanceKeepsBrokenMachine(t *testing.T) {
	store := newFakeMaintenanceStore()
	machines := &fakeMachineStore{machines: map[int64]*models.Machine{
		1: {MachineID: 1, Status: models.MachineBroken},
	}}
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestMaintenanceService(store, machines, sink, t0)

	schedule, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:    "filter swap",
		MachineID:       1,
		MaintenanceType: "replacement",
		FrequencyType:   models.FrequencyDaily,
		FrequencyValue:  1,
	}, 10)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if _, err := svc.LogMaintenance(schedule.ScheduleID, &models.LogPmRequest{}, 7); err != nil {
		t.Fatalf("LogMaintenance: %v", err)
	}
	if machines.machines[1].Status != models.MachineBroken {
		t.Errorf("broken machine was restored to %s", machines.machines[1].Status)
	}
}

func TestStartMaintenance(t *testing.T) {
	store := newFakeMaintenanceStore()
	machines := &fakeMachineStore{machines: map[int64]*models.Machine{
		1: {MachineID: 1, Status: models.MachineAvailable},
	}}
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestMaintenanceService(store, machines, sink, t0)

	schedule, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:    "coolant flush",
		MachineID:       1,
		MaintenanceType: "flush",
		FrequencyType:   models.FrequencyQuarterly,
		FrequencyValue:  1,
	}, 10)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	if err := svc.StartMaintenance(schedule.ScheduleID, 7); err != nil {
		t.Fatalf("StartMaintenance: %v", err)
	}
	if machines.machines[1].Status != models.MachineMaintenance {
		t.Errorf("machine status = %s, want maintenance", machines.machines[1].Status)
	}
}

func TestNotifyDueSoon(t *testing.T) {
	store := newFakeMaintenanceStore()
	machines := &fakeMachineStore{machines: map[int64]*models.Machine{
		1: {MachineID: 1, Status: models.MachineAvailable},
	}}
	sink := &fakeSink{}
	t0 := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc := newTestMaintenanceService(store, machines, sink, t0)

	technician := int64(7)
	dueSoon, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:         "spindle lubrication",
		MachineID:            1,
		MaintenanceType:      "lubrication",
		FrequencyType:        models.FrequencyDaily,
		FrequencyValue:       2,
		AssignedTechnicianID: &technician,
	}, 10)
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if _, err := svc.CreateSchedule(&models.CreatePmScheduleRequest{
		ScheduleName:    "annual overhaul",
		MachineID:       1,
		MaintenanceType: "overhaul",
		FrequencyType:   models.FrequencyYearly,
		FrequencyValue:  1,
	}, 10); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}

	sink.sent = nil
	notified, err := svc.NotifyDueSoon()
	if err != nil {
		t.Fatalf("NotifyDueSoon: %v", err)
	}
	// Technician user and department manager, only for the schedule inside the window
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
	if sink.sentTo(207) != 1 {
		t.Errorf("technician user got %d notifications, want 1", sink.sentTo(207))
	}
	if sink.sentTo(102) != 1 {
		t.Errorf("department manager got %d notifications, want 1", sink.sentTo(102))
	}
	for _, req := range sink.sent {
		if req.RelatedEntityID != dueSoon.ScheduleID {
			t.Errorf("notification references schedule %d, want %d", req.RelatedEntityID, dueSoon.ScheduleID)
		}
	}
}
