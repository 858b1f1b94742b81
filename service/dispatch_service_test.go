package service

import (
	"database/sql"
	"testing"
	"time"

	"prodline/models"
)

type fakeReportStore struct {
	reports []models.EmailReport
	syncs   []models.D365SyncConfig
}

func (f *fakeReportStore) DueReports(now time.Time) ([]models.EmailReport, error) {
	var out []models.EmailReport
	for _, r := range f.reports {
		if r.IsActive && !r.NextRunAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReportStore) UpdateReportRun(id int64, lastRun, nextRun time.Time) error {
	for i := range f.reports {
		if f.reports[i].ReportID == id {
			f.reports[i].LastRunAt = sql.NullTime{Time: lastRun, Valid: true}
			f.reports[i].NextRunAt = nextRun
		}
	}
	return nil
}

func (f *fakeReportStore) DueSyncConfigs(now time.Time) ([]models.D365SyncConfig, error) {
	var out []models.D365SyncConfig
	for _, c := range f.syncs {
		if c.IsActive && !c.NextSyncAt.After(now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeReportStore) UpdateSyncRun(id int64, lastSync, nextSync time.Time) error {
	for i := range f.syncs {
		if f.syncs[i].ConfigID == id {
			f.syncs[i].LastSyncAt = sql.NullTime{Time: lastSync, Valid: true}
			f.syncs[i].NextSyncAt = nextSync
		}
	}
	return nil
}

func TestDispatchDueReports(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeReportStore{reports: []models.EmailReport{
		{
			ReportID:       1,
			ReportName:     "daily production summary",
			ScheduleConfig: sql.NullString{String: `{"frequency":"daily"}`, Valid: true},
			NextRunAt:      t0.Add(-time.Hour),
			IsActive:       true,
		},
		{
			ReportID:       2,
			ReportName:     "weekly downtime",
			ScheduleConfig: sql.NullString{String: `{"frequency":"weekly"}`, Valid: true},
			NextRunAt:      t0.Add(-time.Hour),
			IsActive:       true,
		},
		{
			ReportID:   3,
			ReportName: "not yet due",
			NextRunAt:  t0.Add(time.Hour),
			IsActive:   true,
		},
		{
			ReportID:   4,
			ReportName: "disabled",
			NextRunAt:  t0.Add(-time.Hour),
			IsActive:   false,
		},
	}}
	svc := NewDispatchService(store)
	svc.now = func() time.Time { return t0 }

	dispatched, err := svc.DispatchDueReports()
	if err != nil {
		t.Fatalf("DispatchDueReports: %v", err)
	}
	if dispatched != 2 {
		t.Errorf("dispatched = %d, want 2", dispatched)
	}

	if got, want := store.reports[0].NextRunAt, t0.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("daily next_run_at = %v, want %v", got, want)
	}
	if got, want := store.reports[1].NextRunAt, t0.Add(7*24*time.Hour); !got.Equal(want) {
		t.Errorf("weekly next_run_at = %v, want %v", got, want)
	}
	if !store.reports[0].LastRunAt.Valid {
		t.Error("dispatched report missing last_run_at")
	}
	if store.reports[2].LastRunAt.Valid || store.reports[3].LastRunAt.Valid {
		t.Error("undue or inactive report was dispatched")
	}
}

func TestReportIntervalFallback(t *testing.T) {
	tests := []struct {
		frequency string
		want      time.Duration
	}{
		{"daily", 24 * time.Hour},
		{"weekly", 7 * 24 * time.Hour},
		{"monthly", 30 * 24 * time.Hour},
		{"hourly", 24 * time.Hour},
		{"", 24 * time.Hour},
	}
	for _, tt := range tests {
		if got := reportInterval(tt.frequency); got != tt.want {
			t.Errorf("reportInterval(%q) = %v, want %v", tt.frequency, got, tt.want)
		}
	}
}

func TestTriggerDueSyncs(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	store := &fakeReportStore{syncs: []models.D365SyncConfig{
		{ConfigID: 1, ConfigName: "inventory", NextSyncAt: t0.Add(-time.Minute), IsActive: true},
		{ConfigID: 2, ConfigName: "orders", NextSyncAt: t0.Add(time.Hour), IsActive: true},
	}}
	svc := NewDispatchService(store)
	svc.now = func() time.Time { return t0 }

	triggered, err := svc.TriggerDueSyncs()
	if err != nil {
		t.Fatalf("TriggerDueSyncs: %v", err)
	}
	if triggered != 1 {
		t.Errorf("triggered = %d, want 1", triggered)
	}
	if got, want := store.syncs[0].NextSyncAt, t0.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("next_sync_at = %v, want %v", got, want)
	}
	if store.syncs[1].LastSyncAt.Valid {
		t.Error("undue sync config was triggered")
	}
}
