package service

import (
	"encoding/json"
	"log"
	"time"

	"prodline/models"
)

// ReportStore is the persistence surface for scheduled reports and D365
// sync triggers
type ReportStore interface {
	DueReports(now time.Time) ([]models.EmailReport, error)
	UpdateReportRun(id int64, lastRun, nextRun time.Time) error
	DueSyncConfigs(now time.Time) ([]models.D365SyncConfig, error)
	UpdateSyncRun(id int64, lastSync, nextSync time.Time) error
}

// DispatchService runs the scheduled-report and D365-sync passes. Report
// generation and the actual sync belong to adjacent layers; this service
// only triggers them and advances the recurrence.
type DispatchService struct {
	reports ReportStore
	now     func() time.Time
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(reports ReportStore) *DispatchService {
	return &DispatchService{reports: reports, now: time.Now}
}

// DispatchDueReports stamps every due report as dispatched and recomputes
// its next run from the schedule frequency
func (s *DispatchService) DispatchDueReports() (int, error) {
	now := s.now()
	due, err := s.reports.DueReports(now)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, rep := range due {
		frequency := "daily"
		if rep.ScheduleConfig.Valid && rep.ScheduleConfig.String != "" {
			var cfg models.ReportScheduleConfig
			if err := json.Unmarshal([]byte(rep.ScheduleConfig.String), &cfg); err != nil {
				log.Printf("[REPORTS] Report %d has invalid schedule config: %v", rep.ReportID, err)
			} else if cfg.Frequency != "" {
				frequency = cfg.Frequency
			}
		}
		nextRun := now.Add(reportInterval(frequency))

		log.Printf("[REPORTS] Dispatching scheduled report %q (id %d)", rep.ReportName, rep.ReportID)
		if err := s.reports.UpdateReportRun(rep.ReportID, now, nextRun); err != nil {
			log.Printf("[REPORTS] Failed to advance report %d: %v", rep.ReportID, err)
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

// TriggerDueSyncs logs a sync trigger for every due D365 config and advances
// it by a day
func (s *DispatchService) TriggerDueSyncs() (int, error) {
	now := s.now()
	due, err := s.reports.DueSyncConfigs(now)
	if err != nil {
		return 0, err
	}

	triggered := 0
	for _, cfg := range due {
		log.Printf("[D365] Sync trigger for config %q (id %d)", cfg.ConfigName, cfg.ConfigID)
		if err := s.reports.UpdateSyncRun(cfg.ConfigID, now, now.Add(24*time.Hour)); err != nil {
			log.Printf("[D365] Failed to advance sync config %d: %v", cfg.ConfigID, err)
			continue
		}
		triggered++
	}
	return triggered, nil
}

// reportInterval maps a schedule frequency to its fixed recurrence delta;
// unknown frequencies fall back to daily
func reportInterval(frequency string) time.Duration {
	switch frequency {
	case "weekly":
		return 7 * 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
