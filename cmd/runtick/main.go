// runtick runs one full scheduler pass against the configured database and
// exits, printing each task's outcome.
// Usage: from project root, run: go run ./cmd/runtick
// Requires .env (or env) with DB_*.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"prodline/config"
	"prodline/repository"
	"prodline/service"
	"prodline/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env not found")
	}
	cfg := config.LoadConfig()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.Database.User, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("DB open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("DB ping: %v", err)
	}

	slaRepo := repository.NewSlaRepository(db)
	sopRepo := repository.NewSopRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)

	notificationService := service.NewNotificationService(notificationRepo)
	slaService := service.NewSlaService(slaRepo, notificationService, auditRepo)
	sopService := service.NewSopService(sopRepo, departmentRepo, notificationService, auditRepo)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, machineRepo, departmentRepo, notificationService, auditRepo)
	dispatchService := service.NewDispatchService(reportRepo)

	scheduler := worker.NewScheduler([]worker.Task{
		{Name: "sla_breach_check", Run: func() error {
			summary, err := slaService.RunBreachChecks()
			if err == nil {
				fmt.Printf("sla_breach_check: %d at risk, %d response breached, %d resolution breached, %d escalated\n",
					summary.AtRisk, summary.ResponseBreached, summary.ResolutionBreached, summary.Escalated)
			}
			return err
		}},
		{Name: "sop_timeout_escalation", Run: func() error {
			n, err := sopService.EscalateStale()
			if err == nil {
				fmt.Printf("sop_timeout_escalation: %d tickets escalated to HOD\n", n)
			}
			return err
		}},
		{Name: "pm_due_soon", Run: func() error {
			n, err := maintenanceService.NotifyDueSoon()
			if err == nil {
				fmt.Printf("pm_due_soon: %d notifications sent\n", n)
			}
			return err
		}},
		{Name: "d365_sync", Run: func() error {
			n, err := dispatchService.TriggerDueSyncs()
			if err == nil {
				fmt.Printf("d365_sync: %d syncs triggered\n", n)
			}
			return err
		}},
		{Name: "scheduled_reports", Run: func() error {
			n, err := dispatchService.DispatchDueReports()
			if err == nil {
				fmt.Printf("scheduled_reports: %d reports dispatched\n", n)
			}
			return err
		}},
	}, time.Minute)

	scheduler.RunOnce()
	for _, status := range scheduler.Status() {
		if status.LastError != "" {
			fmt.Printf("%s: FAILED: %s\n", status.Name, status.LastError)
		}
	}
}
