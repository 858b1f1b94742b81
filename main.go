package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"

	"prodline/config"
	"prodline/notification"
	"prodline/repository"
	"prodline/routes"
	"prodline/schema"
	"prodline/service"
	"prodline/worker"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg := config.LoadConfig()

	// Initialize database connection (UTC for consistent timestamps)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	schema.ValidateRequiredColumns(db, nil)

	// Initialize repositories
	slaRepo := repository.NewSlaRepository(db)
	sopRepo := repository.NewSopRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	machineRepo := repository.NewMachineRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, notification.NewEmailSender())
	slaService := service.NewSlaService(slaRepo, notificationService, auditRepo)
	sopService := service.NewSopService(sopRepo, departmentRepo, notificationService, auditRepo)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, machineRepo, departmentRepo, notificationService, auditRepo)
	dispatchService := service.NewDispatchService(reportRepo)
	userService := service.NewUserService(userRepo, departmentRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryHours)

	// Background scheduler
	interval := time.Duration(cfg.Scheduler.IntervalSeconds) * time.Second
	scheduler := worker.NewScheduler([]worker.Task{
		{Name: "sla_breach_check", Run: func() error {
			_, err := slaService.RunBreachChecks()
			return err
		}},
		{Name: "sop_timeout_escalation", Run: func() error {
			_, err := sopService.EscalateStale()
			return err
		}},
		{Name: "pm_due_soon", Run: func() error {
			_, err := maintenanceService.NotifyDueSoon()
			return err
		}},
		{Name: "d365_sync", Run: func() error {
			_, err := dispatchService.TriggerDueSyncs()
			return err
		}},
		{Name: "scheduled_reports", Run: func() error {
			_, err := dispatchService.DispatchDueReports()
			return err
		}},
	}, interval)
	scheduler.Start()
	defer scheduler.Stop()

	// Setup routes
	router := routes.SetupRoutes(
		userService,
		slaService,
		sopService,
		maintenanceService,
		notificationService,
		scheduler,
		cfg.Auth.JWTSecret,
	)

	// Add CORS middleware
	corsHandler := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, corsHandler(router)))
}
