package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"prodline/handler"
	"prodline/middleware"
	"prodline/service"
	"prodline/worker"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	userService *service.UserService,
	slaService *service.SlaService,
	sopService *service.SopService,
	maintenanceService *service.MaintenanceService,
	notificationService *service.NotificationService,
	scheduler *worker.Scheduler,
	jwtSecret string,
) *mux.Router {
	router := mux.NewRouter()

	authHandler := handler.NewAuthHandler(userService)
	slaHandler := handler.NewSlaHandler(slaService)
	sopHandler := handler.NewSopHandler(sopService)
	maintenanceHandler := handler.NewMaintenanceHandler(maintenanceService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	schedulerHandler := handler.NewSchedulerHandler(scheduler)

	authMiddleware := middleware.NewAuthMiddleware(jwtSecret)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(authMiddleware.RequireAdmin(h))
	}

	// Health check (public)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	// Auth routes
	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", authHandler.Login).Methods("POST")
	auth.Handle("/me", authed(authHandler.Me)).Methods("GET")
	auth.Handle("/change-password", authed(authHandler.ChangePassword)).Methods("POST")

	// SLA routes; configuration mutations are admin-only
	sla := api.PathPrefix("/sla").Subrouter()
	sla.Handle("/configurations", authed(slaHandler.ListConfigurations)).Methods("GET")
	sla.Handle("/configurations", admin(slaHandler.CreateConfiguration)).Methods("POST")
	sla.Handle("/configurations/{id}", authed(slaHandler.GetConfiguration)).Methods("GET")
	sla.Handle("/configurations/{id}", admin(slaHandler.UpdateConfiguration)).Methods("PUT")
	sla.Handle("/tracking", authed(slaHandler.ListTracking)).Methods("GET")
	sla.Handle("/tracking", authed(slaHandler.CreateTracking)).Methods("POST")
	sla.Handle("/tracking/{id}", authed(slaHandler.GetTracking)).Methods("GET")
	sla.Handle("/tracking/{id}/respond", authed(slaHandler.MarkResponded)).Methods("POST")
	sla.Handle("/tracking/{id}/resolve", authed(slaHandler.MarkResolved)).Methods("POST")
	sla.Handle("/tracking/{id}/escalate", authed(slaHandler.Escalate)).Methods("POST")
	sla.Handle("/breached", authed(slaHandler.ListBreached)).Methods("GET")

	// SOP ticket routes
	sop := api.PathPrefix("/sop").Subrouter()
	sop.Handle("/tickets", authed(sopHandler.ListTickets)).Methods("GET")
	sop.Handle("/tickets", authed(sopHandler.CreateTicket)).Methods("POST")
	sop.Handle("/tickets/{id}", authed(sopHandler.GetTicket)).Methods("GET")
	sop.Handle("/tickets/{id}/reassign", authed(sopHandler.Reassign)).Methods("POST")
	sop.Handle("/tickets/{id}/reject", authed(sopHandler.Reject)).Methods("POST")
	sop.Handle("/tickets/{id}/ncr", authed(sopHandler.GetNcr)).Methods("GET")
	sop.Handle("/tickets/{id}/ncr", authed(sopHandler.CreateNcr)).Methods("POST")
	sop.Handle("/tickets/{id}/hod-decision", authed(sopHandler.HodDecision)).Methods("POST")

	// Preventive maintenance routes; schedule mutations are admin-only
	maintenance := api.PathPrefix("/maintenance").Subrouter()
	maintenance.Handle("/preventive", authed(maintenanceHandler.ListSchedules)).Methods("GET")
	maintenance.Handle("/preventive", admin(maintenanceHandler.CreateSchedule)).Methods("POST")
	maintenance.Handle("/preventive/{id}", authed(maintenanceHandler.GetSchedule)).Methods("GET")
	maintenance.Handle("/preventive/{id}", admin(maintenanceHandler.UpdateSchedule)).Methods("PUT")
	maintenance.Handle("/preventive/{id}", admin(maintenanceHandler.DeactivateSchedule)).Methods("DELETE")
	maintenance.Handle("/preventive/{id}/start", authed(maintenanceHandler.StartMaintenance)).Methods("POST")
	maintenance.Handle("/preventive/{id}/log", authed(maintenanceHandler.LogMaintenance)).Methods("POST")
	maintenance.Handle("/preventive/{id}/logs", authed(maintenanceHandler.ListLogs)).Methods("GET")

	// Notification routes
	notifications := api.PathPrefix("/notifications").Subrouter()
	notifications.Handle("", authed(notificationHandler.ListNotifications)).Methods("GET")
	notifications.Handle("/{id}/read", authed(notificationHandler.MarkRead)).Methods("POST")

	// Scheduler routes (admin)
	schedulerRoutes := api.PathPrefix("/scheduler").Subrouter()
	schedulerRoutes.Handle("/status", admin(schedulerHandler.Status)).Methods("GET")
	schedulerRoutes.Handle("/run", admin(schedulerHandler.RunOnce)).Methods("POST")

	return router
}
