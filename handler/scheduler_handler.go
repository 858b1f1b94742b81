package handler

import (
	"net/http"

	"prodline/models"
	"prodline/worker"
)

// SchedulerHandler handles HTTP requests for scheduler introspection and
// manual ticks
type SchedulerHandler struct {
	scheduler *worker.Scheduler
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(scheduler *worker.Scheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

// Status handles GET /api/scheduler/status
func (h *SchedulerHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: h.scheduler.Status()})
}

// RunOnce handles POST /api/scheduler/run
// Manually triggers one scheduler pass (useful for testing or manual runs)
func (h *SchedulerHandler) RunOnce(w http.ResponseWriter, r *http.Request) {
	h.scheduler.RunOnce()
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    h.scheduler.Status(),
		Message: "Scheduler pass completed",
	})
}
