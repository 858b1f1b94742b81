package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"prodline/middleware"
	"prodline/models"
	"prodline/service"
)

// MaintenanceHandler handles HTTP requests for preventive maintenance
type MaintenanceHandler struct {
	maintenanceService *service.MaintenanceService
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenanceService: maintenanceService}
}

// ListSchedules handles GET /api/maintenance/preventive
func (h *MaintenanceHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	var machineID int64
	if machineStr := r.URL.Query().Get("machine_id"); machineStr != "" {
		id, err := strconv.ParseInt(machineStr, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid machine_id")
			return
		}
		machineID = id
	}
	activeOnly := r.URL.Query().Get("is_active") == "true"

	schedules, err := h.maintenanceService.ListSchedules(machineID, activeOnly)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: schedules})
}

// GetSchedule handles GET /api/maintenance/preventive/{id}
func (h *MaintenanceHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	schedule, err := h.maintenanceService.GetSchedule(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: schedule})
}

// CreateSchedule handles POST /api/maintenance/preventive
func (h *MaintenanceHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePmScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	schedule, err := h.maintenanceService.CreateSchedule(&req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    schedule,
		Message: "Maintenance schedule created",
	})
}

// UpdateSchedule handles PUT /api/maintenance/preventive/{id}
func (h *MaintenanceHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdatePmScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	schedule, err := h.maintenanceService.UpdateSchedule(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    schedule,
		Message: "Maintenance schedule updated",
	})
}

// DeactivateSchedule handles DELETE /api/maintenance/preventive/{id}
func (h *MaintenanceHandler) DeactivateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.maintenanceService.DeactivateSchedule(id, middleware.UserIDFromContext(r.Context())); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Message: "Maintenance schedule deactivated"})
}

// StartMaintenance handles POST /api/maintenance/preventive/{id}/start
func (h *MaintenanceHandler) StartMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.maintenanceService.StartMaintenance(id, middleware.UserIDFromContext(r.Context())); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Message: "Machine placed under maintenance"})
}

// LogMaintenance handles POST /api/maintenance/preventive/{id}/log
func (h *MaintenanceHandler) LogMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.LogPmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	entry, err := h.maintenanceService.LogMaintenance(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    entry,
		Message: "Maintenance logged",
	})
}

// ListLogs handles GET /api/maintenance/preventive/{id}/logs
func (h *MaintenanceHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logs, err := h.maintenanceService.ListLogs(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: logs})
}
