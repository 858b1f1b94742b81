package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"prodline/middleware"
	"prodline/models"
	"prodline/service"
)

// SlaHandler handles HTTP requests for SLA configurations and tracking
type SlaHandler struct {
	slaService *service.SlaService
}

// NewSlaHandler creates a new SLA handler
func NewSlaHandler(slaService *service.SlaService) *SlaHandler {
	return &SlaHandler{slaService: slaService}
}

// ListConfigurations handles GET /api/sla/configurations
func (h *SlaHandler) ListConfigurations(w http.ResponseWriter, r *http.Request) {
	filter := models.SlaConfigFilter{
		EntityType: r.URL.Query().Get("entity_type"),
		ActiveOnly: r.URL.Query().Get("is_active") == "true",
	}
	if deptStr := r.URL.Query().Get("department_id"); deptStr != "" {
		deptID, err := strconv.ParseInt(deptStr, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid department_id")
			return
		}
		filter.DepartmentID = deptID
	}

	configs, err := h.slaService.ListConfigurations(filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: configs})
}

// GetConfiguration handles GET /api/sla/configurations/{id}
func (h *SlaHandler) GetConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	config, err := h.slaService.GetConfiguration(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: config})
}

// CreateConfiguration handles POST /api/sla/configurations
func (h *SlaHandler) CreateConfiguration(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSlaConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	config, err := h.slaService.CreateConfiguration(&req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    config,
		Message: "SLA configuration created",
	})
}

// UpdateConfiguration handles PUT /api/sla/configurations/{id}
func (h *SlaHandler) UpdateConfiguration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CreateSlaConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	config, err := h.slaService.UpdateConfiguration(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    config,
		Message: "SLA configuration updated",
	})
}

// ListTracking handles GET /api/sla/tracking
func (h *SlaHandler) ListTracking(w http.ResponseWriter, r *http.Request) {
	filter := models.SlaTrackingFilter{
		EntityType: r.URL.Query().Get("entity_type"),
		Status:     models.SlaStatus(r.URL.Query().Get("status")),
	}
	if entityStr := r.URL.Query().Get("entity_id"); entityStr != "" {
		entityID, err := strconv.ParseInt(entityStr, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid entity_id")
			return
		}
		filter.EntityID = entityID
	}

	tracking, err := h.slaService.ListTracking(filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: tracking})
}

// GetTracking handles GET /api/sla/tracking/{id}
func (h *SlaHandler) GetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.slaService.GetTracking(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: t})
}

// CreateTracking handles POST /api/sla/tracking
func (h *SlaHandler) CreateTracking(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSlaTrackingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	t, err := h.slaService.CreateTracking(&req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    t,
		Message: "SLA tracking created",
	})
}

// MarkResponded handles POST /api/sla/tracking/{id}/respond
func (h *SlaHandler) MarkResponded(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.slaService.MarkResponded(id, middleware.UserIDFromContext(r.Context())); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Message: "Response recorded"})
}

// MarkResolved handles POST /api/sla/tracking/{id}/resolve
func (h *SlaHandler) MarkResolved(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.slaService.MarkResolved(id, middleware.UserIDFromContext(r.Context())); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Message: "Resolution recorded"})
}

// Escalate handles POST /api/sla/tracking/{id}/escalate
func (h *SlaHandler) Escalate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	t, err := h.slaService.ManualEscalate(id, middleware.UserIDFromContext(r.Context()), req.Reason)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    t,
		Message: "SLA escalated",
	})
}

// ListBreached handles GET /api/sla/breached
func (h *SlaHandler) ListBreached(w http.ResponseWriter, r *http.Request) {
	tracking, err := h.slaService.ListBreached()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: tracking})
}

// pathID parses the {id} path variable, writing a 400 response on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id < 1 {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid "+name)
		return 0, false
	}
	return id, true
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := models.ErrorResponse{
		Error:   errorType,
		Message: message,
		Code:    statusCode,
	}
	respondWithJSON(w, statusCode, response)
}

// respondWithServiceError maps service errors to HTTP statuses
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var ruleErr *models.BusinessRuleError

	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, "Validation error", validationErr.Error())
	case errors.As(err, &ruleErr):
		respondWithError(w, http.StatusUnprocessableEntity, "Business rule violation", ruleErr.Error())
	case errors.Is(err, models.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not Found", "Requested resource not found")
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}
