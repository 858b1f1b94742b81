package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"prodline/middleware"
	"prodline/models"
	"prodline/service"
)

// SopHandler handles HTTP requests for SOP failure tickets
type SopHandler struct {
	sopService *service.SopService
}

// NewSopHandler creates a new SOP handler
func NewSopHandler(sopService *service.SopService) *SopHandler {
	return &SopHandler{sopService: sopService}
}

// ListTickets handles GET /api/sop/tickets
func (h *SopHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	filter := models.SopTicketFilter{
		Status: models.SopTicketStatus(r.URL.Query().Get("status")),
	}
	if deptStr := r.URL.Query().Get("department_id"); deptStr != "" {
		deptID, err := strconv.ParseInt(deptStr, 10, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid department_id")
			return
		}
		filter.DepartmentID = deptID
	}

	tickets, err := h.sopService.ListTickets(filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: tickets})
}

// GetTicket handles GET /api/sop/tickets/{id}
func (h *SopHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ticket, err := h.sopService.GetTicket(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: ticket})
}

// CreateTicket handles POST /api/sop/tickets
func (h *SopHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSopTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	ticket, err := h.sopService.CreateTicket(&req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    ticket,
		Message: "SOP ticket created",
	})
}

// Reassign handles POST /api/sop/tickets/{id}/reassign
func (h *SopHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ReassignSopTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	ticket, err := h.sopService.Reassign(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    ticket,
		Message: "SOP ticket reassigned",
	})
}

// Reject handles POST /api/sop/tickets/{id}/reject
func (h *SopHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RejectSopTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	ticket, err := h.sopService.Reject(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    ticket,
		Message: "SOP ticket rejected and escalated to HOD",
	})
}

// CreateNcr handles POST /api/sop/tickets/{id}/ncr
func (h *SopHandler) CreateNcr(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.CreateNcrRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	ncr, err := h.sopService.CreateNcr(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.SuccessResponse{
		Data:    ncr,
		Message: "NCR completed, ticket closed",
	})
}

// GetNcr handles GET /api/sop/tickets/{id}/ncr
func (h *SopHandler) GetNcr(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ncr, err := h.sopService.GetNcr(id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Data: ncr})
}

// HodDecision handles POST /api/sop/tickets/{id}/hod-decision
func (h *SopHandler) HodDecision(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.HodDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	ticket, err := h.sopService.HodDecision(id, &req, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data:    ticket,
		Message: "HOD decision recorded",
	})
}
