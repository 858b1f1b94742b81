package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"prodline/middleware"
	"prodline/models"
	"prodline/service"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	userService *service.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// LoginRequest is the POST /api/auth/login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the token and the authenticated user
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	token, user, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			respondWithError(w, http.StatusBadRequest, "Validation error", validationErr.Error())
			return
		}
		if errors.Is(err, models.ErrNotFound) {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid credentials")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal error", err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data: LoginResponse{Token: token, User: user},
	})
}

// ProfileResponse carries the caller's account and employee record
type ProfileResponse struct {
	User     *models.User     `json:"user"`
	Employee *models.Employee `json:"employee,omitempty"`
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	user, employee, err := h.userService.Profile(userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{
		Data: ProfileResponse{User: user, Employee: employee},
	})
}

// ChangePasswordRequest is the POST /api/auth/change-password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /api/auth/change-password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	if err := h.userService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.SuccessResponse{Message: "Password changed"})
}
