package api

import (
	"alumconnect/internal/auth"
	"alumconnect/internal/models"
	"alumconnect/internal/ws"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type AdminHandler struct {
	authService *auth.AuthService
	hub         *ws.Hub
	validate    *validator.Validate
}

func NewAdminHandler(authService *auth.AuthService, hub *ws.Hub) *AdminHandler {
	return &AdminHandler{authService: authService, hub: hub, validate: newValidator()}
}

type AddProfileRequest struct {
	Name     string      `json:"name" validate:"required"`
	Email    string      `json:"email" validate:"omitempty,email"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=student alumni admin"`
	City     string      `json:"city"`
	Country  string      `json:"country"`
	GradYear int         `json:"gradYear" validate:"omitempty,gte=1900,lte=2200"`
}

func (h *AdminHandler) PresenceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.hub.Presence())
}

// AddProfileHandler seeds a directory profile that has no password.
func (h *AdminHandler) AddProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req AddProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", models.ErrValidation))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}

	profile, err := h.authService.AddProfile(r.Context(), models.Profile{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		City:     req.City,
		Country:  req.Country,
		GradYear: req.GradYear,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// KickHandler force-disconnects a live chat connection.
func (h *AdminHandler) KickHandler(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("id")
	if connectionID == "" {
		writeError(w, fmt.Errorf("%w: connection id is required", models.ErrValidation))
		return
	}

	if !h.hub.Kick(connectionID) {
		writeError(w, fmt.Errorf("connection %s: %w", connectionID, models.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
