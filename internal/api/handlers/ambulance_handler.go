package handlers

import (
	"context"
	"net/http"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// AmbulanceService defines the ambulance operations used by the handlers
type AmbulanceService interface {
	Create(ctx context.Context, ambulance *entities.Ambulance) error
	List(ctx context.Context, district string) ([]*entities.Ambulance, error)
	UpdateLocation(ctx context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error)
	Relay(ctx context.Context, ambulance *entities.Ambulance) error
}

// AmbulanceHandler handles ambulance requests
type AmbulanceHandler struct {
	service AmbulanceService
}

// NewAmbulanceHandler creates a new ambulance handler
func NewAmbulanceHandler(service AmbulanceService) *AmbulanceHandler {
	return &AmbulanceHandler{service: service}
}

// ListAmbulances handles GET /api/ambulances?district=
func (h *AmbulanceHandler) ListAmbulances(w http.ResponseWriter, r *http.Request) {
	ambulances, err := h.service.List(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if ambulances == nil {
		ambulances = []*entities.Ambulance{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"ambulances": ambulances,
	})
}

// CreateAmbulance handles POST /api/ambulances
func (h *AmbulanceHandler) CreateAmbulance(w http.ResponseWriter, r *http.Request) {
	var ambulance entities.Ambulance
	if !decodeJSON(w, r, &ambulance) {
		return
	}
	ambulance.ID = ""

	if err := h.service.Create(r.Context(), &ambulance); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":   true,
		"ambulance": ambulance,
	})
}

// UpdateLocation handles PUT /api/ambulances/{id}/location
func (h *AmbulanceHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var update entities.LocationUpdate
	if !decodeJSON(w, r, &update) {
		return
	}

	ambulance, err := h.service.UpdateLocation(r.Context(), r.PathValue("id"), update)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"ambulance": ambulance,
	})
}
