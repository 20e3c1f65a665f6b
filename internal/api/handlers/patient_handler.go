package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// PatientService defines the patient registry operations used by the handler
type PatientService interface {
	Create(ctx context.Context, input services.PatientInput) (*entities.Patient, error)
	GetByPatientID(ctx context.Context, patientID string) (*entities.Patient, error)
	List(ctx context.Context, limit, offset int) ([]*entities.Patient, error)
	Delete(ctx context.Context, patientID string) error
}

// PatientHandler handles patient registry requests
type PatientHandler struct {
	service PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(service PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// CreatePatient handles POST /api/patients
func (h *PatientHandler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var input services.PatientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	patient, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"patient": patient,
	})
}

// ListPatients handles GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	patients, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if patients == nil {
		patients = []*entities.Patient{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"patients": patients,
	})
}

// GetPatient handles GET /api/patients/{id}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetByPatientID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"patient": patient,
	})
}

// DeletePatient handles DELETE /api/patients/{id}
func (h *PatientHandler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Patient deleted",
	})
}
