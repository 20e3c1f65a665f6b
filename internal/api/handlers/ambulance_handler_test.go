package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

type stubAmbulanceService struct {
	ambulances   []*entities.Ambulance
	lastDistrict string
	updates      []entities.LocationUpdate
	relayed      []*entities.Ambulance
}

func (s *stubAmbulanceService) Create(_ context.Context, ambulance *entities.Ambulance) error {
	if ambulance.VehicleNumber == "" {
		return apperrors.NewValidationError("vehicleNumber is required")
	}
	ambulance.ID = "a-new"
	s.ambulances = append(s.ambulances, ambulance)
	return nil
}

func (s *stubAmbulanceService) List(_ context.Context, district string) ([]*entities.Ambulance, error) {
	s.lastDistrict = district
	return s.ambulances, nil
}

func (s *stubAmbulanceService) UpdateLocation(_ context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error) {
	if err := update.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	s.updates = append(s.updates, update)
	return &entities.Ambulance{ID: id, Lat: update.Lat, Lng: update.Lng, Status: update.Status}, nil
}

func (s *stubAmbulanceService) Relay(_ context.Context, ambulance *entities.Ambulance) error {
	s.relayed = append(s.relayed, ambulance)
	return nil
}

func TestAmbulanceHandler_ListAmbulances(t *testing.T) {
	service := &stubAmbulanceService{ambulances: []*entities.Ambulance{{ID: "a1", VehicleNumber: "BR07-AMB-1"}}}
	handler := handlers.NewAmbulanceHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/ambulances?district=Bhagalpur", nil)
	w := httptest.NewRecorder()

	handler.ListAmbulances(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bhagalpur", service.lastDistrict)
	assert.Len(t, decodeBody(t, w)["ambulances"], 1)
}

func TestAmbulanceHandler_CreateAmbulance(t *testing.T) {
	service := &stubAmbulanceService{}
	handler := handlers.NewAmbulanceHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/ambulances", strings.NewReader(`{"vehicleNumber":"BR07-AMB-9","driverName":"Ravi"}`))
	w := httptest.NewRecorder()

	handler.CreateAmbulance(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	ambulance := decodeBody(t, w)["ambulance"].(map[string]interface{})
	assert.Equal(t, "a-new", ambulance["id"])
	assert.Equal(t, "BR07-AMB-9", ambulance["vehicleNumber"])
}

func TestAmbulanceHandler_UpdateLocation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "valid with status", body: `{"lat":25.25,"lng":86.98,"status":"en-route"}`, wantStatus: http.StatusOK},
		{name: "valid without status", body: `{"lat":25.25,"lng":86.98}`, wantStatus: http.StatusOK},
		{name: "latitude out of range", body: `{"lat":95,"lng":86.98}`, wantStatus: http.StatusBadRequest},
		{name: "unknown status", body: `{"lat":25.25,"lng":86.98,"status":"parked"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := handlers.NewAmbulanceHandler(&stubAmbulanceService{})

			req := httptest.NewRequest(http.MethodPut, "/api/ambulances/a1/location", strings.NewReader(tt.body))
			req.SetPathValue("id", "a1")
			w := httptest.NewRecorder()

			handler.UpdateLocation(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
