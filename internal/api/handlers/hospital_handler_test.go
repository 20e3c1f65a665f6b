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
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

type stubHospitalService struct {
	hospitals    map[string]*entities.Hospital
	lastFilter   repositories.HospitalFilter
	lastSearch   repositories.HospitalSearchParams
	lastNearby   [3]float64
	nearbyResult []*entities.HospitalSearchResult
}

func newStubHospitalService() *stubHospitalService {
	return &stubHospitalService{hospitals: map[string]*entities.Hospital{
		"h1": {ID: "h1", Name: "Mayaganj Hospital", District: "Bhagalpur", TotalBeds: 500, AvailableBeds: 120, ICUBeds: 40, AvailableICUBeds: 8},
	}}
}

func (s *stubHospitalService) Create(_ context.Context, input entities.HospitalInput) (*entities.Hospital, error) {
	hospital := input.Hospital()
	hospital.ID = "h-new"
	s.hospitals[hospital.ID] = hospital
	return hospital, nil
}

func (s *stubHospitalService) GetByID(_ context.Context, id string) (*entities.Hospital, error) {
	h, ok := s.hospitals[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("Hospital not found")
	}
	return h, nil
}

func (s *stubHospitalService) List(_ context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error) {
	s.lastFilter = filter
	var out []*entities.Hospital
	for _, h := range s.hospitals {
		if filter.District == "" || h.District == filter.District {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubHospitalService) CommitBeds(_ context.Context, edit entities.BedEdit) (*entities.Hospital, error) {
	h, ok := s.hospitals[edit.HospitalID]
	if !ok {
		return nil, apperrors.NewNotFoundError("Hospital not found")
	}
	updated, err := edit.ApplyTo(*h)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	s.hospitals[h.ID] = &updated
	return &updated, nil
}

func (s *stubHospitalService) Search(_ context.Context, params repositories.HospitalSearchParams) ([]*entities.HospitalSearchResult, error) {
	s.lastSearch = params
	return []*entities.HospitalSearchResult{{Hospital: s.hospitals["h1"]}}, nil
}

func (s *stubHospitalService) Nearby(_ context.Context, lat, lng, radiusKm float64, _ string) ([]*entities.HospitalSearchResult, error) {
	s.lastNearby = [3]float64{lat, lng, radiusKm}
	return s.nearbyResult, nil
}

type countingCache struct {
	invalidations int
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations++
	return nil
}

func TestHospitalHandler_ListHospitals_ByDistrict(t *testing.T) {
	service := newStubHospitalService()
	handler := handlers.NewHospitalHandler(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals?district=Bhagalpur&limit=5", nil)
	w := httptest.NewRecorder()

	handler.ListHospitals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bhagalpur", service.lastFilter.District)
	assert.Equal(t, 5, service.lastFilter.Limit)
	assert.Len(t, decodeBody(t, w)["hospitals"], 1)
}

func TestHospitalHandler_GetHospital_NotFound(t *testing.T) {
	handler := handlers.NewHospitalHandler(newStubHospitalService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	handler.GetHospital(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHospitalHandler_CreateHospital_InvalidatesCache(t *testing.T) {
	cache := &countingCache{}
	handler := handlers.NewHospitalHandler(newStubHospitalService(), cache)

	req := httptest.NewRequest(http.MethodPost, "/api/hospitals", strings.NewReader(`{"id":"forged","name":"Sadar Hospital"}`))
	w := httptest.NewRecorder()

	handler.CreateHospital(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	hospital := decodeBody(t, w)["hospital"].(map[string]interface{})
	assert.Equal(t, "h-new", hospital["id"])
	assert.Equal(t, "Lucknow", hospital["district"])
	assert.Equal(t, 1, cache.invalidations)
}

func TestHospitalHandler_CreateHospital_ExplicitZeroBeds(t *testing.T) {
	handler := handlers.NewHospitalHandler(newStubHospitalService(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/hospitals",
		strings.NewReader(`{"name":"Sabour PHC","totalBeds":20,"availableBeds":0,"icuBeds":2,"availableIcuBeds":0}`))
	w := httptest.NewRecorder()

	handler.CreateHospital(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	hospital := decodeBody(t, w)["hospital"].(map[string]interface{})
	assert.Equal(t, float64(20), hospital["totalBeds"])
	assert.Equal(t, float64(0), hospital["availableBeds"])
	assert.Equal(t, float64(0), hospital["availableIcuBeds"])
}

func TestHospitalHandler_UpdateBeds(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantBeds    float64
		invalidated int
	}{
		{name: "commits both kinds", body: `{"availableBeds":90,"availableIcuBeds":4}`, wantStatus: http.StatusOK, wantBeds: 90, invalidated: 1},
		{name: "rejects more than total", body: `{"availableBeds":501}`, wantStatus: http.StatusBadRequest},
		{name: "rejects negative icu", body: `{"availableIcuBeds":-1}`, wantStatus: http.StatusBadRequest},
		{name: "rejects empty edit", body: `{}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := &countingCache{}
			handler := handlers.NewHospitalHandler(newStubHospitalService(), cache)

			req := httptest.NewRequest(http.MethodPut, "/api/hospitals/h1/beds", strings.NewReader(tt.body))
			req.SetPathValue("id", "h1")
			w := httptest.NewRecorder()

			handler.UpdateBeds(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.invalidated, cache.invalidations)
			if tt.wantStatus == http.StatusOK {
				hospital := decodeBody(t, w)["hospital"].(map[string]interface{})
				assert.Equal(t, tt.wantBeds, hospital["availableBeds"])
			}
		})
	}
}

func TestHospitalHandler_SearchHospitals_ParsesGeo(t *testing.T) {
	service := newStubHospitalService()
	handler := handlers.NewHospitalHandler(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals/search?q=icu&district=Bhagalpur&lat=25.25&lng=86.98&radiusKm=15", nil)
	w := httptest.NewRecorder()

	handler.SearchHospitals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "icu", service.lastSearch.Query)
	require.NotNil(t, service.lastSearch.Lat)
	assert.Equal(t, 25.25, *service.lastSearch.Lat)
	assert.Equal(t, 15.0, service.lastSearch.RadiusKm)
	assert.Equal(t, 20, service.lastSearch.Limit)
}

func TestHospitalHandler_NearbyHospitals(t *testing.T) {
	service := newStubHospitalService()
	handler := handlers.NewHospitalHandler(service, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals/nearby?lat=25.25&lng=86.98&radiusKm=10", nil)
	w := httptest.NewRecorder()

	handler.NearbyHospitals(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [3]float64{25.25, 86.98, 10}, service.lastNearby)
	assert.Contains(t, w.Body.String(), `"results":[]`)
}

func TestHospitalHandler_NearbyHospitals_RequiresCoordinates(t *testing.T) {
	handler := handlers.NewHospitalHandler(newStubHospitalService(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/hospitals/nearby?lng=86.98", nil)
	w := httptest.NewRecorder()

	handler.NearbyHospitals(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid latitude parameter", decodeBody(t, w)["error"])
}
