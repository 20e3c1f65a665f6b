package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

// HospitalService defines the hospital operations used by the handler
type HospitalService interface {
	Create(ctx context.Context, input entities.HospitalInput) (*entities.Hospital, error)
	GetByID(ctx context.Context, id string) (*entities.Hospital, error)
	List(ctx context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error)
	CommitBeds(ctx context.Context, edit entities.BedEdit) (*entities.Hospital, error)
	Search(ctx context.Context, params repositories.HospitalSearchParams) ([]*entities.HospitalSearchResult, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64, district string) ([]*entities.HospitalSearchResult, error)
}

// ResponseCache drops cached responses after writes
type ResponseCache interface {
	Invalidate(ctx context.Context) error
}

// HospitalHandler handles hospital and bed requests
type HospitalHandler struct {
	service HospitalService
	cache   ResponseCache
}

// NewHospitalHandler creates a new hospital handler. cache may be nil.
func NewHospitalHandler(service HospitalService, cache ResponseCache) *HospitalHandler {
	return &HospitalHandler{service: service, cache: cache}
}

// ListHospitals handles GET /api/hospitals?district=
func (h *HospitalHandler) ListHospitals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.HospitalFilter{District: query.Get("district")}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil {
		filter.Offset = offset
	}

	hospitals, err := h.service.List(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if hospitals == nil {
		hospitals = []*entities.Hospital{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"hospitals": hospitals,
	})
}

// GetHospital handles GET /api/hospitals/{id}
func (h *HospitalHandler) GetHospital(w http.ResponseWriter, r *http.Request) {
	hospital, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"hospital": hospital,
	})
}

// CreateHospital handles POST /api/hospitals
func (h *HospitalHandler) CreateHospital(w http.ResponseWriter, r *http.Request) {
	var input entities.HospitalInput
	if !decodeJSON(w, r, &input) {
		return
	}

	hospital, err := h.service.Create(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.invalidate(r.Context())

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"hospital": hospital,
	})
}

// UpdateBeds handles PUT /api/hospitals/{id}/beds
func (h *HospitalHandler) UpdateBeds(w http.ResponseWriter, r *http.Request) {
	var edit entities.BedEdit
	if !decodeJSON(w, r, &edit) {
		return
	}
	edit.HospitalID = r.PathValue("id")

	hospital, err := h.service.CommitBeds(r.Context(), edit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.invalidate(r.Context())

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"hospital": hospital,
	})
}

// SearchHospitals handles GET /api/hospitals/search?q=&district=&lat=&lng=&radiusKm=&limit=
func (h *HospitalHandler) SearchHospitals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := repositories.HospitalSearchParams{
		Query:    query.Get("q"),
		District: query.Get("district"),
		Limit:    20,
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		params.Limit = limit
	}
	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		params.Lat, params.Lng = &lat, &lng
		params.RadiusKm, _ = strconv.ParseFloat(query.Get("radiusKm"), 64)
	}

	results, err := h.service.Search(r.Context(), params)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if results == nil {
		results = []*entities.HospitalSearchResult{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

// NearbyHospitals handles GET /api/hospitals/nearby?lat=&lng=&radiusKm=&district=
func (h *HospitalHandler) NearbyHospitals(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, err := strconv.ParseFloat(query.Get("lat"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid latitude parameter")
		return
	}
	lng, err := strconv.ParseFloat(query.Get("lng"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid longitude parameter")
		return
	}
	radius, _ := strconv.ParseFloat(query.Get("radiusKm"), 64)

	results, err := h.service.Nearby(r.Context(), lat, lng, radius, query.Get("district"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if results == nil {
		results = []*entities.HospitalSearchResult{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"results": results,
	})
}

func (h *HospitalHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to invalidate response cache")
	}
}
