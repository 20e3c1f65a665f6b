package services

import (
	"context"
	"sort"
	"strings"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

const nearbyScanLimit = 1000

// HospitalService handles business logic for hospitals and bed availability
type HospitalService struct {
	repo       repositories.HospitalRepository
	searchRepo repositories.HospitalSearchRepository
	events     providers.EventBus
}

// NewHospitalService creates a new hospital service. searchRepo and events may be nil.
func NewHospitalService(repo repositories.HospitalRepository, searchRepo repositories.HospitalSearchRepository, events providers.EventBus) *HospitalService {
	return &HospitalService{
		repo:       repo,
		searchRepo: searchRepo,
		events:     events,
	}
}

// Create creates a new hospital and indexes it
func (s *HospitalService) Create(ctx context.Context, input entities.HospitalInput) (*entities.Hospital, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	hospital := input.Hospital()
	if hospital.TotalBeds < 0 || hospital.ICUBeds < 0 || hospital.AvailableBeds < 0 || hospital.AvailableICUBeds < 0 {
		return nil, apperrors.NewValidationError("bed counts must not be negative")
	}
	if hospital.AvailableBeds > hospital.TotalBeds || hospital.AvailableICUBeds > hospital.ICUBeds {
		return nil, apperrors.NewValidationError("available beds cannot exceed capacity")
	}

	if err := s.repo.Create(ctx, hospital); err != nil {
		return nil, err
	}

	s.index(ctx, hospital)
	return hospital, nil
}

// GetByID retrieves a hospital by ID
func (s *HospitalService) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves hospitals, optionally by district
func (s *HospitalService) List(ctx context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error) {
	return s.repo.List(ctx, filter)
}

// CommitBeds validates and commits a bed edit, then broadcasts the new availability
func (s *HospitalService) CommitBeds(ctx context.Context, edit entities.BedEdit) (*entities.Hospital, error) {
	current, err := s.repo.GetByID(ctx, edit.HospitalID)
	if err != nil {
		return nil, err
	}

	updated, err := edit.ApplyTo(*current)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := s.repo.UpdateBeds(ctx, &updated); err != nil {
		return nil, err
	}

	s.index(ctx, &updated)

	if s.events != nil {
		event := entities.NewBedEvent(&updated)
		if err := s.events.Publish(ctx, providers.EventChannelTracking, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("hospital_id", updated.ID).
				Msg("failed to publish bed update")
		}
		if updated.District != "" {
			if err := s.events.Publish(ctx, providers.GetDistrictChannel(updated.District), event); err != nil {
				observability.LoggerFromContext(ctx).Warn().Err(err).
					Str("district", updated.District).
					Msg("failed to publish district bed update")
			}
		}
	}

	return &updated, nil
}

// Search runs a full-text search, falling back to a name filter over the database
func (s *HospitalService) Search(ctx context.Context, params repositories.HospitalSearchParams) ([]*entities.HospitalSearchResult, error) {
	if s.searchRepo != nil {
		results, err := s.searchRepo.Search(ctx, params)
		if err == nil {
			return results, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("hospital search index failed, querying database")
	}

	hospitals, err := s.repo.List(ctx, repositories.HospitalFilter{District: params.District, Limit: nearbyScanLimit})
	if err != nil {
		return nil, err
	}

	query := strings.ToLower(strings.TrimSpace(params.Query))
	var results []*entities.HospitalSearchResult
	for _, h := range hospitals {
		if query != "" && query != "*" && !hospitalMatches(h, query) {
			continue
		}
		results = append(results, withDistance(h, params.Lat, params.Lng))
	}
	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}
	return results, nil
}

// Nearby returns hospitals within radiusKm of a point, closest first
func (s *HospitalService) Nearby(ctx context.Context, lat, lng, radiusKm float64, district string) ([]*entities.HospitalSearchResult, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.NewValidationError("invalid coordinates")
	}
	if radiusKm <= 0 {
		radiusKm = 10
	}

	hospitals, err := s.repo.List(ctx, repositories.HospitalFilter{District: district, Limit: nearbyScanLimit})
	if err != nil {
		return nil, err
	}

	var results []*entities.HospitalSearchResult
	for _, h := range hospitals {
		result := withDistance(h, &lat, &lng)
		if *result.DistanceKm <= radiusKm {
			results = append(results, result)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].DistanceKm < *results[j].DistanceKm
	})
	return results, nil
}

func (s *HospitalService) index(ctx context.Context, hospital *entities.Hospital) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.Index(ctx, hospital); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("hospital_id", hospital.ID).
			Msg("failed to index hospital")
	}
}

func hospitalMatches(h *entities.Hospital, query string) bool {
	if strings.Contains(strings.ToLower(h.Name), query) || strings.Contains(strings.ToLower(h.District), query) {
		return true
	}
	for _, s := range h.Specialties {
		if strings.Contains(strings.ToLower(s), query) {
			return true
		}
	}
	return false
}

func withDistance(h *entities.Hospital, lat, lng *float64) *entities.HospitalSearchResult {
	result := &entities.HospitalSearchResult{Hospital: h}
	if lat != nil && lng != nil {
		d := entities.DistanceKm(entities.Location{Lat: *lat, Lng: *lng}, h.Position())
		result.DistanceKm = &d
	}
	return result
}
