package services

import (
	"context"
	"strings"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

// AmbulanceService handles ambulance registration and live position reports
type AmbulanceService struct {
	repo      repositories.AmbulanceRepository
	hospitals repositories.HospitalRepository
	events    providers.EventBus
}

// NewAmbulanceService creates a new ambulance service. events may be nil.
func NewAmbulanceService(repo repositories.AmbulanceRepository, hospitals repositories.HospitalRepository, events providers.EventBus) *AmbulanceService {
	return &AmbulanceService{repo: repo, hospitals: hospitals, events: events}
}

// Create registers an ambulance
func (s *AmbulanceService) Create(ctx context.Context, ambulance *entities.Ambulance) error {
	ambulance.VehicleNumber = strings.TrimSpace(ambulance.VehicleNumber)
	if ambulance.VehicleNumber == "" {
		return apperrors.NewValidationError("vehicleNumber is required")
	}
	if ambulance.Status == "" {
		ambulance.Status = entities.AmbulanceAvailable
	}
	if !ambulance.Status.Valid() {
		return apperrors.NewValidationError("invalid ambulance status")
	}
	if err := (entities.LocationUpdate{Lat: ambulance.Lat, Lng: ambulance.Lng}).Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	if ambulance.District == "" {
		ambulance.District = "Lucknow"
	}
	return s.repo.Create(ctx, ambulance)
}

// List returns ambulances with their hospital names populated
func (s *AmbulanceService) List(ctx context.Context, district string) ([]*entities.Ambulance, error) {
	ambulances, err := s.repo.List(ctx, district)
	if err != nil {
		return nil, err
	}
	s.populateHospitalNames(ctx, ambulances)
	return ambulances, nil
}

// UpdateLocation persists a position report and broadcasts it
func (s *AmbulanceService) UpdateLocation(ctx context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error) {
	if err := update.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	ambulance, err := s.repo.UpdateLocation(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.populateHospitalNames(ctx, []*entities.Ambulance{ambulance})
	s.publish(ctx, ambulance)
	return ambulance, nil
}

// Relay rebroadcasts a driver position received over a socket without storing it
func (s *AmbulanceService) Relay(ctx context.Context, ambulance *entities.Ambulance) error {
	if ambulance.ID == "" {
		return apperrors.NewValidationError("ambulance id is required")
	}
	if err := (entities.LocationUpdate{Lat: ambulance.Lat, Lng: ambulance.Lng, Status: ambulance.Status}).Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	s.publish(ctx, ambulance)
	return nil
}

func (s *AmbulanceService) publish(ctx context.Context, ambulance *entities.Ambulance) {
	if s.events == nil {
		return
	}
	event := entities.NewAmbulanceEvent(ambulance)
	if err := s.events.Publish(ctx, providers.EventChannelTracking, event); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("ambulance_id", ambulance.ID).
			Msg("failed to publish ambulance update")
	}
	if ambulance.District != "" {
		if err := s.events.Publish(ctx, providers.GetDistrictChannel(ambulance.District), event); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("district", ambulance.District).
				Msg("failed to publish district ambulance update")
		}
	}
}

func (s *AmbulanceService) populateHospitalNames(ctx context.Context, ambulances []*entities.Ambulance) {
	if s.hospitals == nil {
		return
	}

	seen := make(map[string]bool)
	var ids []string
	for _, a := range ambulances {
		if a.HospitalID != nil && *a.HospitalID != "" && !seen[*a.HospitalID] {
			seen[*a.HospitalID] = true
			ids = append(ids, *a.HospitalID)
		}
	}
	if len(ids) == 0 {
		return
	}

	loader := newHospitalLoader(s.hospitals, len(ids))
	hospitals, errs := loader.LoadMany(ctx, ids)()

	names := make(map[string]string, len(ids))
	for i, id := range ids {
		if i < len(errs) && errs[i] != nil {
			continue
		}
		if i < len(hospitals) && hospitals[i] != nil {
			names[id] = hospitals[i].Name
		}
	}

	for _, a := range ambulances {
		if a.HospitalID != nil {
			a.HospitalName = names[*a.HospitalID]
		}
	}
}
