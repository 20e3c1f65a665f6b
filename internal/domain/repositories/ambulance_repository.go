package repositories

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// AmbulanceRepository defines the interface for ambulance data operations
type AmbulanceRepository interface {
	// Create creates a new ambulance; duplicate vehicle numbers are a conflict
	Create(ctx context.Context, ambulance *entities.Ambulance) error

	// GetByID retrieves an ambulance by ID
	GetByID(ctx context.Context, id string) (*entities.Ambulance, error)

	// List retrieves ambulances, optionally restricted to a district
	List(ctx context.Context, district string) ([]*entities.Ambulance, error)

	// UpdateLocation stores a position report and returns the updated ambulance
	UpdateLocation(ctx context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error)
}
