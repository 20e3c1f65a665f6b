package repositories

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// HospitalFilter narrows hospital listings
type HospitalFilter struct {
	District string
	Limit    int
	Offset   int
}

// HospitalRepository defines the interface for hospital data operations
type HospitalRepository interface {
	// Create creates a new hospital
	Create(ctx context.Context, hospital *entities.Hospital) error

	// GetByID retrieves a hospital by ID
	GetByID(ctx context.Context, id string) (*entities.Hospital, error)

	// GetByIDs retrieves hospitals by IDs, skipping unknown IDs
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Hospital, error)

	// List retrieves hospitals matching the filter, ordered by name
	List(ctx context.Context, filter HospitalFilter) ([]*entities.Hospital, error)

	// UpdateBeds commits bed availability for one hospital
	UpdateBeds(ctx context.Context, hospital *entities.Hospital) error
}

// HospitalSearchParams defines full-text search parameters
type HospitalSearchParams struct {
	Query    string
	District string
	Lat      *float64
	Lng      *float64
	RadiusKm float64
	Limit    int
}

// HospitalSearchRepository indexes and searches hospitals
type HospitalSearchRepository interface {
	Index(ctx context.Context, hospital *entities.Hospital) error
	Search(ctx context.Context, params HospitalSearchParams) ([]*entities.HospitalSearchResult, error)
}
