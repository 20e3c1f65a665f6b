package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

var ambulanceColumns = []interface{}{
	"id", "vehicle_number", "driver_name", "contact", "lat", "lng",
	"status", "hospital_id", "district", "created_at", "updated_at",
}

// AmbulanceAdapter implements the AmbulanceRepository interface
type AmbulanceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAmbulanceAdapter creates a new ambulance adapter
func NewAmbulanceAdapter(client *postgres.Client) repositories.AmbulanceRepository {
	return &AmbulanceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new ambulance
func (a *AmbulanceAdapter) Create(ctx context.Context, ambulance *entities.Ambulance) error {
	if ambulance.ID == "" {
		ambulance.ID = uuid.NewString()
	}
	now := time.Now()
	ambulance.CreatedAt = now
	ambulance.UpdatedAt = now

	record := goqu.Record{
		"id":             ambulance.ID,
		"vehicle_number": ambulance.VehicleNumber,
		"driver_name":    ambulance.DriverName,
		"contact":        ambulance.Contact,
		"lat":            ambulance.Lat,
		"lng":            ambulance.Lng,
		"status":         string(ambulance.Status),
		"hospital_id":    ambulance.HospitalID,
		"district":       ambulance.District,
		"created_at":     ambulance.CreatedAt,
		"updated_at":     ambulance.UpdatedAt,
	}

	query, args, err := a.db.Insert("ambulances").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("ambulance %s already exists", ambulance.VehicleNumber))
		}
		return apperrors.NewInternalError("failed to create ambulance", err)
	}
	return nil
}

// GetByID retrieves an ambulance by ID
func (a *AmbulanceAdapter) GetByID(ctx context.Context, id string) (*entities.Ambulance, error) {
	query, args, err := a.db.Select(ambulanceColumns...).
		From("ambulances").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ambulance := &entities.Ambulance{}
	err = a.client.DBX().GetContext(ctx, ambulance, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ambulance with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get ambulance", err)
	}
	return ambulance, nil
}

// List retrieves ambulances ordered by vehicle number
func (a *AmbulanceAdapter) List(ctx context.Context, district string) ([]*entities.Ambulance, error) {
	ds := a.db.Select(ambulanceColumns...).From("ambulances")
	if district != "" {
		ds = ds.Where(goqu.Ex{"district": district})
	}
	query, args, err := ds.Order(goqu.I("vehicle_number").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	ambulances := []*entities.Ambulance{}
	if err := a.client.DBX().SelectContext(ctx, &ambulances, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list ambulances", err)
	}
	return ambulances, nil
}

// UpdateLocation stores a position report and returns the updated row
func (a *AmbulanceAdapter) UpdateLocation(ctx context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error) {
	set := goqu.Record{
		"lat":        update.Lat,
		"lng":        update.Lng,
		"updated_at": time.Now(),
	}
	if update.Status != "" {
		set["status"] = string(update.Status)
	}

	query, args, err := a.db.Update("ambulances").
		Set(set).
		Where(goqu.Ex{"id": id}).
		Returning(ambulanceColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	ambulance := &entities.Ambulance{}
	err = a.client.DBX().GetContext(ctx, ambulance, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ambulance with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to update ambulance location", err)
	}
	return ambulance, nil
}
