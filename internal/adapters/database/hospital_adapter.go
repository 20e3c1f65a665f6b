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
	"github.com/lib/pq"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

var hospitalColumns = []interface{}{
	"id", "name", "district", "address", "lat", "lng",
	"total_beds", "available_beds", "icu_beds", "available_icu_beds",
	"contact", "specialties", "created_at", "updated_at",
}

// hospitalRow flattens specialties into a Postgres text[]
type hospitalRow struct {
	entities.Hospital
	Specialties pq.StringArray `db:"specialties"`
}

func (r *hospitalRow) toEntity() *entities.Hospital {
	h := r.Hospital
	h.Specialties = []string(r.Specialties)
	if h.Specialties == nil {
		h.Specialties = []string{}
	}
	return &h
}

// HospitalAdapter implements the HospitalRepository interface
type HospitalAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewHospitalAdapter creates a new hospital adapter
func NewHospitalAdapter(client *postgres.Client) repositories.HospitalRepository {
	return &HospitalAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new hospital
func (a *HospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) error {
	if hospital.ID == "" {
		hospital.ID = uuid.NewString()
	}
	now := time.Now()
	hospital.CreatedAt = now
	hospital.UpdatedAt = now

	record := goqu.Record{
		"id":                 hospital.ID,
		"name":               hospital.Name,
		"district":           hospital.District,
		"address":            hospital.Address,
		"lat":                hospital.Lat,
		"lng":                hospital.Lng,
		"total_beds":         hospital.TotalBeds,
		"available_beds":     hospital.AvailableBeds,
		"icu_beds":           hospital.ICUBeds,
		"available_icu_beds": hospital.AvailableICUBeds,
		"contact":            hospital.Contact,
		"specialties":        pq.Array(hospital.Specialties),
		"created_at":         hospital.CreatedAt,
		"updated_at":         hospital.UpdatedAt,
	}

	query, args, err := a.db.Insert("hospitals").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create hospital", err)
	}
	return nil
}

// GetByID retrieves a hospital by ID
func (a *HospitalAdapter) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	query, args, err := a.db.Select(hospitalColumns...).
		From("hospitals").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row hospitalRow
	err = a.client.DBX().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get hospital", err)
	}
	return row.toEntity(), nil
}

// GetByIDs retrieves hospitals by IDs
func (a *HospitalAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Hospital, error) {
	if len(ids) == 0 {
		return []*entities.Hospital{}, nil
	}
	query, args, err := a.db.Select(hospitalColumns...).
		From("hospitals").
		Where(goqu.Ex{"id": ids}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.selectHospitals(ctx, query, args)
}

// List retrieves hospitals ordered by name
func (a *HospitalAdapter) List(ctx context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error) {
	ds := a.db.Select(hospitalColumns...).From("hospitals")
	if filter.District != "" {
		ds = ds.Where(goqu.Ex{"district": filter.District})
	}
	ds = ds.Order(goqu.I("name").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.selectHospitals(ctx, query, args)
}

func (a *HospitalAdapter) selectHospitals(ctx context.Context, query string, args []interface{}) ([]*entities.Hospital, error) {
	var rows []hospitalRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list hospitals", err)
	}
	hospitals := make([]*entities.Hospital, 0, len(rows))
	for i := range rows {
		hospitals = append(hospitals, rows[i].toEntity())
	}
	return hospitals, nil
}

// UpdateBeds commits bed availability in a single statement
func (a *HospitalAdapter) UpdateBeds(ctx context.Context, hospital *entities.Hospital) error {
	hospital.UpdatedAt = time.Now()

	query, args, err := a.db.Update("hospitals").
		Set(goqu.Record{
			"available_beds":     hospital.AvailableBeds,
			"available_icu_beds": hospital.AvailableICUBeds,
			"updated_at":         hospital.UpdatedAt,
		}).
		Where(goqu.Ex{"id": hospital.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update hospital beds", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("hospital with id %s not found", hospital.ID))
	}
	return nil
}
