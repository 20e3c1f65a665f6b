package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

var patientColumns = []interface{}{
	"id", "patient_id", "name", "age",
	"symptoms", "history", "severity", "language_used", "ai_analysis",
	"created_at",
}

type patientRow struct {
	entities.Patient
	entities.TriageData
}

func (r *patientRow) toEntity() *entities.Patient {
	p := r.Patient
	p.TriageData = r.TriageData
	return &p
}

// PatientAdapter implements the PatientRepository interface
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create persists a new patient record
func (a *PatientAdapter) Create(ctx context.Context, patient *entities.Patient) error {
	record := goqu.Record{
		"id":            patient.ID,
		"patient_id":    patient.PatientID,
		"name":          patient.Name,
		"age":           patient.Age,
		"symptoms":      patient.TriageData.Symptoms,
		"history":       patient.TriageData.History,
		"severity":      string(patient.TriageData.Severity),
		"language_used": string(patient.TriageData.LanguageUsed),
		"ai_analysis":   patient.TriageData.AIAnalysis,
		"created_at":    patient.Timestamp,
	}

	query, args, err := a.db.Insert("patients").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("patient %s already exists", patient.PatientID))
		}
		return apperrors.NewInternalError("failed to create patient", err)
	}
	return nil
}

// GetByPatientID retrieves a patient by public patient ID
func (a *PatientAdapter) GetByPatientID(ctx context.Context, patientID string) (*entities.Patient, error) {
	query, args, err := a.db.Select(patientColumns...).
		From("patients").
		Where(goqu.Ex{"patient_id": patientID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row patientRow
	err = a.client.DBX().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("Patient not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}
	return row.toEntity(), nil
}

// List returns patients newest first
func (a *PatientAdapter) List(ctx context.Context, limit, offset int) ([]*entities.Patient, error) {
	ds := a.db.Select(patientColumns...).
		From("patients").
		Order(goqu.I("created_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []patientRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list patients", err)
	}
	patients := make([]*entities.Patient, 0, len(rows))
	for i := range rows {
		patients = append(patients, rows[i].toEntity())
	}
	return patients, nil
}

// Delete removes a patient; deleting an unknown ID is not an error
func (a *PatientAdapter) Delete(ctx context.Context, patientID string) error {
	query, args, err := a.db.Delete("patients").
		Where(goqu.Ex{"patient_id": patientID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete patient", err)
	}
	return nil
}
