package repositories

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient data operations
type PatientRepository interface {
	// Create persists a new patient record
	Create(ctx context.Context, patient *entities.Patient) error

	// GetByPatientID retrieves a patient by public patient ID
	GetByPatientID(ctx context.Context, patientID string) (*entities.Patient, error)

	// List returns patients newest first
	List(ctx context.Context, limit, offset int) ([]*entities.Patient, error)

	// Delete removes a patient by public patient ID
	Delete(ctx context.Context, patientID string) error
}
