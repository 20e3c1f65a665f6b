package services

import (
	"context"
	"strings"
	"time"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

// CriticalAlerter is notified when a critical patient is registered
type CriticalAlerter interface {
	NotifyCritical(ctx context.Context, patient *entities.Patient) error
}

// PatientInput is the registration payload
type PatientInput struct {
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Symptoms     string `json:"symptoms"`
	History      string `json:"history"`
	Severity     string `json:"severity"`
	LanguageUsed string `json:"languageUsed"`
	AIAnalysis   string `json:"aiAnalysis"`
}

// PatientService handles business logic for the patient registry
type PatientService struct {
	repo    repositories.PatientRepository
	alerter CriticalAlerter
	async   bool
}

// NewPatientService creates a new patient service. alerter may be nil.
func NewPatientService(repo repositories.PatientRepository, alerter CriticalAlerter) *PatientService {
	return &PatientService{repo: repo, alerter: alerter, async: true}
}

// WithSyncAlerts delivers alerts before Create returns
func (s *PatientService) WithSyncAlerts() *PatientService {
	s.async = false
	return s
}

// Create validates and registers a patient
func (s *PatientService) Create(ctx context.Context, input PatientInput) (*entities.Patient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if input.Age < 0 {
		return nil, apperrors.NewValidationError("age must not be negative")
	}

	severity := entities.SeverityMedium
	if input.Severity != "" {
		parsed, ok := entities.ParseSeverity(input.Severity)
		if !ok {
			return nil, apperrors.NewValidationError("severity must be one of Low, Medium, High, Critical")
		}
		severity = parsed
	}

	language := entities.LocaleEnglish
	if input.LanguageUsed != "" {
		language = entities.ParseLocale(input.LanguageUsed)
	}

	patient := &entities.Patient{
		PatientID: entities.NewPatientID(),
		Name:      name,
		Age:       input.Age,
		TriageData: entities.TriageData{
			Symptoms:     input.Symptoms,
			History:      input.History,
			Severity:     severity,
			LanguageUsed: language,
			AIAnalysis:   input.AIAnalysis,
		},
		Timestamp: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	if severity == entities.SeverityCritical && s.alerter != nil {
		s.alert(ctx, patient)
	}

	return patient, nil
}

func (s *PatientService) alert(ctx context.Context, patient *entities.Patient) {
	send := func(ctx context.Context) {
		if err := s.alerter.NotifyCritical(ctx, patient); err != nil {
			observability.LoggerFromContext(ctx).Error().
				Err(err).
				Str("patient_id", patient.PatientID).
				Msg("critical alert not delivered")
		}
	}
	if !s.async {
		send(ctx)
		return
	}
	go send(context.WithoutCancel(ctx))
}

// GetByPatientID retrieves a patient by public ID
func (s *PatientService) GetByPatientID(ctx context.Context, patientID string) (*entities.Patient, error) {
	return s.repo.GetByPatientID(ctx, patientID)
}

// List returns patients newest first
func (s *PatientService) List(ctx context.Context, limit, offset int) ([]*entities.Patient, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Delete removes a patient
func (s *PatientService) Delete(ctx context.Context, patientID string) error {
	return s.repo.Delete(ctx, patientID)
}
