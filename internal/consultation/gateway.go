package consultation

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/intake"
)

// TriageGateway serves intake sessions from the in-process triage service.
// The service already substitutes fallbacks, so it never fails.
type TriageGateway struct {
	triage *services.TriageService
}

// NewTriageGateway creates an in-process gateway
func NewTriageGateway(triage *services.TriageService) *TriageGateway {
	return &TriageGateway{triage: triage}
}

// AnalyzeSeverity implements intake.Gateway
func (g *TriageGateway) AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error) {
	return g.triage.AnalyzeSeverity(ctx, symptoms, history, locale), nil
}

// GenerateReport implements intake.Gateway
func (g *TriageGateway) GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error) {
	return g.triage.GenerateReport(ctx, req), nil
}

// Chat implements intake.Gateway
func (g *TriageGateway) Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (entities.ChatReply, error) {
	return g.triage.Chat(ctx, history, locale), nil
}

// PatientRegistry records completed intakes through the patient service
type PatientRegistry struct {
	patients *services.PatientService
}

// NewPatientRegistry creates an in-process registry
func NewPatientRegistry(patients *services.PatientService) *PatientRegistry {
	return &PatientRegistry{patients: patients}
}

// SubmitPatient implements intake.Registry
func (r *PatientRegistry) SubmitPatient(ctx context.Context, submission intake.PatientSubmission) error {
	_, err := r.patients.Create(ctx, services.PatientInput{
		Name:         submission.Name,
		Age:          submission.Age,
		Symptoms:     submission.Symptoms,
		History:      submission.History,
		Severity:     string(submission.Severity),
		LanguageUsed: string(submission.LanguageUsed),
		AIAnalysis:   submission.AIAnalysis,
	})
	return err
}

var (
	_ intake.Gateway  = (*TriageGateway)(nil)
	_ intake.Registry = (*PatientRegistry)(nil)
)
