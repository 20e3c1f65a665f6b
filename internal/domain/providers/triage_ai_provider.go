package providers

import (
	"context"
	"errors"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// ErrTriageAIUnauthorized marks a rejected API key; callers should stop retrying
var ErrTriageAIUnauthorized = errors.New("triage ai provider unauthorized")

// ErrTriageAIUnavailable marks an open circuit or exhausted quota
var ErrTriageAIUnavailable = errors.New("triage ai provider unavailable")

// DocumentInput describes an uploaded document for analysis
type DocumentInput struct {
	File    entities.UploadedFile
	Excerpt string
	Locale  entities.Locale
}

// TriageAIProvider is a language model backing the triage endpoints.
// Implementations return raw model judgements; fallbacks are the caller's job.
type TriageAIProvider interface {
	AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error)
	GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error)
	Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (string, error)
	AnalyzeDocument(ctx context.Context, doc DocumentInput) (*entities.DocumentAnalysis, error)
}
