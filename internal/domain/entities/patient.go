package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient is a registered triage record
type Patient struct {
	ID         string     `json:"id" db:"id"`
	PatientID  string     `json:"patientID" db:"patient_id"`
	Name       string     `json:"name" db:"name"`
	Age        int        `json:"age" db:"age"`
	TriageData TriageData `json:"triageData" db:"-"`
	Timestamp  time.Time  `json:"timestamp" db:"created_at"`
}

// TriageData holds the intake answers and their assessment
type TriageData struct {
	Symptoms     string   `json:"symptoms" db:"symptoms"`
	History      string   `json:"history" db:"history"`
	Severity     Severity `json:"severity" db:"severity"`
	LanguageUsed Locale   `json:"languageUsed" db:"language_used"`
	AIAnalysis   string   `json:"aiAnalysis" db:"ai_analysis"`
}

// NewPatientID returns a short public identifier such as PT-1A2B3C4D
func NewPatientID() string {
	return "PT-" + strings.ToUpper(uuid.NewString()[:8])
}
