package services

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// SeverityRules is the keyword table used when no language model answers.
// A symptom text matching any Critical keyword is Critical, otherwise any
// High keyword is High, otherwise any Medium keyword is Medium, else Low.
type SeverityRules struct {
	Critical []string `yaml:"critical"`
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`
}

// DefaultSeverityRules returns the built-in keyword table
func DefaultSeverityRules() *SeverityRules {
	return &SeverityRules{
		Critical: []string{"chest pain", "breathing difficulty", "unconscious", "severe bleeding", "seizure", "stroke", "heart attack"},
		High:     []string{"fracture", "high fever", "severe pain", "head injury", "burn", "allergic reaction"},
		Medium:   []string{"fever", "vomiting", "diarrhea", "moderate pain", "infection", "sprain"},
	}
}

// LoadSeverityRules reads a YAML rules file. An empty path yields the defaults;
// levels missing from the file keep their default keywords.
func LoadSeverityRules(path string) (*SeverityRules, error) {
	rules := DefaultSeverityRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read severity rules: %w", err)
	}

	var fromFile SeverityRules
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("failed to parse severity rules %s: %w", path, err)
	}

	if len(fromFile.Critical) > 0 {
		rules.Critical = fromFile.Critical
	}
	if len(fromFile.High) > 0 {
		rules.High = fromFile.High
	}
	if len(fromFile.Medium) > 0 {
		rules.Medium = fromFile.Medium
	}
	return rules, nil
}

// Classify derives a severity from free-text symptoms
func (r *SeverityRules) Classify(symptoms string) entities.Severity {
	folder := cases.Fold()
	text := folder.String(symptoms)

	matches := func(keywords []string) bool {
		for _, k := range keywords {
			k = strings.TrimSpace(k)
			if k != "" && strings.Contains(text, folder.String(k)) {
				return true
			}
		}
		return false
	}

	switch {
	case matches(r.Critical):
		return entities.SeverityCritical
	case matches(r.High):
		return entities.SeverityHigh
	case matches(r.Medium):
		return entities.SeverityMedium
	default:
		return entities.SeverityLow
	}
}
