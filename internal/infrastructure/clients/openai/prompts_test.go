package openai

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/stretchr/testify/assert"
)

func TestCleanModelJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanModelJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, cleanModelJSON(`  {"a":1} `))
}

func TestParseSeverity(t *testing.T) {
	analysis := parseSeverity(`{"severity":"urgent","recommendations":["Rest","Hydrate"]}`)
	assert.Equal(t, entities.SeverityMedium, analysis.Severity)
	assert.Equal(t, "Rest\nHydrate", analysis.Recommendations)

	raw := parseSeverity("not json at all")
	assert.Equal(t, entities.SeverityMedium, raw.Severity)
	assert.Equal(t, "not json at all", raw.Recommendations)
	assert.True(t, raw.AIPowered)
}

func TestBuildDocumentPromptTruncatesByRune(t *testing.T) {
	excerpt := strings.Repeat("é", documentExcerptLimit+50)
	prompt := buildDocumentPrompt(providers.DocumentInput{
		File:    entities.UploadedFile{OriginalName: "note.txt", Type: "text/plain"},
		Excerpt: excerpt,
		Locale:  entities.LocaleEnglish,
	})
	assert.Equal(t, documentExcerptLimit, strings.Count(prompt, "é"))
	assert.True(t, utf8.ValidString(prompt))
}

func TestBuildReportPromptHistoryDefault(t *testing.T) {
	en := buildReportPrompt(entities.ReportRequest{Name: "A", Age: "1", Symptoms: "s"})
	assert.Contains(t, en, "Medical History: None reported")

	hi := buildReportPrompt(entities.ReportRequest{Name: "A", Age: "1", Symptoms: "s", Language: entities.LocaleHindi})
	assert.Contains(t, hi, "चिकित्सा इतिहास: कोई नहीं")
}
