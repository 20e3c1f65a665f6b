package openai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
)

const (
	chatSystemPromptEN = "You are a helpful and knowledgeable AI medical assistant. You answer health-related questions clearly and concisely. You do not diagnose but provide general medical information and advice. Always recommend consulting a doctor for serious concerns. You can also help with general wellness, nutrition, exercise, and mental health questions."
	chatSystemPromptHI = "आप एक सहायक और ज्ञानपूर्ण AI मेडिकल सहायक हैं। आप स्वास्थ्य संबंधी प्रश्नों का उत्तर हिंदी में देते हैं। आप निदान नहीं करते बल्कि सामान्य चिकित्सा जानकारी और सलाह देते हैं। हमेशा गंभीर मामलों में डॉक्टर से मिलने की सलाह दें।"

	documentExcerptLimit = 2000
)

func chatSystemPrompt(locale entities.Locale) string {
	if locale.IsHindi() {
		return chatSystemPromptHI
	}
	return chatSystemPromptEN
}

func buildSeverityPrompt(symptoms, history string, locale entities.Locale) string {
	if locale.IsHindi() {
		return fmt.Sprintf(`आप एक मेडिकल ट्राइएज AI हैं। रोगी के लक्षण: "%s". चिकित्सा इतिहास: "%s". कृपया गंभीरता स्तर (Low/Medium/High/Critical) और संक्षिप्त सिफारिशें JSON प्रारूप में दें: {"severity": "...", "recommendations": "..."}`, symptoms, history)
	}
	return fmt.Sprintf(`You are a medical triage AI assistant. Patient symptoms: "%s". Medical history: "%s". Provide severity level (Low/Medium/High/Critical) and brief recommendations in JSON format: {"severity": "...", "recommendations": "..."}`, symptoms, history)
}

func buildReportPrompt(req entities.ReportRequest) string {
	if req.Language.IsHindi() {
		history := req.History
		if history == "" {
			history = "कोई नहीं"
		}
		return fmt.Sprintf(`एक चिकित्सा ट्राइएज AI के रूप में, निम्नलिखित रोगी डेटा का विश्लेषण करें:
नाम: %s, उम्र: %s
लक्षण: %s
चिकित्सा इतिहास: %s

कृपया JSON प्रारूप में एक व्यापक रिपोर्ट दें:
{"severity": "Low/Medium/High/Critical", "summary": "संक्षिप्त सारांश", "possibleConditions": ["संभावित स्थिति 1", "संभावित स्थिति 2"], "recommendations": ["सिफारिश 1", "सिफारिश 2"], "medications": ["दवा सुझाव 1"], "nextSteps": ["अगला कदम 1", "अगला कदम 2"]}`,
			req.Name, req.Age, req.Symptoms, history)
	}
	history := req.History
	if history == "" {
		history = "None reported"
	}
	return fmt.Sprintf(`As a medical triage AI, analyze the following patient data:
Name: %s, Age: %s
Symptoms: %s
Medical History: %s

Provide a comprehensive report in JSON format:
{"severity": "Low/Medium/High/Critical", "summary": "Brief summary of assessment", "possibleConditions": ["Possible condition 1", "Possible condition 2"], "recommendations": ["Recommendation 1", "Recommendation 2"], "medications": ["Medication suggestion 1"], "nextSteps": ["Next step 1", "Next step 2"]}`,
		req.Name, req.Age, req.Symptoms, history)
}

func buildDocumentPrompt(doc providers.DocumentInput) string {
	excerpt := doc.Excerpt
	if runes := []rune(excerpt); len(runes) > documentExcerptLimit {
		excerpt = string(runes[:documentExcerptLimit])
	}
	sizeKB := float64(doc.File.Size) / 1024
	if doc.Locale.IsHindi() {
		content := "फ़ाइल एक छवि/PDF है।"
		if excerpt != "" {
			content = fmt.Sprintf(`फ़ाइल सामग्री: "%s"`, excerpt)
		}
		return fmt.Sprintf(`आप एक मेडिकल AI सहायक हैं। रोगी ने "%s" (%s, %.1fKB) नामक एक मेडिकल रिपोर्ट अपलोड की है। %s कृपया JSON प्रारूप में जवाब दें: {"summary": "रिपोर्ट का सारांश", "findings": "प्रमुख निष्कर्ष", "recommendations": "सिफारिशें"}`,
			doc.File.OriginalName, doc.File.Type, sizeKB, content)
	}
	content := "File is an image/PDF."
	if excerpt != "" {
		content = fmt.Sprintf(`File content: "%s"`, excerpt)
	}
	return fmt.Sprintf(`You are a medical AI assistant. A patient uploaded a medical report "%s" (%s, %.1fKB). %s Provide analysis in JSON: {"summary": "report summary", "findings": "key findings", "recommendations": "recommendations"}`,
		doc.File.OriginalName, doc.File.Type, sizeKB, content)
}

// stringList accepts either a JSON array of strings or a single string
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = []string{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = []string{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// flexString accepts a string or an array of strings joined by newlines
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var list stringList
	if err := list.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = flexString(strings.Join(list, "\n"))
	return nil
}

type severityPayload struct {
	Severity        string     `json:"severity"`
	Recommendations flexString `json:"recommendations"`
}

type reportPayload struct {
	Severity           string     `json:"severity"`
	Summary            flexString `json:"summary"`
	PossibleConditions stringList `json:"possibleConditions"`
	Recommendations    stringList `json:"recommendations"`
	Medications        stringList `json:"medications"`
	NextSteps          stringList `json:"nextSteps"`
}

type documentPayload struct {
	Summary         flexString `json:"summary"`
	Findings        flexString `json:"findings"`
	Recommendations flexString `json:"recommendations"`
}

// cleanModelJSON strips Markdown code fences the model sometimes wraps JSON in
func cleanModelJSON(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// parseSeverity reads the model answer; text that is not JSON becomes the
// recommendation with Medium severity.
func parseSeverity(text string) *entities.SeverityAnalysis {
	var payload severityPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return &entities.SeverityAnalysis{
			Severity:        entities.SeverityMedium,
			Recommendations: text,
			AIPowered:       true,
		}
	}
	return &entities.SeverityAnalysis{
		Severity:        entities.NormalizeSeverity(payload.Severity),
		Recommendations: string(payload.Recommendations),
		AIPowered:       true,
	}
}

func parseReport(text string) *entities.Report {
	var payload reportPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return &entities.Report{
			Severity:           entities.SeverityMedium,
			Summary:            text,
			PossibleConditions: []string{},
			Recommendations:    []string{},
			Medications:        []string{},
			NextSteps:          []string{},
			AIPowered:          true,
		}
	}
	return &entities.Report{
		Severity:           entities.NormalizeSeverity(payload.Severity),
		Summary:            string(payload.Summary),
		PossibleConditions: nonNil(payload.PossibleConditions),
		Recommendations:    nonNil(payload.Recommendations),
		Medications:        nonNil(payload.Medications),
		NextSteps:          nonNil(payload.NextSteps),
		AIPowered:          true,
	}
}

func parseDocument(text string) *entities.DocumentAnalysis {
	var payload documentPayload
	if err := json.Unmarshal([]byte(cleanModelJSON(text)), &payload); err != nil {
		return &entities.DocumentAnalysis{Summary: text, AIPowered: true}
	}
	return &entities.DocumentAnalysis{
		Summary:         string(payload.Summary),
		Findings:        string(payload.Findings),
		Recommendations: string(payload.Recommendations),
		AIPowered:       true,
	}
}

func nonNil(list stringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}
