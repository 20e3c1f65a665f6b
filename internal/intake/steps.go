package intake

import (
	"fmt"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// Step keys
const (
	KeyName     = "name"
	KeyAge      = "age"
	KeySymptoms = "symptoms"
	KeyHistory  = "history"
)

// Step is one scripted intake question
type Step struct {
	Key      string `json:"key"`
	Prompt   string `json:"prompt"`
	PromptHi string `json:"promptAlt"`
}

// PromptFor returns the question text for a locale
func (s Step) PromptFor(locale entities.Locale) string {
	if locale.IsHindi() {
		return s.PromptHi
	}
	return s.Prompt
}

// DefaultSteps is the fixed name, age, symptoms, history sequence
var DefaultSteps = []Step{
	{
		Key:      KeyName,
		Prompt:   "Hello! I'm your AI medical assistant. Let's start — what is your name?",
		PromptHi: "नमस्ते! मैं आपकी AI मेडिकल सहायक हूँ। चलिए शुरू करते हैं — आपका नाम क्या है?",
	},
	{
		Key:      KeyAge,
		Prompt:   "Thank you! How old are you?",
		PromptHi: "धन्यवाद! आपकी उम्र क्या है?",
	},
	{
		Key:      KeySymptoms,
		Prompt:   "Can you describe the symptoms you are experiencing?",
		PromptHi: "कृपया बताएं कि आपको क्या लक्षण हो रहे हैं?",
	},
	{
		Key:      KeyHistory,
		Prompt:   "Do you have any relevant medical history or ongoing conditions?",
		PromptHi: "क्या आपकी कोई पुरानी बीमारी या चिकित्सा इतिहास है?",
	},
}

func reportReadyMessage(severity entities.Severity, locale entities.Locale) string {
	if locale.IsHindi() {
		return fmt.Sprintf("आपकी रिपोर्ट तैयार है। गंभीरता स्तर: %s। कृपया नीचे पूरी रिपोर्ट देखें।", severity)
	}
	return fmt.Sprintf("Your report is ready. Severity level: %s. Please review the full report below.", severity)
}

func chatWelcomeMessage(locale entities.Locale) string {
	if locale.IsHindi() {
		return "अब आप मुझसे कोई भी स्वास्थ्य संबंधी प्रश्न पूछ सकते हैं। मैं आपकी मदद के लिए यहाँ हूँ!"
	}
	return "You can now ask me any health-related questions. I'm here to help!"
}

// ApologyMessage is appended to the chat when a reply cannot be obtained
func ApologyMessage(locale entities.Locale) string {
	if locale.IsHindi() {
		return "क्षमा करें, कुछ गलत हो गया।"
	}
	return "Sorry, something went wrong."
}

// fallbackReport is the minimal report used when report generation fails
func fallbackReport(draft Draft, severity entities.Severity, locale entities.Locale) *entities.Report {
	if locale.IsHindi() {
		return &entities.Report{
			Severity:           severity,
			Summary:            fmt.Sprintf("रोगी %s, उम्र %s। लक्षण: %s", draft[KeyName], draft[KeyAge], draft[KeySymptoms]),
			PossibleConditions: []string{},
			Recommendations:    []string{"कृपया किसी स्वास्थ्य विशेषज्ञ से परामर्श लें"},
			Medications:        []string{},
			NextSteps:          []string{"उचित निदान के लिए डॉक्टर से मिलें"},
		}
	}
	return &entities.Report{
		Severity:           severity,
		Summary:            fmt.Sprintf("Patient %s, age %s. Symptoms: %s", draft[KeyName], draft[KeyAge], draft[KeySymptoms]),
		PossibleConditions: []string{},
		Recommendations:    []string{"Please consult a healthcare professional"},
		Medications:        []string{},
		NextSteps:          []string{"Visit a doctor for proper diagnosis"},
	}
}
