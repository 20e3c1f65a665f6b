package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

const (
	fallbackReasonUnconfigured = "unconfigured"
	fallbackReasonUpstream     = "upstream_error"
	fallbackReasonNoSymptoms   = "no_symptoms"
)

// TriageService answers the AI gateway operations. It never returns an error:
// a missing or failing model is replaced by a rule-based, localized fallback
// flagged with AIPowered=false.
type TriageService struct {
	ai      providers.TriageAIProvider
	rules   *SeverityRules
	metrics *observability.Metrics
}

// NewTriageService creates a triage service. ai may be nil when no API key is configured.
func NewTriageService(ai providers.TriageAIProvider, rules *SeverityRules, metrics *observability.Metrics) *TriageService {
	if rules == nil {
		rules = DefaultSeverityRules()
	}
	return &TriageService{ai: ai, rules: rules, metrics: metrics}
}

// AIConfigured reports whether a language model is wired in
func (s *TriageService) AIConfigured() bool {
	return s.ai != nil
}

// ClassifySeverity applies the keyword rules only
func (s *TriageService) ClassifySeverity(symptoms string) entities.Severity {
	return s.rules.Classify(symptoms)
}

// AnalyzeSeverity performs a quick severity check
func (s *TriageService) AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) *entities.SeverityAnalysis {
	switch {
	case strings.TrimSpace(symptoms) == "":
		// nothing for the model to assess; the rules answer Low
		observability.RecordFallback(ctx, s.metrics, "analyze", fallbackReasonNoSymptoms)
	case s.ai != nil:
		analysis, err := s.ai.AnalyzeSeverity(ctx, symptoms, history, locale)
		if err == nil {
			analysis.Severity = normalizeSeverity(analysis.Severity)
			analysis.AIPowered = true
			observability.RecordSeverity(ctx, s.metrics, string(analysis.Severity), true)
			return analysis
		}
		s.logFallback(ctx, "analyze", err)
	default:
		observability.RecordFallback(ctx, s.metrics, "analyze", fallbackReasonUnconfigured)
	}

	severity := s.rules.Classify(symptoms)
	observability.RecordSeverity(ctx, s.metrics, string(severity), false)

	recommendations := fmt.Sprintf("Based on symptoms: %s. Please consult a doctor for proper diagnosis.", symptoms)
	if locale.IsHindi() {
		recommendations = fmt.Sprintf("लक्षणों के आधार पर: %s। कृपया उचित निदान के लिए डॉक्टर से परामर्श लें।", symptoms)
	}
	return &entities.SeverityAnalysis{
		Severity:        severity,
		Recommendations: recommendations,
		AIPowered:       false,
	}
}

// GenerateReport produces the structured consultation report
func (s *TriageService) GenerateReport(ctx context.Context, req entities.ReportRequest) *entities.Report {
	if s.ai != nil {
		report, err := s.ai.GenerateReport(ctx, req)
		if err == nil {
			report.Severity = normalizeSeverity(report.Severity)
			report.AIPowered = true
			observability.RecordSeverity(ctx, s.metrics, string(report.Severity), true)
			return report
		}
		s.logFallback(ctx, "report", err)
	} else {
		observability.RecordFallback(ctx, s.metrics, "report", fallbackReasonUnconfigured)
	}

	report := FallbackReport(req, s.rules.Classify(req.Symptoms))
	observability.RecordSeverity(ctx, s.metrics, string(report.Severity), false)
	return report
}

// Chat answers one chat turn given the full history
func (s *TriageService) Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) entities.ChatReply {
	if s.ai == nil {
		observability.RecordFallback(ctx, s.metrics, "chat", fallbackReasonUnconfigured)
		reply := "I am an AI medical assistant. Please ask your question. (AI key not configured, this is a fallback response.)"
		if locale.IsHindi() {
			reply = "मैं एक AI मेडिकल सहायक हूँ। कृपया अपना प्रश्न पूछें। (AI कुंजी कॉन्फ़िगर नहीं है, यह एक फ़ॉलबैक प्रतिक्रिया है।)"
		}
		return entities.ChatReply{Reply: reply}
	}

	reply, err := s.ai.Chat(ctx, history, locale)
	if err == nil {
		return entities.ChatReply{Reply: reply, AIPowered: true}
	}
	s.logFallback(ctx, "chat", err)

	question := truncateRunes(entities.LastUserMessage(history), 50)
	text := fmt.Sprintf("Regarding your question \"%s\": I recommend consulting a healthcare professional for personalized advice. The AI service is temporarily unavailable.", question)
	if locale.IsHindi() {
		text = fmt.Sprintf("आपके प्रश्न \"%s\" के लिए: कृपया इस विषय पर डॉक्टर से परामर्श लें। AI सेवा अस्थायी रूप से अनुपलब्ध है।", question)
	}
	return entities.ChatReply{Reply: text}
}

// AnalyzeDocument reads an uploaded medical document
func (s *TriageService) AnalyzeDocument(ctx context.Context, doc providers.DocumentInput) *entities.DocumentAnalysis {
	if s.ai != nil {
		analysis, err := s.ai.AnalyzeDocument(ctx, doc)
		if err == nil {
			analysis.AIPowered = true
			return analysis
		}
		s.logFallback(ctx, "document", err)
	} else {
		observability.RecordFallback(ctx, s.metrics, "document", fallbackReasonUnconfigured)
	}

	if doc.Locale.IsHindi() {
		return &entities.DocumentAnalysis{
			Summary:         fmt.Sprintf("दस्तावेज़ \"%s\" सफलतापूर्वक अपलोड किया गया। AI विश्लेषण के लिए OpenAI API कुंजी कॉन्फ़िगर करें। कृपया डॉक्टर से रिपोर्ट की समीक्षा करवाएं।", doc.File.OriginalName),
			Findings:        "AI विश्लेषण उपलब्ध नहीं (API कुंजी कॉन्फ़िगर नहीं है)। डॉक्टर रिपोर्ट की समीक्षा करेंगे।",
			Recommendations: "कृपया अपने नजदीकी अस्पताल में डॉक्टर से मिलें और यह रिपोर्ट दिखाएं।",
		}
	}
	return &entities.DocumentAnalysis{
		Summary:         fmt.Sprintf("Document \"%s\" uploaded successfully. Configure OpenAI API key for AI analysis. Please have a doctor review the report.", doc.File.OriginalName),
		Findings:        "AI analysis unavailable (API key not configured). A doctor will review the report.",
		Recommendations: "Please visit your nearest hospital and show this report to a doctor.",
	}
}

func (s *TriageService) logFallback(ctx context.Context, operation string, err error) {
	reason := fallbackReasonUpstream
	if errors.Is(err, providers.ErrTriageAIUnavailable) {
		reason = "circuit_open"
	}
	observability.RecordFallback(ctx, s.metrics, operation, reason)
	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Str("operation", operation).
		Str("reason", reason).
		Msg("AI provider failed, using rule-based fallback")
}

// FallbackReport builds the minimal report used when no model answer is available
func FallbackReport(req entities.ReportRequest, severity entities.Severity) *entities.Report {
	if !severity.Valid() {
		severity = entities.SeverityMedium
	}
	if req.Language.IsHindi() {
		return &entities.Report{
			Severity: severity,
			Summary: fmt.Sprintf("रोगी %s, उम्र %s। लक्षण: %s। इतिहास: %s।",
				orDefault(req.Name, "अज्ञात"), orDefault(req.Age, "अज्ञात"),
				orDefault(req.Symptoms, "निर्दिष्ट नहीं"), orDefault(req.History, "कोई नहीं")),
			PossibleConditions: []string{"कृपया उचित निदान के लिए डॉक्टर से परामर्श लें"},
			Recommendations:    []string{"पूरी जांच के लिए किसी स्वास्थ्य विशेषज्ञ से मिलें"},
			Medications:        []string{"उचित निदान के बिना कोई दवा नहीं सुझाई जा सकती"},
			NextSteps:          []string{"किसी विशेषज्ञ से अपॉइंटमेंट लें", "डॉक्टर की सलाह पर लैब टेस्ट करवाएं"},
		}
	}
	return &entities.Report{
		Severity: severity,
		Summary: fmt.Sprintf("Patient %s, age %s. Symptoms: %s. History: %s.",
			orDefault(req.Name, "Unknown"), orDefault(req.Age, "Unknown"),
			orDefault(req.Symptoms, "Not specified"), orDefault(req.History, "None reported")),
		PossibleConditions: []string{"Please consult a doctor for proper diagnosis"},
		Recommendations:    []string{"Visit a healthcare professional for a thorough examination"},
		Medications:        []string{"No medications can be suggested without a proper diagnosis"},
		NextSteps:          []string{"Schedule an appointment with a specialist", "Get lab tests if recommended by a doctor"},
	}
}

func normalizeSeverity(s entities.Severity) entities.Severity {
	if s.Valid() {
		return s
	}
	return entities.NormalizeSeverity(string(s))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
