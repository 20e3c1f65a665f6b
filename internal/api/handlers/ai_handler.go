package handlers

import (
	"context"
	"net/http"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// TriageService defines the AI gateway operations. Implementations never fail:
// unavailable upstreams yield fallbacks flagged with aiPowered=false.
type TriageService interface {
	AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) *entities.SeverityAnalysis
	GenerateReport(ctx context.Context, req entities.ReportRequest) *entities.Report
	Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) entities.ChatReply
}

// AIHandler handles the triage gateway endpoints
type AIHandler struct {
	service TriageService
}

// NewAIHandler creates a new AI handler
func NewAIHandler(service TriageService) *AIHandler {
	return &AIHandler{service: service}
}

type analyzeRequest struct {
	Symptoms string `json:"symptoms"`
	History  string `json:"history"`
	Language string `json:"language"`
}

type chatRequest struct {
	Messages []entities.ChatMessage `json:"messages"`
	Language string                 `json:"language"`
}

// AnalyzeSymptoms handles POST /api/ai/analyze
func (h *AIHandler) AnalyzeSymptoms(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	analysis := h.service.AnalyzeSeverity(r.Context(), req.Symptoms, req.History, entities.ParseLocale(req.Language))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"analysis": analysis,
	})
}

// GenerateReport handles POST /api/ai/report
func (h *AIHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req entities.ReportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Language = entities.ParseLocale(string(req.Language))

	report := h.service.GenerateReport(r.Context(), req)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"report":  report,
	})
}

// Chat handles POST /api/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Messages) == 0 {
		respondWithError(w, http.StatusBadRequest, "messages are required")
		return
	}

	reply := h.service.Chat(r.Context(), req.Messages, entities.ParseLocale(req.Language))
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"reply":     reply.Reply,
		"aiPowered": reply.AIPowered,
	})
}
