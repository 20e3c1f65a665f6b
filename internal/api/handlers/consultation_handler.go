package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/setuhealth/setu/backend/internal/consultation"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
	"github.com/setuhealth/setu/backend/internal/intake"
)

// ConsultationManager defines the session store used by the handler
type ConsultationManager interface {
	Create(locale entities.Locale) *consultation.Consultation
	Get(id string) (*consultation.Consultation, error)
	Remove(id string) bool
}

// ConsultationHandler exposes server-hosted intake sessions
type ConsultationHandler struct {
	manager   ConsultationManager
	heartbeat time.Duration
}

// NewConsultationHandler creates a new consultation handler
func NewConsultationHandler(manager ConsultationManager) *ConsultationHandler {
	return &ConsultationHandler{manager: manager, heartbeat: 30 * time.Second}
}

type languageRequest struct {
	Language string `json:"language"`
}

type textRequest struct {
	Text string `json:"text"`
}

type speechAckRequest struct {
	UtteranceID uint64                   `json:"utteranceId"`
	Event       consultation.SpeechEvent `json:"event"`
}

// CreateConsultation handles POST /api/consultations
func (h *ConsultationHandler) CreateConsultation(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &req) {
			return
		}
	}

	c := h.manager.Create(entities.ParseLocale(req.Language))
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"id":      c.ID,
		"state":   c.Snapshot(),
	})
}

// GetConsultation handles GET /api/consultations/{id}
func (h *ConsultationHandler) GetConsultation(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respondWithState(w, c)
}

// DeleteConsultation handles DELETE /api/consultations/{id}
func (h *ConsultationHandler) DeleteConsultation(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Remove(r.PathValue("id")) {
		respondWithError(w, http.StatusNotFound, "consultation not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start handles POST /api/consultations/{id}/start
func (h *ConsultationHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.Start()
	})
}

// Answer handles POST /api/consultations/{id}/answer
func (h *ConsultationHandler) Answer(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.SubmitAnswer(req.Text)
	})
}

// Continue handles POST /api/consultations/{id}/continue
func (h *ConsultationHandler) Continue(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.ContinueChat()
	})
}

// SendMessage handles POST /api/consultations/{id}/messages
func (h *ConsultationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.SendChatMessage(req.Text)
	})
}

// Listen handles POST /api/consultations/{id}/listen
func (h *ConsultationHandler) Listen(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.StartListening()
	})
}

// Reset handles POST /api/consultations/{id}/reset
func (h *ConsultationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.Reset()
	})
}

// SetLanguage handles POST /api/consultations/{id}/language
func (h *ConsultationHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req languageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	locale := entities.Locale(req.Language)
	if locale != entities.LocaleEnglish && locale != entities.LocaleHindi {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unsupported language %q", req.Language))
		return
	}
	h.act(w, r, func(c *consultation.Consultation) error {
		return c.Session.SetLocale(locale)
	})
}

// AckSpeech handles POST /api/consultations/{id}/speech
func (h *ConsultationHandler) AckSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechAckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Event.Valid() {
		respondWithError(w, http.StatusBadRequest, "event must be started, finished or error")
		return
	}

	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := c.Speaker.Ack(req.UtteranceID, req.Event); err != nil {
		if errors.Is(err, consultation.ErrUnknownUtterance) {
			respondWithError(w, http.StatusNotFound, "utterance is not playing")
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StreamEvents handles GET /api/consultations/{id}/events. The first event is
// the current state, followed by state changes and speech directives.
func (h *ConsultationHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	messages, unsubscribe := c.Subscribe()
	defer unsubscribe()

	logger := observability.LoggerFromContext(r.Context()).With().Str("consultation_id", c.ID).Logger()
	logger.Debug().Msg("consultation stream opened")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Msg("consultation stream closed by client")
			return
		case <-ticker.C:
			writeSSE(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case msg, open := <-messages:
			if !open {
				return
			}
			writeSSE(w, msg.Type, msg.Data)
			flusher.Flush()
			if msg.Type == consultation.MessageClosed {
				return
			}
		}
	}
}

func (h *ConsultationHandler) lookup(w http.ResponseWriter, r *http.Request) (*consultation.Consultation, bool) {
	c, err := h.manager.Get(r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return nil, false
	}
	return c, true
}

// act applies one session operation and answers with the resulting state
func (h *ConsultationHandler) act(w http.ResponseWriter, r *http.Request, op func(*consultation.Consultation) error) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := op(c); err != nil {
		switch {
		case errors.Is(err, intake.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, err.Error())
		case errors.Is(err, intake.ErrSessionClosed):
			respondWithError(w, http.StatusNotFound, "consultation not found")
		default:
			respondWithAppError(w, r, err)
		}
		return
	}
	h.respondWithState(w, c)
}

func (h *ConsultationHandler) respondWithState(w http.ResponseWriter, c *consultation.Consultation) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      c.ID,
		"state":   c.Snapshot(),
	})
}

// writeSSE writes one server-sent event frame
func writeSSE(w http.ResponseWriter, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("null")
	}
	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", payload)
}
