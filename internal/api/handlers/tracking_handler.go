package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = (socketPongWait * 9) / 10
	socketMaxMessage = 64 * 1024

	// inbound driver position report over the socket
	socketAmbulanceLocation = "ambulance-location"
)

// AmbulanceRelay rebroadcasts unsaved driver positions
type AmbulanceRelay interface {
	Relay(ctx context.Context, ambulance *entities.Ambulance) error
}

// TrackingHandler streams ambulance and bed updates over SSE and WebSocket
type TrackingHandler struct {
	eventBus  providers.EventBus
	relay     AmbulanceRelay
	upgrader  websocket.Upgrader
	heartbeat time.Duration
}

// NewTrackingHandler creates a new tracking handler. Browser sockets are only
// accepted from allowedOrigins; "*" allows any origin.
func NewTrackingHandler(eventBus providers.EventBus, relay AmbulanceRelay, allowedOrigins []string) *TrackingHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = true
	}
	return &TrackingHandler{
		eventBus:  eventBus,
		relay:     relay,
		heartbeat: 30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins["*"] || origins[origin]
			},
		},
	}
}

// socketMessage is the WebSocket frame in both directions
type socketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// StreamTracking handles GET /api/stream/tracking?district=
func (h *TrackingHandler) StreamTracking(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	channel := trackingChannel(r.URL.Query().Get("district"))
	events, err := h.eventBus.Subscribe(r.Context(), channel)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	logger := observability.LoggerFromContext(r.Context())
	writeSSE(w, "connected", map[string]interface{}{
		"channel":   channel,
		"timestamp": time.Now(),
	})
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Debug().Str("channel", channel).Msg("client disconnected from tracking stream")
			return
		case <-ticker.C:
			writeSSE(w, "heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			if event == nil {
				continue
			}
			writeSSE(w, string(event.Type), event)
			flusher.Flush()
		}
	}
}

// ServeSocket handles GET /ws/tracking
func (h *TrackingHandler) ServeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := observability.LoggerFromContext(r.Context()).With().Str("remote", r.RemoteAddr).Logger()

	channel := trackingChannel(r.URL.Query().Get("district"))
	events, err := h.eventBus.Subscribe(ctx, channel)
	if err != nil {
		logger.Error().Err(err).Msg("failed to subscribe socket to tracking events")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "tracking unavailable"),
			time.Now().Add(socketWriteWait))
		conn.Close()
		return
	}

	logger.Info().Str("channel", channel).Msg("tracking socket connected")
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctx, conn, events, logger)
		// unblocks readPump when the write side gives up first
		conn.Close()
	}()

	h.readPump(ctx, conn, logger)
	cancel()
	<-done
	logger.Info().Msg("tracking socket disconnected")
}

// readPump applies inbound messages until the peer goes away
func (h *TrackingHandler) readPump(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger) {
	conn.SetReadLimit(socketMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("tracking socket read failed")
			}
			return
		}
		if msg.Type != socketAmbulanceLocation {
			logger.Debug().Str("type", msg.Type).Msg("ignoring socket message")
			continue
		}

		var ambulance entities.Ambulance
		if err := json.Unmarshal(msg.Data, &ambulance); err != nil {
			logger.Warn().Err(err).Msg("malformed ambulance location")
			continue
		}
		if err := h.relay.Relay(ctx, &ambulance); err != nil {
			logger.Warn().Err(err).Str("ambulance_id", ambulance.ID).Msg("failed to relay ambulance location")
		}
	}
}

// writePump forwards bus events and keeps the connection alive with pings
func (h *TrackingHandler) writePump(ctx context.Context, conn *websocket.Conn, events <-chan *entities.TrackingEvent, logger zerolog.Logger) {
	ticker := time.NewTicker(socketPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(socketWriteWait))
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		case event, open := <-events:
			if !open {
				return
			}
			if event == nil {
				continue
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("failed to encode tracking event")
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
			if err := conn.WriteJSON(socketMessage{Type: string(event.Type), Data: data}); err != nil {
				logger.Debug().Err(err).Msg("tracking socket write failed")
				return
			}
		}
	}
}

func trackingChannel(district string) string {
	if district == "" {
		return providers.EventChannelTracking
	}
	return providers.GetDistrictChannel(district)
}
