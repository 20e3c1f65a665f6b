package handlers_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/adapters/events"
	"github.com/setuhealth/setu/backend/internal/api/handlers"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
)

// busRelay mirrors the ambulance service: relayed positions are published unsaved
type busRelay struct {
	bus providers.EventBus

	mu      sync.Mutex
	relayed []*entities.Ambulance
}

func (r *busRelay) Relay(ctx context.Context, ambulance *entities.Ambulance) error {
	r.mu.Lock()
	r.relayed = append(r.relayed, ambulance)
	r.mu.Unlock()
	return r.bus.Publish(ctx, providers.EventChannelTracking, entities.NewAmbulanceEvent(ambulance))
}

func newTrackingServer(t *testing.T) (providers.EventBus, *busRelay, *httptest.Server) {
	t.Helper()
	bus := events.NewMemoryEventBus()
	relay := &busRelay{bus: bus}
	handler := handlers.NewTrackingHandler(bus, relay, []string{"http://localhost:5173"})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/stream/tracking", handler.StreamTracking)
	mux.HandleFunc("GET /ws/tracking", handler.ServeSocket)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		_ = bus.Close()
	})
	return bus, relay, server
}

func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			return event, data
		}
	}
}

func TestTrackingHandler_StreamTracking(t *testing.T) {
	bus, _, server := newTrackingServer(t)

	resp, err := http.Get(server.URL + "/api/stream/tracking")
	require.NoError(t, err)
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	event, data := readSSEEvent(t, reader)
	require.Equal(t, "connected", event)
	assert.Contains(t, data, providers.EventChannelTracking)

	hospital := &entities.Hospital{ID: "h1", Name: "Mayaganj Hospital", District: "Bhagalpur", AvailableBeds: 42}
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelTracking, entities.NewBedEvent(hospital)))

	event, data = readSSEEvent(t, reader)
	assert.Equal(t, string(entities.TrackingEventBedUpdate), event)

	var received entities.TrackingEvent
	require.NoError(t, json.Unmarshal([]byte(data), &received))
	assert.Equal(t, "h1", received.EntityID)
	require.NotNil(t, received.Hospital)
	assert.Equal(t, 42, received.Hospital.AvailableBeds)
}

func TestTrackingHandler_StreamTracking_District(t *testing.T) {
	bus, _, server := newTrackingServer(t)

	resp, err := http.Get(server.URL + "/api/stream/tracking?district=Bhagalpur")
	require.NoError(t, err)
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)

	event, data := readSSEEvent(t, reader)
	require.Equal(t, "connected", event)
	assert.Contains(t, data, providers.GetDistrictChannel("Bhagalpur"))

	ctx := context.Background()
	ambulance := &entities.Ambulance{ID: "a1", District: "Bhagalpur", Lat: 25.24, Lng: 86.97}
	require.NoError(t, bus.Publish(ctx, providers.GetDistrictChannel("Bhagalpur"), entities.NewAmbulanceEvent(ambulance)))

	event, _ = readSSEEvent(t, reader)
	assert.Equal(t, string(entities.TrackingEventAmbulanceUpdate), event)
}

func TestTrackingHandler_SocketRelaysDriverLocation(t *testing.T) {
	_, relay, server := newTrackingServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tracking"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg := `{"type":"ambulance-location","data":{"id":"a7","vehicleNumber":"BR07-AMB-7","lat":25.25,"lng":86.99,"status":"en-route"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame struct {
		Type string                 `json:"type"`
		Data entities.TrackingEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, string(entities.TrackingEventAmbulanceUpdate), frame.Type)
	assert.Equal(t, "a7", frame.Data.EntityID)
	require.NotNil(t, frame.Data.Location)
	assert.Equal(t, 86.99, frame.Data.Location.Lng)

	relay.mu.Lock()
	defer relay.mu.Unlock()
	require.Len(t, relay.relayed, 1)
	assert.Equal(t, entities.AmbulanceEnRoute, relay.relayed[0].Status)
}

func TestTrackingHandler_SocketIgnoresUnknownMessages(t *testing.T) {
	_, relay, server := newTrackingServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tracking"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chat","data":{}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ambulance-location","data":"oops"}`)))
	// the socket survives bad input and still forwards bus events
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ambulance-location","data":{"id":"a1"}}`)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, string(entities.TrackingEventAmbulanceUpdate), frame.Type)

	relay.mu.Lock()
	assert.Len(t, relay.relayed, 1)
	relay.mu.Unlock()
}

func TestTrackingHandler_SocketRejectsForeignOrigin(t *testing.T) {
	_, _, server := newTrackingServer(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/tracking"

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
