package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// TrackingEventType represents the type of real-time tracking event
type TrackingEventType string

const (
	TrackingEventAmbulanceUpdate TrackingEventType = "ambulance-update"
	TrackingEventBedUpdate       TrackingEventType = "bed-update"
)

// TrackingEvent is a real-time update broadcast to map and dashboard clients
type TrackingEvent struct {
	ID        string            `json:"id"`
	Type      TrackingEventType `json:"type"`
	EntityID  string            `json:"entityId"`
	District  string            `json:"district,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Location  *Location         `json:"location,omitempty"`
	Ambulance *Ambulance        `json:"ambulance,omitempty"`
	Hospital  *Hospital         `json:"hospital,omitempty"`
}

// NewAmbulanceEvent creates an ambulance-update event
func NewAmbulanceEvent(ambulance *Ambulance) *TrackingEvent {
	location := ambulance.Position()
	return &TrackingEvent{
		ID:        generateEventID(),
		Type:      TrackingEventAmbulanceUpdate,
		EntityID:  ambulance.ID,
		District:  ambulance.District,
		Timestamp: time.Now(),
		Location:  &location,
		Ambulance: ambulance,
	}
}

// NewBedEvent creates a bed-update event
func NewBedEvent(hospital *Hospital) *TrackingEvent {
	location := hospital.Position()
	return &TrackingEvent{
		ID:        generateEventID(),
		Type:      TrackingEventBedUpdate,
		EntityID:  hospital.ID,
		District:  hospital.District,
		Timestamp: time.Now(),
		Location:  &location,
		Hospital:  hospital,
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
