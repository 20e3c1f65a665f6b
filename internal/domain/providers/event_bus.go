package providers

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to tracking events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.TrackingEvent) error

	// Subscribe subscribes to events on a channel; the returned channel is
	// closed when ctx is done or the bus shuts down
	Subscribe(ctx context.Context, channel string) (<-chan *entities.TrackingEvent, error)

	// Unsubscribe drops every subscriber of a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelTracking carries every ambulance and bed update
	EventChannelTracking = "tracking:updates"

	// EventChannelDistrictPrefix is the prefix for district-scoped channels
	EventChannelDistrictPrefix = "district:"
)

// GetDistrictChannel returns the channel name for a district
func GetDistrictChannel(district string) string {
	return EventChannelDistrictPrefix + district
}
