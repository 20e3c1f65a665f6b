package events

import (
	"context"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
)

// MemoryEventBus delivers events within a single process. Used when Redis is
// not configured and in tests.
type MemoryEventBus struct {
	fanout *fanout
}

// NewMemoryEventBus creates an in-process event bus
func NewMemoryEventBus() providers.EventBus {
	return &MemoryEventBus{fanout: newFanout()}
}

// Publish delivers event to current subscribers of channel
func (b *MemoryEventBus) Publish(ctx context.Context, channel string, event *entities.TrackingEvent) error {
	b.fanout.broadcast(channel, event)
	return nil
}

// Subscribe registers a subscriber until ctx is done
func (b *MemoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.TrackingEvent, error) {
	eventChan, _ := b.fanout.add(channel)
	go func() {
		<-ctx.Done()
		b.fanout.remove(channel, eventChan)
	}()
	return eventChan, nil
}

// Unsubscribe drops every subscriber of channel
func (b *MemoryEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.fanout.removeAll(channel)
	return nil
}

// Close closes all subscriber channels
func (b *MemoryEventBus) Close() error {
	b.fanout.closeAll()
	return nil
}
