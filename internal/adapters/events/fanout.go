package events

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// fanout tracks local subscriber channels per bus channel. Slow subscribers
// drop events rather than block the broadcaster.
type fanout struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan *entities.TrackingEvent]struct{}
	closed      bool
}

func newFanout() *fanout {
	return &fanout{subscribers: make(map[string]map[chan *entities.TrackingEvent]struct{})}
}

func (f *fanout) add(channel string) (chan *entities.TrackingEvent, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	eventChan := make(chan *entities.TrackingEvent, subscriberBuffer)
	if f.closed {
		close(eventChan)
		return eventChan, 0
	}
	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.TrackingEvent]struct{})
	}
	f.subscribers[channel][eventChan] = struct{}{}
	return eventChan, len(f.subscribers[channel])
}

// remove closes one subscriber and returns how many remain on the channel
func (f *fanout) remove(channel string, eventChan chan *entities.TrackingEvent) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs, ok := f.subscribers[channel]
	if !ok {
		return 0
	}
	if _, ok := subs[eventChan]; ok {
		delete(subs, eventChan)
		close(eventChan)
	}
	if len(subs) == 0 {
		delete(f.subscribers, channel)
	}
	return len(subs)
}

func (f *fanout) removeAll(channel string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub := range f.subscribers[channel] {
		close(sub)
	}
	delete(f.subscribers, channel)
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for channel, subs := range f.subscribers {
		for sub := range subs {
			close(sub)
		}
		delete(f.subscribers, channel)
	}
	f.closed = true
}

func (f *fanout) broadcast(channel string, event *entities.TrackingEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subscribers[channel] {
		select {
		case sub <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
}
