package consultation

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Message types pushed to consultation subscribers
const (
	MessageState         = "state"
	MessageSpeak         = "speak"
	MessageCancelSpeech  = "cancel-speech"
	MessageListen        = "listen"
	MessageStopListening = "stop-listening"
	MessageClosed        = "closed"
)

const subscriberBuffer = 32

// Message is one server-sent directive or snapshot
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// stream fans consultation messages out to its subscribers. New subscribers
// receive the latest state snapshot first. Slow subscribers drop messages.
type stream struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	lastState   *Message
	closed      bool
}

func newStream() *stream {
	return &stream{subscribers: make(map[chan Message]struct{})}
}

func (s *stream) subscribe() (<-chan Message, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Message, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	if s.lastState != nil {
		ch <- *s.lastState
	}
	s.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() { s.unsubscribe(ch) })
	}
}

func (s *stream) unsubscribe(ch chan Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscribers[ch]; ok {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *stream) publish(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if msg.Type == MessageState {
		s.lastState = &msg
	}
	for ch := range s.subscribers {
		select {
		case ch <- msg:
		default:
			log.Warn().Str("type", msg.Type).Msg("consultation subscriber full, dropping message")
		}
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	for ch := range s.subscribers {
		select {
		case ch <- Message{Type: MessageClosed}:
		default:
		}
		close(ch)
		delete(s.subscribers, ch)
	}
	s.closed = true
}
