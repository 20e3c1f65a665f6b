package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/intake"
)

var (
	// ErrUnknownUtterance is returned when acknowledging an utterance that is not playing
	ErrUnknownUtterance = errors.New("unknown utterance")
	// ErrSpeechTimeout is returned when the client never acknowledges an utterance
	ErrSpeechTimeout = errors.New("speech acknowledgement timed out")
	// ErrSpeechFailed is returned when the client reports a playback error
	ErrSpeechFailed = errors.New("client speech playback failed")
)

// SpeechEvent is a client report about an utterance
type SpeechEvent string

const (
	SpeechStarted  SpeechEvent = "started"
	SpeechFinished SpeechEvent = "finished"
	SpeechError    SpeechEvent = "error"
)

// Valid reports whether e is a known event
func (e SpeechEvent) Valid() bool {
	return e == SpeechStarted || e == SpeechFinished || e == SpeechError
}

// speechPerRune approximates synthesis at rate 0.9
const speechPerRune = 90 * time.Millisecond

// SpeakDirective asks the client to synthesize text
type SpeakDirective struct {
	UtteranceID uint64          `json:"utteranceId"`
	Text        string          `json:"text"`
	Language    entities.Locale `json:"language"`
}

// ListenDirective asks the client to open its microphone
type ListenDirective struct {
	Language entities.Locale `json:"language"`
}

// StreamSpeaker delegates synthesis to the browser. Speak publishes a speak
// directive and waits for the client's acknowledgement, cancellation, or a
// timeout proportional to the text length.
type StreamSpeaker struct {
	stream *stream
	grace  time.Duration

	mu      sync.Mutex
	next    uint64
	pending map[uint64]chan SpeechEvent
}

func newStreamSpeaker(s *stream, grace time.Duration) *StreamSpeaker {
	return &StreamSpeaker{stream: s, grace: grace, pending: make(map[uint64]chan SpeechEvent)}
}

// Speak implements intake.Speaker
func (s *StreamSpeaker) Speak(ctx context.Context, text string, locale entities.Locale) error {
	id, acks := s.register()
	defer s.unregister(id)

	s.stream.publish(Message{Type: MessageSpeak, Data: SpeakDirective{UtteranceID: id, Text: text, Language: locale}})

	timer := time.NewTimer(s.timeout(text))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("%w: utterance %d", ErrSpeechTimeout, id)
		case event := <-acks:
			switch event {
			case SpeechFinished:
				return nil
			case SpeechError:
				return fmt.Errorf("%w: utterance %d", ErrSpeechFailed, id)
			}
		}
	}
}

// Cancel implements intake.Speaker
func (s *StreamSpeaker) Cancel() {
	s.stream.publish(Message{Type: MessageCancelSpeech})
}

// Ack delivers a client report for an utterance
func (s *StreamSpeaker) Ack(id uint64, event SpeechEvent) error {
	if !event.Valid() {
		return fmt.Errorf("invalid speech event %q", event)
	}

	s.mu.Lock()
	acks, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownUtterance, id)
	}

	select {
	case acks <- event:
	default:
	}
	return nil
}

func (s *StreamSpeaker) register() (uint64, chan SpeechEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	acks := make(chan SpeechEvent, 4)
	s.pending[s.next] = acks
	return s.next, acks
}

func (s *StreamSpeaker) unregister(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *StreamSpeaker) timeout(text string) time.Duration {
	return s.grace + time.Duration(utf8.RuneCountInString(text))*speechPerRune
}

// StreamListener delegates recognition to the browser. Transcripts arrive
// through the answer and message endpoints, so Stop returns an empty one.
type StreamListener struct {
	stream *stream
}

// Start implements intake.Listener
func (l *StreamListener) Start(_ context.Context, locale entities.Locale) error {
	l.stream.publish(Message{Type: MessageListen, Data: ListenDirective{Language: locale}})
	return nil
}

// Stop implements intake.Listener
func (l *StreamListener) Stop(context.Context) (string, error) {
	l.stream.publish(Message{Type: MessageStopListening})
	return "", nil
}

var (
	_ intake.Speaker  = (*StreamSpeaker)(nil)
	_ intake.Listener = (*StreamListener)(nil)
)
