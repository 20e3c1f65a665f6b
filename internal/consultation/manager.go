package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/intake"
	"github.com/setuhealth/setu/backend/pkg/config"
	apperrors "github.com/setuhealth/setu/backend/pkg/errors"
)

// Snapshot is the client view of a consultation
type Snapshot struct {
	intake.State
	ID            string       `json:"id"`
	Phase         intake.Phase `json:"phase"`
	CurrentPrompt string       `json:"currentPrompt,omitempty"`
}

// Consultation is one server-hosted intake session with its client stream
type Consultation struct {
	ID        string
	CreatedAt time.Time
	Session   *intake.Session
	Speaker   *StreamSpeaker

	machine *intake.Machine
	stream  *stream
}

// Subscribe returns the message stream and a function to stop receiving it
func (c *Consultation) Subscribe() (<-chan Message, func()) {
	return c.stream.subscribe()
}

// Snapshot returns the current client view
func (c *Consultation) Snapshot() Snapshot {
	return c.snapshot(c.Session.State())
}

func (c *Consultation) snapshot(state intake.State) Snapshot {
	return Snapshot{
		State:         state,
		ID:            c.ID,
		Phase:         state.Phase(),
		CurrentPrompt: c.machine.CurrentPrompt(state),
	}
}

func (c *Consultation) close() {
	if err := c.Session.Reset(); err != nil {
		log.Debug().Err(err).Str("consultation_id", c.ID).Msg("reset on close")
	}
	c.Session.Close()
	c.stream.close()
}

// Manager owns the live consultations. Idle ones expire after the configured
// TTL and the least recently used is evicted beyond MaxSessions.
type Manager struct {
	ctx      context.Context
	machine  *intake.Machine
	gateway  intake.Gateway
	registry intake.Registry
	grace    time.Duration
	sessions *expirable.LRU[string, *Consultation]
}

// NewManager creates a session manager. Sessions live at most until ctx is done.
func NewManager(ctx context.Context, machine *intake.Machine, gateway intake.Gateway, registry intake.Registry, cfg config.ConsultationConfig) *Manager {
	m := &Manager{
		ctx:      ctx,
		machine:  machine,
		gateway:  gateway,
		registry: registry,
		grace:    cfg.SpeechGrace,
	}
	m.sessions = expirable.NewLRU[string, *Consultation](cfg.MaxSessions, m.onEvict, cfg.TTL)
	return m
}

// Create starts a new consultation in NotStarted
func (m *Manager) Create(locale entities.Locale) *Consultation {
	c := &Consultation{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		machine:   m.machine,
		stream:    newStream(),
	}
	c.Speaker = newStreamSpeaker(c.stream, m.grace)

	opts := []intake.SessionOption{
		intake.WithLocale(locale),
		intake.WithSpeaker(c.Speaker),
		intake.WithListener(&StreamListener{stream: c.stream}),
		intake.WithOnChange(func(state intake.State) {
			c.stream.publish(Message{Type: MessageState, Data: c.snapshot(state)})
		}),
	}
	if m.registry != nil {
		opts = append(opts, intake.WithRegistry(m.registry))
	}
	c.Session = intake.NewSession(m.ctx, m.machine, m.gateway, opts...)
	c.stream.publish(Message{Type: MessageState, Data: c.Snapshot()})

	m.sessions.Add(c.ID, c)
	log.Info().Str("consultation_id", c.ID).Str("language", string(locale)).Msg("consultation created")
	return c
}

// Get returns a live consultation and renews its TTL
func (m *Manager) Get(id string) (*Consultation, error) {
	c, ok := m.sessions.Get(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("consultation not found")
	}
	m.sessions.Add(id, c)
	return c, nil
}

// Remove ends a consultation
func (m *Manager) Remove(id string) bool {
	return m.sessions.Remove(id)
}

// Len returns the number of live consultations
func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Close ends every consultation
func (m *Manager) Close() {
	m.sessions.Purge()
}

// onEvict runs under the cache lock, so teardown happens elsewhere
func (m *Manager) onEvict(id string, c *Consultation) {
	log.Info().Str("consultation_id", id).Msg("consultation ended")
	go c.close()
}
