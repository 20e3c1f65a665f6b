package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/infrastructure/observability"
)

// ErrSessionClosed is returned by every operation after Close
var ErrSessionClosed = errors.New("session closed")

// ErrNoListener is returned by StopAndAccept when no listener is attached
var ErrNoListener = errors.New("session has no listener")

// Speaker plays synthesized speech. Speak returns when playback ends, fails,
// or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string, locale entities.Locale) error
	Cancel()
}

// Listener captures speech input. Start and Stop are called in transition
// order and must not call back into the session.
type Listener interface {
	Start(ctx context.Context, locale entities.Locale) error
	// Stop ends the capture and returns the final transcript
	Stop(ctx context.Context) (string, error)
}

// Gateway is the AI backend. Errors are converted to local fallbacks.
type Gateway interface {
	AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error)
	GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error)
	Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (entities.ChatReply, error)
}

// PatientSubmission is the completed draft sent to the patient registry
type PatientSubmission struct {
	Name         string            `json:"name"`
	Age          int               `json:"age"`
	Symptoms     string            `json:"symptoms"`
	History      string            `json:"history"`
	Severity     entities.Severity `json:"severity"`
	LanguageUsed entities.Locale   `json:"languageUsed"`
	AIAnalysis   string            `json:"aiAnalysis"`
}

// Registry records completed intakes
type Registry interface {
	SubmitPatient(ctx context.Context, submission PatientSubmission) error
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSpeaker attaches speech output
func WithSpeaker(speaker Speaker) SessionOption {
	return func(s *Session) { s.speaker = speaker }
}

// WithListener attaches speech input
func WithListener(listener Listener) SessionOption {
	return func(s *Session) { s.listener = listener }
}

// WithRegistry attaches the patient registry
func WithRegistry(registry Registry) SessionOption {
	return func(s *Session) { s.registry = registry }
}

// WithLocale sets the initial locale
func WithLocale(locale entities.Locale) SessionOption {
	return func(s *Session) { s.state.Locale = locale }
}

// WithOnChange registers a hook called with every new state. It runs while
// the session lock is held and must not block or call back into the session.
func WithOnChange(fn func(State)) SessionOption {
	return func(s *Session) { s.onChange = fn }
}

// Session drives a Machine against real collaborators. All methods are safe
// for concurrent use.
type Session struct {
	machine  *Machine
	gateway  Gateway
	speaker  Speaker
	listener Listener
	registry Registry
	onChange func(State)
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	state  State
	closed bool

	// effectMu is taken before mu is released, so effects run in the order
	// their transitions were applied. Lock order is mu then effectMu.
	effectMu sync.Mutex

	speechMu      sync.Mutex
	speechCancel  context.CancelFunc
	speechDone    chan struct{}
	lastUtterance uint64
}

// NewSession creates a session in NotStarted. The session lives until ctx is
// cancelled or Close is called.
func NewSession(ctx context.Context, machine *Machine, gateway Gateway, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		machine: machine,
		gateway: gateway,
		speaker: silentSpeaker{},
		state:   NewState(entities.LocaleEnglish),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.LoggerFromContext(ctx).With().Str("component", "intake").Logger()
	return s
}

// State returns a snapshot of the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Start begins the intake
func (s *Session) Start() error {
	return s.dispatch(Start{})
}

// SubmitAnswer answers the current intake question
func (s *Session) SubmitAnswer(text string) error {
	return s.dispatch(SubmitAnswer{Text: text})
}

// ContinueChat moves from the report to chat
func (s *Session) ContinueChat() error {
	return s.dispatch(ContinueChat{})
}

// SendChatMessage sends a chat message
func (s *Session) SendChatMessage(text string) error {
	return s.dispatch(SendChatMessage{Text: text})
}

// Reset discards everything and returns to NotStarted
func (s *Session) Reset() error {
	return s.dispatch(Reset{})
}

// SetLocale switches the session language
func (s *Session) SetLocale(locale entities.Locale) error {
	return s.dispatch(SetLocale{Locale: locale})
}

// StartListening opens the microphone
func (s *Session) StartListening() error {
	return s.dispatch(BeginListening{})
}

// Accept routes text to the answer or chat channel depending on the stage
func (s *Session) Accept(text string) error {
	s.mu.Lock()
	stage := s.state.Stage
	s.mu.Unlock()

	switch stage {
	case StageIntake:
		return s.SubmitAnswer(text)
	case StageChat:
		return s.SendChatMessage(text)
	}
	return fmt.Errorf("%w: input in stage %s", ErrInvalidTransition, stage)
}

// StopAndAccept ends listening and feeds the final transcript to Accept
func (s *Session) StopAndAccept(ctx context.Context) error {
	if s.listener == nil {
		return ErrNoListener
	}
	s.effectMu.Lock()
	transcript, err := s.listener.Stop(ctx)
	s.effectMu.Unlock()
	if dispatchErr := s.dispatch(ListeningEnded{}); dispatchErr != nil {
		return dispatchErr
	}
	if err != nil {
		return fmt.Errorf("stop listening: %w", err)
	}
	return s.Accept(transcript)
}

// Wait blocks until every in-flight effect has completed
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels speech, listening and outstanding gateway calls and waits
// for them to return. Late results are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.speaker.Cancel()

	// every dispatch admitted before closed was set has its effects (and
	// their wg.Add calls) finished once effectMu is free
	s.effectMu.Lock()
	s.effectMu.Unlock()
	s.wg.Wait()
}

func (s *Session) dispatch(e Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	next, effects, err := s.machine.Transition(s.state, e)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	if s.onChange != nil {
		s.onChange(next.Clone())
	}
	s.effectMu.Lock()
	s.mu.Unlock()
	defer s.effectMu.Unlock()

	for _, effect := range effects {
		s.run(effect)
	}
	return nil
}

// redispatch delivers an async result; results rejected by the machine are stale
func (s *Session) redispatch(e Event) {
	if err := s.dispatch(e); err != nil && !errors.Is(err, ErrSessionClosed) {
		s.logger.Debug().Err(err).Str("event", e.eventName()).Msg("async result dropped")
	}
}

// run executes one effect under effectMu. Effects must not dispatch inline.
func (s *Session) run(effect Effect) {
	switch e := effect.(type) {
	case Speak:
		s.speak(e)
	case CancelSpeech:
		s.cancelSpeech()
	case StartListening:
		s.startListening(e.Locale)
	case StopListening:
		s.stopListening()
	case RequestReport:
		s.async(func(ctx context.Context) { s.requestReport(ctx, e) })
	case RequestChat:
		s.async(func(ctx context.Context) { s.requestChat(ctx, e) })
	case SubmitPatient:
		s.async(func(ctx context.Context) { s.submitPatient(ctx, e) })
	default:
		s.logger.Error().Str("effect", effect.effectName()).Msg("unhandled effect")
	}
}

func (s *Session) async(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// speak serializes utterances: the previous one is cancelled and must return
// before the next starts.
func (s *Session) speak(e Speak) {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})

	s.speechMu.Lock()
	if e.Utterance <= s.lastUtterance {
		// a newer utterance already started
		s.speechMu.Unlock()
		cancel()
		return
	}
	s.lastUtterance = e.Utterance
	previousCancel, previousDone := s.speechCancel, s.speechDone
	s.speechCancel, s.speechDone = cancel, done
	s.speechMu.Unlock()

	if previousCancel != nil {
		previousCancel()
		select {
		case <-previousDone:
		default:
			s.speaker.Cancel()
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()

		if previousDone != nil {
			<-previousDone
		}
		if e.Delay > 0 {
			timer := time.NewTimer(e.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}
		if ctx.Err() == nil {
			if err := s.speaker.Speak(ctx, e.Text, e.Locale); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Uint64("utterance", e.Utterance).Msg("speech playback failed")
			}
		}
		s.redispatch(SpeechFinished{Utterance: e.Utterance})
	}()
}

func (s *Session) cancelSpeech() {
	s.speechMu.Lock()
	cancel := s.speechCancel
	s.speechMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.speaker.Cancel()
}

func (s *Session) startListening(locale entities.Locale) {
	if s.listener == nil {
		s.async(func(context.Context) { s.redispatch(ListeningEnded{}) })
		return
	}
	if err := s.listener.Start(s.ctx, locale); err != nil {
		s.logger.Warn().Err(err).Msg("failed to start listening")
		s.async(func(context.Context) { s.redispatch(ListeningEnded{}) })
	}
}

func (s *Session) stopListening() {
	if s.listener == nil {
		return
	}
	if _, err := s.listener.Stop(s.ctx); err != nil {
		s.logger.Debug().Err(err).Msg("stop listening")
	}
}

func (s *Session) requestReport(ctx context.Context, e RequestReport) {
	report, err := s.gateway.GenerateReport(ctx, e.Request)
	if err != nil {
		s.logger.Warn().Err(err).Msg("report generation failed, using fallback report")
		s.redispatch(ReportFailed{Generation: e.Generation, Err: err})
		return
	}
	s.redispatch(ReportGenerated{Generation: e.Generation, Report: report})
}

func (s *Session) requestChat(ctx context.Context, e RequestChat) {
	reply, err := s.gateway.Chat(ctx, e.Messages, e.Locale)
	if err == nil && strings.TrimSpace(reply.Reply) == "" {
		err = errors.New("empty chat reply")
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("chat failed")
		s.redispatch(ChatFailed{Generation: e.Generation, Err: err})
		return
	}
	s.redispatch(ChatReplied{Generation: e.Generation, Reply: reply.Reply})
}

// submitPatient registers the draft, best effort. Failures are only logged.
func (s *Session) submitPatient(ctx context.Context, e SubmitPatient) {
	if s.registry == nil {
		return
	}
	submission := PatientSubmission{
		Name:         e.Draft[KeyName],
		Age:          parseAge(e.Draft[KeyAge]),
		Symptoms:     e.Draft[KeySymptoms],
		History:      e.Draft[KeyHistory],
		LanguageUsed: e.Locale,
	}

	analysis, err := s.gateway.AnalyzeSeverity(ctx, submission.Symptoms, submission.History, e.Locale)
	if err != nil || analysis == nil || !analysis.Severity.Valid() {
		submission.Severity = s.machine.Classify(submission.Symptoms)
	} else {
		submission.Severity = analysis.Severity
		submission.AIAnalysis = analysis.Recommendations
	}

	if err := s.registry.SubmitPatient(ctx, submission); err != nil {
		s.logger.Warn().Err(err).Str("name", submission.Name).Msg("patient registration failed")
	}
}

// parseAge reads the leading integer of an answer such as "34 years"; 0 otherwise
func parseAge(answer string) int {
	answer = strings.TrimSpace(answer)
	end := strings.IndexFunc(answer, func(r rune) bool { return !unicode.IsDigit(r) || r > unicode.MaxASCII })
	if end == -1 {
		end = len(answer)
	}
	age, err := strconv.Atoi(answer[:end])
	if err != nil {
		return 0
	}
	return age
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(context.Context, string, entities.Locale) error { return nil }
func (silentSpeaker) Cancel()                                             {}
