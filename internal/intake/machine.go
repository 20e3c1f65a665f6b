package intake

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/setuhealth/setu/backend/internal/application/services"
	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// ErrInvalidTransition is returned for an event the current stage does not accept
var ErrInvalidTransition = errors.New("invalid transition")

// Config holds the intake script and voice policy
type Config struct {
	Steps []Step
	// PromptDelay lets the previous utterance settle before the next question
	PromptDelay time.Duration
	// AutoListen opens the microphone after each intake question is spoken
	AutoListen bool
	// Classify derives a severity when report generation fails
	Classify func(symptoms string) entities.Severity
}

// Machine holds the immutable configuration behind Transition
type Machine struct {
	cfg Config
}

// NewMachine creates a machine, filling unset config with defaults
func NewMachine(cfg Config) *Machine {
	if len(cfg.Steps) == 0 {
		cfg.Steps = DefaultSteps
	}
	if cfg.Classify == nil {
		cfg.Classify = services.DefaultSeverityRules().Classify
	}
	return &Machine{cfg: cfg}
}

// Steps returns the intake script
func (m *Machine) Steps() []Step {
	return m.cfg.Steps
}

// Classify applies the fallback severity rules
func (m *Machine) Classify(symptoms string) entities.Severity {
	severity := m.cfg.Classify(symptoms)
	if !severity.Valid() {
		return entities.SeverityMedium
	}
	return severity
}

// CurrentPrompt returns the question for the state's step, if any
func (m *Machine) CurrentPrompt(s State) string {
	if s.Stage != StageIntake || s.StepIndex < 0 || s.StepIndex >= len(m.cfg.Steps) {
		return ""
	}
	return m.cfg.Steps[s.StepIndex].PromptFor(s.Locale)
}

// Transition applies e to s and returns the next state plus the effects to
// carry out. It never mutates s. Results of earlier generations and
// superseded utterances are ignored without error.
func (m *Machine) Transition(s State, e Event) (State, []Effect, error) {
	switch e := e.(type) {
	case Start:
		if s.Stage != StageNotStarted {
			return s, nil, invalid(s, e)
		}
		s.Stage = StageIntake
		s.StepIndex = 0
		effects := speak(&s, m.cfg.Steps[0].PromptFor(s.Locale), 0)
		return s, effects, nil

	case SubmitAnswer:
		if s.Stage != StageIntake {
			return s, nil, invalid(s, e)
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return s, nil, nil
		}
		step := m.cfg.Steps[s.StepIndex]
		s.Draft = s.Draft.with(step.Key, text)

		if s.StepIndex < len(m.cfg.Steps)-1 {
			s.StepIndex++
			effects := speak(&s, m.cfg.Steps[s.StepIndex].PromptFor(s.Locale), m.cfg.PromptDelay)
			return s, effects, nil
		}

		s.Stage = StageGenerating
		s.StepIndex = len(m.cfg.Steps)
		effects := quiet(&s)
		s.Voice = VoiceThinking
		effects = append(effects,
			RequestReport{Generation: s.Generation, Request: reportRequest(s.Draft, s.Locale)},
			SubmitPatient{Generation: s.Generation, Draft: s.Draft, Locale: s.Locale},
		)
		return s, effects, nil

	case ReportGenerated:
		if e.Generation != s.Generation || s.Stage != StageGenerating || s.Report != nil {
			return s, nil, nil
		}
		if e.Report == nil {
			return m.Transition(s, ReportFailed{Generation: e.Generation, Err: errors.New("empty report")})
		}
		report := *e.Report
		if !report.Severity.Valid() {
			report.Severity = entities.NormalizeSeverity(string(report.Severity))
		}
		return m.reportReady(s, &report)

	case ReportFailed:
		if e.Generation != s.Generation || s.Stage != StageGenerating || s.Report != nil {
			return s, nil, nil
		}
		report := fallbackReport(s.Draft, m.Classify(s.Draft[KeySymptoms]), s.Locale)
		report.AIPowered = false
		return m.reportReady(s, report)

	case ContinueChat:
		if s.Stage != StageReport || s.Report == nil {
			return s, nil, invalid(s, e)
		}
		s.Stage = StageChat
		welcome := chatWelcomeMessage(s.Locale)
		s.Chat = []entities.ChatMessage{{Role: entities.ChatRoleAssistant, Content: welcome}}
		effects := speak(&s, welcome, 0)
		return s, effects, nil

	case SendChatMessage:
		if s.Stage != StageChat {
			return s, nil, invalid(s, e)
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return s, nil, nil
		}
		if s.ChatLoading {
			return s, nil, fmt.Errorf("%w: a chat reply is still pending", ErrInvalidTransition)
		}
		s.Chat = appendMessage(s.Chat, entities.ChatRoleUser, text)
		s.ChatLoading = true
		effects := quiet(&s)
		s.Voice = VoiceThinking
		context := entities.RecentMessages(s.Chat, entities.ChatContextWindow)
		effects = append(effects, RequestChat{
			Generation: s.Generation,
			Messages:   append([]entities.ChatMessage(nil), context...),
			Locale:     s.Locale,
		})
		return s, effects, nil

	case ChatReplied:
		if e.Generation != s.Generation || s.Stage != StageChat || !s.ChatLoading {
			return s, nil, nil
		}
		return chatAnswered(s, e.Reply)

	case ChatFailed:
		if e.Generation != s.Generation || s.Stage != StageChat || !s.ChatLoading {
			return s, nil, nil
		}
		return chatAnswered(s, ApologyMessage(s.Locale))

	case Reset:
		next := NewState(s.Locale)
		next.Generation = s.Generation + 1
		next.Utterance = s.Utterance
		return next, []Effect{CancelSpeech{}, StopListening{}}, nil

	case SetLocale:
		if e.Locale != entities.LocaleEnglish && e.Locale != entities.LocaleHindi {
			return s, nil, fmt.Errorf("%w: unsupported locale %q", ErrInvalidTransition, e.Locale)
		}
		s.Locale = e.Locale
		return s, nil, nil

	case BeginListening:
		listenable := (s.Stage == StageIntake) || (s.Stage == StageChat && !s.ChatLoading)
		if !listenable {
			return s, nil, invalid(s, e)
		}
		if s.Voice == VoiceSpeaking {
			return s, nil, fmt.Errorf("%w: cannot listen while speaking", ErrInvalidTransition)
		}
		if s.Voice == VoiceListening {
			return s, nil, nil
		}
		s.Voice = VoiceListening
		return s, []Effect{StartListening{Locale: s.Locale}}, nil

	case ListeningEnded:
		if s.Voice == VoiceListening {
			s.Voice = VoiceIdle
		}
		return s, nil, nil

	case SpeechFinished:
		if s.Voice != VoiceSpeaking || e.Utterance != s.Utterance {
			return s, nil, nil
		}
		if m.cfg.AutoListen && s.Stage == StageIntake {
			s.Voice = VoiceListening
			return s, []Effect{StartListening{Locale: s.Locale}}, nil
		}
		s.Voice = VoiceIdle
		return s, nil, nil
	}

	return s, nil, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, e)
}

func (m *Machine) reportReady(s State, report *entities.Report) (State, []Effect, error) {
	s.Stage = StageReport
	s.Report = report
	s.Voice = VoiceIdle
	effects := speak(&s, reportReadyMessage(report.Severity, s.Locale), 0)
	return s, effects, nil
}

func chatAnswered(s State, reply string) (State, []Effect, error) {
	s.Chat = appendMessage(s.Chat, entities.ChatRoleAssistant, reply)
	s.ChatLoading = false
	s.Voice = VoiceIdle
	effects := speak(&s, reply, 0)
	return s, effects, nil
}

// speak moves s to speaking, closing the microphone first if it is open
func speak(s *State, text string, delay time.Duration) []Effect {
	effects := quiet(s)
	s.Utterance++
	s.Voice = VoiceSpeaking
	return append(effects, Speak{Utterance: s.Utterance, Text: text, Locale: s.Locale, Delay: delay})
}

// quiet stops whatever voice activity is in progress
func quiet(s *State) []Effect {
	var effects []Effect
	switch s.Voice {
	case VoiceListening:
		effects = append(effects, StopListening{})
	case VoiceSpeaking:
		effects = append(effects, CancelSpeech{})
	}
	s.Voice = VoiceIdle
	return effects
}

func appendMessage(history []entities.ChatMessage, role entities.ChatRole, content string) []entities.ChatMessage {
	out := make([]entities.ChatMessage, len(history), len(history)+1)
	copy(out, history)
	return append(out, entities.ChatMessage{Role: role, Content: content})
}

func reportRequest(d Draft, locale entities.Locale) entities.ReportRequest {
	return entities.ReportRequest{
		Name:     d[KeyName],
		Age:      d[KeyAge],
		Symptoms: d[KeySymptoms],
		History:  d[KeyHistory],
		Language: locale,
	}
}

func invalid(s State, e Event) error {
	return fmt.Errorf("%w: %s in stage %s", ErrInvalidTransition, e.eventName(), s.Stage)
}
