package intake

import (
	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// Stage is the position of a session in the consultation flow
type Stage string

const (
	StageNotStarted Stage = "not_started"
	StageIntake     Stage = "intake"
	StageGenerating Stage = "generating"
	StageReport     Stage = "report"
	StageChat       Stage = "chat"
)

// Phase is the coarse screen a client shows: intake, report or chat
type Phase string

const (
	PhaseIntake Phase = "intake"
	PhaseReport Phase = "report"
	PhaseChat   Phase = "chat"
)

// VoiceState is the single active speech activity
type VoiceState string

const (
	VoiceIdle      VoiceState = "idle"
	VoiceListening VoiceState = "listening"
	VoiceThinking  VoiceState = "thinking"
	VoiceSpeaking  VoiceState = "speaking"
)

// Draft maps step keys to captured answers
type Draft map[string]string

func (d Draft) with(key, value string) Draft {
	out := make(Draft, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	out[key] = value
	return out
}

// State is the whole mutable record of one consultation. Transition never
// mutates a State in place; it returns a new value.
type State struct {
	Stage       Stage                  `json:"stage"`
	StepIndex   int                    `json:"currentStepIndex"`
	Voice       VoiceState             `json:"voiceState"`
	Locale      entities.Locale        `json:"language"`
	Draft       Draft                  `json:"draft"`
	Report      *entities.Report       `json:"report,omitempty"`
	Chat        []entities.ChatMessage `json:"chatHistory"`
	ChatLoading bool                   `json:"chatLoading"`

	// Generation increases on every reset; async results tagged with an
	// older generation are discarded.
	Generation uint64 `json:"generation"`
	// Utterance identifies the most recent Speak effect.
	Utterance uint64 `json:"utterance"`
}

// NewState returns a session that has not started yet
func NewState(locale entities.Locale) State {
	return State{
		Stage:     StageNotStarted,
		StepIndex: -1,
		Voice:     VoiceIdle,
		Locale:    locale,
		Draft:     Draft{},
		Chat:      []entities.ChatMessage{},
	}
}

// Phase derives the client-facing phase from the stage
func (s State) Phase() Phase {
	switch s.Stage {
	case StageGenerating, StageReport:
		return PhaseReport
	case StageChat:
		return PhaseChat
	default:
		return PhaseIntake
	}
}

// Clone returns a deep copy safe to hand to other goroutines
func (s State) Clone() State {
	out := s
	out.Draft = make(Draft, len(s.Draft))
	for k, v := range s.Draft {
		out.Draft[k] = v
	}
	out.Chat = append([]entities.ChatMessage(nil), s.Chat...)
	if out.Chat == nil {
		out.Chat = []entities.ChatMessage{}
	}
	if s.Report != nil {
		r := *s.Report
		out.Report = &r
	}
	return out
}
