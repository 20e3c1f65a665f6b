package intake

import (
	"time"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

// Event is an input to Transition
type Event interface {
	eventName() string
}

// Start begins the intake from NotStarted
type Start struct{}

// SubmitAnswer answers the current intake question
type SubmitAnswer struct{ Text string }

// ContinueChat leaves the report for free-form chat
type ContinueChat struct{}

// SendChatMessage sends one user chat message
type SendChatMessage struct{ Text string }

// Reset returns to NotStarted from anywhere
type Reset struct{}

// SetLocale switches the language used for prompts and fallbacks
type SetLocale struct{ Locale entities.Locale }

// BeginListening is a user request to open the microphone
type BeginListening struct{}

// ListeningEnded reports that the listener stopped
type ListeningEnded struct{}

// SpeechFinished reports that an utterance finished or failed
type SpeechFinished struct{ Utterance uint64 }

// ReportGenerated delivers the gateway's report
type ReportGenerated struct {
	Generation uint64
	Report     *entities.Report
}

// ReportFailed reports that report generation raised an error
type ReportFailed struct {
	Generation uint64
	Err        error
}

// ChatReplied delivers the gateway's chat reply
type ChatReplied struct {
	Generation uint64
	Reply      string
}

// ChatFailed reports that the chat call raised an error
type ChatFailed struct {
	Generation uint64
	Err        error
}

func (Start) eventName() string           { return "start" }
func (SubmitAnswer) eventName() string    { return "submit_answer" }
func (ContinueChat) eventName() string    { return "continue_chat" }
func (SendChatMessage) eventName() string { return "send_chat_message" }
func (Reset) eventName() string           { return "reset" }
func (SetLocale) eventName() string       { return "set_locale" }
func (BeginListening) eventName() string  { return "begin_listening" }
func (ListeningEnded) eventName() string  { return "listening_ended" }
func (SpeechFinished) eventName() string  { return "speech_finished" }
func (ReportGenerated) eventName() string { return "report_generated" }
func (ReportFailed) eventName() string    { return "report_failed" }
func (ChatReplied) eventName() string     { return "chat_replied" }
func (ChatFailed) eventName() string      { return "chat_failed" }

// Effect is a side effect requested by Transition and carried out by a Session
type Effect interface {
	effectName() string
}

// Speak plays text after Delay, cancelling any utterance in progress
type Speak struct {
	Utterance uint64
	Text      string
	Locale    entities.Locale
	Delay     time.Duration
}

// StartListening opens the microphone
type StartListening struct{ Locale entities.Locale }

// StopListening closes the microphone, discarding any transcript
type StopListening struct{}

// CancelSpeech stops any utterance in progress
type CancelSpeech struct{}

// RequestReport asks the gateway for the consultation report
type RequestReport struct {
	Generation uint64
	Request    entities.ReportRequest
}

// SubmitPatient registers the completed draft, best effort
type SubmitPatient struct {
	Generation uint64
	Draft      Draft
	Locale     entities.Locale
}

// RequestChat asks the gateway for a chat reply
type RequestChat struct {
	Generation uint64
	Messages   []entities.ChatMessage
	Locale     entities.Locale
}

func (Speak) effectName() string          { return "speak" }
func (StartListening) effectName() string { return "start_listening" }
func (StopListening) effectName() string  { return "stop_listening" }
func (CancelSpeech) effectName() string   { return "cancel_speech" }
func (RequestReport) effectName() string  { return "request_report" }
func (SubmitPatient) effectName() string  { return "submit_patient" }
func (RequestChat) effectName() string    { return "request_chat" }
