package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
)

type recordingSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int

	// when set, Speak blocks until release is closed or ctx is cancelled
	release   chan struct{}
	active    int
	maxActive int
}

func (s *recordingSpeaker) Speak(ctx context.Context, text string, _ entities.Locale) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.active++
	if s.active > s.maxActive {
		s.maxActive = s.active
	}
	release := s.release
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if release == nil {
		return nil
	}
	select {
	case <-release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *recordingSpeaker) Cancel() {
	s.mu.Lock()
	s.cancels++
	s.mu.Unlock()
}

func (s *recordingSpeaker) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

type fakeListener struct {
	mu         sync.Mutex
	starts     int
	stops      int
	transcript string
}

func (l *fakeListener) Start(context.Context, entities.Locale) error {
	l.mu.Lock()
	l.starts++
	l.mu.Unlock()
	return nil
}

func (l *fakeListener) Stop(context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops++
	return l.transcript, nil
}

type fakeGateway struct {
	analyze func(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error)
	report  func(ctx context.Context, req entities.ReportRequest) (*entities.Report, error)
	chat    func(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (entities.ChatReply, error)
}

var errGatewayDown = errors.New("gateway down")

func failingGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error) {
	if g.analyze == nil {
		return nil, errGatewayDown
	}
	return g.analyze(ctx, symptoms, history, locale)
}

func (g *fakeGateway) GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error) {
	if g.report == nil {
		return nil, errGatewayDown
	}
	return g.report(ctx, req)
}

func (g *fakeGateway) Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (entities.ChatReply, error) {
	if g.chat == nil {
		return entities.ChatReply{}, errGatewayDown
	}
	return g.chat(ctx, history, locale)
}

type fakeRegistry struct {
	mu          sync.Mutex
	err         error
	submissions []PatientSubmission
}

func (r *fakeRegistry) SubmitPatient(_ context.Context, submission PatientSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submissions = append(r.submissions, submission)
	return r.err
}

func (r *fakeRegistry) Submissions() []PatientSubmission {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PatientSubmission(nil), r.submissions...)
}

func newTestSession(t *testing.T, gateway Gateway, opts ...SessionOption) *Session {
	t.Helper()
	s := NewSession(context.Background(), NewMachine(Config{AutoListen: true}), gateway, opts...)
	t.Cleanup(s.Close)
	return s
}

func answerAll(t *testing.T, s *Session, answers ...string) {
	t.Helper()
	for _, answer := range answers {
		require.NoError(t, s.SubmitAnswer(answer))
		s.Wait()
	}
}

func TestSession_FailingGatewayProducesFallbackReport(t *testing.T) {
	speaker := &recordingSpeaker{}
	listener := &fakeListener{}
	registry := &fakeRegistry{}
	s := newTestSession(t, failingGateway(), WithSpeaker(speaker), WithListener(listener), WithRegistry(registry))

	require.NoError(t, s.Start())
	s.Wait()
	assert.Equal(t, VoiceListening, s.State().Voice)

	answerAll(t, s, "Arjun", "34", "fever and cough", "none")

	state := s.State()
	require.NotNil(t, state.Report)
	assert.Equal(t, StageReport, state.Stage)
	assert.Equal(t, entities.SeverityMedium, state.Report.Severity)
	assert.False(t, state.Report.AIPowered)
	assert.Equal(t, VoiceIdle, state.Voice)

	assert.Equal(t, []string{
		DefaultSteps[0].Prompt,
		DefaultSteps[1].Prompt,
		DefaultSteps[2].Prompt,
		DefaultSteps[3].Prompt,
		"Your report is ready. Severity level: Medium. Please review the full report below.",
	}, speaker.Spoken())

	submissions := registry.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, PatientSubmission{
		Name:         "Arjun",
		Age:          34,
		Symptoms:     "fever and cough",
		History:      "none",
		Severity:     entities.SeverityMedium,
		LanguageUsed: entities.LocaleEnglish,
	}, submissions[0])

	assert.Equal(t, 4, listener.starts)
	assert.Equal(t, 4, listener.stops)
}

func TestSession_RegistryFailureDoesNotBlockReport(t *testing.T) {
	gateway := &fakeGateway{
		analyze: func(context.Context, string, string, entities.Locale) (*entities.SeverityAnalysis, error) {
			return &entities.SeverityAnalysis{Severity: entities.SeverityHigh, Recommendations: "See a doctor today", AIPowered: true}, nil
		},
		report: func(_ context.Context, req entities.ReportRequest) (*entities.Report, error) {
			return &entities.Report{Severity: entities.SeverityHigh, Summary: "Report for " + req.Name, AIPowered: true}, nil
		},
	}
	registry := &fakeRegistry{err: errors.New("registry offline")}
	s := newTestSession(t, gateway, WithRegistry(registry))

	require.NoError(t, s.Start())
	answerAll(t, s, "Arjun", "34 years", "high fever", "asthma")

	state := s.State()
	require.NotNil(t, state.Report)
	assert.Equal(t, "Report for Arjun", state.Report.Summary)
	assert.True(t, state.Report.AIPowered)

	submissions := registry.Submissions()
	require.Len(t, submissions, 1)
	assert.Equal(t, 34, submissions[0].Age)
	assert.Equal(t, entities.SeverityHigh, submissions[0].Severity)
	assert.Equal(t, "See a doctor today", submissions[0].AIAnalysis)
}

func TestSession_ChatFailureAppendsApology(t *testing.T) {
	s := newTestSession(t, failingGateway())

	require.NoError(t, s.Start())
	answerAll(t, s, "Arjun", "34", "fever and cough", "none")
	require.NoError(t, s.ContinueChat())
	s.Wait()

	require.NoError(t, s.SendChatMessage("What is a fever?"))
	s.Wait()

	state := s.State()
	require.Len(t, state.Chat, 3)
	assert.Equal(t, entities.ChatMessage{Role: entities.ChatRoleUser, Content: "What is a fever?"}, state.Chat[1])
	assert.Equal(t, entities.ChatMessage{Role: entities.ChatRoleAssistant, Content: "Sorry, something went wrong."}, state.Chat[2])
	assert.False(t, state.ChatLoading)
}

func TestSession_ChatSendsBoundedHistory(t *testing.T) {
	var mu sync.Mutex
	var sent [][]entities.ChatMessage
	gateway := &fakeGateway{
		chat: func(_ context.Context, history []entities.ChatMessage, _ entities.Locale) (entities.ChatReply, error) {
			mu.Lock()
			sent = append(sent, history)
			mu.Unlock()
			return entities.ChatReply{Reply: "Rest and fluids.", AIPowered: true}, nil
		},
	}
	s := newTestSession(t, gateway)

	require.NoError(t, s.Start())
	answerAll(t, s, "Arjun", "34", "fever", "none")
	require.NoError(t, s.ContinueChat())
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Accept("follow up"))
		s.Wait()
	}

	assert.Len(t, s.State().Chat, 15)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 7)
	for _, history := range sent {
		assert.LessOrEqual(t, len(history), entities.ChatContextWindow)
	}
	assert.Len(t, sent[6], entities.ChatContextWindow)
}

func TestSession_LateReportAfterResetIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	gateway := &fakeGateway{
		report: func(ctx context.Context, _ entities.ReportRequest) (*entities.Report, error) {
			<-release
			return &entities.Report{Severity: entities.SeverityLow, AIPowered: true}, nil
		},
	}
	s := newTestSession(t, gateway)

	require.NoError(t, s.Start())
	for _, answer := range []string{"Arjun", "34", "fever", "none"} {
		require.NoError(t, s.SubmitAnswer(answer))
	}
	require.Equal(t, StageGenerating, s.State().Stage)

	require.NoError(t, s.Reset())
	close(release)
	s.Wait()

	state := s.State()
	assert.Equal(t, StageNotStarted, state.Stage)
	assert.Nil(t, state.Report)
	assert.Empty(t, state.Draft)
}

func TestSession_SpeechIsSerialized(t *testing.T) {
	speaker := &recordingSpeaker{release: make(chan struct{})}
	gateway := &fakeGateway{
		report: func(context.Context, entities.ReportRequest) (*entities.Report, error) {
			return &entities.Report{Severity: entities.SeverityLow, AIPowered: true}, nil
		},
	}
	s := NewSession(context.Background(), NewMachine(Config{PromptDelay: time.Millisecond}), gateway, WithSpeaker(speaker))
	t.Cleanup(s.Close)

	require.NoError(t, s.Start())
	for _, answer := range []string{"Arjun", "34", "cough", "none"} {
		require.NoError(t, s.SubmitAnswer(answer))
	}
	require.Eventually(t, func() bool { return s.State().Stage == StageReport }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		spoken := speaker.Spoken()
		return len(spoken) > 0 && spoken[len(spoken)-1] == "Your report is ready. Severity level: Low. Please review the full report below."
	}, time.Second, 5*time.Millisecond)

	close(speaker.release)
	s.Wait()

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	assert.Equal(t, 1, speaker.maxActive)
	assert.Positive(t, speaker.cancels)
	assert.Equal(t, VoiceIdle, s.State().Voice)
}

func TestSession_ResetCancelsSpeechAndListening(t *testing.T) {
	speaker := &recordingSpeaker{release: make(chan struct{})}
	listener := &fakeListener{}
	s := newTestSession(t, failingGateway(), WithSpeaker(speaker), WithListener(listener))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return len(speaker.Spoken()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Reset())
	s.Wait()

	assert.Equal(t, StageNotStarted, s.State().Stage)
	assert.Equal(t, VoiceIdle, s.State().Voice)
	speaker.mu.Lock()
	assert.Positive(t, speaker.cancels)
	speaker.mu.Unlock()
	assert.Equal(t, 1, listener.stops)
	assert.Zero(t, listener.starts)
}

func TestSession_StopAndAccept(t *testing.T) {
	listener := &fakeListener{transcript: " Arjun "}
	s := newTestSession(t, failingGateway(), WithListener(listener))

	assert.ErrorIs(t, s.Accept("too early"), ErrInvalidTransition)

	require.NoError(t, s.Start())
	s.Wait()
	require.Equal(t, VoiceListening, s.State().Voice)

	require.NoError(t, s.StopAndAccept(context.Background()))
	s.Wait()

	state := s.State()
	assert.Equal(t, "Arjun", state.Draft[KeyName])
	assert.Equal(t, 1, state.StepIndex)
}

func TestSession_StopAndAcceptWithoutListener(t *testing.T) {
	s := newTestSession(t, failingGateway())
	assert.ErrorIs(t, s.StopAndAccept(context.Background()), ErrNoListener)
}

func TestSession_OnChangeReceivesSnapshots(t *testing.T) {
	var mu sync.Mutex
	var stages []Stage
	s := newTestSession(t, failingGateway(), WithLocale(entities.LocaleHindi), WithOnChange(func(state State) {
		mu.Lock()
		stages = append(stages, state.Stage)
		mu.Unlock()
	}))

	require.NoError(t, s.Start())
	s.Wait()
	require.NoError(t, s.Reset())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, StageIntake, stages[0])
	assert.Equal(t, StageNotStarted, stages[len(stages)-1])
	assert.Equal(t, entities.LocaleHindi, s.State().Locale)
}

func TestSession_Close(t *testing.T) {
	speaker := &recordingSpeaker{release: make(chan struct{})}
	s := NewSession(context.Background(), NewMachine(Config{}), failingGateway(), WithSpeaker(speaker))

	require.NoError(t, s.Start())
	s.Close()
	s.Close()

	assert.ErrorIs(t, s.Start(), ErrSessionClosed)
	assert.ErrorIs(t, s.SubmitAnswer("Arjun"), ErrSessionClosed)
}

// gatedListener blocks in Start until release is closed and records the
// order in which calls complete
type gatedListener struct {
	release chan struct{}

	mu    sync.Mutex
	calls []string
}

func (l *gatedListener) Start(context.Context, entities.Locale) error {
	<-l.release
	l.mu.Lock()
	l.calls = append(l.calls, "start")
	l.mu.Unlock()
	return nil
}

func (l *gatedListener) Stop(context.Context) (string, error) {
	l.mu.Lock()
	l.calls = append(l.calls, "stop")
	l.mu.Unlock()
	return "", nil
}

func (l *gatedListener) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func TestSession_ListenerCallsFollowTransitionOrder(t *testing.T) {
	listener := &gatedListener{release: make(chan struct{})}
	s := newTestSession(t, failingGateway(), WithListener(listener))

	// the prompt finishes at once and auto-listen blocks inside Start
	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.State().Voice == VoiceListening }, time.Second, time.Millisecond)

	answered := make(chan error, 1)
	go func() { answered <- s.SubmitAnswer("Arjun") }()

	// the answer's StopListening must wait for the pending Start
	assert.Never(t, func() bool { return len(listener.Calls()) > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(listener.release)
	require.NoError(t, <-answered)
	s.Wait()

	calls := listener.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, []string{"start", "stop"}, calls[:2])
}

func TestSession_CloseWaitsForAdmittedEffects(t *testing.T) {
	listener := &gatedListener{release: make(chan struct{})}
	s := NewSession(context.Background(), NewMachine(Config{AutoListen: true}), failingGateway(), WithListener(listener))

	require.NoError(t, s.Start())
	require.Eventually(t, func() bool { return s.State().Voice == VoiceListening }, time.Second, time.Millisecond)

	answered := make(chan error, 1)
	go func() { answered <- s.SubmitAnswer("Arjun") }()
	assert.Never(t, func() bool { return len(listener.Calls()) > 0 }, 30*time.Millisecond, 5*time.Millisecond)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	assert.Never(t, func() bool {
		select {
		case <-closed:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, 5*time.Millisecond)

	close(listener.release)
	require.Eventually(t, func() bool {
		select {
		case <-closed:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	// the admitted answer ran its effects before Close returned
	calls := listener.Calls()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, []string{"start", "stop"}, calls[:2])
	assert.NoError(t, <-answered)
	assert.ErrorIs(t, s.SubmitAnswer("34"), ErrSessionClosed)
}
