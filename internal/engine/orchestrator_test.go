package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/vibecook/internal/conversation"
	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
	"github.com/hammamikhairi/vibecook/internal/speech"
)

// ── Mock backend ─────────────────────────────────────────────────

type mockBackend struct {
	kind speech.Kind

	mu       sync.Mutex
	onResult func(domain.RecognitionResult)
	onError  func(error)
	running  bool
	starts   int
	stops    int
	aborts   int
	startErr error
	// onStop runs inside Stop, before it returns, to emulate a backend
	// that finalises synchronously.
	onStop func(m *mockBackend)
}

func (m *mockBackend) Kind() speech.Kind { return m.kind }

func (m *mockBackend) Start(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if !m.running {
		m.starts++
	}
	m.running = true
	return nil
}

func (m *mockBackend) Stop(context.Context) error {
	m.mu.Lock()
	m.stops++
	m.running = false
	hook := m.onStop
	m.mu.Unlock()
	if hook != nil {
		hook(m)
	}
	return nil
}

func (m *mockBackend) Abort(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aborts++
	m.running = false
	return nil
}

func (m *mockBackend) OnResult(fn func(domain.RecognitionResult)) {
	m.mu.Lock()
	m.onResult = fn
	m.mu.Unlock()
}

func (m *mockBackend) OnError(fn func(error)) {
	m.mu.Lock()
	m.onError = fn
	m.mu.Unlock()
}

func (m *mockBackend) say(text string, final bool) {
	m.mu.Lock()
	fn := m.onResult
	m.mu.Unlock()
	fn(domain.RecognitionResult{Transcript: text, Final: final})
}

func (m *mockBackend) fail(err error) {
	m.mu.Lock()
	fn := m.onError
	m.mu.Unlock()
	fn(err)
}

func (m *mockBackend) counts() (starts, stops, aborts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops, m.aborts
}

// ── Fixtures ─────────────────────────────────────────────────────

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) types() []EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) count(t EventType) int {
	n := 0
	for _, got := range l.types() {
		if got == t {
			n++
		}
	}
	return n
}

func (l *eventLog) reset() {
	l.mu.Lock()
	l.events = nil
	l.mu.Unlock()
}

func session(n int) *domain.ComposedSession {
	s := &domain.ComposedSession{}
	for i := range n {
		s.Steps = append(s.Steps, domain.SessionStep{
			RecipeID:    "r1",
			RecipeTitle: "Pasta",
			Step:        domain.Step{Order: domain.Ordered(i + 1), Title: string(rune('A' + i))},
		})
	}
	return s
}

func setup(t *testing.T, kind speech.Kind) (*Orchestrator, *mockBackend, *eventLog) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	b := &mockBackend{kind: kind}
	o := New(conversation.MustDefaultMatcher(log), log, WithBackend(b))
	events := &eventLog{}
	o.Subscribe(events.add)
	return o, b, events
}

// ── Tests ────────────────────────────────────────────────────────

func TestBeginSession(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	ctx := context.Background()

	require.NoError(t, o.BeginSession(ctx, session(3)))
	assert.Equal(t, domain.ListeningActive, o.State())
	assert.Equal(t, []EventType{EventStateChanged, EventStepChanged}, events.types())
	starts, _, _ := b.counts()
	assert.Equal(t, 1, starts)

	err := o.BeginSession(ctx, session(3))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	o2, _, _ := setup(t, speech.KindStreaming)
	assert.ErrorIs(t, o2.BeginSession(ctx, nil), domain.ErrNoSession)
	assert.ErrorIs(t, o2.BeginSession(ctx, &domain.ComposedSession{}), domain.ErrNoSession)
}

func TestNavigationCommands(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	ctx := context.Background()
	require.NoError(t, o.BeginSession(ctx, session(3)))
	events.reset()

	steps := []struct {
		say       string
		wantIndex int
		wantEvent EventType
	}{
		{"next step", 1, EventStepChanged},
		{"next", 2, EventStepChanged},
		{"go back", 1, EventStepChanged},
		{"repeat", 1, EventStepChanged},
		{"what is the capital of france", 1, EventUnrecognized},
	}
	for _, st := range steps {
		events.reset()
		b.say(st.say, true)
		assert.Equal(t, st.wantIndex, o.Session().CurrentStepIndex, st.say)
		assert.Equal(t, 1, events.count(st.wantEvent), st.say)
		assert.Equal(t, domain.ListeningActive, o.State(), st.say)
	}
}

func TestPreviousClampsAtFirstStep(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	require.NoError(t, o.BeginSession(context.Background(), session(2)))
	events.reset()

	b.say("back", true)
	assert.Equal(t, 0, o.Session().CurrentStepIndex)
	assert.Zero(t, events.count(EventStepChanged))
}

func TestAdvancePastLastStepCompletes(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	require.NoError(t, o.BeginSession(context.Background(), session(2)))

	b.say("next", true)
	b.say("next", true)

	s := o.Session()
	assert.Equal(t, 1, s.CurrentStepIndex)
	assert.True(t, s.Completed)
	assert.Equal(t, 1, events.count(EventSessionCompleted))
	assert.Equal(t, domain.ListeningActive, o.State())

	b.say("previous", true)
	assert.False(t, o.Session().Completed)
}

func TestInterimDoesNotMutate(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	require.NoError(t, o.BeginSession(context.Background(), session(3)))
	events.reset()

	b.say("next", false)
	assert.Equal(t, 0, o.Session().CurrentStepIndex)
	assert.Equal(t, []EventType{EventInterim}, events.types())
	assert.Equal(t, domain.ListeningActive, o.State())
}

func TestFinalPassesThroughProcessing(t *testing.T) {
	o, b, _ := setup(t, speech.KindStreaming)
	require.NoError(t, o.BeginSession(context.Background(), session(3)))

	var states []domain.ListeningState
	o.Subscribe(func(e Event) {
		if e.Type == EventStateChanged {
			states = append(states, e.State)
		}
	})
	b.say("next", true)
	assert.Equal(t, []domain.ListeningState{domain.ListeningProcessing, domain.ListeningActive}, states)
}

func TestEndCommand(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	require.NoError(t, o.BeginSession(context.Background(), session(3)))
	b.say("next", true)

	b.say("stop cooking", true)
	assert.Equal(t, domain.ListeningIdle, o.State())
	assert.Equal(t, 1, events.count(EventSessionEnded))
	_, _, aborts := b.counts()
	assert.Equal(t, 1, aborts)

	// Results from the ended run are ignored.
	b.say("next", true)
	assert.Equal(t, 1, o.Session().CurrentStepIndex)
}

func TestCancelDiscardsLateResults(t *testing.T) {
	o, b, events := setup(t, speech.KindCapture)
	ctx := context.Background()
	require.NoError(t, o.BeginSession(ctx, session(3)))

	require.NoError(t, o.Cancel(ctx))
	assert.Equal(t, domain.ListeningIdle, o.State())
	_, _, aborts := b.counts()
	assert.Equal(t, 1, aborts)

	events.reset()
	b.say("next", true)
	assert.Equal(t, 0, o.Session().CurrentStepIndex)
	assert.Empty(t, events.types())

	// The session can be resumed.
	require.NoError(t, o.BeginSession(ctx, o.Session()))
	assert.Equal(t, domain.ListeningActive, o.State())
}

func TestCaptureRestartsAfterFinal(t *testing.T) {
	o, b, _ := setup(t, speech.KindCapture)
	ctx := context.Background()
	b.onStop = func(m *mockBackend) { m.say("next", true) }
	require.NoError(t, o.BeginSession(ctx, session(3)))

	require.NoError(t, o.EndUtterance(ctx))
	assert.Equal(t, 1, o.Session().CurrentStepIndex)
	assert.Equal(t, domain.ListeningActive, o.State())

	starts, stops, _ := b.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestEndUtteranceGate(t *testing.T) {
	o, b, _ := setup(t, speech.KindCapture)
	ctx := context.Background()
	require.NoError(t, o.BeginSession(ctx, session(3)))

	var second error
	b.onStop = func(*mockBackend) {
		second = o.EndUtterance(ctx)
	}
	require.NoError(t, o.EndUtterance(ctx))
	assert.ErrorIs(t, second, domain.ErrInvalidTransition)

	// Nothing was recognised: back to listening and recording again.
	assert.Equal(t, domain.ListeningActive, o.State())
	starts, stops, _ := b.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, 1, stops)
}

func TestStreamingEndUtteranceResumes(t *testing.T) {
	o, b, _ := setup(t, speech.KindStreaming)
	ctx := context.Background()
	b.onStop = func(m *mockBackend) { m.say("repeat", true) }
	require.NoError(t, o.BeginSession(ctx, session(3)))

	require.NoError(t, o.EndUtterance(ctx))
	starts, _, _ := b.counts()
	assert.Equal(t, 2, starts)
	assert.Equal(t, domain.ListeningActive, o.State())
}

func TestCaptureErrorMovesToError(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	ctx := context.Background()
	require.NoError(t, o.BeginSession(ctx, session(3)))
	b.say("next", true)

	b.fail(domain.ErrPermissionDenied)
	assert.Equal(t, domain.ListeningError, o.State())
	assert.Equal(t, 1, events.count(EventError))

	// The session survives and a retry is explicit.
	assert.Equal(t, 1, o.Session().CurrentStepIndex)
	b.say("next", true)
	assert.Equal(t, 1, o.Session().CurrentStepIndex)

	require.NoError(t, o.BeginSession(ctx, o.Session()))
	assert.Equal(t, domain.ListeningActive, o.State())
}

func TestStartFailure(t *testing.T) {
	o, b, events := setup(t, speech.KindCapture)
	b.startErr = domain.ErrPermissionDenied

	err := o.BeginSession(context.Background(), session(3))
	var ce *domain.CaptureError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CapturePermissionDenied, ce.Reason)
	assert.Equal(t, domain.ListeningError, o.State())
	assert.Equal(t, 1, events.count(EventError))
	require.NotNil(t, o.Session())
}

func TestTranscriptionErrorIsRecoverable(t *testing.T) {
	o, b, events := setup(t, speech.KindCapture)
	ctx := context.Background()
	terr := &domain.TranscriptionError{Err: errors.New("rate limited")}
	b.onStop = func(m *mockBackend) { m.fail(terr) }
	require.NoError(t, o.BeginSession(ctx, session(3)))

	require.NoError(t, o.EndUtterance(ctx))
	assert.Equal(t, domain.ListeningActive, o.State())
	assert.Equal(t, 1, events.count(EventError))
	starts, _, _ := b.counts()
	assert.Equal(t, 2, starts)
}

func TestReset(t *testing.T) {
	o, b, _ := setup(t, speech.KindStreaming)
	ctx := context.Background()
	require.NoError(t, o.Reset(ctx))

	require.NoError(t, o.BeginSession(ctx, session(3)))
	assert.ErrorIs(t, o.Reset(ctx), domain.ErrInvalidTransition)

	b.fail(errors.New("device unplugged"))
	require.Equal(t, domain.ListeningError, o.State())
	require.NoError(t, o.Reset(ctx))
	assert.Equal(t, domain.ListeningIdle, o.State())
}

func TestHandleTranscriptAndApply(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	o := New(conversation.MustDefaultMatcher(log), log)
	ctx := context.Background()

	assert.ErrorIs(t, o.HandleTranscript(ctx, "next"), domain.ErrNoSession)
	assert.ErrorIs(t, o.Apply(ctx, domain.CommandAdvance), domain.ErrNoSession)

	require.NoError(t, o.BeginSession(ctx, session(3)))
	require.NoError(t, o.HandleTranscript(ctx, "next please"))
	assert.Equal(t, 1, o.Session().CurrentStepIndex)

	require.NoError(t, o.Apply(ctx, domain.CommandAdvance))
	assert.Equal(t, 2, o.Session().CurrentStepIndex)
	assert.ErrorIs(t, o.Apply(ctx, domain.CommandUnknown), domain.ErrInvalidTransition)

	require.NoError(t, o.Apply(ctx, domain.CommandEnd))
	assert.Equal(t, domain.ListeningIdle, o.State())
	assert.ErrorIs(t, o.HandleTranscript(ctx, "next"), domain.ErrInvalidTransition)

	// Manual navigation still works on a stopped session.
	require.NoError(t, o.Apply(ctx, domain.CommandPrevious))
	assert.Equal(t, 1, o.Session().CurrentStepIndex)

	var ce *domain.CaptureError
	assert.ErrorAs(t, o.EndUtterance(ctx), &ce)
}

func TestUnsubscribe(t *testing.T) {
	o, b, _ := setup(t, speech.KindStreaming)
	n := 0
	unsubscribe := o.Subscribe(func(Event) { n++ })
	require.NoError(t, o.BeginSession(context.Background(), session(2)))
	before := n
	unsubscribe()
	unsubscribe()
	b.say("next", true)
	assert.Equal(t, before, n)
}

func TestFinalDuringTypedCommandIsReported(t *testing.T) {
	o, b, events := setup(t, speech.KindStreaming)
	ctx := context.Background()
	require.NoError(t, o.BeginSession(ctx, session(3)))
	events.reset()

	// The recognizer finalises "repeat" while the typed "next" is being
	// applied.
	var once sync.Once
	stop := o.Subscribe(func(ev Event) {
		if ev.Type == EventStateChanged && ev.State == domain.ListeningProcessing {
			once.Do(func() { b.say("repeat", true) })
		}
	})
	defer stop()

	require.NoError(t, o.HandleTranscript(ctx, "next"))

	assert.Equal(t, 1, o.Session().CurrentStepIndex)
	assert.Equal(t, domain.ListeningActive, o.State())

	var dropped []string
	events.mu.Lock()
	for _, ev := range events.events {
		if ev.Type == EventUnrecognized {
			dropped = append(dropped, ev.Transcript)
		}
	}
	events.mu.Unlock()
	assert.Equal(t, []string{"repeat"}, dropped)
	assert.Equal(t, 1, events.count(EventStepChanged))
}
