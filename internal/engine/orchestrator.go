// Package engine implements the voice cooking state machine that turns
// recognised speech into navigation over a composed session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
	"github.com/hammamikhairi/vibecook/internal/speech"
)

// Matcher maps a final transcript to a command.
type Matcher interface {
	Match(transcript string) domain.Command
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBackend sets the speech backend. Without one the orchestrator only
// accepts typed transcripts and manual commands.
func WithBackend(b speech.Backend) Option {
	return func(o *Orchestrator) { o.backend = b }
}

// Orchestrator drives a composed session from recognition results.
//
// States move idle -> listening -> processing -> listening. Capture
// failures move to error, which only BeginSession or Reset leave. The
// orchestrator never holds its lock while calling the backend or a
// subscriber.
type Orchestrator struct {
	backend speech.Backend
	matcher Matcher
	log     *logger.Logger

	mu         sync.Mutex
	state      domain.ListeningState
	session    *domain.ComposedSession
	gen        int // bumped on BeginSession and Cancel; older results are stale
	finalising bool
	busy       bool // a final transcript is being matched and applied
	runCtx     context.Context

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Event)
}

// New creates an orchestrator in the idle state.
func New(matcher Matcher, log *logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher: matcher,
		log:     log,
		state:   domain.ListeningIdle,
		runCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// BackendKind reports the active backend, and false when running
// without one.
func (o *Orchestrator) BackendKind() (speech.Kind, bool) {
	if o.backend == nil {
		return 0, false
	}
	return o.backend.Kind(), true
}

// ── Queries ──────────────────────────────────────────────────────

// State returns the current listening state.
func (o *Orchestrator) State() domain.ListeningState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns a snapshot of the loaded session, or nil.
func (o *Orchestrator) Session() *domain.ComposedSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return nil
	}
	cp := *o.session
	return &cp
}

// Subscribe registers fn for every event. The returned function removes
// the registration.
func (o *Orchestrator) Subscribe(fn func(Event)) (unsubscribe func()) {
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs = append(o.subs, subscriber{id: id, fn: fn})
	o.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.subMu.Lock()
			defer o.subMu.Unlock()
			for i, s := range o.subs {
				if s.id == id {
					o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// ── Lifecycle ────────────────────────────────────────────────────

// BeginSession loads session and starts listening. It is accepted from
// idle, and from error as an explicit retry.
func (o *Orchestrator) BeginSession(ctx context.Context, session *domain.ComposedSession) error {
	if session == nil || session.TotalSteps() == 0 {
		return domain.ErrNoSession
	}

	o.mu.Lock()
	if o.state != domain.ListeningIdle && o.state != domain.ListeningError {
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("begin session while %s: %w", st, domain.ErrInvalidTransition)
	}
	o.gen++
	gen := o.gen
	o.session = session
	o.finalising = false
	o.busy = false
	o.runCtx = context.WithoutCancel(ctx)
	events := o.setStateLocked(domain.ListeningActive)
	events = append(events, o.stepEventLocked(EventStepChanged, domain.CommandUnknown))
	o.mu.Unlock()

	o.log.Info("orchestrator: session started (%d steps)", session.TotalSteps())
	o.publish(events...)

	if o.backend == nil {
		return nil
	}
	return o.startBackend(ctx, gen)
}

// Cancel stops listening from any state. Buffered audio is discarded and
// results that arrive afterwards are dropped. The loaded session is kept.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	o.gen++
	o.finalising = false
	o.busy = false
	events := o.setStateLocked(domain.ListeningIdle)
	o.mu.Unlock()

	var err error
	if o.backend != nil {
		err = o.backend.Abort(ctx)
	}
	o.publish(events...)
	if err != nil {
		return fmt.Errorf("cancel: abort backend: %w", err)
	}
	o.log.Debug("orchestrator: cancelled")
	return nil
}

// Reset clears an error so the session can be restarted. It is a no-op
// when idle.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	switch o.state {
	case domain.ListeningIdle:
		o.mu.Unlock()
		return nil
	case domain.ListeningError:
	default:
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("reset while %s: %w", st, domain.ErrInvalidTransition)
	}
	o.gen++
	o.busy = false
	events := o.setStateLocked(domain.ListeningIdle)
	o.mu.Unlock()

	if o.backend != nil {
		if err := o.backend.Abort(ctx); err != nil {
			o.log.Warn("orchestrator: reset: abort backend: %v", err)
		}
	}
	o.publish(events...)
	return nil
}

// ── Input ────────────────────────────────────────────────────────

// HandleTranscript processes typed or externally recognised text as a
// final result.
func (o *Orchestrator) HandleTranscript(ctx context.Context, text string) error {
	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return domain.ErrNoSession
	}
	if o.state != domain.ListeningActive {
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("transcript while %s: %w", st, domain.ErrInvalidTransition)
	}
	gen := o.gen
	o.busy = true
	events := o.setStateLocked(domain.ListeningProcessing)
	o.mu.Unlock()

	o.publish(events...)
	o.process(ctx, gen, text, false)
	return nil
}

// Apply runs cmd without speech, e.g. from an on-screen button. It works
// whenever a session is loaded and no final result is being processed.
// Only CommandEnd changes the listening state.
func (o *Orchestrator) Apply(ctx context.Context, cmd domain.Command) error {
	if cmd == domain.CommandUnknown {
		return fmt.Errorf("apply %s: %w", cmd, domain.ErrInvalidTransition)
	}

	o.mu.Lock()
	if o.session == nil {
		o.mu.Unlock()
		return domain.ErrNoSession
	}
	if o.state == domain.ListeningProcessing {
		o.mu.Unlock()
		return fmt.Errorf("apply while processing: %w", domain.ErrInvalidTransition)
	}
	events, ended := o.applyLocked(cmd)
	o.mu.Unlock()

	if ended {
		o.abortBackend(ctx)
	}
	o.publish(events...)
	return nil
}

// EndUtterance asks the backend to finalise the current utterance, as on
// a push-to-talk release. Only one finalise may be outstanding.
func (o *Orchestrator) EndUtterance(ctx context.Context) error {
	if o.backend == nil {
		return &domain.CaptureError{Reason: domain.CaptureUnavailable, Err: domain.ErrCapabilityUnavailable}
	}

	o.mu.Lock()
	if o.finalising || o.state != domain.ListeningActive {
		st := o.state
		o.mu.Unlock()
		return fmt.Errorf("end utterance while %s: %w", st, domain.ErrInvalidTransition)
	}
	o.finalising = true
	gen := o.gen
	events := o.setStateLocked(domain.ListeningProcessing)
	o.mu.Unlock()

	o.publish(events...)
	err := o.backend.Stop(ctx)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return err
	}
	o.finalising = false
	var tail []Event
	if o.state == domain.ListeningProcessing {
		// Nothing was recognised.
		tail = o.setStateLocked(domain.ListeningActive)
	}
	resume := o.state == domain.ListeningActive
	o.mu.Unlock()

	o.publish(tail...)
	if resume {
		if serr := o.startBackend(ctx, gen); serr != nil && err == nil {
			err = serr
		}
	}
	return err
}

// ── Backend plumbing ─────────────────────────────────────────────

// startBackend binds the callbacks to gen and starts capture.
func (o *Orchestrator) startBackend(ctx context.Context, gen int) error {
	o.backend.OnResult(func(r domain.RecognitionResult) { o.onResult(gen, r) })
	o.backend.OnError(func(err error) { o.onError(gen, err) })

	if err := o.backend.Start(ctx); err != nil {
		cerr := domain.NewCaptureError(err)
		o.fail(gen, cerr)
		return cerr
	}
	return nil
}

func (o *Orchestrator) onResult(gen int, r domain.RecognitionResult) {
	o.mu.Lock()
	if o.gen != gen || o.session == nil {
		o.mu.Unlock()
		o.log.Debug("orchestrator: dropping stale result %q", r.Transcript)
		return
	}

	if !r.Final {
		active := o.state == domain.ListeningActive
		o.mu.Unlock()
		if active {
			o.publish(Event{Type: EventInterim, State: domain.ListeningActive, Transcript: r.Transcript})
		}
		return
	}

	// A final is taken while listening, or while an EndUtterance finalise
	// is waiting for it. One that lands while another transcript is being
	// applied is reported, not silently lost.
	claim := o.state == domain.ListeningActive ||
		(o.state == domain.ListeningProcessing && o.finalising && !o.busy)
	if !claim {
		busy := o.busy
		o.mu.Unlock()
		if busy {
			o.log.Warn("orchestrator: %q arrived while another command was processing", r.Transcript)
			o.publish(Event{Type: EventUnrecognized, State: domain.ListeningProcessing, Transcript: r.Transcript})
		}
		return
	}
	o.busy = true
	events := o.setStateLocked(domain.ListeningProcessing)
	ctx := o.runCtx
	o.mu.Unlock()

	o.publish(events...)
	o.process(ctx, gen, r.Transcript, true)
}

func (o *Orchestrator) onError(gen int, err error) {
	var terr *domain.TranscriptionError
	if errors.As(err, &terr) {
		o.mu.Lock()
		if o.gen != gen {
			o.mu.Unlock()
			return
		}
		events := []Event{{Type: EventError, State: o.state, Err: err}}
		if o.state == domain.ListeningProcessing && !o.finalising && !o.busy {
			events = append(events, o.setStateLocked(domain.ListeningActive)...)
		}
		o.mu.Unlock()

		o.log.Warn("orchestrator: %v", err)
		o.publish(events...)
		return
	}

	o.fail(gen, domain.NewCaptureError(err))
	if o.backend != nil {
		o.mu.Lock()
		ctx := o.runCtx
		o.mu.Unlock()
		if aerr := o.backend.Abort(ctx); aerr != nil {
			o.log.Warn("orchestrator: abort after capture error: %v", aerr)
		}
	}
}

// fail moves to the error state. The session and step are kept.
func (o *Orchestrator) fail(gen int, err error) {
	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.finalising = false
	events := o.setStateLocked(domain.ListeningError)
	events = append(events, Event{Type: EventError, State: domain.ListeningError, Err: err})
	o.mu.Unlock()

	o.log.Error("orchestrator: capture failed: %v", err)
	o.publish(events...)
}

func (o *Orchestrator) abortBackend(ctx context.Context) {
	if o.backend == nil {
		return
	}
	if err := o.backend.Abort(ctx); err != nil {
		o.log.Warn("orchestrator: abort backend: %v", err)
	}
}

// ── Command processing ───────────────────────────────────────────

// process matches a final transcript and applies it. The caller has
// already moved to processing.
func (o *Orchestrator) process(ctx context.Context, gen int, transcript string, fromBackend bool) {
	cmd := o.matcher.Match(transcript)

	o.mu.Lock()
	if o.gen != gen {
		o.mu.Unlock()
		return
	}
	o.busy = false
	if o.state != domain.ListeningProcessing {
		o.mu.Unlock()
		return
	}

	var events []Event
	ended := false
	if cmd == domain.CommandUnknown {
		o.log.Debug("orchestrator: unrecognised %q", transcript)
		events = append(events, Event{Type: EventUnrecognized, State: domain.ListeningProcessing, Transcript: transcript})
	} else {
		o.log.Info("orchestrator: %q -> %s", transcript, cmd)
		events, ended = o.applyLocked(cmd)
		for i := range events {
			events[i].Transcript = transcript
		}
	}
	if !ended {
		events = append(events, o.setStateLocked(domain.ListeningActive)...)
	}

	restart := fromBackend && !ended && o.state == domain.ListeningActive &&
		o.backend != nil && o.backend.Kind() == speech.KindCapture
	o.mu.Unlock()

	if ended {
		o.abortBackend(ctx)
	}
	o.publish(events...)

	if restart {
		if err := o.backend.Start(ctx); err != nil {
			o.fail(gen, domain.NewCaptureError(err))
		}
	}
}

// applyLocked mutates the session for cmd and returns the resulting
// events. ended reports that cmd ended the session.
func (o *Orchestrator) applyLocked(cmd domain.Command) (events []Event, ended bool) {
	s := o.session
	switch cmd {
	case domain.CommandAdvance:
		if s.IsLastStep() {
			s.MarkCompleted()
			ev := o.stepEventLocked(EventSessionCompleted, cmd)
			return []Event{ev}, false
		}
		s.SetCurrentStep(s.CurrentStepIndex + 1)
		return []Event{o.stepEventLocked(EventStepChanged, cmd)}, false

	case domain.CommandPrevious:
		if s.CurrentStepIndex == 0 {
			return nil, false
		}
		s.SetCurrentStep(s.CurrentStepIndex - 1)
		s.Completed = false
		return []Event{o.stepEventLocked(EventStepChanged, cmd)}, false

	case domain.CommandRepeat:
		return []Event{o.stepEventLocked(EventStepChanged, cmd)}, false

	case domain.CommandEnd:
		o.gen++
		o.finalising = false
		o.busy = false
		events = o.setStateLocked(domain.ListeningIdle)
		ev := o.stepEventLocked(EventSessionEnded, cmd)
		return append(events, ev), true
	}
	return nil, false
}

// ── State helpers ────────────────────────────────────────────────

func (o *Orchestrator) setStateLocked(st domain.ListeningState) []Event {
	if o.state == st {
		return nil
	}
	o.log.Debug("orchestrator: %s -> %s", o.state, st)
	o.state = st
	return []Event{{Type: EventStateChanged, State: st}}
}

func (o *Orchestrator) stepEventLocked(t EventType, cmd domain.Command) Event {
	ev := Event{
		Type:    t,
		State:   o.state,
		Command: cmd,
		Index:   o.session.CurrentStepIndex,
		Total:   o.session.TotalSteps(),
	}
	if step := o.session.CurrentStep(); step != nil {
		cp := *step
		ev.Step = &cp
	}
	return ev
}

func (o *Orchestrator) publish(events ...Event) {
	if len(events) == 0 {
		return
	}
	o.subMu.Lock()
	subs := append([]subscriber(nil), o.subs...)
	o.subMu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}
