// Package presenter turns a recipe selection into a running cooking
// session and exposes a render-ready view of it.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/vibecook/internal/composer"
	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Orchestrator is the part of engine.Orchestrator the presenter drives.
type Orchestrator interface {
	BeginSession(ctx context.Context, s *domain.ComposedSession) error
	Cancel(ctx context.Context) error
	State() domain.ListeningState
	Session() *domain.ComposedSession
	Subscribe(fn func(engine.Event)) func()
}

// CandidateSource supplies the cook's shortlisted recipes.
type CandidateSource interface {
	List() []domain.RecipeID
}

// Status is the coarse presenter state.
type Status int

const (
	StatusNoSession Status = iota
	StatusReady
)

func (s Status) String() string {
	if s == StatusReady {
		return "ready"
	}
	return "no_session"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Option configures the Presenter.
type Option func(*Presenter)

// WithCandidates enables OpenFromCandidates.
func WithCandidates(c CandidateSource) Option {
	return func(p *Presenter) { p.candidates = c }
}

// Presenter composes sessions and mirrors orchestrator events into a View.
// It owns no navigation logic.
type Presenter struct {
	lookup     domain.RecipeLookup
	orch       Orchestrator
	candidates CandidateSource
	log        *logger.Logger

	mu        sync.Mutex
	status    Status
	sessionID string
	loading   bool
	titles    []string
	notice    string
	interim   string
	last      domain.Command

	watchMu  sync.Mutex
	watchers map[int]func(View)
	nextW    int

	unsubscribe func()
}

// New creates a presenter with no session.
func New(lookup domain.RecipeLookup, orch Orchestrator, log *logger.Logger, opts ...Option) *Presenter {
	p := &Presenter{
		lookup:   lookup,
		orch:     orch,
		log:      log,
		watchers: make(map[int]func(View)),
	}
	for _, o := range opts {
		o(p)
	}
	p.unsubscribe = orch.Subscribe(p.onEvent)
	return p
}

// Detach stops mirroring orchestrator events.
func (p *Presenter) Detach() {
	p.unsubscribe()
}

// ParseEntry parses the comma-separated recipes parameter ("a, b,,a")
// into ids, trimming blanks and dropping duplicates.
func ParseEntry(raw string) []domain.RecipeID {
	var out []domain.RecipeID
	seen := make(map[domain.RecipeID]bool)
	for _, part := range strings.Split(raw, ",") {
		id := domain.RecipeID(strings.TrimSpace(part))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Open composes ids and begins a session. An empty list closes any
// session and shows the no-session state. Composition failures leave the
// current session untouched and set a notice. A capture failure still
// opens the session, with the orchestrator in its error state.
func (p *Presenter) Open(ctx context.Context, ids []domain.RecipeID) error {
	if len(ids) == 0 {
		p.log.Debug("presenter: no recipes requested")
		return p.Close(ctx)
	}

	p.mu.Lock()
	p.loading = true
	p.mu.Unlock()
	p.changed()

	session, err := composer.Compose(ctx, ids, p.lookup)
	if err == nil && session.TotalSteps() == 0 {
		err = fmt.Errorf("recipes have no steps: %w", domain.ErrNoSession)
	}
	if err != nil {
		p.log.Warn("presenter: compose %v: %v", ids, err)
		p.mu.Lock()
		p.loading = false
		p.notice = noticeFor(err)
		p.mu.Unlock()
		p.changed()
		return err
	}

	if cerr := p.orch.Cancel(ctx); cerr != nil {
		p.log.Warn("presenter: cancel previous session: %v", cerr)
	}

	p.mu.Lock()
	p.status = StatusReady
	p.sessionID = uuid.NewString()
	p.titles = session.RecipeTitles()
	p.loading = false
	p.notice = ""
	p.interim = ""
	p.last = domain.CommandUnknown
	id := p.sessionID
	p.mu.Unlock()

	err = p.orch.BeginSession(ctx, session)

	var ce *domain.CaptureError
	switch {
	case err == nil:
	case errors.As(err, &ce):
		p.mu.Lock()
		p.notice = noticeFor(err)
		p.mu.Unlock()
		p.log.Warn("presenter: session %s opened without voice: %v", id, err)
		err = nil
	default:
		p.mu.Lock()
		p.notice = noticeFor(err)
		p.mu.Unlock()
	}

	p.log.Info("presenter: session %s open (%d steps, %s)", id, session.TotalSteps(), strings.Join(session.RecipeTitles(), ", "))
	p.changed()
	return err
}

// OpenFromCandidates opens a session from the current candidate list.
func (p *Presenter) OpenFromCandidates(ctx context.Context) error {
	if p.candidates == nil {
		return p.Open(ctx, nil)
	}
	return p.Open(ctx, p.candidates.List())
}

// Close stops the orchestrator and drops the session.
func (p *Presenter) Close(ctx context.Context) error {
	err := p.orch.Cancel(ctx)

	p.mu.Lock()
	p.status = StatusNoSession
	p.sessionID = ""
	p.titles = nil
	p.loading = false
	p.interim = ""
	p.last = domain.CommandUnknown
	p.mu.Unlock()

	p.changed()
	return err
}

// Watch registers fn for every view change. The returned function removes
// the registration.
func (p *Presenter) Watch(fn func(View)) (cancel func()) {
	p.watchMu.Lock()
	id := p.nextW
	p.nextW++
	p.watchers[id] = fn
	p.watchMu.Unlock()

	return func() {
		p.watchMu.Lock()
		delete(p.watchers, id)
		p.watchMu.Unlock()
	}
}

// ── Event mirroring ──────────────────────────────────────────────

func (p *Presenter) onEvent(ev engine.Event) {
	p.mu.Lock()
	if p.status != StatusReady {
		p.mu.Unlock()
		return
	}
	switch ev.Type {
	case engine.EventInterim:
		p.interim = ev.Transcript
	case engine.EventStepChanged:
		p.interim = ""
		p.notice = ""
		p.last = ev.Command
	case engine.EventUnrecognized:
		p.interim = ""
		p.notice = fmt.Sprintf("Didn't catch a command in %q. Try \"next\", \"back\", \"repeat\" or \"stop\".", ev.Transcript)
	case engine.EventSessionCompleted:
		p.interim = ""
		p.last = ev.Command
		p.notice = "That was the last step. Enjoy your meal!"
	case engine.EventSessionEnded:
		p.interim = ""
		p.last = ev.Command
		p.notice = "Cooking session ended."
	case engine.EventError:
		p.notice = noticeFor(ev.Err)
	case engine.EventStateChanged:
		if ev.State != domain.ListeningActive {
			p.interim = ""
		}
	}
	p.mu.Unlock()
	p.changed()
}

func (p *Presenter) changed() {
	p.watchMu.Lock()
	fns := make([]func(View), 0, len(p.watchers))
	for _, fn := range p.watchers {
		fns = append(fns, fn)
	}
	p.watchMu.Unlock()
	if len(fns) == 0 {
		return
	}

	v := p.Snapshot()
	for _, fn := range fns {
		fn(v)
	}
}

// noticeFor turns an error into a message fit for the cook.
func noticeFor(err error) string {
	var (
		nf *domain.RecipeNotFoundError
		ce *domain.CaptureError
		te *domain.TranscriptionError
		pe *domain.PersistenceError
	)
	switch {
	case errors.As(err, &nf):
		return fmt.Sprintf("Recipe %q could not be found.", nf.ID)
	case errors.As(err, &ce):
		switch ce.Reason {
		case domain.CapturePermissionDenied:
			return "Microphone access was denied. You can keep cooking with the on-screen controls."
		case domain.CaptureUnavailable:
			return "Voice control isn't available here. You can keep cooking with the on-screen controls."
		default:
			return "The microphone stopped working. Start listening again when it's back."
		}
	case errors.As(err, &te):
		return "Couldn't transcribe that. Please say it again."
	case errors.As(err, &pe):
		return "Your recipe list couldn't be saved."
	case errors.Is(err, domain.ErrNoSession):
		return "Those recipes have no steps to cook."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Loading the recipes took too long. Please try again."
	default:
		return fmt.Sprintf("Something went wrong: %v", err)
	}
}
