// Package nudge watches a cooking session and reminds the cook when it
// has sat on one step for a long time or voice control has stalled.
package nudge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often the watcher checks session state.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithIdleAfter sets how long a step may stay on screen before a
// reminder.
func WithIdleAfter(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.idleAfter = d
	}
}

// Watcher follows orchestrator events and periodically decides whether
// the cook needs a nudge. Each step and each error episode is nudged at
// most once.
type Watcher struct {
	notifier  domain.Notifier
	log       *logger.Logger
	interval  time.Duration
	idleAfter time.Duration
	now       func() time.Time

	mu        sync.Mutex
	active    bool
	completed bool
	state     domain.ListeningState
	index     int
	total     int
	title     string
	since     time.Time
	nudged    bool
	errSince  time.Time
	errNudged bool
}

// NewWatcher creates a watcher. Feed it events with OnEvent and start it
// with Run.
func NewWatcher(notifier domain.Notifier, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		notifier:  notifier,
		log:       log,
		interval:  30 * time.Second,
		idleAfter: 5 * time.Minute,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnEvent records what the orchestrator reported.
func (w *Watcher) OnEvent(ev engine.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	switch ev.Type {
	case engine.EventStepChanged:
		w.active = true
		w.completed = false
		w.index = ev.Index
		w.total = ev.Total
		w.title = ""
		if ev.Step != nil {
			w.title = ev.Step.Step.Title
		}
		w.since = now
		w.nudged = false
	case engine.EventSessionCompleted:
		w.completed = true
	case engine.EventSessionEnded:
		w.active = false
	case engine.EventStateChanged:
		w.state = ev.State
		switch ev.State {
		case domain.ListeningError:
			w.errSince = now
			w.errNudged = false
		case domain.ListeningIdle:
			w.active = false
		}
	}
}

// Run starts the watcher loop. Blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Debug("nudge watcher started (interval=%s, idle=%s)", w.interval, w.idleAfter)

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("nudge watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one watcher cycle.
func (w *Watcher) check(ctx context.Context) {
	msg, urgent := w.buildMessage()
	if msg == "" {
		return
	}

	notify := w.notifier.Notify
	if urgent {
		notify = w.notifier.NotifyUrgent
	}
	if err := notify(ctx, msg); err != nil {
		w.log.Error("nudge: notify: %v", err)
	}
}

// buildMessage decides what to tell the cook based on current state.
func (w *Watcher) buildMessage() (msg string, urgent bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.active {
		return "", false
	}
	now := w.now()

	// A stalled microphone matters more than a slow step.
	if w.state == domain.ListeningError {
		if w.errNudged || now.Sub(w.errSince) < w.interval {
			return "", false
		}
		w.errNudged = true
		return "Voice control is still paused. Type \"reset\" to listen again, or keep going with typed commands.", true
	}

	if w.completed || w.nudged {
		return "", false
	}

	onStepFor := now.Sub(w.since)
	if onStepFor < w.idleAfter {
		w.log.Debug("nudge: step %d/%d on screen for %s, nothing to report", w.index+1, w.total, onStepFor.Round(time.Second))
		return "", false
	}

	w.nudged = true
	return fmt.Sprintf("Still on step %d of %d (%s) after %s. Say \"next\" when you're ready, or \"repeat\" to hear it again.",
		w.index+1, w.total, w.title, onStepFor.Round(time.Minute)), false
}
