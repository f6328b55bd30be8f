package nudge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// collectingNotifier captures messages for assertions.
type collectingNotifier struct {
	mu       sync.Mutex
	messages []string
	urgent   []string
}

func (n *collectingNotifier) Notify(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return nil
}

func (n *collectingNotifier) NotifyUrgent(_ context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urgent = append(n.urgent, msg)
	return nil
}

func (n *collectingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages) + len(n.urgent)
}

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newWatcher(n domain.Notifier) (*Watcher, *clock) {
	c := &clock{t: time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)}
	w := NewWatcher(n, logger.New(logger.LevelOff, nil),
		WithWatchInterval(time.Minute),
		WithIdleAfter(5*time.Minute),
	)
	w.now = c.now
	return w, c
}

func stepEvent(idx int, title string, cmd domain.Command) engine.Event {
	return engine.Event{
		Type:    engine.EventStepChanged,
		Command: cmd,
		Index:   idx,
		Total:   8,
		Step:    &domain.SessionStep{Step: domain.Step{Title: title}},
	}
}

func TestWatcherIdleStepNudge(t *testing.T) {
	n := &collectingNotifier{}
	w, c := newWatcher(n)
	ctx := context.Background()

	w.OnEvent(engine.Event{Type: engine.EventStateChanged, State: domain.ListeningActive})
	w.OnEvent(stepEvent(2, "Boil pasta", domain.CommandAdvance))

	c.advance(4 * time.Minute)
	w.check(ctx)
	if n.count() != 0 {
		t.Fatalf("nudged too early: %v", n.messages)
	}

	c.advance(2 * time.Minute)
	w.check(ctx)
	if len(n.messages) != 1 {
		t.Fatalf("expected one nudge, got %v", n.messages)
	}
	want := `Still on step 3 of 8 (Boil pasta) after 6m0s. Say "next" when you're ready, or "repeat" to hear it again.`
	if n.messages[0] != want {
		t.Errorf("got %q\nwant %q", n.messages[0], want)
	}

	// Once per step.
	c.advance(10 * time.Minute)
	w.check(ctx)
	if n.count() != 1 {
		t.Fatalf("nudged twice for one step: %v", n.messages)
	}

	// A new step resets the clock.
	w.OnEvent(stepEvent(3, "Drain", domain.CommandAdvance))
	c.advance(6 * time.Minute)
	w.check(ctx)
	if len(n.messages) != 2 {
		t.Fatalf("expected a nudge for the new step, got %v", n.messages)
	}
}

func TestWatcherQuietAfterCompletionOrEnd(t *testing.T) {
	tests := []struct {
		name string
		ev   engine.Event
	}{
		{"completed", engine.Event{Type: engine.EventSessionCompleted}},
		{"ended", engine.Event{Type: engine.EventSessionEnded}},
		{"cancelled", engine.Event{Type: engine.EventStateChanged, State: domain.ListeningIdle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &collectingNotifier{}
			w, c := newWatcher(n)

			w.OnEvent(stepEvent(7, "Serve", domain.CommandAdvance))
			w.OnEvent(tt.ev)
			c.advance(time.Hour)
			w.check(context.Background())

			if n.count() != 0 {
				t.Fatalf("unexpected nudge: %v %v", n.messages, n.urgent)
			}
		})
	}
}

func TestWatcherStalledVoiceIsUrgent(t *testing.T) {
	n := &collectingNotifier{}
	w, c := newWatcher(n)
	ctx := context.Background()

	w.OnEvent(stepEvent(0, "Prep", domain.CommandUnknown))
	w.OnEvent(engine.Event{Type: engine.EventStateChanged, State: domain.ListeningError})

	c.advance(30 * time.Second)
	w.check(ctx)
	if n.count() != 0 {
		t.Fatalf("nudged before the error settled: %v", n.urgent)
	}

	c.advance(time.Minute)
	w.check(ctx)
	if len(n.urgent) != 1 {
		t.Fatalf("expected one urgent nudge, got %v", n.urgent)
	}

	c.advance(time.Minute)
	w.check(ctx)
	if len(n.urgent) != 1 {
		t.Fatalf("urgent nudge repeated: %v", n.urgent)
	}
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	n := &collectingNotifier{}
	w := NewWatcher(n, logger.New(logger.LevelOff, nil), WithWatchInterval(10*time.Millisecond), WithIdleAfter(0))
	w.OnEvent(stepEvent(1, "Stir", domain.CommandAdvance))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for n.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected watcher to nudge")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
