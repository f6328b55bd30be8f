// Package cue plays short audible signals for cooking-session events so
// the cook hears what happened without looking at the screen.
package cue

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/engine"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Sink plays PCM produced by Synthesize.
type Sink interface {
	Play(pcm []byte) error
	Stop()
}

// Kind names a cue.
type Kind int

const (
	KindListening Kind = iota
	KindStep
	KindUnrecognized
	KindCompleted
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindListening:
		return "listening"
	case KindStep:
		return "step"
	case KindUnrecognized:
		return "unrecognized"
	case KindCompleted:
		return "completed"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

var melodies = map[Kind][]Tone{
	KindListening:    {{Freq: 880, Dur: 90 * time.Millisecond}},
	KindStep:         {{Freq: 660, Dur: 70 * time.Millisecond}, {Freq: 990, Dur: 90 * time.Millisecond}},
	KindUnrecognized: {{Freq: 330, Dur: 120 * time.Millisecond}},
	KindCompleted: {
		{Freq: 523, Dur: 110 * time.Millisecond},
		{Freq: 659, Dur: 110 * time.Millisecond},
		{Freq: 784, Dur: 110 * time.Millisecond},
		{Freq: 1047, Dur: 220 * time.Millisecond},
	},
	KindError: {{Freq: 440, Dur: 120 * time.Millisecond}, {Dur: 40 * time.Millisecond}, {Freq: 294, Dur: 180 * time.Millisecond}},
}

// Option configures the Cuer.
type Option func(*Cuer)

// WithVolume sets the cue amplitude in [0, 1]. Default 0.3.
func WithVolume(v float64) Option {
	return func(c *Cuer) { c.volume = v }
}

// Cuer maps orchestrator events to cues and plays them one at a time.
// Cues that arrive while the queue is full are dropped.
type Cuer struct {
	sink   Sink
	log    *logger.Logger
	volume float64
	queue  chan Kind

	mu       sync.Mutex
	state    domain.ListeningState
	rendered map[Kind][]byte
}

// New creates a Cuer. Call Run to start playback and Attach to listen.
func New(sink Sink, log *logger.Logger, opts ...Option) *Cuer {
	c := &Cuer{
		sink:     sink,
		log:      log,
		volume:   0.3,
		queue:    make(chan Kind, 4),
		rendered: make(map[Kind][]byte),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Attach subscribes the Cuer to an orchestrator's events.
func (c *Cuer) Attach(subscribe func(func(engine.Event)) func()) (detach func()) {
	return subscribe(c.OnEvent)
}

// OnEvent queues the cue for ev, if it has one.
func (c *Cuer) OnEvent(ev engine.Event) {
	kind, ok := c.classify(ev)
	if !ok {
		return
	}
	select {
	case c.queue <- kind:
	default:
		c.log.Debug("cue %s dropped: queue full", kind)
	}
}

// classify decides which cue an event deserves. Entering the listening
// state only chimes when coming from idle or error; the hop back from
// processing after every utterance stays silent.
func (c *Cuer) classify(ev engine.Event) (Kind, bool) {
	switch ev.Type {
	case engine.EventStateChanged:
		c.mu.Lock()
		prev := c.state
		c.state = ev.State
		c.mu.Unlock()
		if ev.State == domain.ListeningActive && (prev == domain.ListeningIdle || prev == domain.ListeningError) {
			return KindListening, true
		}
	case engine.EventStepChanged:
		if ev.Command != domain.CommandUnknown {
			return KindStep, true
		}
	case engine.EventUnrecognized:
		return KindUnrecognized, true
	case engine.EventSessionCompleted:
		return KindCompleted, true
	case engine.EventError:
		return KindError, true
	}
	return 0, false
}

// Run plays queued cues until ctx is cancelled.
func (c *Cuer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.sink.Stop()
			return
		case kind := <-c.queue:
			if err := c.sink.Play(c.pcm(kind)); err != nil {
				c.log.Warn("cue %s: %v", kind, err)
			}
		}
	}
}

func (c *Cuer) pcm(kind Kind) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.rendered[kind]; ok {
		return b
	}
	b := Synthesize(c.volume, melodies[kind]...)
	c.rendered[kind] = b
	return b
}
