package speech

import (
	"context"
	"errors"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

var _ Backend = (*StreamingBackend)(nil)

// StreamingBackend forwards results from a LiveRecognizer. Interim
// results are passed through as they arrive. When Stop ends recognition
// while an utterance is still open, the last interim transcript is
// promoted to a final result.
type StreamingBackend struct {
	handlers

	live LiveRecognizer
	log  *logger.Logger

	mu      sync.Mutex
	running bool
	run     int // bumped on every Start; stale pumps stop forwarding
	cancel  context.CancelFunc
	done    chan struct{}
	pending *domain.RecognitionResult // last interim of the open utterance
}

// NewStreamingBackend wraps a live recognizer.
func NewStreamingBackend(live LiveRecognizer, log *logger.Logger) *StreamingBackend {
	return &StreamingBackend{live: live, log: log}
}

func (b *StreamingBackend) Kind() Kind { return KindStreaming }

// Start opens a recognition session. The session outlives ctx's
// cancellation; it ends on Stop or Abort.
func (b *StreamingBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return nil
	}
	prev := b.done
	b.mu.Unlock()

	// Let the previous recognizer release the device first.
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	results, errs := b.live.Recognize(runCtx)

	b.run++
	b.running = true
	b.cancel = cancel
	b.done = make(chan struct{})
	b.pending = nil

	go b.pump(b.run, results, errs, b.done)
	b.log.Debug("speech/stream: started (run=%d)", b.run)
	return nil
}

// Stop ends the session and synthesises a final result from a trailing
// interim one.
func (b *StreamingBackend) Stop(ctx context.Context) error {
	pending, err := b.halt(ctx)
	if err != nil {
		return err
	}
	if pending != nil {
		final := *pending
		final.Final = true
		b.log.Debug("speech/stream: synthesised final %q", final.Transcript)
		b.emitResult(final)
	}
	return nil
}

// Abort ends the session without a trailing result.
func (b *StreamingBackend) Abort(ctx context.Context) error {
	_, err := b.halt(ctx)
	return err
}

// halt invalidates the running pump and cancels the recognizer. Once it
// returns, forward drops everything from the old run. It does not wait for
// the pump to drain, so it is safe to call from a result callback. Start
// waits for the drain instead.
func (b *StreamingBackend) halt(_ context.Context) (*domain.RecognitionResult, error) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return nil, nil
	}
	b.running = false
	b.run++
	cancel := b.cancel
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()

	cancel()
	return pending, nil
}

func (b *StreamingBackend) pump(run int, results <-chan domain.RecognitionResult, errs <-chan error, done chan struct{}) {
	defer close(done)

	for results != nil || errs != nil {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			b.forward(run, r)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if errors.Is(err, context.Canceled) {
				continue
			}
			if !b.current(run) {
				continue
			}
			b.log.Warn("speech/stream: recognizer error: %v", err)
			b.emitError(domain.NewCaptureError(err))
		}
	}

	b.mu.Lock()
	if b.run == run {
		// The recognizer ended on its own.
		b.running = false
	}
	b.mu.Unlock()
}

func (b *StreamingBackend) forward(run int, r domain.RecognitionResult) {
	r.Transcript = Clean(r.Transcript)

	b.mu.Lock()
	if b.run != run {
		b.mu.Unlock()
		return
	}
	if r.Final {
		b.pending = nil
	} else if r.Transcript != "" {
		p := r
		b.pending = &p
	}
	b.mu.Unlock()

	if !r.Final && r.Transcript == "" {
		return
	}
	b.emitResult(r)
}

func (b *StreamingBackend) current(run int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run == run
}
