// Package speech provides the speech capture backends used by the cooking
// orchestrator: a streaming backend over a live recognizer, and a
// capture-and-submit backend that records audio and sends it to a
// transcription service.
package speech

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

// Audio format shared by the microphone source and the MP3 packager.
const (
	SampleRate   = 16000
	ChannelCount = 1
)

// Kind tells which capture strategy a backend uses.
type Kind int

const (
	KindStreaming Kind = iota
	KindCapture
)

func (k Kind) String() string {
	switch k {
	case KindStreaming:
		return "streaming"
	case KindCapture:
		return "capture"
	default:
		return "unknown"
	}
}

// Backend is a uniform speech capture strategy. Results and errors are
// delivered through the registered callbacks, possibly from another
// goroutine. Callbacks are never invoked while the backend holds a lock,
// so they may call back into the backend.
type Backend interface {
	Kind() Kind
	// Start begins capturing an utterance. Starting a running backend is
	// a no-op.
	Start(ctx context.Context) error
	// Stop finishes the current utterance. Any final result it produces
	// is delivered before Stop returns.
	Stop(ctx context.Context) error
	// Abort tears the backend down, discarding buffered audio. Nothing
	// captured after Abort is delivered, but a callback already running
	// on another goroutine may still finish. Abort may be called from a
	// callback. Consumers drop late results by generation.
	Abort(ctx context.Context) error
	OnResult(fn func(domain.RecognitionResult))
	OnError(fn func(error))
}

// LiveRecognizer is a continuous recognition capability. The result
// channel carries interim results followed by one final result per
// utterance. Both channels are closed when ctx is cancelled or the
// recognizer gives up.
type LiveRecognizer interface {
	Recognize(ctx context.Context) (<-chan domain.RecognitionResult, <-chan error)
}

// AudioSource produces raw S16LE mono PCM frames at SampleRate. Close
// stops the device and closes the frame channel.
type AudioSource interface {
	Open(ctx context.Context) (<-chan []byte, error)
	Close()
}

// Capabilities is the result of probing the host for speech support.
// Nil fields are unavailable.
type Capabilities struct {
	Live        LiveRecognizer
	Mic         AudioSource
	Transcriber domain.Transcriber
}

// NewBackend picks a backend from the probed capabilities. Streaming wins
// when a live recognizer is present. The choice is made once; callers
// keep the returned backend for the whole session.
func NewBackend(probe Capabilities, log *logger.Logger) (Backend, error) {
	switch {
	case probe.Live != nil:
		log.Info("speech: using streaming backend")
		return NewStreamingBackend(probe.Live, log), nil
	case probe.Mic != nil && probe.Transcriber != nil:
		log.Info("speech: using capture-and-submit backend")
		return NewCaptureBackend(probe.Mic, probe.Transcriber, log), nil
	default:
		return nil, &domain.CaptureError{
			Reason: domain.CaptureUnavailable,
			Err:    fmt.Errorf("no live recognizer and no microphone with transcriber: %w", domain.ErrCapabilityUnavailable),
		}
	}
}

// ── Callback plumbing ────────────────────────────────────────────

type handlers struct {
	mu       sync.Mutex
	onResult func(domain.RecognitionResult)
	onError  func(error)
}

func (h *handlers) OnResult(fn func(domain.RecognitionResult)) {
	h.mu.Lock()
	h.onResult = fn
	h.mu.Unlock()
}

func (h *handlers) OnError(fn func(error)) {
	h.mu.Lock()
	h.onError = fn
	h.mu.Unlock()
}

func (h *handlers) emitResult(r domain.RecognitionResult) {
	h.mu.Lock()
	fn := h.onResult
	h.mu.Unlock()
	if fn != nil {
		fn(r)
	}
}

func (h *handlers) emitError(err error) {
	h.mu.Lock()
	fn := h.onError
	h.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
