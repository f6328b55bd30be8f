package speech

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

var _ Backend = (*CaptureBackend)(nil)

// CaptureOption configures the CaptureBackend.
type CaptureOption func(*CaptureBackend)

// WithSampleRate sets the PCM sample rate the audio source produces.
func WithSampleRate(rate int) CaptureOption {
	return func(b *CaptureBackend) { b.sampleRate = rate }
}

// CaptureBackend records one utterance at a time. Stop packages the
// recording as MP3, submits it to the transcriber and emits exactly one
// final result.
type CaptureBackend struct {
	handlers

	src        AudioSource
	tr         domain.Transcriber
	log        *logger.Logger
	sampleRate int

	mu        sync.Mutex
	recording bool
	gen       int // bumped by Abort; a submission from an older gen is dropped
	collected chan []byte
	submit    context.CancelFunc
}

// NewCaptureBackend wraps an audio source and a transcriber.
func NewCaptureBackend(src AudioSource, tr domain.Transcriber, log *logger.Logger, opts ...CaptureOption) *CaptureBackend {
	b := &CaptureBackend{
		src:        src,
		tr:         tr,
		log:        log,
		sampleRate: SampleRate,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *CaptureBackend) Kind() Kind { return KindCapture }

// Start opens the audio source and buffers frames until Stop or Abort.
func (b *CaptureBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording {
		return nil
	}

	frames, err := b.src.Open(ctx)
	if err != nil {
		b.log.Warn("speech/capture: open audio source: %v", err)
		return domain.NewCaptureError(err)
	}

	b.recording = true
	b.collected = make(chan []byte, 1)
	go collect(frames, b.collected)

	b.log.Debug("speech/capture: recording")
	return nil
}

// collect buffers frames until the source closes the channel.
func collect(frames <-chan []byte, out chan<- []byte) {
	var pcm []byte
	for f := range frames {
		pcm = append(pcm, f...)
	}
	out <- pcm
}

// Stop finalises the recording and delivers its transcript. An empty
// recording yields an empty final result without contacting the
// transcriber. Transcription failures are reported through OnError as a
// *domain.TranscriptionError and returned.
func (b *CaptureBackend) Stop(ctx context.Context) error {
	pcm, gen, ok := b.finish()
	if !ok {
		return nil
	}

	if len(pcm) == 0 {
		b.log.Debug("speech/capture: empty recording")
		b.deliver(gen, domain.RecognitionResult{Final: true})
		return nil
	}

	var payload bytes.Buffer
	if err := EncodeMP3(&payload, pcm, b.sampleRate); err != nil {
		terr := &domain.TranscriptionError{Err: err}
		b.fail(gen, terr)
		return terr
	}

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.mu.Lock()
	if b.gen != gen {
		b.mu.Unlock()
		return nil
	}
	b.submit = cancel
	b.mu.Unlock()

	b.log.Debug("speech/capture: submitting %d bytes of PCM as %d bytes of MP3", len(pcm), payload.Len())
	text, err := b.tr.Transcribe(subCtx, &payload)

	b.mu.Lock()
	b.submit = nil
	stale := b.gen != gen
	b.mu.Unlock()
	if stale {
		b.log.Debug("speech/capture: dropping result of aborted submission")
		return nil
	}

	if err != nil {
		terr := &domain.TranscriptionError{Err: err}
		b.fail(gen, terr)
		return terr
	}

	b.deliver(gen, domain.RecognitionResult{Transcript: Clean(text), Final: true, Confidence: 1})
	return nil
}

// Abort stops recording, cancels an in-flight submission and drops the
// buffered audio.
func (b *CaptureBackend) Abort(ctx context.Context) error {
	b.mu.Lock()
	b.gen++
	wasRecording := b.recording
	b.recording = false
	submit := b.submit
	b.submit = nil
	collected := b.collected
	b.mu.Unlock()

	if submit != nil {
		submit()
	}
	if !wasRecording {
		return nil
	}

	b.src.Close()
	return waitClosed(ctx, collected)
}

// finish stops recording and takes ownership of the buffered audio.
func (b *CaptureBackend) finish() ([]byte, int, bool) {
	b.mu.Lock()
	if !b.recording {
		b.mu.Unlock()
		return nil, 0, false
	}
	b.recording = false
	gen := b.gen
	collected := b.collected
	b.mu.Unlock()

	b.src.Close()
	return <-collected, gen, true
}

func (b *CaptureBackend) deliver(gen int, r domain.RecognitionResult) {
	b.mu.Lock()
	stale := b.gen != gen
	b.mu.Unlock()
	if stale {
		return
	}
	b.emitResult(r)
}

func (b *CaptureBackend) fail(gen int, err error) {
	b.mu.Lock()
	stale := b.gen != gen
	b.mu.Unlock()
	if stale {
		return
	}
	b.log.Warn("speech/capture: %v", err)
	b.emitError(err)
}

func waitClosed(ctx context.Context, ch <-chan []byte) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audio source did not close"), ctx.Err())
	}
}
