package speech

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

var _ LiveRecognizer = (*WhisperRecognizer)(nil)

// WhisperOption configures the WhisperRecognizer.
type WhisperOption func(*WhisperRecognizer)

// WithChunkDuration sets how long each recorded chunk lasts.
func WithChunkDuration(d time.Duration) WhisperOption {
	return func(w *WhisperRecognizer) { w.chunk = d }
}

// WithListenTimeout caps a single utterance. When it expires the words
// heard so far are finalised.
func WithListenTimeout(d time.Duration) WhisperOption {
	return func(w *WhisperRecognizer) { w.listenTimeout = d }
}

// WithTempDir sets the directory for temporary WAV files.
func WithTempDir(dir string) WhisperOption {
	return func(w *WhisperRecognizer) { w.tempDir = dir }
}

// WithSilenceChunks sets how many empty chunks after speech end an
// utterance.
func WithSilenceChunks(n int) WhisperOption {
	return func(w *WhisperRecognizer) { w.silenceChunks = n }
}

// chunkFunc records for d and returns the raw transcript.
type chunkFunc func(ctx context.Context, d time.Duration) (string, error)

// WhisperRecognizer is a live recognizer built from short chunks
// transcribed by a local whisper-cli model. Every chunk with speech
// produces an interim result carrying the utterance so far. A run of
// silent chunks after speech, or the listen timeout, produces the final
// result.
type WhisperRecognizer struct {
	bin   string
	model string
	log   *logger.Logger

	tempDir       string
	chunk         time.Duration
	listenTimeout time.Duration
	silenceChunks int

	record chunkFunc
}

// NewWhisperRecognizer creates a recognizer for the given whisper-cli
// binary and GGML model.
func NewWhisperRecognizer(bin, model string, log *logger.Logger, opts ...WhisperOption) *WhisperRecognizer {
	w := &WhisperRecognizer{
		bin:           bin,
		model:         model,
		log:           log,
		tempDir:       ".vibecook-stt",
		chunk:         1500 * time.Millisecond,
		listenTimeout: 15 * time.Second,
		silenceChunks: 2,
	}
	for _, o := range opts {
		o(w)
	}
	w.record = w.recordChunk
	return w
}

// Available reports whether the whisper binary and model can be found.
func (w *WhisperRecognizer) Available() bool {
	if _, err := exec.LookPath(w.bin); err != nil {
		w.log.Debug("whisper: binary %s not found: %v", w.bin, err)
		return false
	}
	if _, err := os.Stat(w.model); err != nil {
		w.log.Debug("whisper: model %s not found: %v", w.model, err)
		return false
	}
	return true
}

// Recognize starts the chunk loop. It stops when ctx is cancelled or a
// chunk fails to record.
func (w *WhisperRecognizer) Recognize(ctx context.Context) (<-chan domain.RecognitionResult, <-chan error) {
	results := make(chan domain.RecognitionResult, 8)
	errs := make(chan error, 1)

	go func() {
		defer close(results)
		defer close(errs)
		w.loop(ctx, results, errs)
	}()
	return results, errs
}

func (w *WhisperRecognizer) loop(ctx context.Context, results chan<- domain.RecognitionResult, errs chan<- error) {
	w.log.Debug("whisper: listening (chunk=%s, timeout=%s)", w.chunk, w.listenTimeout)

	var (
		parts   []string
		empty   int
		started time.Time
	)

	send := func(r domain.RecognitionResult) bool {
		select {
		case results <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}
	finalise := func() bool {
		text := strings.Join(parts, " ")
		parts, empty = nil, 0
		w.log.Debug("whisper: utterance %q", text)
		return send(domain.RecognitionResult{Transcript: text, Final: true, Confidence: 1})
	}

	for ctx.Err() == nil {
		raw, err := w.record(ctx, w.chunk)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			errs <- err
			return
		}

		text := Clean(raw)
		if text == "" {
			if len(parts) == 0 {
				continue
			}
			empty++
			if empty >= w.silenceChunks && !finalise() {
				return
			}
			continue
		}

		if len(parts) == 0 {
			started = time.Now()
		}
		empty = 0
		parts = append(parts, text)
		if !send(domain.RecognitionResult{Transcript: strings.Join(parts, " "), Confidence: 0.5}) {
			return
		}

		if time.Since(started) >= w.listenTimeout && !finalise() {
			return
		}
	}
}

// recordChunk does one recording cycle with the whisper-cli recorder and
// returns the transcribed text.
func (w *WhisperRecognizer) recordChunk(ctx context.Context, d time.Duration) (string, error) {
	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)
	callback := func(text string) {
		result = text
		wg.Done()
	}

	if err := os.MkdirAll(w.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("whisper: temp dir: %w", err)
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(w.bin, w.model, w.tempDir, "wav", callback, verbose)
	if err != nil {
		return "", fmt.Errorf("whisper: init transcriber: %w: %w", domain.ErrCapabilityUnavailable, err)
	}
	if err := t.Start(); err != nil {
		return "", fmt.Errorf("whisper: start recording: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	t.Stop()
	wg.Wait()

	return result, nil
}
