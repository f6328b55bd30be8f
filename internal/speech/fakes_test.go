package speech

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/hammamikhairi/vibecook/internal/domain"
)

// ── Fake live recognizer ─────────────────────────────────────────

type fakeLive struct {
	mu      sync.Mutex
	results chan domain.RecognitionResult
	errs    chan error
	calls   int
}

func (f *fakeLive) Recognize(ctx context.Context) (<-chan domain.RecognitionResult, <-chan error) {
	f.mu.Lock()
	f.calls++
	in := make(chan domain.RecognitionResult, 16)
	inErr := make(chan error, 1)
	f.results, f.errs = in, inErr
	f.mu.Unlock()

	out := make(chan domain.RecognitionResult)
	outErr := make(chan error)
	go func() {
		defer close(out)
		defer close(outErr)
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-in:
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			case err := <-inErr:
				select {
				case outErr <- err:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return out, outErr
}

func (f *fakeLive) say(r domain.RecognitionResult) {
	f.mu.Lock()
	ch := f.results
	f.mu.Unlock()
	ch <- r
}

func (f *fakeLive) fail(err error) {
	f.mu.Lock()
	ch := f.errs
	f.mu.Unlock()
	ch <- err
}

// ── Fake audio source ────────────────────────────────────────────

type fakeMic struct {
	mu      sync.Mutex
	frames  chan []byte
	openErr error
	opens   int
	closes  int
}

func (m *fakeMic) Open(context.Context) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opens++
	m.frames = make(chan []byte, 64)
	return m.frames, nil
}

func (m *fakeMic) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frames == nil {
		return
	}
	m.closes++
	close(m.frames)
	m.frames = nil
}

func (m *fakeMic) feed(pcm []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames <- pcm
}

// ── Fake transcriber ─────────────────────────────────────────────

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	bytes int
	block chan struct{} // when set, Transcribe waits on it or ctx
}

func (t *fakeTranscriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	data, _ := io.ReadAll(audio)
	t.mu.Lock()
	t.calls++
	t.bytes = len(data)
	block, text, err := t.block, t.text, t.err
	t.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (t *fakeTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// ── Result recorder ──────────────────────────────────────────────

type sink struct {
	mu      sync.Mutex
	results []domain.RecognitionResult
	errs    []error
}

func attach(b Backend) *sink {
	s := &sink{}
	b.OnResult(func(r domain.RecognitionResult) {
		s.mu.Lock()
		s.results = append(s.results, r)
		s.mu.Unlock()
	})
	b.OnError(func(err error) {
		s.mu.Lock()
		s.errs = append(s.errs, err)
		s.mu.Unlock()
	})
	return s
}

func (s *sink) snapshot() ([]domain.RecognitionResult, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RecognitionResult(nil), s.results...), append([]error(nil), s.errs...)
}

var errBoom = errors.New("boom")

func pcm(samples int) []byte {
	out := make([]byte, samples*2)
	for i := range samples {
		v := int16((i % 64) * 256)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
