package speech

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/vibecook/internal/domain"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  next step  ", "next step"},
		{"[BLANK_AUDIO]", ""},
		{"(keyboard clicking) go back", "go back"},
		{"next\nstep", "next step"},
		{"[00:00:00.000 --> 00:00:02.000]  repeat", "repeat"},
		{"Thank you.", ""},
		{"you", ""},
		{"thank you chef", "thank you chef"},
		{"(music) [laughter]", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

// scripted returns a chunkFunc that replays chunks, then blocks until ctx
// is cancelled.
func scripted(chunks ...string) chunkFunc {
	i := 0
	return func(ctx context.Context, _ time.Duration) (string, error) {
		if i < len(chunks) {
			c := chunks[i]
			i++
			return c, nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	}
}

func collectResults(t *testing.T, ch <-chan domain.RecognitionResult, n int) []domain.RecognitionResult {
	t.Helper()
	var out []domain.RecognitionResult
	for len(out) < n {
		select {
		case r, ok := <-ch:
			require.True(t, ok, "results closed after %d of %d", len(out), n)
			out = append(out, r)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d results", len(out), n)
		}
	}
	return out
}

func TestWhisperRecognizerUtterances(t *testing.T) {
	w := NewWhisperRecognizer("whisper-cli", "model.bin", quietLog(), WithSilenceChunks(2))
	w.record = scripted("[BLANK_AUDIO]", "next", "step", "", "(music)", "repeat", "", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results, _ := w.Recognize(ctx)

	got := collectResults(t, results, 5)
	assert.Equal(t, []domain.RecognitionResult{
		{Transcript: "next", Confidence: 0.5},
		{Transcript: "next step", Confidence: 0.5},
		{Transcript: "next step", Final: true, Confidence: 1},
		{Transcript: "repeat", Confidence: 0.5},
		{Transcript: "repeat", Final: true, Confidence: 1},
	}, got)

	cancel()
	for range results {
	}
}

func TestWhisperRecognizerListenTimeout(t *testing.T) {
	w := NewWhisperRecognizer("whisper-cli", "model.bin", quietLog(), WithListenTimeout(0))
	w.record = scripted("keep talking")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	results, _ := w.Recognize(ctx)

	got := collectResults(t, results, 2)
	assert.False(t, got[0].Final)
	assert.Equal(t, domain.RecognitionResult{Transcript: "keep talking", Final: true, Confidence: 1}, got[1])
}

func TestWhisperRecognizerRecordError(t *testing.T) {
	w := NewWhisperRecognizer("whisper-cli", "model.bin", quietLog())
	w.record = func(context.Context, time.Duration) (string, error) { return "", errBoom }

	results, errs := w.Recognize(context.Background())
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, errBoom)
	case <-time.After(time.Second):
		t.Fatal("expected an error")
	}
	for range results {
	}
}
