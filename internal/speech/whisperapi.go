package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

var _ domain.Transcriber = (*WhisperAPI)(nil)

// WhisperAPI transcribes MP3 payloads with the hosted Whisper model.
type WhisperAPI struct {
	client openai.Client
	log    *logger.Logger
}

// NewWhisperAPI creates a transcriber. Extra request options (base URL,
// HTTP client) are passed through to the OpenAI client.
func NewWhisperAPI(apiKey string, log *logger.Logger, opts ...option.RequestOption) (*WhisperAPI, error) {
	if apiKey == "" {
		return nil, errors.New("whisper api: API key required (VIBECOOK_OPENAI_API_KEY)")
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &WhisperAPI{client: openai.NewClient(opts...), log: log}, nil
}

// Transcribe uploads the audio and returns the recognised text.
func (w *WhisperAPI) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	params := openai.AudioTranscriptionNewParams{
		File:  namedAudio{Reader: audio},
		Model: openai.AudioModelWhisper1,
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("whisper api: %w", err)
	}
	w.log.Debug("whisper api: transcribed %q", resp.Text)
	return resp.Text, nil
}

// namedAudio gives the multipart upload a filename so the service can
// detect the format.
type namedAudio struct {
	io.Reader
}

func (namedAudio) Name() string        { return "utterance.mp3" }
func (namedAudio) Filename() string    { return "utterance.mp3" }
func (namedAudio) ContentType() string { return "audio/mpeg" }
