package speech

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"diary-companion/internal/locale"
)

// OpenAITranscriber usa el endpoint de transcripciones de audio.
type OpenAITranscriber struct {
	client oai.Client
	model  string
	logger *zap.Logger
}

func NewOpenAITranscriber(apiKey, baseURL, model string, timeout time.Duration, logger *zap.Logger) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = string(oai.AudioModelWhisper1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	return &OpenAITranscriber{client: oai.NewClient(opts...), model: model, logger: logger}, nil
}

// Transcribe envia el audio con la etiqueta de idioma de la sesion ("fr-FR" se envia como "fr").
func (t *OpenAITranscriber) Transcribe(ctx context.Context, audio io.Reader, lang string) (string, error) {
	if audio == nil {
		return "", ErrEmptyAudio
	}
	br := bufio.NewReader(audio)
	if _, err := br.Peek(1); err != nil {
		return "", ErrEmptyAudio
	}

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(br, "speech.webm", "audio/webm"),
		Model: oai.AudioModel(t.model),
	}
	if lang = locale.Normalize(lang); lang != "" {
		params.Language = oai.String(lang)
	}
	res, err := t.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		t.logger.Warn("transcription failed", zap.String("model", t.model), zap.Error(err))
		return "", fmt.Errorf("openai: transcription: %w", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
