package provider

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/ffmpeg"
)

// OpenAIProvider transcribes through the hosted Whisper API. It is available
// iff a credential was configured when it was constructed; the credential is
// never re-read for the life of the instance.
type OpenAIProvider struct {
	apiKey    string
	language  string
	processor *ffmpeg.Processor
	logger    *zap.Logger

	createFn func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// NewOpenAIProvider builds the cloud backend. An empty apiKey yields a
// permanently unavailable provider.
func NewOpenAIProvider(apiKey, language string, processor *ffmpeg.Processor, logger *zap.Logger) *OpenAIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &OpenAIProvider{
		apiKey:    apiKey,
		language:  language,
		processor: processor,
		logger:    logger,
	}
	if apiKey != "" {
		client := openai.NewClient(apiKey)
		p.createFn = client.CreateTranscription
	}
	return p
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) DisplayName() string { return "OpenAI Whisper API" }

func (p *OpenAIProvider) RequiresInternet() bool { return true }

func (p *OpenAIProvider) Available() bool { return p.apiKey != "" }

// Model names the hosted model; it is fixed.
func (p *OpenAIProvider) Model() string { return string(openai.Whisper1) }

// Transcribe runs standard preprocessing, then forwards the clip to the API
// with the configured target language. One attempt; any transport or service
// error comes back as-is.
func (p *OpenAIProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !p.Available() {
		return "", fmt.Errorf("openai: %w", ErrProviderUnavailable)
	}

	if p.processor != nil {
		audioPath = p.processor.Process(ctx, audioPath, "")
	}

	if err := checkAudioFile(audioPath); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	p.logger.Debug("sending clip to whisper api",
		zap.String("audio", audioPath), zap.String("language", p.language))

	resp, err := p.createFn(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Language: p.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("openai: %w", ErrNoTranscript)
	}
	return text, nil
}
