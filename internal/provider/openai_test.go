package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenAIUnavailableWithoutKey(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("", "ja", nil, zap.NewNop())
	require.False(t, p.Available())

	_, err := p.Transcribe(context.Background(), "ignored.wav")
	require.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestOpenAITranscribe(t *testing.T) {
	t.Parallel()

	clip := testClip(t)
	p := NewOpenAIProvider("sk-test", "ja", nil, zap.NewNop())

	var gotReq openai.AudioRequest
	p.createFn = func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		gotReq = req
		return openai.AudioResponse{Text: "  hello from the cloud \n"}, nil
	}

	text, err := p.Transcribe(context.Background(), clip)
	require.NoError(t, err)
	require.Equal(t, "hello from the cloud", text)
	require.Equal(t, openai.Whisper1, gotReq.Model)
	require.Equal(t, clip, gotReq.FilePath)
	require.Equal(t, "ja", gotReq.Language)
}

func TestOpenAITranscribeRejectsEmptyClipBeforeUpload(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("sk-test", "ja", nil, zap.NewNop())
	p.createFn = func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		t.Fatal("empty clip must never reach the service")
		return openai.AudioResponse{}, nil
	}

	empty := filepath.Join(t.TempDir(), "empty.wav")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	_, err := p.Transcribe(context.Background(), empty)
	require.ErrorIs(t, err, ErrNoTranscript)
}

func TestOpenAITranscribeServiceError(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("sk-test", "ja", nil, zap.NewNop())
	svcErr := errors.New("429 rate limited")
	p.createFn = func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		return openai.AudioResponse{}, svcErr
	}

	_, err := p.Transcribe(context.Background(), testClip(t))
	require.ErrorIs(t, err, svcErr)
}

func TestOpenAITranscribeEmptyResponse(t *testing.T) {
	t.Parallel()

	p := NewOpenAIProvider("sk-test", "ja", nil, zap.NewNop())
	p.createFn = func(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error) {
		return openai.AudioResponse{Text: "   "}, nil
	}

	_, err := p.Transcribe(context.Background(), testClip(t))
	require.ErrorIs(t, err, ErrNoTranscript)
}
