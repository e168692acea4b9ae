package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/ffmpeg"
	"github.com/termina-app/termina/internal/models"
	"github.com/termina-app/termina/internal/transcript"
)

// transcribeTimeout bounds one whisper-cli run. A run that exceeds it yields
// no transcript, never partial text.
const transcribeTimeout = 5 * time.Minute

// WhisperCLIProvider runs a whisper-cli executable found on the search path
// against models from the local store. Availability requires both the
// executable and at least one installed model.
type WhisperCLIProvider struct {
	store     *models.Store
	processor *ffmpeg.Processor
	language  string
	logger    *zap.Logger

	cliPath   string
	available bool

	mu        sync.Mutex
	modelName string
	modelPath string

	runFn func(ctx context.Context, bin string, args []string) (string, error)
}

// NewWhisperCLIProvider probes the PATH and the model store once. The current
// model defaults to the first installed artifact.
func NewWhisperCLIProvider(store *models.Store, processor *ffmpeg.Processor, language string, logger *zap.Logger) *WhisperCLIProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &WhisperCLIProvider{
		store:     store,
		processor: processor,
		language:  language,
		logger:    logger,
	}
	p.runFn = runCommand

	cliPath, err := exec.LookPath("whisper-cli")
	if err != nil {
		logger.Debug("whisper-cli not found on PATH")
		return p
	}
	p.cliPath = cliPath

	installed := store.Installed()
	if len(installed) == 0 {
		logger.Debug("no whisper models installed", zap.String("dir", store.Dir()))
		return p
	}

	p.modelName = installed[0]
	p.modelPath = store.Path(installed[0])
	p.available = true
	logger.Debug("whisper-cli provider ready",
		zap.String("cli", cliPath), zap.String("model", p.modelName))
	return p
}

func (p *WhisperCLIProvider) Name() string { return "whisper-cli" }

func (p *WhisperCLIProvider) DisplayName() string {
	return fmt.Sprintf("Whisper.cpp (%s)", p.Model())
}

func (p *WhisperCLIProvider) RequiresInternet() bool { return false }

func (p *WhisperCLIProvider) Available() bool { return p.available }

// Model returns the currently selected model name.
func (p *WhisperCLIProvider) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modelName
}

// Models lists installed model names.
func (p *WhisperCLIProvider) Models() []string {
	return p.store.Installed()
}

// SetModel switches the current model. A missing artifact is an error and
// leaves the prior selection untouched.
func (p *WhisperCLIProvider) SetModel(name string) error {
	if !p.store.Has(name) {
		return fmt.Errorf("model %q not found at %s", name, p.store.Path(name))
	}

	p.mu.Lock()
	p.modelName = name
	p.modelPath = p.store.Path(name)
	p.mu.Unlock()

	p.logger.Info("switched whisper model", zap.String("model", name))
	return nil
}

// Transcribe applies advanced preprocessing in place, then runs whisper-cli
// with deterministic decoding settings under a hard timeout. Stdout passes
// through the transcript cleaner before being returned.
func (p *WhisperCLIProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !p.available {
		return "", fmt.Errorf("whisper-cli: %w", ErrProviderUnavailable)
	}

	if err := checkAudioFile(audioPath); err != nil {
		return "", fmt.Errorf("whisper-cli: %w", err)
	}

	if p.processor != nil {
		audioPath = p.processor.ProcessAdvanced(ctx, audioPath, "", false)
	}

	p.mu.Lock()
	modelPath := p.modelPath
	p.mu.Unlock()

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"--language", p.language,
		"--threads", "4",
		"--no-prints",
		"--no-timestamps",
		"--temperature", "0.0",
		"--beam-size", "5",
		"--best-of", "5",
	}

	runCtx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()

	p.logger.Debug("running whisper-cli", zap.Strings("args", args))
	out, err := p.runFn(runCtx, p.cliPath, args)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("whisper-cli timed out after %s: %w", transcribeTimeout, ErrNoTranscript)
		}
		return "", fmt.Errorf("whisper-cli: %w", err)
	}

	text := transcript.Clean(out)
	if text == "" {
		return "", fmt.Errorf("whisper-cli returned empty text: %w", ErrNoTranscript)
	}
	return text, nil
}

func runCommand(ctx context.Context, bin string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return "", fmt.Errorf("%w (%s)", err, errText)
		}
		return "", err
	}
	return stdout.String(), nil
}
