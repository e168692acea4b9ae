package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/ffmpeg"
	"github.com/termina-app/termina/internal/models"
	"github.com/termina-app/termina/internal/transcript"
)

// BundledProvider drives a whisper engine shipped next to the termina binary
// instead of one installed on the PATH. The engine is resolved once at
// construction; the model is loaded lazily on the first transcription and
// reloaded only when the selection changes.
type BundledProvider struct {
	store     *models.Store
	processor *ffmpeg.Processor
	language  string
	logger    *zap.Logger

	enginePath string

	mu        sync.Mutex
	modelName string
	modelPath string

	runFn func(ctx context.Context, bin string, args []string) (string, error)
}

// NewBundledProvider resolves the bundled engine binary. TERMINA_WHISPER_PATH
// overrides the search next to the executable.
func NewBundledProvider(store *models.Store, processor *ffmpeg.Processor, language string, logger *zap.Logger) *BundledProvider {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &BundledProvider{
		store:     store,
		processor: processor,
		language:  language,
		logger:    logger,
	}
	p.runFn = runCommand

	if override := strings.TrimSpace(os.Getenv("TERMINA_WHISPER_PATH")); override != "" {
		if isExecutable(override) {
			p.enginePath = override
		} else {
			logger.Warn("TERMINA_WHISPER_PATH is not executable", zap.String("path", override))
		}
		return p
	}

	exe, err := os.Executable()
	if err != nil {
		logger.Debug("resolve executable path failed", zap.Error(err))
		return p
	}

	for _, candidate := range engineCandidates(exe) {
		if isExecutable(candidate) {
			p.enginePath = candidate
			logger.Debug("bundled engine found", zap.String("engine", candidate))
			break
		}
	}
	return p
}

func engineCandidates(exe string) []string {
	binDir := filepath.Dir(exe)
	name := "whisper-cli"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return []string{
		filepath.Join(binDir, "..", "libexec", "whisper", name),
		filepath.Join(binDir, "libexec", "whisper", name),
		filepath.Join(binDir, name),
	}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return runtime.GOOS == "windows" || info.Mode()&0o111 != 0
}

func (p *BundledProvider) Name() string { return "bundled" }

func (p *BundledProvider) DisplayName() string { return "Bundled Whisper engine" }

func (p *BundledProvider) RequiresInternet() bool { return false }

// Available reports whether the bundled engine binary resolved. Model
// presence is checked lazily at transcription time.
func (p *BundledProvider) Available() bool { return p.enginePath != "" }

// Model returns the loaded model name, empty before the first transcription.
func (p *BundledProvider) Model() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modelName
}

// SetModel explicitly reloads the selection. Failure leaves the prior model
// in place.
func (p *BundledProvider) SetModel(name string) error {
	if !p.store.Has(name) {
		return fmt.Errorf("model %q not found at %s", name, p.store.Path(name))
	}

	p.mu.Lock()
	p.modelName = name
	p.modelPath = p.store.Path(name)
	p.mu.Unlock()
	return nil
}

// ensureModel resolves the current model lazily, preferring the best
// installed artifact when nothing was selected yet.
func (p *BundledProvider) ensureModel() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.modelPath != "" {
		return p.modelPath, nil
	}

	best := p.store.BestInstalled()
	if best == "" {
		return "", fmt.Errorf("no models installed in %s: %w", p.store.Dir(), ErrProviderUnavailable)
	}

	p.modelName = best
	p.modelPath = p.store.Path(best)
	p.logger.Debug("loaded model", zap.String("model", best))
	return p.modelPath, nil
}

// Transcribe applies standard preprocessing, conditions the waveform by hand
// (resample, normalize, gate), and runs the bundled engine. When conditioning
// fails the engine loads the unconditioned file itself.
func (p *BundledProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if !p.Available() {
		return "", fmt.Errorf("bundled: %w", ErrProviderUnavailable)
	}

	if err := checkAudioFile(audioPath); err != nil {
		return "", fmt.Errorf("bundled: %w", err)
	}

	modelPath, err := p.ensureModel()
	if err != nil {
		return "", fmt.Errorf("bundled: %w", err)
	}

	if p.processor != nil {
		audioPath = p.processor.Process(ctx, audioPath, "")
	}

	engineInput := audioPath
	conditioned, err := conditionWaveform(audioPath)
	if err != nil {
		p.logger.Warn("waveform conditioning failed, letting the engine load the file", zap.Error(err))
	} else {
		engineInput = conditioned
		defer os.Remove(conditioned)
	}

	args := []string{
		"-m", modelPath,
		"-f", engineInput,
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

	out, err := p.runFn(runCtx, p.enginePath, args)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("bundled engine timed out after %s: %w", transcribeTimeout, ErrNoTranscript)
		}
		return "", fmt.Errorf("bundled engine: %w", err)
	}

	text := transcript.Clean(out)
	if text == "" {
		return "", fmt.Errorf("bundled engine returned empty text: %w", ErrNoTranscript)
	}
	return text, nil
}
