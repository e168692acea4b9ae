// Package ffmpeg preprocesses recorded clips with ffmpeg filter chains
// before they reach a speech provider.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Processor runs ffmpeg over recorded clips. It degrades rather than fails:
// when ffmpeg is missing, preprocessing is disabled, or the engine errors,
// callers get the untouched input path back and transcription proceeds.
type Processor struct {
	logger  *zap.Logger
	filters *FilterSet

	available bool

	mu      sync.Mutex
	enabled bool

	denoiserOnce sync.Once
	hasDenoiser  bool

	// Test seams; production values are set by NewProcessor.
	runFn   func(ctx context.Context, args []string) error
	probeFn func(ctx context.Context) (string, error)
}

// NewProcessor probes for ffmpeg on the search path and returns a processor
// with the default filter set, enabled.
func NewProcessor(logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}

	_, lookErr := exec.LookPath("ffmpeg")
	p := &Processor{
		logger:    logger,
		filters:   DefaultFilters(),
		available: lookErr == nil,
		enabled:   true,
	}
	p.runFn = p.runFFmpeg
	p.probeFn = p.listFilters

	if !p.available {
		logger.Warn("ffmpeg not found, audio enhancement disabled")
	}
	return p
}

// Available reports whether the ffmpeg binary was found at construction.
func (p *Processor) Available() bool { return p.available }

// Enabled reports whether preprocessing is administratively on.
func (p *Processor) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled turns preprocessing on or off without touching availability.
func (p *Processor) SetEnabled(enabled bool) {
	p.mu.Lock()
	p.enabled = enabled
	p.mu.Unlock()
	p.logger.Info("noise reduction toggled", zap.Bool("enabled", enabled))
}

// Filters exposes the standard filter set for configuration.
func (p *Processor) Filters() *FilterSet { return p.filters }

// Process applies the standard filter chain. With an empty outputPath the
// input file is replaced in place through a temporary sibling file; the
// temporary never outlives the call. The returned path is always usable: on
// any failure it is the original input.
func (p *Processor) Process(ctx context.Context, inputPath, outputPath string) string {
	return p.process(ctx, inputPath, outputPath, p.filters.Chain())
}

// ProcessAdvanced applies the enhanced chain (rumble/hiss filters, optional
// RNN denoiser, compression, loudness normalization). The denoiser stage is
// used only when requested and the local ffmpeg build reports it.
func (p *Processor) ProcessAdvanced(ctx context.Context, inputPath, outputPath string, useDenoiser bool) string {
	denoise := false
	if useDenoiser {
		if p.HasDenoiser(ctx) {
			denoise = true
		} else {
			p.logger.Info("arnndn filter not available, using standard advanced chain")
		}
	}
	return p.process(ctx, inputPath, outputPath, AdvancedChain(denoise))
}

// HasDenoiser reports whether this ffmpeg build ships the arnndn RNN
// denoiser. The probe runs once and is memoized.
func (p *Processor) HasDenoiser(ctx context.Context) bool {
	if !p.available {
		return false
	}
	p.denoiserOnce.Do(func() {
		out, err := p.probeFn(ctx)
		if err != nil {
			p.logger.Debug("ffmpeg filter probe failed", zap.Error(err))
			return
		}
		p.hasDenoiser = strings.Contains(out, "arnndn")
	})
	return p.hasDenoiser
}

func (p *Processor) process(ctx context.Context, inputPath, outputPath, chain string) string {
	if !p.available {
		p.logger.Debug("ffmpeg not available, returning original audio")
		return inputPath
	}
	if !p.Enabled() {
		p.logger.Debug("noise reduction disabled, returning original audio")
		return inputPath
	}

	inPlace := outputPath == ""
	if inPlace {
		// Temp sibling of the input so the final rename stays on one volume.
		tmp, err := os.CreateTemp(filepath.Dir(inputPath), ".termina-*.wav")
		if err != nil {
			p.logger.Warn("create temp output failed, returning original audio", zap.Error(err))
			return inputPath
		}
		outputPath = tmp.Name()
		if err := tmp.Close(); err != nil {
			p.logger.Warn("close temp output failed, returning original audio", zap.Error(err))
			os.Remove(outputPath)
			return inputPath
		}
	}

	args := []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", inputPath,
		"-af", chain,
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		outputPath,
	}

	p.logger.Debug("processing audio", zap.String("chain", chain), zap.String("input", inputPath))
	if err := p.runFn(ctx, args); err != nil {
		p.logger.Warn("ffmpeg processing failed, returning original audio", zap.Error(err))
		removeIfExists(outputPath)
		return inputPath
	}

	if inPlace {
		if err := os.Rename(outputPath, inputPath); err != nil {
			p.logger.Warn("replace input with processed audio failed", zap.Error(err))
			removeIfExists(outputPath)
		}
		return inputPath
	}

	return outputPath
}

func (p *Processor) runFFmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stdout = &stderr
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText != "" {
			return errors.New(errText)
		}
		return err
	}
	return nil
}

func (p *Processor) listFilters(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "ffmpeg", "-hide_banner", "-filters").CombinedOutput()
	return string(out), err
}

func removeIfExists(path string) {
	_ = os.Remove(path)
}
