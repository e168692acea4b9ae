// Package session drives one dictation end to end: record, preprocess,
// transcribe, inject, remember.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/audio"
	"github.com/termina-app/termina/internal/provider"
	"github.com/termina-app/termina/internal/storage"
)

// ErrBusy means a dictation is already in flight; concurrent toggles and
// provider switches are rejected instead of queued.
var ErrBusy = errors.New("dictation already in progress")

// lowSignalRMS flags clips that are probably silence or a muted microphone.
// Clip RMS is on the raw int16 sample scale where speech sits in the
// thousands.
const lowSignalRMS = 500.0

// AudioSource records microphone audio.
type AudioSource interface {
	Start() error
	Recording() bool
	Stop() (audio.Clip, error)
}

// Selector resolves the provider for a transcription.
type Selector interface {
	Select(explicit string) (provider.Provider, error)
}

// TextSink delivers the final transcript to the user.
type TextSink interface {
	Inject(ctx context.Context, text string) error
}

// History persists finished dictations. Optional.
type History interface {
	Insert(d *storage.Dictation) error
}

// Session owns the recording state machine. One dictation at a time; the
// busy flag covers the whole stop-transcribe-inject pipeline, not just the
// recording.
type Session struct {
	source   AudioSource
	selector Selector
	sink     TextSink
	history  History
	logger   *zap.Logger

	language  string
	busy      atomic.Bool
	finishing atomic.Bool

	mu        sync.Mutex
	preferred string
}

type Options struct {
	Source   AudioSource
	Selector Selector
	Sink     TextSink
	History  History
	Language string
	// Preferred is the saved provider preference, a name or "auto".
	Preferred string
	Logger    *zap.Logger
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	preferred := opts.Preferred
	if preferred == "auto" {
		preferred = ""
	}

	return &Session{
		source:    opts.Source,
		selector:  opts.Selector,
		sink:      opts.Sink,
		history:   opts.History,
		logger:    logger,
		language:  opts.Language,
		preferred: preferred,
	}
}

// Recording reports whether the microphone is currently open.
func (s *Session) Recording() bool {
	return s.source.Recording()
}

// Busy reports whether a dictation pipeline is in flight.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Start opens the microphone. A second start while busy returns ErrBusy.
func (s *Session) Start() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}

	if err := s.source.Start(); err != nil {
		s.busy.Store(false)
		return fmt.Errorf("start recording: %w", err)
	}

	s.logger.Info("recording started")
	return nil
}

// SetPreferredProvider updates the provider preference for the next
// dictation. Switching mid-dictation is rejected.
func (s *Session) SetPreferredProvider(name string) error {
	if s.busy.Load() {
		return ErrBusy
	}

	s.mu.Lock()
	if name == "auto" {
		name = ""
	}
	s.preferred = name
	s.mu.Unlock()
	return nil
}

// PreferredProvider returns the current preference, empty for auto.
func (s *Session) PreferredProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preferred
}

// Result is one finished dictation.
type Result struct {
	Text     string
	Provider string
	Model    string
	Duration time.Duration
	Latency  time.Duration
}

// Finish stops the recording and runs the rest of the pipeline: write the
// clip to disk, pick a provider, transcribe, inject, and record history.
// The busy flag clears when Finish returns, success or not.
func (s *Session) Finish(ctx context.Context) (Result, error) {
	if !s.busy.Load() {
		return Result{}, errors.New("no dictation in progress")
	}
	if !s.finishing.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer func() {
		s.finishing.Store(false)
		s.busy.Store(false)
	}()

	clip, err := s.source.Stop()
	if err != nil {
		return Result{}, fmt.Errorf("stop recording: %w", err)
	}

	s.logger.Info("recording stopped",
		zap.Duration("duration", clip.Duration),
		zap.Float64("rms", clip.RMS()))

	if rms := clip.RMS(); rms < lowSignalRMS {
		s.logger.Warn("very low signal level, check microphone input", zap.Float64("rms", rms))
	}

	wavPath, err := clip.WriteTemp()
	if err != nil {
		return Result{}, fmt.Errorf("write clip: %w", err)
	}
	defer os.Remove(wavPath)

	s.mu.Lock()
	preferred := s.preferred
	s.mu.Unlock()

	p, err := s.selector.Select(preferred)
	if err != nil {
		s.record(storage.Dictation{
			Provider: preferred, Language: s.language,
			DurationMs: clip.Duration.Milliseconds(),
			Success:    false, ErrorMessage: err.Error(),
		})
		return Result{}, err
	}

	start := time.Now()
	text, err := p.Transcribe(ctx, wavPath)
	latency := time.Since(start)

	res := Result{
		Provider: p.Name(),
		Model:    providerModel(p),
		Duration: clip.Duration,
		Latency:  latency,
	}

	if err != nil {
		s.record(storage.Dictation{
			Provider: res.Provider, Model: res.Model, Language: s.language,
			DurationMs: clip.Duration.Milliseconds(), LatencyMs: latency.Milliseconds(),
			Success: false, ErrorMessage: err.Error(),
		})
		return res, fmt.Errorf("transcribe with %s: %w", p.Name(), err)
	}

	res.Text = text
	s.logger.Info("transcription complete",
		zap.String("provider", res.Provider),
		zap.Duration("latency", latency),
		zap.Int("chars", len([]rune(text))))

	if s.sink != nil {
		if err := s.sink.Inject(ctx, text); err != nil {
			s.logger.Warn("text injection failed, transcript stays on the clipboard", zap.Error(err))
		}
	}

	s.record(storage.Dictation{
		Provider: res.Provider, Model: res.Model, Language: s.language,
		DurationMs: clip.Duration.Milliseconds(), LatencyMs: latency.Milliseconds(),
		Text: text, WordCount: len(strings.Fields(text)),
		Success: true,
	})

	return res, nil
}

// Toggle starts a dictation when idle and finishes the one in flight
// otherwise. A recording capped by max duration still counts as in flight
// until Finish runs. The started return is true when this call opened the
// microphone.
func (s *Session) Toggle(ctx context.Context) (Result, bool, error) {
	if s.busy.Load() {
		res, err := s.Finish(ctx)
		return res, false, err
	}
	return Result{}, true, s.Start()
}

func (s *Session) record(d storage.Dictation) {
	if s.history == nil {
		return
	}
	if err := s.history.Insert(&d); err != nil {
		s.logger.Warn("failed to record dictation history", zap.Error(err))
	}
}

func providerModel(p provider.Provider) string {
	if m, ok := p.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
