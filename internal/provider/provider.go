// Package provider abstracts speech-to-text backends and picks between them.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNoTranscript means the backend ran but produced no usable text.
	ErrNoTranscript = errors.New("no transcript produced")

	// ErrProviderUnavailable means an explicitly requested provider cannot
	// run (missing credential, executable, or model).
	ErrProviderUnavailable = errors.New("provider not available")

	// ErrNoProviderAvailable means no provider can run at all; the user has
	// setup work to do.
	ErrNoProviderAvailable = errors.New("no speech provider available")
)

// Provider is one transcription backend.
//
// Available must be cheap and side-effect free after the initial probe.
// Transcribe makes a single attempt; failures and timeouts surface as errors
// and are never retried here.
type Provider interface {
	Name() string
	DisplayName() string
	RequiresInternet() bool
	Available() bool
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// checkAudioFile rejects missing or empty clips before any engine or service
// gets invoked.
func checkAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file not readable: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("audio file %s is empty: %w", path, ErrNoTranscript)
	}
	return nil
}
