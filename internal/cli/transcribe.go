package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/inject"
	"github.com/termina-app/termina/internal/transcript"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var copyToClipboard bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcribeFn := app.transcribeFn
			if transcribeFn == nil {
				transcribeFn = app.transcribeAudio
			}

			text, err := transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), text)
			if transcript.IsBlank(text) {
				app.log().Warn("no speech detected in the audio")
				return nil
			}

			if copyToClipboard {
				copyFn := app.copyFn
				if copyFn == nil {
					copyFn = inject.CopyText
				}
				if err := copyFn(cmd.Context(), text); err != nil {
					return err
				}
				app.log().Info("transcript copied to clipboard")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&copyToClipboard, "copy", false, "Copy the transcript to the clipboard")
	return cmd
}

func (a *appState) transcribeAudio(ctx context.Context, audioPath string) (string, error) {
	audioPath = filepath.Clean(audioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("audio file not found: %w", err)
	}

	factory, err := a.factoryFn()
	if err != nil {
		return "", err
	}

	explicit := a.providerName
	if explicit == "auto" {
		explicit = ""
	}

	p, err := factory.Select(explicit)
	if err != nil {
		return "", err
	}

	a.log().Info("transcribing",
		zap.String("audio", audioPath),
		zap.String("provider", p.Name()),
		zap.String("language", a.language))

	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()
	text, err := p.Transcribe(ctx, audioPath)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed",
			zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}

	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))
	return text, nil
}
