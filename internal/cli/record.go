package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/audio"
	"github.com/termina-app/termina/internal/inject"
	"github.com/termina-app/termina/internal/storage"
)

func newRecordCmd(app *appState) *cobra.Command {
	var (
		duration   time.Duration
		keepAudio  bool
		outputPath string
		toTerminal bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one dictation from the terminal",
		Long:  "Records from the default microphone, transcribes the clip, prints the transcript and pastes it via the clipboard.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runRecord(cmd.Context(), recordOptions{
				duration:   duration,
				keepAudio:  keepAudio,
				outputPath: outputPath,
				toTerminal: toTerminal,
			})
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Record duration, e.g. 10s; 0 means stop with Enter")
	cmd.Flags().BoolVar(&keepAudio, "keep-audio", false, "Keep the recorded WAV file")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the recording to this WAV path")
	cmd.Flags().BoolVar(&app.noInject, "no-inject", app.noInject, "Print the transcript without pasting it")
	cmd.Flags().BoolVar(&toTerminal, "terminal", false, "Run the transcript as a command in the frontmost Terminal window")

	return cmd
}

type recordOptions struct {
	duration   time.Duration
	keepAudio  bool
	outputPath string
	toTerminal bool
}

func (a *appState) runRecord(ctx context.Context, opts recordOptions) error {
	maxSeconds := 120
	if a.cfg != nil && a.cfg.Audio.MaxSeconds > 0 {
		maxSeconds = a.cfg.Audio.MaxSeconds
	}

	recorder, err := audio.NewRecorder(maxSeconds)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer recorder.Close()

	if err := recorder.Start(); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	if opts.duration > 0 {
		fmt.Fprintf(os.Stderr, "Recording for %s...\n", opts.duration)
		select {
		case <-time.After(opts.duration):
		case <-ctx.Done():
			recorder.Stop()
			return ctx.Err()
		}
	} else {
		fmt.Fprintln(os.Stderr, "Recording... press Enter to stop.")
		if err := waitForEnter(ctx, os.Stdin); err != nil {
			recorder.Stop()
			return err
		}
	}

	clip, err := recorder.Stop()
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}

	a.log().Info("recording finished",
		zap.Duration("duration", clip.Duration),
		zap.Float64("rms", clip.RMS()))

	wavPath := opts.outputPath
	if wavPath != "" {
		if err := os.WriteFile(wavPath, clip.WAV(), 0o644); err != nil {
			return fmt.Errorf("write recording: %w", err)
		}
	} else {
		wavPath, err = clip.WriteTemp()
		if err != nil {
			return err
		}
	}
	if !opts.keepAudio && opts.outputPath == "" {
		defer os.Remove(wavPath)
	}

	started := time.Now()
	text, err := a.transcribeFn(ctx, wavPath)
	latency := time.Since(started)
	a.recordHistory(clip.Duration, latency, text, err)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.outWriter(), text)

	if a.noInject {
		return nil
	}

	if opts.toTerminal {
		return inject.New(a.log()).RunInTerminal(ctx, text)
	}

	injectFn := a.injectFn
	if injectFn == nil {
		injectFn = inject.New(a.log()).Inject
	}
	if err := injectFn(ctx, text); err != nil {
		a.log().Warn("injection failed, transcript left on stdout", zap.Error(err))
	}
	return nil
}

// recordHistory stores the dictation outcome, failed or not. History is best
// effort from the CLI.
func (a *appState) recordHistory(duration, latency time.Duration, text string, runErr error) {
	if a.historyFn == nil {
		return
	}
	db, err := a.historyFn()
	if err != nil {
		a.log().Debug("history unavailable", zap.Error(err))
		return
	}
	defer db.Close()

	d := storage.Dictation{
		Provider:   a.providerName,
		Model:      a.model,
		Language:   a.language,
		DurationMs: duration.Milliseconds(),
		LatencyMs:  latency.Milliseconds(),
		Text:       text,
		WordCount:  len(strings.Fields(text)),
		Success:    runErr == nil,
	}
	if runErr != nil {
		d.ErrorMessage = runErr.Error()
	}
	if err := db.Insert(&d); err != nil {
		a.log().Warn("failed to record history", zap.Error(err))
	}
}

func waitForEnter(ctx context.Context, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		reader := bufio.NewReader(r)
		_, err := reader.ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && err != io.EOF {
			return fmt.Errorf("read stdin: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
