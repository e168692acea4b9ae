package inject

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	pasteTimeout = 5 * time.Second

	// restoreDelay gives the frontmost app time to consume the paste before
	// the previous clipboard contents come back.
	restoreDelay = 500 * time.Millisecond
)

// Injector delivers text to the frontmost application. On macOS it saves the
// clipboard, stages the text, synthesizes Cmd+V through System Events, and
// restores the previous contents; elsewhere it stops at the clipboard and the
// user pastes by hand.
type Injector struct {
	logger *zap.Logger

	// NoRestore leaves the transcript on the clipboard after pasting.
	NoRestore bool

	copyFn func(ctx context.Context, value string) error
	readFn func(ctx context.Context) (string, bool)
	runFn  func(ctx context.Context, bin string, args []string) error
}

func New(logger *zap.Logger) *Injector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Injector{
		logger: logger,
		copyFn: CopyText,
		readFn: readClipboard,
		runFn:  runOSAScript,
	}
}

// Inject pastes text into the frontmost application. A failed paste keystroke
// skips the restore so the transcript stays available for a manual paste.
func (in *Injector) Inject(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("nothing to inject")
	}

	previous, hadPrevious := in.readFn(ctx)

	if err := in.copyFn(ctx, text); err != nil {
		return fmt.Errorf("stage text on clipboard: %w", err)
	}

	if runtime.GOOS != "darwin" {
		in.logger.Info("text copied to clipboard, paste manually")
		return nil
	}

	pasteCtx, cancel := context.WithTimeout(ctx, pasteTimeout)
	defer cancel()

	script := `tell application "System Events" to keystroke "v" using command down`
	if err := in.runFn(pasteCtx, "osascript", []string{"-e", script}); err != nil {
		return fmt.Errorf("synthesize paste keystroke: %w", err)
	}

	in.logger.Debug("text injected", zap.Int("chars", len([]rune(text))))

	if hadPrevious && !in.NoRestore {
		time.Sleep(restoreDelay)
		if err := in.copyFn(ctx, previous); err != nil {
			in.logger.Warn("failed to restore previous clipboard contents", zap.Error(err))
		}
	}
	return nil
}

// RunInTerminal executes the text as a shell command in the frontmost
// Terminal window.
func (in *Injector) RunInTerminal(ctx context.Context, text string) error {
	if runtime.GOOS != "darwin" {
		return fmt.Errorf("terminal injection is only supported on macOS")
	}
	command := strings.TrimSpace(text)
	if command == "" {
		return fmt.Errorf("nothing to run")
	}

	runCtx, cancel := context.WithTimeout(ctx, pasteTimeout)
	defer cancel()

	script := fmt.Sprintf(`tell application "Terminal" to do script "%s" in window 1`, escapeAppleScript(command))
	if err := in.runFn(runCtx, "osascript", []string{"-e", script}); err != nil {
		return fmt.Errorf("run command in terminal: %w", err)
	}

	in.logger.Info("command sent to terminal", zap.String("command", command))
	return nil
}

// escapeAppleScript escapes a Go string for embedding inside an AppleScript
// double-quoted literal.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

func runOSAScript(ctx context.Context, bin string, args []string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%w (%s)", err, msg)
		}
		return err
	}
	return nil
}

// readClipboard returns the current clipboard text. The second return is
// false when the contents could not be read; binary clipboard data is not
// preserved.
func readClipboard(ctx context.Context) (string, bool) {
	var name string
	var args []string
	switch runtime.GOOS {
	case "darwin":
		name = "pbpaste"
	default:
		if _, err := exec.LookPath("wl-paste"); err == nil {
			name = "wl-paste"
		} else if _, err := exec.LookPath("xclip"); err == nil {
			name = "xclip"
			args = []string{"-selection", "clipboard", "-out"}
		} else {
			return "", false
		}
	}

	readCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	out, err := exec.CommandContext(readCtx, name, args...).Output()
	if err != nil {
		return "", false
	}
	return string(out), true
}
