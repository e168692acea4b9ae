// Package inject places transcribed text into the frontmost application,
// going through the system clipboard.
package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// ErrNoClipboard means no clipboard command exists on this system.
var ErrNoClipboard = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

type clipboardCommand struct {
	name string
	args []string

	// detach keeps the helper alive past our exit; xclip serves clipboard
	// reads itself until another owner takes over.
	detach bool
}

// CopyText puts value on the system clipboard using the native helper.
func CopyText(ctx context.Context, value string) error {
	spec, err := detectClipboard()
	if err != nil {
		return err
	}

	if spec.detach {
		return copyDetached(spec, value)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, spec.name, spec.args...)
	cmd.Stdin = strings.NewReader(value)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if runErr := cmd.Run(); runErr != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy to clipboard timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy to clipboard: %w", runErr)
	}
	return nil
}

func detectClipboard() (clipboardCommand, error) {
	if runtime.GOOS == "darwin" {
		if _, err := exec.LookPath("pbcopy"); err == nil {
			return clipboardCommand{name: "pbcopy"}, nil
		}
		return clipboardCommand{}, ErrNoClipboard
	}

	if _, err := exec.LookPath("wl-copy"); err == nil {
		return clipboardCommand{name: "wl-copy"}, nil
	}

	if _, err := exec.LookPath("xclip"); err == nil {
		return clipboardCommand{
			name:   "xclip",
			args:   []string{"-selection", "clipboard", "-in", "-silent"},
			detach: true,
		}, nil
	}

	return clipboardCommand{}, ErrNoClipboard
}

func copyDetached(spec clipboardCommand, value string) error {
	cmd := exec.Command(spec.name, spec.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, value); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write clipboard data: %w", err)
	}

	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = cmd.Process.Release()
	return nil
}
