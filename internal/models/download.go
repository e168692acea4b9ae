package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// DownloadOptions tune a model download. Zero values pick sane defaults.
type DownloadOptions struct {
	Retries    int
	NoProgress bool
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Download fetches a registered model into the store, verifies its size, and
// removes the partial file on any failure. An already-installed, verified
// model is a no-op success.
func (s *Store) Download(ctx context.Context, name string, opts DownloadOptions) error {
	model, ok := registry[name]
	if !ok {
		return fmt.Errorf("%w: %q (known models: %v)", ErrUnknownModel, name, Names())
	}

	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if s.Has(name) && s.Verify(name) {
		opts.Logger.Info("model already downloaded", zap.String("model", name))
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		if attempt > 1 {
			opts.Logger.Warn("retrying model download",
				zap.Int("attempt", attempt), zap.Int("max", opts.Retries), zap.String("model", name))
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
		}

		lastErr = s.downloadOnce(ctx, model, opts)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	return lastErr
}

func (s *Store) downloadOnce(ctx context.Context, model Model, opts DownloadOptions) (err error) {
	dest := filepath.Join(s.dir, model.FileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, model.URL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", model.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", model.Name, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(dest)
		}
	}()

	var out io.Writer = f
	if showProgress(opts.NoProgress) {
		bar := progressbar.DefaultBytes(resp.ContentLength, fmt.Sprintf("downloading %s", model.Name))
		out = io.MultiWriter(f, bar)
	}

	if _, err = io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}

	if !s.Verify(model.Name) {
		err = fmt.Errorf("model %s failed size verification (expected ~%dMB)", model.Name, model.SizeMB)
		return err
	}

	opts.Logger.Info("model downloaded",
		zap.String("model", model.Name), zap.String("path", dest), zap.String("sha256", model.SHA256))
	return nil
}

func showProgress(noProgress bool) bool {
	if noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}
