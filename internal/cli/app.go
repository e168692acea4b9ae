package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/audio"
	"github.com/termina-app/termina/internal/inject"
	"github.com/termina-app/termina/internal/session"
	"github.com/termina-app/termina/internal/tray"
)

// runTray assembles the menu bar application and blocks until quit.
func (a *appState) runTray(ctx context.Context) error {
	factory, err := a.factoryFn()
	if err != nil {
		return err
	}

	maxSeconds := 120
	if a.cfg != nil && a.cfg.Audio.MaxSeconds > 0 {
		maxSeconds = a.cfg.Audio.MaxSeconds
	}

	recorder, err := audio.NewRecorder(maxSeconds)
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer recorder.Close()

	var history session.History
	if db, err := a.historyFn(); err != nil {
		a.log().Warn("dictation history disabled", zap.Error(err))
	} else {
		history = db
		defer db.Close()
	}

	preferred := a.providerName
	if preferred == "auto" {
		preferred = ""
	}

	sess := session.New(session.Options{
		Source:    recorder,
		Selector:  factory,
		Sink:      inject.New(a.log()),
		History:   history,
		Language:  a.language,
		Preferred: preferred,
		Logger:    a.log(),
	})

	mgr := tray.New(tray.Options{
		Session:   sess,
		Store:     factory.Store,
		Providers: tray.Entries(factory.Providers()),
		Selected:  preferred,
		Model:     a.model,
		OnProvider: func(name string) error {
			a.cfg.Transcription.Provider = name
			return a.saveConfigFn()
		},
		OnModel: func(name string) error {
			if sess.Busy() {
				return session.ErrBusy
			}
			if !factory.Store.Has(name) {
				return fmt.Errorf("model %q is not installed", name)
			}
			factory.PreferredModel = name
			a.model = name
			a.cfg.Transcription.Model = name
			return a.saveConfigFn()
		},
		Logger: a.log(),
	})

	a.log().Info("termina running in the menu bar")

	go func() {
		select {
		case <-ctx.Done():
			mgr.Quit()
		case <-mgr.Done():
		}
	}()

	mgr.Run()
	return nil
}
