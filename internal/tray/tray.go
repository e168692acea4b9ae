// Package tray runs the menu bar interface around a dictation session.
package tray

import (
	"context"
	"errors"
	"fmt"

	"github.com/getlantern/systray"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/models"
	"github.com/termina-app/termina/internal/provider"
	"github.com/termina-app/termina/internal/session"
)

const (
	idleTitle      = "🎤"
	recordingTitle = "🔴"
)

// ProviderEntry is one selectable backend in the provider submenu.
type ProviderEntry struct {
	Name     string
	Display  string
	Internet bool
	Avail    bool
}

// Manager owns the tray icon, its menu, and preference persistence.
type Manager struct {
	session *session.Session
	store   *models.Store
	logger  *zap.Logger

	providers []ProviderEntry
	selected  string
	model     string

	// onProvider and onModel persist a new selection; the tray only calls
	// them after the session accepted the switch.
	onProvider func(name string) error
	onModel    func(name string) error

	quit chan struct{}
}

type Options struct {
	Session    *session.Session
	Store      *models.Store
	Providers  []ProviderEntry
	Selected   string
	Model      string
	OnProvider func(name string) error
	OnModel    func(name string) error
	Logger     *zap.Logger
}

func New(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		session:    opts.Session,
		store:      opts.Store,
		logger:     logger,
		providers:  opts.Providers,
		selected:   opts.Selected,
		model:      opts.Model,
		onProvider: opts.OnProvider,
		onModel:    opts.OnModel,
		quit:       make(chan struct{}),
	}
}

// Entries builds the provider submenu entries from live providers.
func Entries(providers []provider.Provider) []ProviderEntry {
	out := make([]ProviderEntry, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderEntry{
			Name:     p.Name(),
			Display:  p.DisplayName(),
			Internet: p.RequiresInternet(),
			Avail:    p.Available(),
		})
	}
	return out
}

// Run blocks until the user quits from the menu.
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Quit closes the tray loop from outside.
func (m *Manager) Quit() {
	systray.Quit()
}

// Done is closed when the user picked Quit.
func (m *Manager) Done() <-chan struct{} {
	return m.quit
}

func (m *Manager) onReady() {
	systray.SetTitle(idleTitle)
	systray.SetTooltip("Termina - Speech to Text")

	mRecord := systray.AddMenuItem("Start Dictation", "Toggle recording")
	systray.AddSeparator()

	mProviders := systray.AddMenuItem("Provider", "Choose a speech provider")
	providerItems := make([]*systray.MenuItem, len(m.providers))
	for i, entry := range m.providers {
		item := mProviders.AddSubMenuItem(providerLabel(entry, m.selected), entry.Display)
		if !entry.Avail {
			item.Disable()
		}
		providerItems[i] = item
	}

	mModels := systray.AddMenuItem("Model", "Choose a whisper model")
	modelNames := models.Names()
	modelItems := make([]*systray.MenuItem, len(modelNames))
	for i, name := range modelNames {
		modelItems[i] = mModels.AddSubMenuItem(m.modelLabel(name), name)
	}

	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit Termina")

	go m.recordLoop(mRecord)

	for i := range providerItems {
		go m.providerLoop(providerItems, i)
	}
	for i := range modelItems {
		go m.modelLoop(modelItems, modelNames, i)
	}

	go func() {
		<-mQuit.ClickedCh
		m.logger.Info("quit requested from tray")
		close(m.quit)
		systray.Quit()
	}()
}

func (m *Manager) onExit() {
	m.logger.Debug("tray exited")
}

func (m *Manager) recordLoop(item *systray.MenuItem) {
	for range item.ClickedCh {
		res, started, err := m.session.Toggle(context.Background())
		switch {
		case errors.Is(err, session.ErrBusy):
			m.logger.Warn("dictation already in progress")
		case err != nil:
			m.logger.Error("dictation failed", zap.Error(err))
			systray.SetTitle(idleTitle)
			item.SetTitle("Start Dictation")
		case started:
			systray.SetTitle(recordingTitle)
			item.SetTitle("Stop Dictation")
		default:
			systray.SetTitle(idleTitle)
			item.SetTitle("Start Dictation")
			m.logger.Info("dictation delivered",
				zap.String("provider", res.Provider),
				zap.Duration("latency", res.Latency))
		}
	}
}

func (m *Manager) providerLoop(items []*systray.MenuItem, idx int) {
	for range items[idx].ClickedCh {
		entry := m.providers[idx]
		if err := m.session.SetPreferredProvider(entry.Name); err != nil {
			m.logger.Warn("provider switch rejected", zap.Error(err))
			continue
		}
		m.selected = entry.Name
		for i, it := range items {
			it.SetTitle(providerLabel(m.providers[i], m.selected))
		}
		if m.onProvider != nil {
			if err := m.onProvider(entry.Name); err != nil {
				m.logger.Warn("failed to persist provider preference", zap.Error(err))
			}
		}
		m.logger.Info("provider switched", zap.String("provider", entry.Name))
	}
}

func (m *Manager) modelLoop(items []*systray.MenuItem, names []string, idx int) {
	for range items[idx].ClickedCh {
		name := names[idx]
		if m.onModel != nil {
			if err := m.onModel(name); err != nil {
				m.logger.Warn("model switch failed", zap.String("model", name), zap.Error(err))
				continue
			}
		}
		m.model = name
		for i, it := range items {
			it.SetTitle(m.modelLabel(names[i]))
		}
		m.logger.Info("model switched", zap.String("model", name))
	}
}

// providerLabel renders a submenu row: selection mark, locality mark, name.
func providerLabel(entry ProviderEntry, selected string) string {
	mark := "○"
	if entry.Name == selected {
		mark = "◉"
	}
	locality := "💻"
	if entry.Internet {
		locality = "🌐"
	}
	return fmt.Sprintf("%s %s %s", mark, locality, entry.Display)
}

func (m *Manager) modelLabel(name string) string {
	mark := "○"
	if name == m.model {
		mark = "◉"
	}
	if m.store != nil && !m.store.Has(name) {
		return fmt.Sprintf("%s %s (not downloaded)", mark, name)
	}
	return fmt.Sprintf("%s %s", mark, name)
}
