package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/config"
	"github.com/termina-app/termina/internal/ffmpeg"
	"github.com/termina-app/termina/internal/inject"
	"github.com/termina-app/termina/internal/logging"
	"github.com/termina-app/termina/internal/models"
	"github.com/termina-app/termina/internal/platform"
	"github.com/termina-app/termina/internal/provider"
	"github.com/termina-app/termina/internal/storage"
	"github.com/termina-app/termina/internal/version"
)

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	providerName string
	model        string
	modelDir     string
	language     string
	noInject     bool

	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer

	factoryFn    func() (*provider.Factory, error)
	transcribeFn func(ctx context.Context, audioPath string) (string, error)
	injectFn     func(ctx context.Context, text string) error
	copyFn       func(ctx context.Context, value string) error
	historyFn    func() (*storage.DB, error)
	runTrayFn    func(ctx context.Context) error
	loadConfigFn func() (*config.Config, error)
	saveConfigFn func() error
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		providerName: "auto",
		model:        models.DefaultModel,
		language:     "ja",
		out:          os.Stdout,
	}
	app.factoryFn = app.newFactory
	app.transcribeFn = app.transcribeAudio
	app.copyFn = inject.CopyText
	app.historyFn = app.openHistory
	app.runTrayFn = app.runTray
	app.loadConfigFn = config.Load
	app.saveConfigFn = func() error { return app.cfg.Save() }

	cmd := &cobra.Command{
		Use:           "termina",
		Short:         "Menu bar speech-to-text with local and cloud whisper backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			cfg, err := app.loadConfigFn()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			app.cfg = cfg
			app.applyConfig(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runTrayFn(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProviderFlags(cmd, app)
	bindModelFlags(cmd, app)

	cmd.AddCommand(newRecordCmd(app))
	cmd.AddCommand(newTranscribeCmd(app))
	cmd.AddCommand(newProvidersCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.PersistentFlags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
	cmd.PersistentFlags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindProviderFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.providerName, "provider", app.providerName, "Speech provider: auto|whisper-cli|bundled|openai")
	cmd.PersistentFlags().StringVar(&app.language, "language", app.language, "Language code for transcription")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.PersistentFlags().StringVar(&app.model, "model", app.model, "Preferred whisper model")
	cmd.PersistentFlags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

// applyConfig fills in settings the user did not override on the command
// line.
func (a *appState) applyConfig(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("provider") && a.cfg.Transcription.Provider != "" {
		a.providerName = a.cfg.Transcription.Provider
	}
	if !flags.Changed("model") && a.cfg.Transcription.Model != "" {
		a.model = a.cfg.Transcription.Model
	}
	if !flags.Changed("language") && a.cfg.Transcription.Language != "" {
		a.language = a.cfg.Transcription.Language
	}
}

func (a *appState) modelStore() (*models.Store, error) {
	dir, err := platform.ResolveModelDir(a.modelDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return models.NewStore(dir), nil
}

func (a *appState) newFactory() (*provider.Factory, error) {
	store, err := a.modelStore()
	if err != nil {
		return nil, err
	}

	proc := ffmpeg.NewProcessor(a.log())
	if a.cfg != nil {
		configureFilters(proc, a.cfg.Filters)
	}

	return &provider.Factory{
		Store:          store,
		Processor:      proc,
		Language:       a.language,
		APIKey:         os.Getenv("OPENAI_API_KEY"),
		PreferredModel: a.model,
		Logger:         a.log(),
	}, nil
}

// configureFilters applies the saved filter toggles to a fresh processor.
func configureFilters(proc *ffmpeg.Processor, fc config.FiltersConfig) {
	proc.SetEnabled(fc.Preprocess)

	filters := proc.Filters()
	filters.SetEnabled(ffmpeg.FilterHighpass, fc.Highpass)
	filters.SetEnabled(ffmpeg.FilterLowpass, fc.Lowpass)
	filters.SetEnabled(ffmpeg.FilterVolume, fc.Volume)
	filters.SetEnabled(ffmpeg.FilterNoiseGate, fc.NoiseGate)

	filters.Configure(ffmpeg.FilterHighpass, func(s *ffmpeg.FilterSpec) { s.Frequency = fc.HighpassHz })
	filters.Configure(ffmpeg.FilterLowpass, func(s *ffmpeg.FilterSpec) { s.Frequency = fc.LowpassHz })
	filters.Configure(ffmpeg.FilterVolume, func(s *ffmpeg.FilterSpec) { s.Level = fc.VolumeLevel })
	filters.Configure(ffmpeg.FilterNoiseGate, func(s *ffmpeg.FilterSpec) { s.Threshold = fc.GateThreshold })
}

func (a *appState) openHistory() (*storage.DB, error) {
	dataDir, err := platform.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDir, err)
	}
	return storage.Open(dataDir)
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
