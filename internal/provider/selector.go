package provider

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/termina-app/termina/internal/ffmpeg"
	"github.com/termina-app/termina/internal/models"
)

// EnvPreference is the environment variable naming the default provider
// family; "auto" or empty means fall back through the priority order.
const EnvPreference = "SPEECH_PROVIDER"

// Factory builds providers with shared dependencies and resolves which one
// serves a transcription request.
type Factory struct {
	Store          *models.Store
	Processor      *ffmpeg.Processor
	Language       string
	APIKey         string
	PreferredModel string
	Logger         *zap.Logger

	providersFn func() []Provider
}

// Providers constructs all backends in selection priority order: local
// whisper-cli first (fastest), the bundled engine next, the cloud API last.
func (f *Factory) Providers() []Provider {
	if f.providersFn != nil {
		return f.providersFn()
	}

	whisperCLI := NewWhisperCLIProvider(f.Store, f.Processor, f.Language, f.Logger)
	bundled := NewBundledProvider(f.Store, f.Processor, f.Language, f.Logger)

	if f.PreferredModel != "" {
		// Saved preference; ignore failures so a deleted model file cannot
		// take the provider down.
		if whisperCLI.Available() {
			_ = whisperCLI.SetModel(f.PreferredModel)
		}
		if bundled.Available() && f.Store.Has(f.PreferredModel) {
			_ = bundled.SetModel(f.PreferredModel)
		}
	}

	return []Provider{
		whisperCLI,
		bundled,
		NewOpenAIProvider(f.APIKey, f.Language, f.Processor, f.Logger),
	}
}

// Available returns the providers that can currently run, in priority order.
func (f *Factory) Available() []Provider {
	var out []Provider
	for _, p := range f.Providers() {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Select resolves a provider.
//
// An explicit name is a hard request: if that provider is unavailable the
// call fails without fallback. Otherwise the SPEECH_PROVIDER environment
// preference is honored when it names an available provider, and finally the
// priority order decides.
func (f *Factory) Select(explicit string) (Provider, error) {
	providers := f.Providers()

	if explicit != "" && explicit != "auto" {
		name := normalizeName(explicit)
		for _, p := range providers {
			if p.Name() != name {
				continue
			}
			if !p.Available() {
				return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, name)
			}
			return p, nil
		}
		return nil, fmt.Errorf("unknown provider %q (known: %s)", explicit, strings.Join(knownNames(providers), ", "))
	}

	if env := strings.TrimSpace(os.Getenv(EnvPreference)); env != "" && !strings.EqualFold(env, "auto") {
		name := normalizeName(env)
		for _, p := range providers {
			if p.Name() == name && p.Available() {
				return p, nil
			}
		}
		// Unknown or unavailable preference falls through to auto.
	}

	for _, p := range providers {
		if p.Available() {
			return p, nil
		}
	}

	return nil, ErrNoProviderAvailable
}

// normalizeName folds historical aliases onto canonical provider names.
func normalizeName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ffmpeg", "whisper-cpp", "whispercpp", "whisper":
		return "whisper-cli"
	case "openai", "whisper-api":
		return "openai"
	case "bundled", "builtin":
		return "bundled"
	default:
		return strings.ToLower(strings.TrimSpace(name))
	}
}

func knownNames(providers []Provider) []string {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	return names
}
