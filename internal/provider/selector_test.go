package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name       string
	available  bool
	internet   bool
	transcribe func(ctx context.Context, audioPath string) (string, error)
	calls      int
}

func (s *stubProvider) Name() string           { return s.name }
func (s *stubProvider) DisplayName() string    { return s.name }
func (s *stubProvider) RequiresInternet() bool { return s.internet }
func (s *stubProvider) Available() bool        { return s.available }

func (s *stubProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	s.calls++
	if s.transcribe != nil {
		return s.transcribe(ctx, audioPath)
	}
	return "", ErrNoTranscript
}

func stubFactory(providers ...Provider) *Factory {
	return &Factory{providersFn: func() []Provider { return providers }}
}

func TestSelectExplicitUnavailableFailsWithoutFallback(t *testing.T) {
	t.Setenv(EnvPreference, "")

	cli := &stubProvider{name: "whisper-cli", available: false}
	cloud := &stubProvider{name: "openai", available: true}
	f := stubFactory(cli, cloud)

	_, err := f.Select("whisper-cli")
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.Zero(t, cli.calls)
	require.Zero(t, cloud.calls)
}

func TestSelectExplicitUnknownName(t *testing.T) {
	t.Setenv(EnvPreference, "")

	f := stubFactory(&stubProvider{name: "whisper-cli", available: true})

	_, err := f.Select("deepgram")
	require.Error(t, err)
	require.Contains(t, err.Error(), "deepgram")
}

func TestSelectExplicitAliases(t *testing.T) {
	t.Setenv(EnvPreference, "")

	cli := &stubProvider{name: "whisper-cli", available: true}
	f := stubFactory(cli)

	for _, alias := range []string{"ffmpeg", "whisper-cpp", "Whisper-CLI"} {
		p, err := f.Select(alias)
		require.NoError(t, err, alias)
		require.Equal(t, "whisper-cli", p.Name())
	}
}

func TestSelectAutoPrefersLocalOrder(t *testing.T) {
	t.Setenv(EnvPreference, "")

	cli := &stubProvider{name: "whisper-cli", available: false}
	bundled := &stubProvider{name: "bundled", available: true}
	cloud := &stubProvider{name: "openai", available: true, internet: true}
	f := stubFactory(cli, bundled, cloud)

	p, err := f.Select("")
	require.NoError(t, err)
	require.Equal(t, "bundled", p.Name())
}

func TestSelectAutoNothingAvailable(t *testing.T) {
	t.Setenv(EnvPreference, "")

	f := stubFactory(
		&stubProvider{name: "whisper-cli"},
		&stubProvider{name: "bundled"},
		&stubProvider{name: "openai"},
	)

	_, err := f.Select("auto")
	require.ErrorIs(t, err, ErrNoProviderAvailable)
}

func TestSelectHonorsEnvPreference(t *testing.T) {
	t.Setenv(EnvPreference, "openai")

	cli := &stubProvider{name: "whisper-cli", available: true}
	cloud := &stubProvider{name: "openai", available: true, internet: true}
	f := stubFactory(cli, cloud)

	p, err := f.Select("")
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())
}

func TestSelectEnvPreferenceUnavailableFallsThrough(t *testing.T) {
	t.Setenv(EnvPreference, "openai")

	cli := &stubProvider{name: "whisper-cli", available: true}
	cloud := &stubProvider{name: "openai", available: false}
	f := stubFactory(cli, cloud)

	p, err := f.Select("")
	require.NoError(t, err)
	require.Equal(t, "whisper-cli", p.Name())
}

func TestSelectExplicitBeatsEnvPreference(t *testing.T) {
	t.Setenv(EnvPreference, "whisper-cli")

	cli := &stubProvider{name: "whisper-cli", available: true}
	cloud := &stubProvider{name: "openai", available: true}
	f := stubFactory(cli, cloud)

	p, err := f.Select("openai")
	require.NoError(t, err)
	require.Equal(t, "openai", p.Name())
}

func TestAvailableFiltersByProbe(t *testing.T) {
	f := stubFactory(
		&stubProvider{name: "whisper-cli"},
		&stubProvider{name: "bundled", available: true},
		&stubProvider{name: "openai", available: true},
	)

	avail := f.Available()
	require.Len(t, avail, 2)
	require.Equal(t, "bundled", avail[0].Name())
	require.Equal(t, "openai", avail[1].Name())
}
