package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/termina-app/termina/internal/audio"
	"github.com/termina-app/termina/internal/provider"
	"github.com/termina-app/termina/internal/storage"
)

type fakeSource struct {
	mu        sync.Mutex
	recording bool
	clip      audio.Clip
	startErr  error
	stopErr   error
}

func (f *fakeSource) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.recording = true
	return nil
}

func (f *fakeSource) Recording() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recording
}

func (f *fakeSource) Stop() (audio.Clip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recording = false
	return f.clip, f.stopErr
}

type fakeProvider struct {
	name  string
	model string
	text  string
	err   error
	calls int
}

func (f *fakeProvider) Name() string           { return f.name }
func (f *fakeProvider) DisplayName() string    { return f.name }
func (f *fakeProvider) RequiresInternet() bool { return false }
func (f *fakeProvider) Available() bool        { return true }
func (f *fakeProvider) Model() string          { return f.model }

func (f *fakeProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeSelector struct {
	provider provider.Provider
	err      error
	explicit string
}

func (f *fakeSelector) Select(explicit string) (provider.Provider, error) {
	f.explicit = explicit
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

type fakeSink struct {
	injected []string
	err      error
}

func (f *fakeSink) Inject(ctx context.Context, text string) error {
	f.injected = append(f.injected, text)
	return f.err
}

type fakeHistory struct {
	rows []storage.Dictation
}

func (f *fakeHistory) Insert(d *storage.Dictation) error {
	f.rows = append(f.rows, *d)
	return nil
}

func loudClip() audio.Clip {
	data := make([]byte, audio.SampleRate*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 0x00
		data[i+1] = 0x40
	}
	return audio.Clip{
		Data:       data,
		SampleRate: audio.SampleRate,
		Channels:   1,
		Duration:   time.Second,
	}
}

func newTestSession(src *fakeSource, sel *fakeSelector, sink *fakeSink, hist *fakeHistory) *Session {
	return New(Options{
		Source:   src,
		Selector: sel,
		Sink:     sink,
		History:  hist,
		Language: "ja",
		Logger:   nil,
	})
}

func TestFullDictation(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &fakeProvider{name: "whisper-cli", model: "base", text: "こんにちは"}
	sink := &fakeSink{}
	hist := &fakeHistory{}
	s := newTestSession(src, &fakeSelector{provider: p}, sink, hist)

	require.NoError(t, s.Start())
	require.True(t, s.Recording())
	require.True(t, s.Busy())

	res, err := s.Finish(context.Background())
	require.NoError(t, err)
	require.Equal(t, "こんにちは", res.Text)
	require.Equal(t, "whisper-cli", res.Provider)
	require.Equal(t, "base", res.Model)
	require.Equal(t, time.Second, res.Duration)
	require.False(t, s.Busy())

	require.Equal(t, []string{"こんにちは"}, sink.injected)

	require.Len(t, hist.rows, 1)
	row := hist.rows[0]
	require.True(t, row.Success)
	require.Equal(t, "こんにちは", row.Text)
	require.Equal(t, 1, row.WordCount)
	require.EqualValues(t, 1000, row.DurationMs)
}

func TestStartWhileBusyReturnsErrBusy(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	s := newTestSession(src, &fakeSelector{provider: &fakeProvider{name: "x", text: "t"}}, nil, nil)

	require.NoError(t, s.Start())
	require.ErrorIs(t, s.Start(), ErrBusy)
}

func TestProviderSwitchRejectedWhileBusy(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	s := newTestSession(src, &fakeSelector{provider: &fakeProvider{name: "x", text: "t"}}, nil, nil)

	require.NoError(t, s.SetPreferredProvider("openai"))
	require.Equal(t, "openai", s.PreferredProvider())

	require.NoError(t, s.Start())
	require.ErrorIs(t, s.SetPreferredProvider("whisper-cli"), ErrBusy)
	require.Equal(t, "openai", s.PreferredProvider())
}

func TestFinishPassesPreferenceToSelector(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	sel := &fakeSelector{provider: &fakeProvider{name: "openai", text: "t"}}
	s := newTestSession(src, sel, nil, nil)

	require.NoError(t, s.SetPreferredProvider("openai"))
	require.NoError(t, s.Start())
	_, err := s.Finish(context.Background())
	require.NoError(t, err)
	require.Equal(t, "openai", sel.explicit)
}

func TestAutoPreferenceIsEmptySelection(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	sel := &fakeSelector{provider: &fakeProvider{name: "x", text: "t"}}
	s := New(Options{Source: src, Selector: sel, Language: "ja", Preferred: "auto"})

	require.Empty(t, s.PreferredProvider())
	require.NoError(t, s.Start())
	_, err := s.Finish(context.Background())
	require.NoError(t, err)
	require.Empty(t, sel.explicit)
}

func TestTranscriptionFailureRecordedAndBusyCleared(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &fakeProvider{name: "whisper-cli", model: "base", err: provider.ErrNoTranscript}
	sink := &fakeSink{}
	hist := &fakeHistory{}
	s := newTestSession(src, &fakeSelector{provider: p}, sink, hist)

	require.NoError(t, s.Start())
	_, err := s.Finish(context.Background())
	require.ErrorIs(t, err, provider.ErrNoTranscript)
	require.False(t, s.Busy())

	require.Empty(t, sink.injected)
	require.Len(t, hist.rows, 1)
	require.False(t, hist.rows[0].Success)
	require.NotEmpty(t, hist.rows[0].ErrorMessage)
}

func TestNoProviderAvailableRecorded(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	hist := &fakeHistory{}
	s := newTestSession(src, &fakeSelector{err: provider.ErrNoProviderAvailable}, nil, hist)

	require.NoError(t, s.Start())
	_, err := s.Finish(context.Background())
	require.ErrorIs(t, err, provider.ErrNoProviderAvailable)
	require.False(t, s.Busy())
	require.Len(t, hist.rows, 1)
	require.False(t, hist.rows[0].Success)
}

func TestInjectionFailureKeepsTranscript(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &fakeProvider{name: "whisper-cli", model: "base", text: "keep me"}
	sink := &fakeSink{err: errors.New("no accessibility permission")}
	hist := &fakeHistory{}
	s := newTestSession(src, &fakeSelector{provider: p}, sink, hist)

	require.NoError(t, s.Start())
	res, err := s.Finish(context.Background())
	require.NoError(t, err)
	require.Equal(t, "keep me", res.Text)
	require.Len(t, hist.rows, 1)
	require.True(t, hist.rows[0].Success)
}

func TestToggle(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &fakeProvider{name: "whisper-cli", model: "base", text: "toggled"}
	s := newTestSession(src, &fakeSelector{provider: p}, nil, nil)

	_, started, err := s.Toggle(context.Background())
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, s.Recording())

	res, started, err := s.Toggle(context.Background())
	require.NoError(t, err)
	require.False(t, started)
	require.Equal(t, "toggled", res.Text)
	require.False(t, s.Recording())
}

// blockingProvider holds Transcribe until release is closed.
type blockingProvider struct {
	fakeProvider
	entered chan struct{}
	release chan struct{}
}

func (b *blockingProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	close(b.entered)
	<-b.release
	return b.text, nil
}

func TestToggleFinishesCappedRecording(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &fakeProvider{name: "whisper-cli", model: "base", text: "capped"}
	s := newTestSession(src, &fakeSelector{provider: p}, nil, nil)

	require.NoError(t, s.Start())
	// Source hit its duration cap and stopped on its own; the dictation is
	// still in flight until Finish runs.
	src.mu.Lock()
	src.recording = false
	src.mu.Unlock()
	require.True(t, s.Busy())

	res, started, err := s.Toggle(context.Background())
	require.NoError(t, err)
	require.False(t, started)
	require.Equal(t, "capped", res.Text)
	require.False(t, s.Busy())
}

func TestConcurrentFinishReturnsErrBusy(t *testing.T) {
	t.Parallel()

	src := &fakeSource{clip: loudClip()}
	p := &blockingProvider{
		fakeProvider: fakeProvider{name: "whisper-cli", model: "base", text: "slow"},
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	s := newTestSession(src, &fakeSelector{provider: p}, nil, nil)
	require.NoError(t, s.Start())

	done := make(chan error, 1)
	go func() {
		_, err := s.Finish(context.Background())
		done <- err
	}()

	<-p.entered
	_, err := s.Finish(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	close(p.release)
	require.NoError(t, <-done)
}

func TestFinishWithoutStart(t *testing.T) {
	t.Parallel()

	s := newTestSession(&fakeSource{}, &fakeSelector{}, nil, nil)
	_, err := s.Finish(context.Background())
	require.Error(t, err)
}
