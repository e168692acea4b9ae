package provider

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// writeSineWAV writes a quiet stereo sine tone so conditioning has real
// resampling, downmix, and gain work to do.
func writeSineWAV(t *testing.T, sampleRate, channels int, amplitude float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	n := sampleRate / 10
	data := make([]int, 0, n*channels)
	for i := 0; i < n; i++ {
		v := int(amplitude * math.MaxInt16 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			data = append(data, v)
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestConditionWaveform(t *testing.T) {
	t.Parallel()

	src := writeSineWAV(t, 44100, 2, 0.2)

	conditioned, err := conditionWaveform(src)
	require.NoError(t, err)
	defer os.Remove(conditioned)

	f, err := os.Open(conditioned)
	require.NoError(t, err)
	defer f.Close()

	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	require.NoError(t, err)
	require.Equal(t, 1, buf.Format.NumChannels)
	require.Equal(t, targetSampleRate, buf.Format.SampleRate)

	// Roughly 100 ms of audio survives the resample.
	require.InDelta(t, targetSampleRate/10, len(buf.Data), 20)

	peak := 0
	for _, v := range buf.Data {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	require.InDelta(t, normalizeTarget*math.MaxInt16, float64(peak), 200)
}

func TestConditionWaveformRejectsNonWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bogus.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file"), 0o644))

	_, err := conditionWaveform(path)
	require.Error(t, err)
}

func TestGateSamplesZeroesQuietNoise(t *testing.T) {
	t.Parallel()

	samples := []float64{0.5, 0.004, -0.003, -0.5, 0.006}
	gateSamples(samples)
	require.Equal(t, []float64{0.5, 0, 0, -0.5, 0.006}, samples)
}
