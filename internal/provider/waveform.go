package provider

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	targetSampleRate = 16000

	// normalizeTarget leaves headroom below full scale after peak scaling.
	normalizeTarget = 0.95

	// gateFloor zeroes samples below roughly -46 dBFS.
	gateFloor = 0.005
)

// conditionWaveform loads a WAV file and prepares it for inference by hand:
// mono downmix to the first channel, linear resampling to 16 kHz, peak
// normalization, and a simple sample-level noise gate. It writes the result
// to a fresh temp file the caller removes.
func conditionWaveform(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return "", fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return "", fmt.Errorf("wav %s holds no samples", path)
	}

	samples := toMonoFloats(buf)
	if buf.Format.SampleRate != targetSampleRate {
		samples = resampleLinear(samples, buf.Format.SampleRate, targetSampleRate)
	}
	normalizePeak(samples)
	gateSamples(samples)

	return writeConditioned(samples)
}

func toMonoFloats(buf *goaudio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	out := make([]float64, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		out = append(out, float64(buf.Data[i])/scale)
	}
	return out
}

func resampleLinear(in []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(in) == 0 {
		return in
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(in)) / ratio)
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx+1 >= len(in) {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}
	return out
}

func normalizePeak(samples []float64) {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return
	}

	gain := normalizeTarget / peak
	for i := range samples {
		samples[i] *= gain
	}
}

func gateSamples(samples []float64) {
	for i, s := range samples {
		if math.Abs(s) < gateFloor {
			samples[i] = 0
		}
	}
}

func writeConditioned(samples []float64) (string, error) {
	out, err := os.CreateTemp("", "termina-cond-*.wav")
	if err != nil {
		return "", fmt.Errorf("create conditioned wav: %w", err)
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		v := int(math.Round(s * math.MaxInt16))
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		data[i] = v
	}

	encoder := wav.NewEncoder(out, targetSampleRate, 16, 1, 1)
	writeErr := encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: targetSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	})
	if writeErr == nil {
		writeErr = encoder.Close()
	} else {
		encoder.Close()
	}

	if closeErr := out.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("write conditioned wav: %w", writeErr)
	}

	return out.Name(), nil
}
