// Package audio captures microphone input as 16 kHz mono PCM.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

// Clip is a recorded chunk of audio: raw signed 16-bit little-endian PCM,
// single channel, fixed sample rate. The caller owns the buffer and any file
// written from it.
type Clip struct {
	Data       []byte
	SampleRate uint32
	Channels   uint32
	Duration   time.Duration
}

// RMS returns the root-mean-square amplitude of the clip. Silence sits well
// below 500; normal speech lands around 2000-5000.
func (c *Clip) RMS() float64 {
	numSamples := len(c.Data) / 2
	if numSamples == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i < numSamples; i++ {
		sample := int16(binary.LittleEndian.Uint16(c.Data[i*2 : i*2+2]))
		sumSquares += float64(sample) * float64(sample)
	}

	return math.Sqrt(sumSquares / float64(numSamples))
}

// PeakAmplitude returns the largest absolute sample value in the clip.
func (c *Clip) PeakAmplitude() int {
	peak := 0
	for i := 0; i+1 < len(c.Data); i += 2 {
		sample := int(int16(binary.LittleEndian.Uint16(c.Data[i : i+2])))
		if sample < 0 {
			sample = -sample
		}
		if sample > peak {
			peak = sample
		}
	}
	return peak
}

// WAV renders the clip as a RIFF/WAVE byte stream (16-bit linear PCM).
func (c *Clip) WAV() []byte {
	buf := new(bytes.Buffer)

	dataSize := uint32(len(c.Data))
	bitsPerSample := uint16(16)
	blockAlign := uint16(c.Channels * uint32(bitsPerSample) / 8)
	byteRate := c.SampleRate * uint32(blockAlign)

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(c.Channels))
	binary.Write(buf, binary.LittleEndian, c.SampleRate)
	binary.Write(buf, binary.LittleEndian, byteRate)
	binary.Write(buf, binary.LittleEndian, blockAlign)
	binary.Write(buf, binary.LittleEndian, bitsPerSample)

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	buf.Write(c.Data)

	return buf.Bytes()
}

// WriteTemp writes the clip to a fresh temporary WAV file and returns its
// path. The caller removes the file when done.
func (c *Clip) WriteTemp() (string, error) {
	f, err := os.CreateTemp("", "termina-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}

	if _, err := f.Write(c.WAV()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp wav: %w", err)
	}

	return f.Name(), nil
}
