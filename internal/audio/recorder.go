package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// SampleRate is fixed at the rate whisper models expect.
const SampleRate = 16000

// Recorder captures microphone audio through malgo. The device runs for the
// recorder's whole lifetime; Start and Stop only gate whether the data
// callback buffers samples, which makes recording start instant.
type Recorder struct {
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	maxSeconds int

	mu        sync.Mutex
	buf       *bytes.Buffer
	recording bool
	startTime time.Time
}

// NewRecorder initializes the capture device. Call Close when done.
func NewRecorder(maxSeconds int) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}

	r := &Recorder{
		malgoCtx:   ctx,
		maxSeconds: maxSeconds,
		buf:        new(bytes.Buffer),
	}

	if err := r.initDevice(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("initialize capture device: %w", err)
	}

	return r, nil
}

func (r *Recorder) initDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = SampleRate
	deviceConfig.Alsa.NoMMap = 1

	onData := func(_, pInputSamples []byte, _ uint32) {
		r.mu.Lock()
		defer r.mu.Unlock()

		if !r.recording {
			return
		}
		if time.Since(r.startTime) > time.Duration(r.maxSeconds)*time.Second {
			r.recording = false
			return
		}
		r.buf.Write(pInputSamples)
	}

	var err error
	r.device, err = malgo.InitDevice(r.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return err
	}

	if err := r.device.Start(); err != nil {
		r.device.Uninit()
		r.device = nil
		return err
	}
	return nil
}

// Start begins buffering samples.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return fmt.Errorf("already recording")
	}

	r.buf.Reset()
	r.recording = true
	r.startTime = time.Now()
	return nil
}

// Recording reports whether samples are currently being buffered.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Stop ends buffering and returns the captured clip, truncated to the
// elapsed wall-clock duration so a mid-capture stop never hands over more
// samples than were actually spoken.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.recording && r.buf.Len() == 0 {
		return Clip{}, fmt.Errorf("not recording")
	}

	r.recording = false
	elapsed := time.Since(r.startTime)

	data := make([]byte, r.buf.Len())
	copy(data, r.buf.Bytes())
	data = truncateToElapsed(data, elapsed)

	return Clip{
		Data:       data,
		SampleRate: SampleRate,
		Channels:   1,
		Duration:   elapsed,
	}, nil
}

// truncateToElapsed caps the PCM buffer at the number of whole samples the
// elapsed time accounts for.
func truncateToElapsed(data []byte, elapsed time.Duration) []byte {
	maxSamples := int(elapsed.Seconds() * float64(SampleRate))
	maxBytes := maxSamples * 2
	if maxBytes >= 0 && maxBytes < len(data) {
		data = data[:maxBytes]
	}
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	return data
}

// Close stops and releases the capture device.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device != nil {
		r.device.Stop()
		r.device.Uninit()
		r.device = nil
	}
	if r.malgoCtx != nil {
		_ = r.malgoCtx.Uninit()
		r.malgoCtx.Free()
		r.malgoCtx = nil
	}
	return nil
}
