package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Recorder hands out at most one Recording at a time. Each Recording owns its
// capture device from Start until Stop.
type Recorder struct {
	ctx     Context
	device  *DeviceInfo
	config  CaptureConfig
	onLevel func(rms float64)

	mu     sync.Mutex
	active *Recording
}

func NewRecorder(ctx Context, device *DeviceInfo, config CaptureConfig) *Recorder {
	return &Recorder{ctx: ctx, device: device, config: config}
}

// OnLevel registers a callback receiving the RMS level of every captured chunk.
func (r *Recorder) OnLevel(fn func(rms float64)) {
	r.mu.Lock()
	r.onLevel = fn
	r.mu.Unlock()
}

func (r *Recorder) DeviceName() string {
	if r.device != nil {
		return r.device.Name
	}
	return "system default"
}

func (r *Recorder) Start() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrBusy
	}

	capture, err := r.ctx.NewCapture(r.device, r.config)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", asUnavailable(err))
	}

	rec := &Recording{
		recorder:   r,
		capture:    capture,
		sampleRate: int(r.config.SampleRate),
		started:    time.Now(),
		onLevel:    r.onLevel,
	}
	capture.SetCallback(rec.write)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return nil, fmt.Errorf("start capture: %w", asUnavailable(err))
	}
	r.active = rec
	return rec, nil
}

func (r *Recorder) release(rec *Recording) {
	r.mu.Lock()
	if r.active == rec {
		r.active = nil
	}
	r.mu.Unlock()
}

func asUnavailable(err error) error {
	if errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
}

// Recording accumulates mono 16-bit samples for one session.
type Recording struct {
	recorder   *Recorder
	capture    CaptureDevice
	sampleRate int
	started    time.Time
	onLevel    func(float64)

	mu      sync.Mutex
	samples []int16
	stopped bool
	once    sync.Once
}

func (r *Recording) write(data []byte, _ uint32) {
	n := len(data) / 2
	if n == 0 {
		return
	}
	chunk := make([]int16, n)
	var sumSquares float64
	for i := range chunk {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		chunk[i] = s
		v := float64(s) / 32768.0
		sumSquares += v * v
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.samples = append(r.samples, chunk...)
	r.mu.Unlock()

	if r.onLevel != nil {
		r.onLevel(math.Sqrt(sumSquares / float64(n)))
	}
}

// Snapshot copies everything captured so far without stopping.
func (r *Recording) Snapshot() []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int16, len(r.samples))
	copy(out, r.samples)
	return out
}

// Stop releases the device and returns the full buffer. Later calls return
// the same buffer.
func (r *Recording) Stop() []int16 {
	r.once.Do(func() {
		r.capture.Stop()
		r.capture.ClearCallback()
		r.capture.Close()
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		r.recorder.release(r)
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples
}

// Duration is the length of captured audio.
func (r *Recording) Duration() time.Duration {
	r.mu.Lock()
	n := len(r.samples)
	r.mu.Unlock()
	return SamplesDuration(n, r.sampleRate)
}

func SamplesDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}
