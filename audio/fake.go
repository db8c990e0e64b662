package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

const fakeChunkSamples = 1024

// FakeContext replays prerecorded samples through every capture it creates.
type FakeContext struct {
	samples    []int16
	sampleRate int
	realtime   bool

	// StartErr, when set, makes every capture fail to start.
	StartErr error
}

// NewFakeContext loads a 16-bit WAV file. In realtime mode chunks are paced
// at the file's sample rate and silence follows the audio.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", wavPath)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wavPath, err)
	}
	if dec.BitDepth != 16 {
		return nil, fmt.Errorf("%s: want 16-bit samples, got %d", wavPath, dec.BitDepth)
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		channels = 1
	}
	samples := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		samples = append(samples, int16(buf.Data[i]))
	}
	return NewFakeContextFromSamples(samples, int(dec.SampleRate), realtime), nil
}

func NewFakeContextFromSamples(samples []int16, sampleRate int, realtime bool) *FakeContext {
	return &FakeContext{samples: samples, sampleRate: sampleRate, realtime: realtime}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{ctx: f, audioDone: make(chan struct{})}, nil
}

type FakeCapture struct {
	ctx       *FakeContext
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone closes once every prerecorded sample has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) deliver(chunk []int16) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb == nil {
		return
	}
	data := make([]byte, len(chunk)*2)
	for i, s := range chunk {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	cb(data, uint32(len(chunk)))
}

func (f *FakeCapture) Start() error {
	if f.ctx.StartErr != nil {
		return f.ctx.StartErr
	}
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})

	interval := time.Millisecond
	if f.ctx.realtime && f.ctx.sampleRate > 0 {
		interval = time.Duration(fakeChunkSamples) * time.Second / time.Duration(f.ctx.sampleRate)
	}

	go func() {
		defer close(f.feedDone)
		samples := f.ctx.samples
		silence := make([]int16, fakeChunkSamples)
		finished := false
		for pos := 0; ; {
			if pos < len(samples) {
				end := min(pos+fakeChunkSamples, len(samples))
				f.deliver(samples[pos:end])
				pos = end
			} else {
				if !finished {
					finished = true
					close(f.audioDone)
				}
				if !f.ctx.realtime {
					<-f.stopCh
					return
				}
				f.deliver(silence)
			}
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
