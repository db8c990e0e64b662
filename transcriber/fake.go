package transcriber

import (
	"context"
	"sync"
)

// Fake answers every request with a fixed text or error.
type Fake struct {
	text string
	err  error

	mu    sync.Mutex
	calls []FakeCall
}

type FakeCall struct {
	Samples int
	Final   bool
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Transcribe(ctx context.Context, samples []int16, final bool) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Samples: len(samples), Final: final})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(samples) == 0 {
		return "", ErrEmptyAudio
	}
	return f.text, f.err
}

func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall(nil), f.calls...)
}
