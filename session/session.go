// Package session sequences one push-to-talk cycle: recording, periodic and
// final transcription, the overlay fly-out and text injection.
package session

import (
	"context"
	"time"

	"github.com/rs/xid"

	"justspeak/audio"
	"justspeak/hotkey"
	"justspeak/overlay"
	"justspeak/paste"
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StatePasting
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StatePasting:
		return "pasting"
	default:
		return "idle"
	}
}

type KeySource interface {
	Events() <-chan hotkey.Event
}

type Recording interface {
	Snapshot() []int16
	Stop() []int16
}

type AudioSource interface {
	Start() (Recording, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, samples []int16, final bool) (string, error)
}

type Injector interface {
	Inject(ctx context.Context, text string, class paste.WindowClass) error
}

type Locator interface {
	Position(ctx context.Context) overlay.Point
	ActiveWindow(ctx context.Context) paste.WindowClass
}

type Overlay interface {
	ShowRecording()
	UpdateText(text string)
	BeginFlyout(text string, cursor overlay.Point)
	Hide()
	ShowError(msg string)
	Events() <-chan overlay.Event
}

// Cues are the audible start, end and error signals.
type Cues interface {
	Start()
	End()
	Error()
}

type nopCues struct{}

func (nopCues) Start() {}
func (nopCues) End()   {}
func (nopCues) Error() {}

type recorderSource struct {
	r *audio.Recorder
}

// FromRecorder adapts an audio.Recorder to AudioSource.
func FromRecorder(r *audio.Recorder) AudioSource {
	return recorderSource{r}
}

func (s recorderSource) Start() (Recording, error) {
	rec, err := s.r.Start()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Session is one press-to-release cycle.
type Session struct {
	ID        xid.ID
	State     State
	StartedAt time.Time
	Text      string

	nextID      uint64
	highestSeen uint64
	recording   Recording

	finalText string
	class     paste.WindowClass
	flownOut  bool
	hidden    bool
	injected  bool
	err       error
}

func newSession(start time.Time, rec Recording) *Session {
	return &Session{
		ID:        xid.New(),
		State:     StateRecording,
		StartedAt: start,
		recording: rec,
	}
}

func (s *Session) next() uint64 {
	s.nextID++
	return s.nextID
}

// accept reports whether a response with this id is newer than everything
// seen so far.
func (s *Session) accept(id uint64) bool {
	return id > s.highestSeen
}

// Status is what the orchestrator reports on every state change.
type Status struct {
	State     State
	SessionID string
	Text      string
	Err       error
}
