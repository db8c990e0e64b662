package overlay

import (
	"context"
	"sync/atomic"
	"time"

	"justspeak/log"
)

const (
	frameInterval  = 16 * time.Millisecond
	cursorInterval = 50 * time.Millisecond
)

// Event is reported back to whoever drives the overlay.
type Event int

const (
	FlyoutDone Event = iota
	Hidden
)

func (e Event) String() string {
	if e == FlyoutDone {
		return "flyout_done"
	}
	return "hidden"
}

// Renderer draws one frame. Render is called from the runner goroutine and
// must not block for long.
type Renderer interface {
	Render(State)
}

// CursorFunc reports the pointer position. It is polled while the overlay
// is visible.
type CursorFunc func(ctx context.Context) Point

type cmdKind int

const (
	cmdShowRecording cmdKind = iota
	cmdUpdateText
	cmdBeginFlyout
	cmdHide
	cmdShowError
)

type command struct {
	kind cmdKind
	text string
	pos  Point
}

// Runner owns an Engine on a single goroutine. Commands are applied in the
// order they were issued; frames are rendered at roughly 60Hz.
type Runner struct {
	engine   *Engine
	renderer Renderer
	cursor   CursorFunc
	now      func() time.Time

	cmds    chan command
	events  chan Event
	cursors chan Point
	done    chan struct{}
	visible atomic.Bool
}

// NewRunner builds a runner. A nil renderer runs the engine headless so
// fly-out completion and hide events still flow.
func NewRunner(cfg Config, r Renderer, cursor CursorFunc) *Runner {
	return &Runner{
		engine:   NewEngine(cfg),
		renderer: r,
		cursor:   cursor,
		now:      time.Now,
		cmds:     make(chan command, 64),
		events:   make(chan Event, 16),
		cursors:  make(chan Point, 1),
		done:     make(chan struct{}),
	}
}

func (r *Runner) Events() <-chan Event { return r.events }

func (r *Runner) ShowRecording()      { r.send(command{kind: cmdShowRecording}) }
func (r *Runner) UpdateText(t string) { r.send(command{kind: cmdUpdateText, text: t}) }
func (r *Runner) Hide()               { r.send(command{kind: cmdHide}) }
func (r *Runner) ShowError(msg string) {
	r.send(command{kind: cmdShowError, text: msg})
}

func (r *Runner) BeginFlyout(text string, cursor Point) {
	r.send(command{kind: cmdBeginFlyout, text: text, pos: cursor})
}

func (r *Runner) send(c command) {
	select {
	case r.cmds <- c:
	case <-r.done:
	}
}

// Run drives the engine until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	if r.cursor != nil {
		go r.pollCursor(ctx)
	}

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	last, drawn := PhaseHidden, PhaseHidden
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c := <-r.cmds:
			r.apply(c)
		case p := <-r.cursors:
			r.engine.SetCursor(p)
		case <-ticker.C:
			st := r.engine.Frame(r.now())
			r.visible.Store(r.engine.Phase() != PhaseHidden)
			if r.renderer != nil && (st.Phase != PhaseHidden || drawn != PhaseHidden) {
				r.renderer.Render(st)
			}
			drawn = st.Phase
			if st.Completed {
				r.emit(FlyoutDone)
			}
			if last != PhaseHidden && r.engine.Phase() == PhaseHidden {
				r.emit(Hidden)
			}
			last = r.engine.Phase()
		}
	}
}

func (r *Runner) apply(c command) {
	now := r.now()
	switch c.kind {
	case cmdShowRecording:
		r.engine.ShowRecording(now)
	case cmdUpdateText:
		r.engine.UpdateText(now, c.text)
	case cmdBeginFlyout:
		r.engine.BeginFlyout(now, c.text, c.pos)
	case cmdHide:
		r.engine.Hide(now)
	case cmdShowError:
		r.engine.ShowError(now, c.text)
	}
	r.visible.Store(r.engine.Phase() != PhaseHidden)
}

func (r *Runner) emit(ev Event) {
	select {
	case r.events <- ev:
	default:
		log.Warnf("overlay event %s dropped", ev)
	}
}

func (r *Runner) pollCursor(ctx context.Context) {
	ticker := time.NewTicker(cursorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.visible.Load() {
				continue
			}
			p := r.cursor(ctx)
			select {
			case <-r.cursors:
			default:
			}
			select {
			case r.cursors <- p:
			default:
			}
		}
	}
}
