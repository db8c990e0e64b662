package overlay

import (
	"math"
	"time"
)

type Phase int

const (
	PhaseHidden Phase = iota
	PhaseRecording
	PhaseLiveText
	PhaseFlyOut
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseRecording:
		return "recording"
	case PhaseLiveText:
		return "live"
	case PhaseFlyOut:
		return "flyout"
	case PhaseError:
		return "error"
	default:
		return "hidden"
	}
}

const Placeholder = "listening…"

type Config struct {
	ScreenWidth  float64
	ScreenHeight float64

	Reveal   time.Duration
	Stagger  time.Duration
	Flight   time.Duration
	ErrorFor time.Duration

	Arc             float64
	SpiralTurns     float64
	SpiralAmplitude float64
	TrailLength     int
	TrailSpacing    float64

	// Cursor is used until the first SetCursor.
	Cursor Point
}

func DefaultConfig() Config {
	return Config{
		ScreenWidth:     1920,
		ScreenHeight:    1080,
		Reveal:          250 * time.Millisecond,
		Stagger:         25 * time.Millisecond,
		Flight:          350 * time.Millisecond,
		ErrorFor:        2 * time.Second,
		Arc:             0.25,
		SpiralTurns:     2.5,
		SpiralAmplitude: 25,
		TrailLength:     8,
		TrailSpacing:    0.04,
		Cursor:          Point{960, 800},
	}
}

// Anchor is the fixed panel center.
func (c Config) Anchor() Point {
	return Point{c.ScreenWidth / 2, c.ScreenHeight / 3}
}

type Char struct {
	Glyph  rune
	Spawn  time.Time
	Reveal float64
}

type TrailPoint struct {
	Position Point
	Scale    float64
	Opacity  float64
}

type Flyout struct {
	Text        string
	Start       Point
	Control     Point
	End         Point
	Progress    float64
	SpiralPhase float64
	Position    Point
	Scale       float64
	Opacity     float64
	Trail       []TrailPoint
}

// State is everything a renderer needs to draw one frame.
type State struct {
	Phase       Phase
	Chars       []Char
	Placeholder string
	Anchor      Point
	Cursor      Point
	Tail        Tail
	Pulse       float64
	Flyout      *Flyout
	Error       string

	// Completed is set on the single frame where the fly-out finishes.
	Completed bool
}

// Text returns the glyphs of the frame as a string.
func (s State) Text() string {
	r := make([]rune, len(s.Chars))
	for i, c := range s.Chars {
		r[i] = c.Glyph
	}
	return string(r)
}

type flight struct {
	text     string
	start    time.Time
	from     Point
	control  Point
	to       Point
	progress float64
}

// Engine holds the overlay model. It is not safe for concurrent use; the
// Runner owns it on one goroutine. Every command takes the current time so
// the animation can be driven by synthetic clocks.
type Engine struct {
	cfg Config

	phase      Phase
	phaseStart time.Time
	chars      []Char
	spawned    []time.Time
	cursor     Point
	fly        *flight
	errMsg     string
	errUntil   time.Time
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, cursor: cfg.Cursor}
}

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) reset() {
	e.phase = PhaseHidden
	e.chars = nil
	e.spawned = nil
	e.fly = nil
	e.errMsg = ""
}

func (e *Engine) ShowRecording(now time.Time) {
	e.reset()
	e.phase = PhaseRecording
	e.phaseStart = now
}

// UpdateText replaces the live text. Indices that already exist keep their
// spawn time, so a revised glyph swaps in place without animating again.
// A shorter text truncates the tail, but an index keeps its spawn time until
// the next reset, so text that grows back does not animate again. Only
// indices never shown before are staggered from now.
func (e *Engine) UpdateText(now time.Time, text string) {
	switch e.phase {
	case PhaseFlyOut, PhaseError:
		return
	case PhaseHidden:
		e.phaseStart = now
	}
	e.phase = PhaseLiveText

	runes := []rune(text)
	if len(runes) < len(e.chars) {
		e.chars = e.chars[:len(runes)]
	}
	for i := range e.chars {
		e.chars[i].Glyph = runes[i]
	}
	fresh := 0
	for i := len(e.chars); i < len(runes); i++ {
		if i >= len(e.spawned) {
			e.spawned = append(e.spawned, now.Add(time.Duration(fresh)*e.cfg.Stagger))
			fresh++
		}
		e.chars = append(e.chars, Char{Glyph: runes[i], Spawn: e.spawned[i]})
	}
}

// BeginFlyout launches text from the panel toward the cursor. Empty text
// hides the overlay without a completion.
func (e *Engine) BeginFlyout(now time.Time, text string, cursor Point) {
	if text == "" {
		e.reset()
		return
	}
	e.cursor = cursor
	from := e.cfg.Anchor()
	e.phase = PhaseFlyOut
	e.phaseStart = now
	e.fly = &flight{
		text:    text,
		start:   now,
		from:    from,
		control: ControlPoint(from, cursor, e.cfg.Arc),
		to:      cursor,
	}
}

func (e *Engine) Hide(now time.Time) {
	e.reset()
}

func (e *Engine) ShowError(now time.Time, msg string) {
	e.reset()
	e.phase = PhaseError
	e.phaseStart = now
	e.errMsg = msg
	e.errUntil = now.Add(e.cfg.ErrorFor)
}

// SetCursor moves the tail target. An active fly-out keeps its endpoint.
func (e *Engine) SetCursor(p Point) {
	e.cursor = p
}

// Frame advances time-based state and returns the render state for now.
func (e *Engine) Frame(now time.Time) State {
	anchor := e.cfg.Anchor()
	st := State{
		Phase:  e.phase,
		Anchor: anchor,
		Cursor: e.cursor,
	}

	switch e.phase {
	case PhaseHidden:
		return st

	case PhaseError:
		if !now.Before(e.errUntil) {
			e.reset()
			st.Phase = PhaseHidden
			return st
		}
		st.Error = e.errMsg
		st.Tail = TailGeometry(anchor, e.cursor)
		return st

	case PhaseRecording:
		st.Pulse = e.pulse(now)
		st.Tail = TailGeometry(anchor, e.cursor)
		return st

	case PhaseLiveText:
		st.Pulse = e.pulse(now)
		st.Tail = TailGeometry(anchor, e.cursor)
		if len(e.chars) == 0 {
			st.Placeholder = Placeholder
			return st
		}
		st.Chars = make([]Char, len(e.chars))
		for i, c := range e.chars {
			c.Reveal = e.reveal(now, c.Spawn)
			st.Chars[i] = c
		}
		return st

	case PhaseFlyOut:
		st.Flyout = e.flyFrame(now)
		if st.Flyout.Progress >= 1 {
			st.Completed = true
			e.reset()
		}
		return st
	}
	return st
}

func (e *Engine) pulse(now time.Time) float64 {
	elapsed := now.Sub(e.phaseStart).Seconds()
	return 0.5 + 0.5*math.Sin(elapsed*3)
}

func (e *Engine) reveal(now, spawn time.Time) float64 {
	if e.cfg.Reveal <= 0 {
		return 1
	}
	return EaseOutCubic(float64(now.Sub(spawn)) / float64(e.cfg.Reveal))
}

func (e *Engine) flyFrame(now time.Time) *Flyout {
	f := e.fly
	progress := 1.0
	if e.cfg.Flight > 0 {
		progress = clamp01(float64(now.Sub(f.start)) / float64(e.cfg.Flight))
	}
	// Frames may arrive with an older timestamp; never move backwards.
	if progress < f.progress {
		progress = f.progress
	}
	f.progress = progress

	eased := EaseInCubic(progress)
	fade := 1 - eased

	out := &Flyout{
		Text:        f.text,
		Start:       f.from,
		Control:     f.control,
		End:         f.to,
		Progress:    progress,
		SpiralPhase: eased * e.cfg.SpiralTurns * 2 * math.Pi,
		Position:    e.pathAt(f, eased, progress),
		Scale:       fade,
		Opacity:     fade,
	}

	n := e.cfg.TrailLength
	out.Trail = make([]TrailPoint, 0, n)
	for i := 1; i <= n; i++ {
		t := math.Max(0, eased-float64(i)*e.cfg.TrailSpacing)
		k := 1 - float64(i)/float64(n+1)
		out.Trail = append(out.Trail, TrailPoint{
			Position: e.pathAt(f, t, progress),
			Scale:    fade * k,
			Opacity:  fade * k,
		})
	}
	return out
}

// pathAt is the bezier point at t plus the damped spiral offset along the
// curve normal.
func (e *Engine) pathAt(f *flight, t, progress float64) Point {
	p := QuadBezier(f.from, f.control, f.to, t)
	tan := bezierTangent(f.from, f.control, f.to, t).unit()
	normal := Point{-tan.Y, tan.X}
	offset := math.Sin(t*e.cfg.SpiralTurns*2*math.Pi) * e.cfg.SpiralAmplitude * (1 - progress)
	return p.Add(normal.Scale(offset))
}
