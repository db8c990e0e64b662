package overlay

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearPoint(a, b Point) bool { return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6 }

func TestEasing(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"out start", EaseOutCubic, 0, 0},
		{"out end", EaseOutCubic, 1, 1},
		{"out half", EaseOutCubic, 0.5, 0.875},
		{"out clamp low", EaseOutCubic, -1, 0},
		{"out clamp high", EaseOutCubic, 3, 1},
		{"in start", EaseInCubic, 0, 0},
		{"in end", EaseInCubic, 1, 1},
		{"in half", EaseInCubic, 0.5, 0.125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); !near(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTailDirection(t *testing.T) {
	anchor := Point{960, 360}
	tests := []struct {
		cursor Point
		want   Direction
	}{
		{Point{960, 800}, TailDown},
		{Point{960, 100}, TailUp},
		{Point{1500, 400}, TailRight},
		{Point{100, 300}, TailLeft},
		{Point{1060, 460}, TailDown}, // tie resolves vertical
		{Point{860, 260}, TailUp},
	}
	for _, tt := range tests {
		if got := TailDirection(anchor, tt.cursor); got != tt.want {
			t.Errorf("TailDirection(%v) = %v, want %v", tt.cursor, got, tt.want)
		}
	}
}

func TestTailGeometry(t *testing.T) {
	anchor := Point{100, 100}

	tail := TailGeometry(anchor, Point{100, 400})
	if tail.Tip != (Point{100, 400}) {
		t.Errorf("tip = %v, want cursor", tail.Tip)
	}
	if tail.BaseA.Sub(tail.BaseB).Len() != 2*tailHalfBase {
		t.Errorf("base width = %v", tail.BaseA.Sub(tail.BaseB).Len())
	}

	tail = TailGeometry(anchor, Point{100, 110})
	if tail.Tip != (Point{100, 100 + tailMinLength}) {
		t.Errorf("short tail tip = %v, want min length", tail.Tip)
	}
}

func TestControlPoint(t *testing.T) {
	got := ControlPoint(Point{0, 0}, Point{100, 0}, 0.25)
	if !nearPoint(got, Point{50, 25}) {
		t.Errorf("ControlPoint = %v, want {50 25}", got)
	}
}

func TestQuadBezierEndpoints(t *testing.T) {
	p0, c, p1 := Point{0, 0}, Point{50, 50}, Point{100, 0}
	if !nearPoint(QuadBezier(p0, c, p1, 0), p0) || !nearPoint(QuadBezier(p0, c, p1, 1), p1) {
		t.Error("bezier should pass through its endpoints")
	}
	if !nearPoint(QuadBezier(p0, c, p1, 0.5), Point{50, 25}) {
		t.Errorf("midpoint = %v", QuadBezier(p0, c, p1, 0.5))
	}
}

func TestHiddenByDefault(t *testing.T) {
	e := NewEngine(DefaultConfig())
	st := e.Frame(t0)
	if st.Phase != PhaseHidden {
		t.Errorf("phase = %v, want hidden", st.Phase)
	}
	if st.Anchor != (Point{960, 360}) {
		t.Errorf("anchor = %v", st.Anchor)
	}
}

func TestRecordingPulse(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)

	st := e.Frame(t0)
	if st.Phase != PhaseRecording || !near(st.Pulse, 0.5) {
		t.Errorf("frame at start = %v pulse %v", st.Phase, st.Pulse)
	}
	st = e.Frame(at(time.Second))
	if want := 0.5 + 0.5*math.Sin(3); !near(st.Pulse, want) {
		t.Errorf("pulse = %v, want %v", st.Pulse, want)
	}
	if st.Tail.Dir != TailDown {
		t.Errorf("tail = %v, want down toward fallback cursor", st.Tail.Dir)
	}
}

func TestPlaceholder(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)
	e.UpdateText(at(time.Second), "")

	st := e.Frame(at(time.Second))
	if st.Phase != PhaseLiveText || st.Placeholder != Placeholder || len(st.Chars) != 0 {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateTextStaggersNewChars(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	e.ShowRecording(t0)

	e.UpdateText(at(time.Second), "he")
	e.UpdateText(at(2*time.Second), "hello")

	st := e.Frame(at(2 * time.Second))
	if st.Text() != "hello" {
		t.Fatalf("text = %q", st.Text())
	}
	for i, want := range []time.Time{
		at(time.Second),
		at(time.Second + cfg.Stagger),
		at(2 * time.Second),
		at(2*time.Second + cfg.Stagger),
		at(2*time.Second + 2*cfg.Stagger),
	} {
		if !st.Chars[i].Spawn.Equal(want) {
			t.Errorf("char %d spawn = %v, want %v", i, st.Chars[i].Spawn.Sub(t0), want.Sub(t0))
		}
	}
	if st.Chars[0].Reveal != 1 || st.Chars[1].Reveal != 1 {
		t.Error("old characters should be fully revealed")
	}
	if st.Chars[2].Reveal != 0 || st.Chars[4].Reveal != 0 {
		t.Error("new characters should start unrevealed")
	}

	st = e.Frame(at(2*time.Second + 2*cfg.Stagger + cfg.Reveal))
	for i, c := range st.Chars {
		if c.Reveal != 1 {
			t.Errorf("char %d reveal = %v after full duration", i, c.Reveal)
		}
	}
}

func TestRevealedCharsNeverRegress(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)
	e.UpdateText(at(time.Second), "helo")
	e.Frame(at(2 * time.Second))

	// Revision of an existing glyph swaps in place.
	e.UpdateText(at(3*time.Second), "hello world")
	st := e.Frame(at(3 * time.Second))
	for i := 0; i < 4; i++ {
		if st.Chars[i].Reveal != 1 {
			t.Errorf("char %d reveal = %v, want 1", i, st.Chars[i].Reveal)
		}
	}
	if st.Chars[3].Glyph != 'l' {
		t.Errorf("char 3 = %q, want revised glyph", st.Chars[3].Glyph)
	}

	e.UpdateText(at(4*time.Second), "hell")
	st = e.Frame(at(4 * time.Second))
	if st.Text() != "hell" {
		t.Errorf("shrink: text = %q", st.Text())
	}
	for i, c := range st.Chars {
		if c.Reveal != 1 {
			t.Errorf("char %d reveal = %v after shrink", i, c.Reveal)
		}
	}

	e.UpdateText(at(5*time.Second), "hello world!")
	st = e.Frame(at(5 * time.Second))
	if st.Text() != "hello world!" {
		t.Fatalf("regrow: text = %q", st.Text())
	}
	for i := 0; i < 11; i++ {
		if st.Chars[i].Reveal != 1 {
			t.Errorf("char %d reveal = %v after regrow", i, st.Chars[i].Reveal)
		}
	}
	if c := st.Chars[11]; c.Reveal != 0 || !c.Spawn.Equal(at(5*time.Second)) {
		t.Errorf("new char spawn = %v reveal = %v", c.Spawn.Sub(t0), c.Reveal)
	}

	// A full reset forgets spawn times.
	e.Hide(at(6 * time.Second))
	e.UpdateText(at(6*time.Second), "hello")
	if r := e.Frame(at(6 * time.Second)).Chars[0].Reveal; r != 0 {
		t.Errorf("reveal after hide = %v, want 0", r)
	}
}

func TestCharCountMatchesRunes(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)
	e.UpdateText(t0, "héllo wörld")
	if n := len(e.Frame(t0).Chars); n != 11 {
		t.Errorf("chars = %d, want 11", n)
	}
}

func TestFlyoutMonotonicAndCompletesOnce(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	e.ShowRecording(t0)
	e.UpdateText(t0, "hello")
	cursor := Point{1400, 900}
	e.BeginFlyout(at(time.Second), "hello", cursor)

	start := at(time.Second)
	last := -1.0
	completions := 0
	for ms := 0; ms <= 500; ms += 16 {
		st := e.Frame(start.Add(time.Duration(ms) * time.Millisecond))
		if st.Completed {
			completions++
		}
		if st.Flyout == nil {
			if st.Phase != PhaseHidden {
				t.Fatalf("at %dms phase = %v without flyout", ms, st.Phase)
			}
			continue
		}
		if st.Flyout.Progress < last {
			t.Fatalf("progress went backwards at %dms: %v < %v", ms, st.Flyout.Progress, last)
		}
		last = st.Flyout.Progress
	}
	if completions != 1 {
		t.Errorf("completions = %d, want 1", completions)
	}
	if last != 1 {
		t.Errorf("final progress = %v, want 1", last)
	}
	if st := e.Frame(start.Add(time.Second)); st.Phase != PhaseHidden || st.Completed {
		t.Errorf("after completion: %+v", st)
	}
}

func TestFlyoutProgressIgnoresOlderFrames(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.BeginFlyout(t0, "hi", Point{100, 100})

	p1 := e.Frame(at(200 * time.Millisecond)).Flyout.Progress
	p2 := e.Frame(at(100 * time.Millisecond)).Flyout.Progress
	if p2 < p1 {
		t.Errorf("progress regressed: %v then %v", p1, p2)
	}
}

func TestFlyoutPath(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	cursor := Point{1400, 900}
	e.BeginFlyout(t0, "hello", cursor)

	st := e.Frame(t0)
	f := st.Flyout
	if !nearPoint(f.Position, cfg.Anchor()) {
		t.Errorf("start position = %v, want anchor", f.Position)
	}
	if f.Scale != 1 || f.Opacity != 1 {
		t.Errorf("start scale/opacity = %v/%v", f.Scale, f.Opacity)
	}
	if !nearPoint(f.Control, ControlPoint(cfg.Anchor(), cursor, cfg.Arc)) {
		t.Errorf("control = %v", f.Control)
	}
	if len(f.Trail) != cfg.TrailLength {
		t.Fatalf("trail = %d points", len(f.Trail))
	}

	st = e.Frame(at(cfg.Flight / 2))
	f = st.Flyout
	want := 1 - EaseInCubic(0.5)
	if !near(f.Scale, want) || !near(f.Opacity, want) {
		t.Errorf("mid scale/opacity = %v/%v, want %v", f.Scale, f.Opacity, want)
	}
	for i := 1; i < len(f.Trail); i++ {
		if f.Trail[i].Opacity >= f.Trail[i-1].Opacity {
			t.Errorf("trail opacity should fade with index: %v >= %v", f.Trail[i].Opacity, f.Trail[i-1].Opacity)
		}
	}

	st = e.Frame(at(cfg.Flight))
	if !st.Completed || !nearPoint(st.Flyout.Position, cursor) {
		t.Errorf("end: completed=%v position=%v", st.Completed, st.Flyout.Position)
	}
	if st.Flyout.Scale != 0 {
		t.Errorf("end scale = %v", st.Flyout.Scale)
	}
}

func TestFlyoutZeroFlightCompletesImmediately(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flight = 0
	e := NewEngine(cfg)
	e.BeginFlyout(t0, "x", Point{1, 1})
	if st := e.Frame(t0); !st.Completed {
		t.Error("zero flight should complete on first frame")
	}
}

func TestEmptyFlyoutHides(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)
	e.BeginFlyout(t0, "", Point{1, 1})
	st := e.Frame(at(time.Second))
	if st.Phase != PhaseHidden || st.Completed {
		t.Errorf("state = %+v", st)
	}
}

func TestUpdateTextIgnoredDuringFlyout(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.BeginFlyout(t0, "done", Point{1, 1})
	e.UpdateText(t0, "late partial")
	if st := e.Frame(t0); st.Phase != PhaseFlyOut || st.Flyout.Text != "done" {
		t.Errorf("state = %+v", st)
	}
}

func TestErrorExpires(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	e.ShowError(t0, "server unavailable")

	if st := e.Frame(at(time.Second)); st.Phase != PhaseError || st.Error != "server unavailable" {
		t.Errorf("state = %+v", st)
	}
	if st := e.Frame(at(cfg.ErrorFor)); st.Phase != PhaseHidden {
		t.Errorf("error should expire, phase = %v", st.Phase)
	}
	if e.Phase() != PhaseHidden {
		t.Errorf("engine phase = %v", e.Phase())
	}
}

func TestHideResets(t *testing.T) {
	e := NewEngine(DefaultConfig())
	e.ShowRecording(t0)
	e.UpdateText(t0, "hello")
	e.Hide(t0)
	st := e.Frame(t0)
	if st.Phase != PhaseHidden || len(st.Chars) != 0 {
		t.Errorf("state = %+v", st)
	}
}
