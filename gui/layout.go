package gui

import (
	"math"

	"justspeak/overlay"
)

// The overlay window is a fixed-size panel. It sits centered on the anchor
// while text is live and follows the flying text during the fly-out.
const (
	WindowWidth  = 640
	WindowHeight = 220

	padding     = 24
	flyFontSize = 22
	trailRadius = 6
)

type Glyph struct {
	Rune  rune
	Pos   overlay.Point
	Alpha float64
}

type Dot struct {
	Pos    overlay.Point
	Radius float64
	Alpha  float64
}

// Placement is one frame in window-local coordinates.
type Placement struct {
	Visible bool
	// Origin is the window's top-left corner on screen.
	Origin overlay.Point

	Bubble  bool
	Tail    [3]overlay.Point
	Glyphs  []Glyph
	Label   string
	LabelA  float64
	Error   bool
	FlyText string
	FlyPos  overlay.Point
	FlySize float64
	FlyA    float64
	Trail   []Dot
}

// Layout places st inside the window. cell is the size of one monospace
// glyph.
func Layout(st overlay.State, cell overlay.Point) Placement {
	if st.Phase == overlay.PhaseHidden {
		return Placement{}
	}
	half := overlay.Point{X: WindowWidth / 2, Y: WindowHeight / 2}

	if st.Phase == overlay.PhaseFlyOut {
		p := Placement{Visible: true}
		if st.Flyout == nil {
			return p
		}
		f := st.Flyout
		p.Origin = f.Position.Sub(half)
		p.FlyText = f.Text
		p.FlyPos = half
		p.FlySize = flyFontSize * f.Scale
		p.FlyA = f.Opacity
		for _, t := range f.Trail {
			local := t.Position.Sub(p.Origin)
			if !inside(local) {
				continue
			}
			p.Trail = append(p.Trail, Dot{Pos: local, Radius: trailRadius * t.Scale, Alpha: t.Opacity})
		}
		return p
	}

	p := Placement{Visible: true, Bubble: true, Origin: st.Anchor.Sub(half)}
	p.Tail = [3]overlay.Point{
		clampLocal(st.Tail.BaseA.Sub(p.Origin)),
		clampLocal(st.Tail.BaseB.Sub(p.Origin)),
		clampLocal(st.Tail.Tip.Sub(p.Origin)),
	}

	switch st.Phase {
	case overlay.PhaseRecording:
		p.Label = st.Placeholder
		p.LabelA = 0.4 + 0.6*st.Pulse
	case overlay.PhaseError:
		p.Label = st.Error
		p.LabelA = 1
		p.Error = true
	case overlay.PhaseLiveText:
		p.Glyphs = layoutGlyphs(st.Chars, cell)
	}
	return p
}

// layoutGlyphs wraps characters into rows and keeps the newest row visible.
func layoutGlyphs(chars []overlay.Char, cell overlay.Point) []Glyph {
	if cell.X <= 0 || cell.Y <= 0 {
		return nil
	}
	cols := max(int((WindowWidth-2*padding)/cell.X), 1)
	rows := max(int((WindowHeight-2*padding)/cell.Y), 1)
	first := 0
	if total := (len(chars) + cols - 1) / cols; total > rows {
		first = (total - rows) * cols
	}

	out := make([]Glyph, 0, len(chars)-first)
	for i := first; i < len(chars); i++ {
		n := i - first
		c := chars[i]
		// revealing glyphs rise into place
		lift := (1 - c.Reveal) * cell.Y / 2
		out = append(out, Glyph{
			Rune:  c.Glyph,
			Pos:   overlay.Point{X: padding + float64(n%cols)*cell.X, Y: padding + float64(n/cols)*cell.Y + lift},
			Alpha: c.Reveal,
		})
	}
	return out
}

func inside(p overlay.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= WindowWidth && p.Y <= WindowHeight
}

func clampLocal(p overlay.Point) overlay.Point {
	return overlay.Point{
		X: math.Max(0, math.Min(WindowWidth, p.X)),
		Y: math.Max(0, math.Min(WindowHeight, p.Y)),
	}
}

// Alpha8 converts an opacity to an 8-bit channel.
func Alpha8(a float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, a)) * 255))
}
