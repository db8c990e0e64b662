package gui

import (
	"testing"

	"justspeak/overlay"
)

var cell = overlay.Point{X: 10, Y: 20}

func TestLayoutHidden(t *testing.T) {
	if p := Layout(overlay.State{Phase: overlay.PhaseHidden}, cell); p.Visible {
		t.Fatal("hidden state is visible")
	}
}

func TestLayoutCentersOnAnchor(t *testing.T) {
	st := overlay.State{
		Phase:       overlay.PhaseRecording,
		Anchor:      overlay.Point{X: 960, Y: 360},
		Placeholder: overlay.Placeholder,
		Pulse:       1,
		Tail:        overlay.TailGeometry(overlay.Point{X: 960, Y: 360}, overlay.Point{X: 960, Y: 2000}),
	}
	p := Layout(st, cell)
	if !p.Visible || !p.Bubble {
		t.Fatalf("placement = %+v", p)
	}
	if want := (overlay.Point{X: 960 - WindowWidth/2, Y: 360 - WindowHeight/2}); p.Origin != want {
		t.Errorf("origin = %v, want %v", p.Origin, want)
	}
	if p.Label != overlay.Placeholder || p.LabelA != 1 {
		t.Errorf("label %q alpha %v", p.Label, p.LabelA)
	}
	// tip far below the window is clamped to the bottom edge
	if p.Tail[2].Y != WindowHeight {
		t.Errorf("tail tip = %v", p.Tail[2])
	}
}

func TestLayoutGlyphsWrap(t *testing.T) {
	chars := make([]overlay.Char, 70)
	for i := range chars {
		chars[i] = overlay.Char{Glyph: 'a', Reveal: 1}
	}
	chars[69].Reveal = 0

	g := layoutGlyphs(chars, cell)
	cols := int((WindowWidth - 2*padding) / cell.X)
	if len(g) != len(chars) {
		t.Fatalf("got %d glyphs", len(g))
	}
	if g[cols].Pos.X != padding || g[cols].Pos.Y != padding+cell.Y {
		t.Errorf("glyph %d at %v, want start of second row", cols, g[cols].Pos)
	}
	last := g[69]
	if last.Alpha != 0 || last.Pos.Y != padding+cell.Y+cell.Y/2 {
		t.Errorf("unrevealed glyph = %+v", last)
	}
}

func TestLayoutGlyphsScrollToNewestRow(t *testing.T) {
	cols := int((WindowWidth - 2*padding) / cell.X)
	rows := int((WindowHeight - 2*padding) / cell.Y)
	chars := make([]overlay.Char, cols*(rows+2))
	for i := range chars {
		chars[i] = overlay.Char{Glyph: rune('a' + i%26), Reveal: 1}
	}
	g := layoutGlyphs(chars, cell)
	if len(g) != cols*rows {
		t.Fatalf("got %d glyphs, want %d", len(g), cols*rows)
	}
	if g[len(g)-1].Rune != chars[len(chars)-1].Glyph {
		t.Error("newest glyph not shown")
	}
}

func TestLayoutFlyout(t *testing.T) {
	st := overlay.State{
		Phase: overlay.PhaseFlyOut,
		Flyout: &overlay.Flyout{
			Text:     "hi",
			Position: overlay.Point{X: 500, Y: 500},
			Scale:    0.5,
			Opacity:  0.25,
			Trail: []overlay.TrailPoint{
				{Position: overlay.Point{X: 510, Y: 490}, Scale: 1, Opacity: 0.5},
				{Position: overlay.Point{X: 5000, Y: 490}, Scale: 1, Opacity: 0.5},
			},
		},
	}
	p := Layout(st, cell)
	if p.Bubble {
		t.Error("bubble drawn during fly-out")
	}
	if p.FlyPos != (overlay.Point{X: WindowWidth / 2, Y: WindowHeight / 2}) {
		t.Errorf("fly text at %v", p.FlyPos)
	}
	if p.FlySize != flyFontSize/2 || p.FlyA != 0.25 {
		t.Errorf("size %v alpha %v", p.FlySize, p.FlyA)
	}
	if len(p.Trail) != 1 {
		t.Errorf("trail points = %d, want the one inside the window", len(p.Trail))
	}
}

func TestLayoutError(t *testing.T) {
	p := Layout(overlay.State{Phase: overlay.PhaseError, Error: "speech server unavailable"}, cell)
	if !p.Error || p.Label != "speech server unavailable" {
		t.Errorf("placement = %+v", p)
	}
}

func TestAlpha8(t *testing.T) {
	for in, want := range map[float64]uint8{-1: 0, 0: 0, 0.5: 128, 1: 255, 2: 255} {
		if got := Alpha8(in); got != want {
			t.Errorf("Alpha8(%v) = %d, want %d", in, got, want)
		}
	}
}
