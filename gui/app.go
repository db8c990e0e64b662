//go:build gui

package gui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/go-gl/glfw/v3.3/glfw"

	"justspeak/overlay"
)

const (
	glyphSize = 18
	maxGlyphs = 512
	trailDots = 16
)

var monoStyle = fyne.TextStyle{Monospace: true}

// App draws overlay frames into a frameless, non-focusing window.
type App struct {
	fyneApp fyne.App
	window  fyne.Window

	mu      sync.Mutex
	screenW int
	screenH int
	cell    overlay.Point
	shown   bool

	bubble *canvas.Rectangle
	tail   [3]*canvas.Line
	label  *canvas.Text
	glyphs []*canvas.Text
	fly    *canvas.Text
	trail  []*canvas.Circle
}

func NewApp() *App {
	return &App{}
}

// Run owns the calling (main) thread until Quit. onReady runs in its own
// goroutine once the window exists.
func (a *App) Run(onReady func()) error {
	a.fyneApp = app.NewWithID("io.justspeak.overlay")
	a.fyneApp.Settings().SetTheme(&overlayTheme{})

	a.screenW, a.screenH = 1920, 1080
	if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
		_, _, a.screenW, a.screenH = monitor.GetWorkarea()
	}

	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		a.window = drv.CreateSplashWindow()
	} else {
		a.window = a.fyneApp.NewWindow("justspeak")
	}

	size := fyne.MeasureText("M", glyphSize, monoStyle)
	a.cell = overlay.Point{X: float64(size.Width), Y: float64(size.Height)}

	a.window.SetContent(a.build())
	a.window.SetFixedSize(true)
	a.window.SetPadded(false)
	a.window.Resize(fyne.NewSize(WindowWidth, WindowHeight))

	go onReady()

	// stays hidden until the first visible frame
	a.fyneApp.Run()
	return nil
}

func (a *App) ScreenSize() (w, h int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screenW, a.screenH
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		a.fyneApp.Quit()
	}
}

func (a *App) build() fyne.CanvasObject {
	a.bubble = canvas.NewRectangle(bubbleColor)
	a.bubble.CornerRadius = 14
	a.bubble.StrokeColor = strokeColor
	a.bubble.StrokeWidth = 2

	objects := []fyne.CanvasObject{}
	for i := range a.tail {
		a.tail[i] = canvas.NewLine(strokeColor)
		a.tail[i].StrokeWidth = 2
		objects = append(objects, a.tail[i])
	}
	objects = append(objects, a.bubble)

	a.label = canvas.NewText("", textColor)
	a.label.TextSize = glyphSize
	objects = append(objects, a.label)

	a.glyphs = make([]*canvas.Text, maxGlyphs)
	for i := range a.glyphs {
		t := canvas.NewText("", textColor)
		t.TextSize = glyphSize
		t.TextStyle = monoStyle
		a.glyphs[i] = t
		objects = append(objects, t)
	}

	a.trail = make([]*canvas.Circle, trailDots)
	for i := range a.trail {
		a.trail[i] = canvas.NewCircle(trailColor)
		objects = append(objects, a.trail[i])
	}

	a.fly = canvas.NewText("", textColor)
	a.fly.TextStyle = fyne.TextStyle{Bold: true}
	objects = append(objects, a.fly)

	return container.NewWithoutLayout(objects...)
}

// Render implements overlay.Renderer.
func (a *App) Render(st overlay.State) {
	p := Layout(st, a.cell)
	fyne.Do(func() { a.draw(p) })
}

func (a *App) draw(p Placement) {
	if a.window == nil {
		return
	}
	if !p.Visible {
		if a.shown {
			a.window.Hide()
			a.shown = false
		}
		return
	}

	a.drawBubble(p)
	a.drawGlyphs(p.Glyphs)
	a.drawFlyout(p)
	a.show(p.Origin)
	a.window.Canvas().Refresh(a.window.Content())
}

func (a *App) drawBubble(p Placement) {
	a.bubble.Hidden = !p.Bubble
	for _, l := range a.tail {
		l.Hidden = !p.Bubble
	}
	a.label.Hidden = !p.Bubble || p.Label == ""
	if !p.Bubble {
		return
	}
	a.bubble.Move(fyne.NewPos(padding/2, padding/2))
	a.bubble.Resize(fyne.NewSize(WindowWidth-padding, WindowHeight-padding))

	edges := [3][2]overlay.Point{{p.Tail[0], p.Tail[2]}, {p.Tail[1], p.Tail[2]}, {p.Tail[0], p.Tail[1]}}
	for i, e := range edges {
		a.tail[i].Position1 = pos(e[0])
		a.tail[i].Position2 = pos(e[1])
	}
	// the base edge lies under the bubble
	a.tail[2].Hidden = true

	c := textColor
	if p.Error {
		c = errorColor
	}
	c.A = Alpha8(p.LabelA)
	a.label.Text = p.Label
	a.label.Color = c
	a.label.Move(fyne.NewPos(padding, padding))
}

func (a *App) drawGlyphs(gs []Glyph) {
	for i, t := range a.glyphs {
		if i >= len(gs) {
			t.Hidden = true
			continue
		}
		g := gs[i]
		c := textColor
		c.A = Alpha8(g.Alpha)
		t.Text = string(g.Rune)
		t.Color = c
		t.Hidden = false
		t.Move(pos(g.Pos))
	}
}

func (a *App) drawFlyout(p Placement) {
	a.fly.Hidden = p.FlyText == ""
	if !a.fly.Hidden {
		c := textColor
		c.A = Alpha8(p.FlyA)
		a.fly.Text = p.FlyText
		a.fly.Color = c
		a.fly.TextSize = float32(p.FlySize)
		size := fyne.MeasureText(p.FlyText, a.fly.TextSize, a.fly.TextStyle)
		a.fly.Move(fyne.NewPos(float32(p.FlyPos.X)-size.Width/2, float32(p.FlyPos.Y)-size.Height/2))
	}
	for i, c := range a.trail {
		if i >= len(p.Trail) {
			c.Hidden = true
			continue
		}
		d := p.Trail[i]
		fill := trailColor
		fill.A = Alpha8(d.Alpha)
		c.FillColor = fill
		c.Hidden = false
		r := float32(d.Radius)
		c.Move(fyne.NewPos(float32(d.Pos.X)-r, float32(d.Pos.Y)-r))
		c.Resize(fyne.NewSize(2*r, 2*r))
	}
}

// show moves the window and maps it without taking focus.
func (a *App) show(origin overlay.Point) {
	glfwWin := glfw.GetCurrentContext()
	if glfwWin == nil {
		if !a.shown {
			a.window.Show()
			a.shown = true
		}
		return
	}
	glfwWin.SetPos(int(origin.X), int(origin.Y))
	if !a.shown {
		glfwWin.SetAttrib(glfw.FocusOnShow, glfw.False)
		glfwWin.SetAttrib(glfw.Floating, glfw.True)
		glfwWin.Show()
		a.shown = true
	}
}

func pos(p overlay.Point) fyne.Position {
	return fyne.NewPos(float32(p.X), float32(p.Y))
}

var (
	bubbleColor = color.NRGBA{R: 24, G: 24, B: 28, A: 235}
	strokeColor = color.NRGBA{R: 90, G: 90, B: 100, A: 255}
	textColor   = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
	errorColor  = color.NRGBA{R: 255, G: 95, B: 95, A: 255}
	trailColor  = color.NRGBA{R: 120, G: 170, B: 255, A: 255}
)
