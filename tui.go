package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"justspeak/overlay"
	"justspeak/session"
)

type StatusMsg session.Status
type FrameMsg struct{ State overlay.State }
type LevelMsg struct{ Level float64 }
type ModeLineMsg struct{ Text string }   // provider, format and server
type DeviceLineMsg struct{ Text string } // microphone device name
type tickMsg time.Time

// tuiRenderer draws overlay frames into the terminal UI.
type tuiRenderer struct{}

func (tuiRenderer) Render(st overlay.State) { tuiSend(FrameMsg{State: st}) }

type tuiModel struct {
	state         session.State
	frame         int
	recStart      time.Time
	now           time.Time
	audioLevel    float64
	peakLevel     float64 // peak audio level during current recording
	width, height int
	modeLine      string
	deviceLine    string
	overlay       overlay.State
	lastText      string
	lastErr       error
	msgCount      int
}

// Pre-computed pixel styles to avoid allocations in render loop
var (
	pixelColorsRec  = []string{"", "226", "220", "214", "208", "196", "160", "124", "88", "52", "236", "236", "236", "236", "255", "249"}
	pixelColorsIdle = []string{"", "231", "224", "217", "210", "160", "124", "88", "52", "236", "236", "236", "236", "236", "255", "249"}
	pixelStylesRec  [16]lipgloss.Style
	pixelStylesIdle [16]lipgloss.Style
	pixelBgRec      [16][16]lipgloss.Style
	pixelBgIdle     [16][16]lipgloss.Style
)

func init() {
	for i, c := range pixelColorsRec {
		if c != "" {
			pixelStylesRec[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		}
	}
	for i, c := range pixelColorsIdle {
		if c != "" {
			pixelStylesIdle[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
		}
	}
	for i, fg := range pixelColorsRec {
		for j, bg := range pixelColorsRec {
			if fg != "" && bg != "" {
				pixelBgRec[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
	for i, fg := range pixelColorsIdle {
		for j, bg := range pixelColorsIdle {
			if fg != "" && bg != "" {
				pixelBgIdle[i][j] = lipgloss.NewStyle().Foreground(lipgloss.Color(fg)).Background(lipgloss.Color(bg))
			}
		}
	}
}

func NewTUIProgram() *tea.Program {
	return tea.NewProgram(tuiModel{}, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case tickMsg:
		m.frame++
		m.now = time.Time(msg)
		return m, tuiTick()

	case StatusMsg:
		m = m.applyStatus(session.Status(msg))

	case FrameMsg:
		m.overlay = msg.State

	case LevelMsg:
		if m.state == session.StateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			m.peakLevel = max(m.peakLevel, msg.Level)
		}

	case ModeLineMsg:
		m.modeLine = msg.Text

	case DeviceLineMsg:
		m.deviceLine = msg.Text
	}
	return m, nil
}

func (m tuiModel) applyStatus(st session.Status) tuiModel {
	if st.State == session.StateRecording && m.state != session.StateRecording {
		m.recStart = time.Now()
		m.audioLevel = 0
		m.peakLevel = 0
	}
	if st.State != session.StateRecording {
		m.audioLevel = 0
	}
	if st.State == session.StateIdle && m.state != session.StateIdle {
		switch {
		case errors.Is(st.Err, context.Canceled):
		case st.Err != nil:
			m.lastErr = st.Err
		case st.Text != "":
			m.msgCount++
			m.lastText = st.Text
			m.lastErr = nil
		}
	}
	m.state = st.State
	return m
}

func (m tuiModel) recordingDuration() float64 {
	if m.recStart.IsZero() || m.now.Before(m.recStart) {
		return 0
	}
	return m.now.Sub(m.recStart).Seconds()
}

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	faintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	textStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	revealStyles [4]lipgloss.Style
)

func init() {
	for i, c := range []string{"238", "244", "250", "255"} {
		revealStyles[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case session.StateRecording:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).
			Render(fmt.Sprintf("● REC %.1fs", m.recordingDuration()))
	case session.StateTranscribing:
		return warnStyle.Render("◌ TRANSCRIBING")
	case session.StatePasting:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("➜ PASTING")
	}
	return dimStyle.Render("○ STANDBY")
}

// bubbleView renders the live overlay: revealed glyphs brighten as they
// animate in, the fly-out shows as a progress bar.
func (m tuiModel) bubbleView(width int) string {
	st := m.overlay
	switch st.Phase {
	case overlay.PhaseRecording:
		c := revealStyles[int(st.Pulse*float64(len(revealStyles)-1)+0.5)]
		return c.Render(overlay.Placeholder) + faintStyle.Render("  tail "+st.Tail.Dir.String())
	case overlay.PhaseLiveText:
		var b strings.Builder
		for i, ch := range st.Chars {
			if i > 0 && i%width == 0 {
				b.WriteString("\n")
			}
			idx := int(ch.Reveal * float64(len(revealStyles)-1))
			b.WriteString(revealStyles[idx].Render(string(ch.Glyph)))
		}
		return b.String()
	case overlay.PhaseFlyOut:
		if st.Flyout == nil {
			return ""
		}
		const barWidth = 20
		filled := int(st.Flyout.Progress * barWidth)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		return textStyle.Render(bar) + faintStyle.Render(fmt.Sprintf(" → %.0f,%.0f", st.Flyout.End.X, st.Flyout.End.Y))
	case overlay.PhaseError:
		return errStyle.Render("✗ " + st.Error)
	}
	return ""
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	const eyeWidth = 45
	recording := m.state == session.StateRecording
	level := m.audioLevel
	if !recording {
		level = 0
	}

	eye := renderHALEye(m.frame, level, recording)

	infoLines := []string{m.statusLine()}
	if recording && m.recordingDuration() > 1.0 && m.peakLevel < 0.02 {
		infoLines = append(infoLines, warnStyle.Render("  ⚠ no voice detected"))
	}
	if m.modeLine != "" {
		infoLines = append(infoLines, lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render(m.modeLine))
	}
	if m.deviceLine != "" {
		infoLines = append(infoLines, dimStyle.Render(m.deviceLine))
	}
	infoLines = append(infoLines, "")
	infoLines = append(infoLines, faintStyle.Render("hold the push-to-talk key to dictate, q to quit"))
	infoLines = append(infoLines, faintStyle.Render("justspeak "+version))

	for _, line := range infoLines {
		eye += line + "\n"
	}
	eyeLines := strings.Split(eye, "\n")

	logWidth := max(m.width-eyeWidth-1, 20)
	wrapWidth := max(logWidth-2, 10)

	var logContent strings.Builder
	if bubble := m.bubbleView(wrapWidth); bubble != "" {
		logContent.WriteString(dimStyle.Render("Overlay") + "\n\n" + bubble + "\n\n")
	}
	switch {
	case m.lastErr != nil:
		logContent.WriteString(errStyle.Render("Last session failed: "+m.lastErr.Error()) + "\n")
	case m.lastText != "":
		title := lipgloss.NewStyle().Foreground(lipgloss.Color("246")).
			Render(fmt.Sprintf("Last transcription (#%d)", m.msgCount))
		logContent.WriteString(title + "\n\n")
		for _, line := range wrapText(m.lastText, wrapWidth) {
			logContent.WriteString(textStyle.Render(line) + "\n")
		}
	default:
		logContent.WriteString(dimStyle.Render("No transcriptions yet"))
	}

	logPanel := lipgloss.NewStyle().
		Width(logWidth).
		Height(m.height).
		PaddingLeft(1).
		Render(logContent.String())

	// Pad eye panel to full height (eye at top)
	eyePadded := make([]string, m.height)
	for i := range eyePadded {
		if i < len(eyeLines) {
			eyePadded[i] = eyeLines[i]
		} else {
			eyePadded[i] = strings.Repeat(" ", eyeWidth-1)
		}
	}

	eyePanel := lipgloss.NewStyle().
		Width(eyeWidth - 1).
		Height(m.height).
		Render(strings.Join(eyePadded, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, eyePanel, logPanel)
}

func renderHALEye(frame int, level float64, recording bool) string {
	const charsW = 44
	const charsH = 15
	const pixW = charsW
	const pixH = charsH * 2

	centerX := float64(pixW) / 2
	centerY := float64(pixH) / 2

	// Voice-reactive breathing
	var breathe float64
	if recording {
		breathe = math.Sin(float64(frame)*0.10)*0.03 + level*10.0 - 0.05
	} else {
		breathe = math.Sin(float64(frame)*0.08)*0.02 - 0.05
	}

	pixels := make([][]int, pixH)
	for i := range pixels {
		pixels[i] = make([]int, pixW)
	}

	type ring struct {
		radius     float64
		breatheAmt float64
		colorIdx   int
	}

	rings := []ring{
		{0.6, 0.10, 1},
		{1.3, 0.12, 2},
		{2.0, 0.15, 3},
		{2.8, 0.35, 4},  // red rings: high reactivity
		{3.5, 0.40, 5},
		{4.2, 0.38, 6},
		{5.0, 0.30, 7},
		{5.8, 0.15, 8},
		{6.5, 0.03, 9},
		{7.2, 0.0, 10},
		{8.0, 0.0, 11},
		{10.0, 0.0, 12},
		{12.0, 0.0, 13},
	}

	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)
			for _, r := range rings {
				radius := r.radius + breathe*r.breatheAmt*20
				if radius > 10.0 {
					radius = 10.0
				}
				if dist < radius {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	// Glass reflections
	type spot struct {
		ox, oy float64
		radius float64
		color  int
	}
	dSide := 9.0
	dSide2 := 7.2
	dTop := 10.0
	dTop2 := 8.2
	spots := []spot{
		{-dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{-dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -dTop, 0.8, 14},
		{0, -dTop2, 0.6, 15},
		{dSide * 0.707, -dSide * 0.707, 0.7, 14},
		{dSide2 * 0.707, -dSide2 * 0.707, 0.4, 15},
		{0, -2.0, 0.6, 14},
	}
	for y := 0; y < pixH; y++ {
		for x := 0; x < pixW; x++ {
			px := float64(x) - centerX
			py := float64(y) - centerY
			for _, s := range spots {
				dx := px - s.ox
				dy := py - s.oy
				rLen := math.Sqrt(s.ox*s.ox + s.oy*s.oy)
				if rLen < 0.001 {
					rLen = 1
				}
				tx, ty := -s.oy/rLen, s.ox/rLen
				dt := dx*tx + dy*ty
				dn := dx*(-ty) + dy*tx
				if (dt*dt)/9.0+dn*dn < s.radius*s.radius {
					pixels[y][x] = s.color
				}
			}
		}
	}

	// Use pre-computed styles based on recording state
	var styles *[16]lipgloss.Style
	var bgStyles *[16][16]lipgloss.Style
	if recording {
		styles = &pixelStylesRec
		bgStyles = &pixelBgRec
	} else {
		styles = &pixelStylesIdle
		bgStyles = &pixelBgIdle
	}

	var result strings.Builder
	for cy := 0; cy < charsH; cy++ {
		for cx := 0; cx < charsW; cx++ {
			topY := cy * 2
			botY := cy*2 + 1
			top := 0
			bot := 0
			if topY < pixH {
				top = pixels[topY][cx]
			}
			if botY < pixH {
				bot = pixels[botY][cx]
			}
			if top == 0 && bot == 0 {
				result.WriteString(" ")
			} else if top == bot {
				result.WriteString(styles[top].Render("█"))
			} else if top != 0 && bot == 0 {
				result.WriteString(styles[top].Render("▀"))
			} else if top == 0 && bot != 0 {
				result.WriteString(styles[bot].Render("▄"))
			} else {
				result.WriteString(bgStyles[top][bot].Render("▀"))
			}
		}
		result.WriteString("\n")
	}
	return result.String()
}

// wrapText breaks on the last space within width, counting runes.
func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	rs := []rune(text)
	for len(rs) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if rs[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, string(rs[:splitAt]))
		rs = []rune(strings.TrimLeft(string(rs[splitAt:]), " "))
	}
	if len(rs) > 0 {
		lines = append(lines, string(rs))
	}
	return lines
}
