// Package doctor runs the preflight checks behind -doctor.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"justspeak/audio"
	"justspeak/clipboard"
	"justspeak/config"
	"justspeak/cursor"
	"justspeak/encoder"
	"justspeak/hotkey"
	"justspeak/overlay"
	"justspeak/paste"
	"justspeak/transcriber"
)

const (
	micDuration  = time.Second
	checkTimeout = 5 * time.Second
	silencePeak  = 100
)

// Check is one named preflight probe. Detail is printed on success.
type Check struct {
	Name string
	Run  func(ctx context.Context) (detail string, err error)
}

// Run executes the checks for cfg and returns an exit code (0=all pass, 1=any fail).
func Run(cfg config.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("justspeak doctor - preflight diagnostics")
	fmt.Println("========================================")
	return RunChecks(context.Background(), os.Stdout, Checks(cfg))
}

// Checks builds the default check list.
func Checks(cfg config.Config) []Check {
	return []Check{
		{Name: "Hotkey", Run: func(context.Context) (string, error) { return checkHotkey(cfg.Hotkey.Key) }},
		{Name: "Microphone", Run: func(context.Context) (string, error) { return checkMic(cfg.Audio.Device) }},
		{Name: "Speech server", Run: func(ctx context.Context) (string, error) { return checkServer(ctx, cfg.Server) }},
		{Name: "Text injection", Run: func(context.Context) (string, error) { return checkInjection() }},
		{Name: "Cursor position", Run: func(ctx context.Context) (string, error) {
			return checkCursor(ctx, overlay.Point{X: cfg.Overlay.FallbackX, Y: cfg.Overlay.FallbackY})
		}},
	}
}

// RunChecks runs every check, even after a failure, and prints a
// PASS/FAIL line for each.
func RunChecks(ctx context.Context, w io.Writer, checks []Check) int {
	failed := 0
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		detail, err := c.Run(cctx)
		cancel()
		if err != nil {
			failed++
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "  PASS: %s\n", detail)
	}

	fmt.Fprintln(w)
	if failed > 0 {
		fmt.Fprintf(w, "%d of %d checks failed. See details above.\n", failed, len(checks))
		return 1
	}
	fmt.Fprintln(w, "All checks passed!")
	return 0
}

func checkHotkey(name string) (string, error) {
	key, err := hotkey.ParseKey(name)
	if err != nil {
		return "", err
	}
	return hotkey.Diagnose(key)
}

func checkMic(deviceName string) (string, error) {
	ctx, err := audio.NewContext()
	if err != nil {
		return "", fmt.Errorf("cannot connect to audio: %w", err)
	}
	defer ctx.Close()

	dev, err := audio.FindDevice(ctx, deviceName)
	if err != nil {
		return "", err
	}
	rec := audio.NewRecorder(ctx, dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	r, err := rec.Start()
	if err != nil {
		return "", err
	}
	time.Sleep(micDuration)
	samples := r.Stop()
	if len(samples) == 0 {
		return "", fmt.Errorf("%s: no samples captured", rec.DeviceName())
	}

	detail := fmt.Sprintf("%s, %d samples, peak %d", rec.DeviceName(), len(samples), peak(samples))
	if audio.IsBluetooth(rec.DeviceName()) {
		detail += " (bluetooth: lower audio quality)"
	}
	if peak(samples) < silencePeak {
		detail += " (silent, is the mic muted?)"
	}
	return detail, nil
}

func peak(samples []int16) int {
	p := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		p = max(p, v)
	}
	return p
}

func checkServer(ctx context.Context, sc config.ServerConfig) (string, error) {
	opts := transcriber.Options{URL: sc.URL, APIKey: sc.APIKey, Format: encoder.Format(sc.Format), Language: sc.Language}
	client, err := transcriber.New(sc.Provider, opts)
	if err != nil {
		return "", err
	}
	if nemo, ok := client.(*transcriber.Nemo); ok {
		h, err := nemo.Health(ctx)
		if err != nil {
			return "", fmt.Errorf("%s: %w", nemo.URL(), err)
		}
		return fmt.Sprintf("%s ready (model %s)", nemo.URL(), h.Model), nil
	}
	// hosted providers have no health endpoint; a second of silence must round-trip
	_, err = client.Transcribe(ctx, make([]int16, encoder.SampleRate), true)
	if err != nil {
		return "", err
	}
	return client.Name() + " reachable", nil
}

func checkInjection() (string, error) {
	if !clipboard.Available() {
		return "", errors.New("no clipboard utility (install wl-clipboard)")
	}
	probe := fmt.Sprintf("justspeak-doctor-%d", time.Now().UnixNano())
	if err := clipboard.Copy(probe); err != nil {
		return "", fmt.Errorf("clipboard write: %w", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return "", fmt.Errorf("clipboard read: %w", err)
	}
	if got != probe {
		return "", fmt.Errorf("clipboard readback mismatch: %q", got)
	}

	tools := paste.Tools()
	if !tools["wtype"] && !tools["xdotool"] {
		return "clipboard ok, no wtype or xdotool: falling back to paste keystroke", nil
	}
	detail := "clipboard ok"
	for _, name := range []string{"wtype", "xdotool", "wl-copy"} {
		if tools[name] {
			detail += ", " + name
		}
	}
	return detail, nil
}

func checkCursor(ctx context.Context, fallback overlay.Point) (string, error) {
	loc := cursor.New(fallback)
	p, err := loc.Locate(ctx)
	if err != nil {
		return "", fmt.Errorf("%w (%.0f,%.0f): %v", cursor.ErrLocatorFallback, fallback.X, fallback.Y, err)
	}
	return fmt.Sprintf("pointer at %.0f,%.0f, focused window %s", p.X, p.Y, loc.ActiveWindow(ctx)), nil
}
