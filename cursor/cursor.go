// Package cursor asks the Hyprland compositor where the pointer is and what
// kind of window has focus.
package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"justspeak/log"
	"justspeak/overlay"
	"justspeak/paste"
)

var ErrLocatorFallback = errors.New("cursor position unavailable, using fallback")

const queryTimeout = 250 * time.Millisecond

type queryFunc func(ctx context.Context, args ...string) ([]byte, error)

func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "hyprctl", args...).Output()
}

type Locator struct {
	Fallback overlay.Point
	query    queryFunc
}

func New(fallback overlay.Point) *Locator {
	return &Locator{Fallback: fallback, query: hyprctl}
}

type cursorPos struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Locate returns the pointer position or an error wrapping
// ErrLocatorFallback together with the fallback point.
func (l *Locator) Locate(ctx context.Context) (overlay.Point, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := l.query(ctx, "cursorpos", "-j")
	if err != nil {
		return l.Fallback, fmt.Errorf("%w: hyprctl: %v", ErrLocatorFallback, err)
	}
	var pos cursorPos
	if err := json.Unmarshal(out, &pos); err != nil {
		return l.Fallback, fmt.Errorf("%w: parse: %v", ErrLocatorFallback, err)
	}
	if pos.X == nil || pos.Y == nil {
		return l.Fallback, fmt.Errorf("%w: missing coordinates", ErrLocatorFallback)
	}
	return overlay.Point{X: *pos.X, Y: *pos.Y}, nil
}

// Position never fails; problems are logged at debug level.
func (l *Locator) Position(ctx context.Context) overlay.Point {
	p, err := l.Locate(ctx)
	if err != nil {
		log.Debugf("%v", err)
	}
	return p
}

type activeWindow struct {
	Class    string `json:"class"`
	XWayland *bool  `json:"xwayland"`
}

func (l *Locator) ActiveWindow(ctx context.Context) paste.WindowClass {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out, err := l.query(ctx, "activewindow", "-j")
	if err != nil {
		log.Debugf("activewindow: %v", err)
		return paste.Unknown
	}
	var w activeWindow
	if err := json.Unmarshal(out, &w); err != nil || w.XWayland == nil {
		log.Debugf("activewindow: unexpected output %q", out)
		return paste.Unknown
	}
	if *w.XWayland {
		log.Debugf("focused window %s is XWayland", w.Class)
		return paste.XWayland
	}
	return paste.Native
}
