package paste

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"justspeak/clipboard"
	"justspeak/log"
)

var ErrInjectionFailed = errors.New("text injection failed")

// WindowClass tells the injector which input protocol the focused window
// listens to.
type WindowClass int

const (
	Unknown WindowClass = iota
	Native
	XWayland
)

func (c WindowClass) String() string {
	switch c {
	case Native:
		return "native"
	case XWayland:
		return "xwayland"
	default:
		return "unknown"
	}
}

// DefaultSettle is the pause between overlay close and typing, so focus is
// back on the target window.
const DefaultSettle = 150 * time.Millisecond

// commandRunner runs an external tool.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Injector types text into the focused window. The text is also left on the
// clipboard.
type Injector struct {
	Settle time.Duration

	runner    commandRunner
	lookPath  func(string) (string, error)
	copy      func(string) error
	keystroke func() error
}

func New() *Injector {
	return &Injector{
		Settle:    DefaultSettle,
		runner:    execRunner{},
		lookPath:  exec.LookPath,
		copy:      clipboard.Copy,
		keystroke: sendPasteKeys,
	}
}

// typeCommand picks the typing tool for a window class. XWayland clients
// only see X11 input, everything else gets the Wayland virtual keyboard.
func typeCommand(class WindowClass, text string) (string, []string) {
	if class == XWayland {
		return "xdotool", []string{"type", "--clearmodifiers", "--", text}
	}
	return "wtype", []string{"--", text}
}

func (in *Injector) Inject(ctx context.Context, text string, class WindowClass) error {
	if text == "" {
		return nil
	}

	copyErr := in.copy(text)
	if copyErr != nil {
		log.Warnf("clipboard copy failed: %v", copyErr)
	}

	if in.Settle > 0 {
		t := time.NewTimer(in.Settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w: %v", ErrInjectionFailed, ctx.Err())
		}
	}

	tool, args := typeCommand(class, text)
	if _, err := in.lookPath(tool); err != nil {
		log.Debugf("%s not found, falling back to paste keystroke", tool)
	} else if err := in.runner.Run(ctx, tool, args...); err != nil {
		log.Warnf("%s failed, falling back to paste keystroke: %v", tool, err)
	} else {
		log.Debugf("typed %d chars with %s (%s window)", len(text), tool, class)
		return nil
	}

	if copyErr != nil {
		return fmt.Errorf("%w: clipboard unavailable: %v", ErrInjectionFailed, copyErr)
	}
	if err := in.keystroke(); err != nil {
		return fmt.Errorf("%w: paste keystroke: %v", ErrInjectionFailed, err)
	}
	log.Debugf("pasted %d chars via keystroke", len(text))
	return nil
}

// Tools lists the external helpers the injector can use and whether each is
// on PATH.
func Tools() map[string]bool {
	out := make(map[string]bool)
	for _, name := range []string{"wtype", "xdotool", "wl-copy"} {
		_, err := exec.LookPath(name)
		out[name] = err == nil
	}
	return out
}
