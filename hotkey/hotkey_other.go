//go:build !linux

package hotkey

import (
	"fmt"
	"time"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	key    uint16
	hk     *hotkey.Hotkey
	events chan Event
	stop   chan struct{}
}

// New maps the evdev code onto a platform hotkey. Keys without a standalone
// platform equivalent fall back to Ctrl+Shift+Space.
func New(key uint16) Hotkey {
	mods, k := platformKey(key)
	return &xHotkey{
		key:    key,
		hk:     hotkey.New(mods, k),
		events: make(chan Event, 16),
		stop:   make(chan struct{}),
	}
}

func platformKey(key uint16) ([]hotkey.Modifier, hotkey.Key) {
	fkeys := []hotkey.Key{
		hotkey.KeyF1, hotkey.KeyF2, hotkey.KeyF3, hotkey.KeyF4, hotkey.KeyF5, hotkey.KeyF6,
		hotkey.KeyF7, hotkey.KeyF8, hotkey.KeyF9, hotkey.KeyF10,
	}
	switch {
	case key >= KeyF1 && key <= KeyF10:
		return nil, fkeys[key-KeyF1]
	case key == KeyF11:
		return nil, hotkey.KeyF11
	case key == KeyF12:
		return nil, hotkey.KeyF12
	}
	return []hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward(h.hk.Keydown(), true)
	go h.forward(h.hk.Keyup(), false)
	return nil
}

func (h *xHotkey) forward(src <-chan hotkey.Event, pressed bool) {
	for {
		select {
		case <-h.stop:
			return
		case <-src:
		}
		select {
		case h.events <- Event{Key: h.key, Pressed: pressed, Time: time.Now()}:
		case <-h.stop:
			return
		}
	}
}

func (h *xHotkey) Unregister() {
	select {
	case <-h.stop:
		return
	default:
		close(h.stop)
	}
	h.hk.Unregister()
}

func (h *xHotkey) Events() <-chan Event {
	return h.events
}

func Diagnose(key uint16) (string, error) {
	mods, _ := platformKey(key)
	if len(mods) > 0 {
		return fmt.Sprintf("hotkey support available (%s unsupported here, using Ctrl+Shift+Space)", KeyName(key)), nil
	}
	return "hotkey support available (" + KeyName(key) + ")", nil
}
