package hotkey

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Event is a single press or release of the trigger key.
type Event struct {
	Key     uint16
	Pressed bool
	Time    time.Time
}

type Hotkey interface {
	Register() error
	Unregister()
	Events() <-chan Event
}

// Key codes from linux/input-event-codes.h. Other platforms map a subset.
const (
	KeyLeftCtrl   uint16 = 29
	KeyLeftShift  uint16 = 42
	KeyLeftAlt    uint16 = 56
	KeySpace      uint16 = 57
	KeyCapsLock   uint16 = 58
	KeyF1         uint16 = 59
	KeyF10        uint16 = 68
	KeyScrollLock uint16 = 70
	KeyF11        uint16 = 87
	KeyF12        uint16 = 88
	KeyRightCtrl  uint16 = 97
	KeyRightAlt   uint16 = 100
	KeyInsert     uint16 = 110
	KeyPause      uint16 = 119
	KeyLeftMeta   uint16 = 125
	KeyRightMeta  uint16 = 126
	KeyCompose    uint16 = 127
	KeyF13        uint16 = 183
)

var keyNames = map[string]uint16{
	"leftctrl":   KeyLeftCtrl,
	"leftshift":  KeyLeftShift,
	"leftalt":    KeyLeftAlt,
	"space":      KeySpace,
	"capslock":   KeyCapsLock,
	"scrolllock": KeyScrollLock,
	"rightctrl":  KeyRightCtrl,
	"rightalt":   KeyRightAlt,
	"altgr":      KeyRightAlt,
	"insert":     KeyInsert,
	"pause":      KeyPause,
	"leftmeta":   KeyLeftMeta,
	"rightmeta":  KeyRightMeta,
	"compose":    KeyCompose,
	"menu":       KeyCompose,
}

func init() {
	for i := 0; i < 10; i++ {
		keyNames["f"+strconv.Itoa(i+1)] = KeyF1 + uint16(i)
	}
	keyNames["f11"] = KeyF11
	keyNames["f12"] = KeyF12
	for i := 0; i < 12; i++ {
		keyNames["f"+strconv.Itoa(i+13)] = KeyF13 + uint16(i)
	}
}

// ParseKey accepts a key name ("rightalt", "f9") or a raw evdev code ("100").
func ParseKey(s string) (uint16, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "key_")
	if code, ok := keyNames[name]; ok {
		return code, nil
	}
	n, err := strconv.ParseUint(name, 10, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("unknown key %q", s)
	}
	return uint16(n), nil
}

// KeyName returns the canonical name for a code, or the number itself.
func KeyName(code uint16) string {
	var names []string
	for name, c := range keyNames {
		if c == code {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return strconv.Itoa(int(code))
	}
	// prefer the longest alias ("rightalt" over "altgr")
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0]
}
