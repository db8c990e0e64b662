package hotkey

import "time"

type Fake struct {
	events chan Event
}

func NewFake() *Fake {
	return &Fake{events: make(chan Event, 16)}
}

func (f *Fake) Register() error      { return nil }
func (f *Fake) Unregister()          {}
func (f *Fake) Events() <-chan Event { return f.events }

func (f *Fake) SimPress(key uint16) {
	f.events <- Event{Key: key, Pressed: true, Time: time.Now()}
}

func (f *Fake) SimRelease(key uint16) {
	f.events <- Event{Key: key, Pressed: false, Time: time.Now()}
}
