package paste

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, call{name, args})
	return f.err
}

func newTestInjector(r *fakeRunner, installed ...string) (*Injector, *[]string, *int) {
	var copied []string
	pastes := 0
	have := make(map[string]bool)
	for _, n := range installed {
		have[n] = true
	}
	in := &Injector{
		runner: r,
		lookPath: func(name string) (string, error) {
			if have[name] {
				return "/usr/bin/" + name, nil
			}
			return "", errors.New("not found")
		},
		copy: func(s string) error {
			copied = append(copied, s)
			return nil
		},
		keystroke: func() error {
			pastes++
			return nil
		},
	}
	return in, &copied, &pastes
}

func TestInjectNativeUsesWtype(t *testing.T) {
	r := &fakeRunner{}
	in, copied, pastes := newTestInjector(r, "wtype", "xdotool")

	if err := in.Inject(context.Background(), "hello world", Native); err != nil {
		t.Fatal(err)
	}
	want := []call{{"wtype", []string{"--", "hello world"}}}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if len(*copied) != 1 || (*copied)[0] != "hello world" {
		t.Errorf("clipboard = %v", *copied)
	}
	if *pastes != 0 {
		t.Errorf("paste keystroke used %d times", *pastes)
	}
}

func TestInjectXWaylandUsesXdotool(t *testing.T) {
	r := &fakeRunner{}
	in, _, _ := newTestInjector(r, "wtype", "xdotool")

	if err := in.Inject(context.Background(), "hi", XWayland); err != nil {
		t.Fatal(err)
	}
	want := []call{{"xdotool", []string{"type", "--clearmodifiers", "--", "hi"}}}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
}

func TestInjectUnknownUsesWtype(t *testing.T) {
	r := &fakeRunner{}
	in, _, _ := newTestInjector(r, "wtype")
	if err := in.Inject(context.Background(), "hi", Unknown); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 1 || r.calls[0].name != "wtype" {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestInjectFallsBackToKeystroke(t *testing.T) {
	r := &fakeRunner{}
	in, _, pastes := newTestInjector(r)

	if err := in.Inject(context.Background(), "hi", Native); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 {
		t.Errorf("no tool installed, calls = %v", r.calls)
	}
	if *pastes != 1 {
		t.Errorf("pastes = %d, want 1", *pastes)
	}

	r.err = errors.New("exit status 1")
	in, _, pastes = newTestInjector(r, "wtype")
	if err := in.Inject(context.Background(), "hi", Native); err != nil {
		t.Fatal(err)
	}
	if *pastes != 1 {
		t.Errorf("tool failure should fall back, pastes = %d", *pastes)
	}
}

func TestInjectFailure(t *testing.T) {
	in, _, _ := newTestInjector(&fakeRunner{})
	in.keystroke = func() error { return errors.New("no uinput") }

	err := in.Inject(context.Background(), "hi", Native)
	if !errors.Is(err, ErrInjectionFailed) {
		t.Fatalf("err = %v, want ErrInjectionFailed", err)
	}
}

func TestInjectNoClipboardNoTool(t *testing.T) {
	in, _, pastes := newTestInjector(&fakeRunner{})
	in.copy = func(string) error { return errors.New("no clipboard") }

	err := in.Inject(context.Background(), "hi", Native)
	if !errors.Is(err, ErrInjectionFailed) {
		t.Fatalf("err = %v, want ErrInjectionFailed", err)
	}
	if *pastes != 0 {
		t.Error("should not paste a stale clipboard")
	}
}

func TestInjectEmpty(t *testing.T) {
	r := &fakeRunner{}
	in, copied, _ := newTestInjector(r, "wtype")
	if err := in.Inject(context.Background(), "", Native); err != nil {
		t.Fatal(err)
	}
	if len(r.calls) != 0 || len(*copied) != 0 {
		t.Error("empty text should be a no-op")
	}
}

func TestInjectCancelledDuringSettle(t *testing.T) {
	r := &fakeRunner{}
	in, _, _ := newTestInjector(r, "wtype")
	in.Settle = DefaultSettle
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := in.Inject(ctx, "hi", Native); !errors.Is(err, ErrInjectionFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(r.calls) != 0 {
		t.Error("nothing should be typed after cancel")
	}
}

func TestWindowClassString(t *testing.T) {
	for c, want := range map[WindowClass]string{Native: "native", XWayland: "xwayland", Unknown: "unknown"} {
		if c.String() != want {
			t.Errorf("%d.String() = %q, want %q", c, c.String(), want)
		}
	}
}
