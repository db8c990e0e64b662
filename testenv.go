package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"justspeak/audio"
	"justspeak/beep"
	"justspeak/config"
	"justspeak/encoder"
	"justspeak/hotkey"
	"justspeak/log"
	"justspeak/paste"
	"justspeak/session"
)

const testWaitTimeout = 30 * time.Second

// printInjector writes final transcripts to out instead of typing them.
type printInjector struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printInjector) Inject(_ context.Context, text string, class paste.WindowClass) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "TRANSCRIPT: %s\n", text)
	return nil
}

func runTestMode(cfg config.Config, wavPath string) int {
	fakeCtx, err := audio.NewFakeContext(wavPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		return 1
	}
	return runTest(cfg, fakeCtx, os.Stdin, os.Stdout)
}

// runTest drives a headless session from stdin-style commands:
// PRESS, RELEASE, WAIT (until the next return to idle), SLEEP <ms>, QUIT.
func runTest(cfg config.Config, actx audio.Context, in io.Reader, out io.Writer) int {
	cfg.Overlay.Enabled = false
	key, err := hotkey.ParseKey(cfg.Hotkey.Key)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	rec := audio.NewRecorder(actx, nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	hk := hotkey.NewFake()
	pr := &printInjector{out: out}
	a, err := newApp(cfg, key, hk, session.FromRecorder(rec), nil, beep.New(false), pr)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return 1
	}

	idle := make(chan struct{}, 16)
	a.orch.OnChange = func(st session.Status) {
		if st.State != session.StateIdle {
			return
		}
		if st.Err != nil && !errors.Is(st.Err, context.Canceled) {
			pr.mu.Lock()
			fmt.Fprintf(out, "ERROR: %v\n", st.Err)
			pr.mu.Unlock()
		}
		select {
		case idle <- struct{}{}:
		default:
		}
	}

	log.SessionStart(a.client.Name(), cfg.Server.URL, cfg.Hotkey.Key)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.run(ctx)
	}()

	code := driveTest(in, hk, key, idle)
	cancel()
	<-done
	log.SessionEnd(a.orch.Completed())
	return code
}

func driveTest(in io.Reader, hk *hotkey.Fake, key uint16, idle <-chan struct{}) int {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd := strings.TrimSpace(scanner.Text())
		switch {
		case cmd == "PRESS" || cmd == "KEYDOWN":
			hk.SimPress(key)
		case cmd == "RELEASE" || cmd == "KEYUP":
			hk.SimRelease(key)
		case cmd == "WAIT":
			select {
			case <-idle:
			case <-time.After(testWaitTimeout):
				log.Error("test mode: timed out waiting for idle")
				return 1
			}
		case cmd == "QUIT":
			return 0
		case strings.HasPrefix(cmd, "SLEEP "):
			if ms, err := strconv.Atoi(strings.TrimSpace(cmd[6:])); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case cmd == "":
		default:
			log.Warnf("test mode: unknown command %q", cmd)
		}
	}
	return 0
}
