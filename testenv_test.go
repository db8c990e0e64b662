package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"justspeak/audio"
	"justspeak/config"
	"justspeak/encoder"
	"justspeak/hotkey"
	"justspeak/session"
	"justspeak/transcriber"
)

func speechServer(t *testing.T, reply string, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe/" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		io.Copy(io.Discard, r.Body)
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(url string) config.Config {
	cfg := config.Default()
	cfg.Server.URL = url
	cfg.Audio.Beep = false
	return cfg
}

func tone() *audio.FakeContext {
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16((i % 64) * 200)
	}
	return audio.NewFakeContextFromSamples(samples, 16000, false)
}

func TestRunTestModeTranscribes(t *testing.T) {
	srv, calls := speechServer(t, "  hello from the test  ", http.StatusOK)

	var out strings.Builder
	in := strings.NewReader("PRESS\nSLEEP 500\nRELEASE\nWAIT\nQUIT\n")
	if code := runTest(testConfig(srv.URL), tone(), in, &out); code != 0 {
		t.Fatalf("exit code = %d, output:\n%s", code, out.String())
	}
	if !strings.Contains(out.String(), "TRANSCRIPT: hello from the test\n") {
		t.Errorf("output = %q", out.String())
	}
	if calls.Load() == 0 {
		t.Error("speech server never called")
	}
}

func TestRunTestModeShortPressSkipsServer(t *testing.T) {
	srv, calls := speechServer(t, "unused", http.StatusOK)

	var out strings.Builder
	in := strings.NewReader("KEYDOWN\nKEYUP\nWAIT\nQUIT\n")
	if code := runTest(testConfig(srv.URL), tone(), in, &out); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.Contains(out.String(), "TRANSCRIPT") {
		t.Errorf("short press produced a transcript: %q", out.String())
	}
	if calls.Load() != 0 {
		t.Errorf("server called %d times for a short press", calls.Load())
	}
}

func TestRunTestModeServerDown(t *testing.T) {
	srv, _ := speechServer(t, "loading", http.StatusServiceUnavailable)

	var out strings.Builder
	in := strings.NewReader("PRESS\nSLEEP 500\nRELEASE\nWAIT\nQUIT\n")
	runTest(testConfig(srv.URL), tone(), in, &out)
	if !strings.Contains(out.String(), "ERROR:") {
		t.Errorf("output = %q, want an error line", out.String())
	}
	if strings.Contains(out.String(), "TRANSCRIPT") {
		t.Errorf("transcript despite server error: %q", out.String())
	}
}

func TestRunTestModeBadKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Hotkey.Key = "nope"
	var out strings.Builder
	if code := runTest(cfg, tone(), strings.NewReader(""), &out); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestDriveTestCommands(t *testing.T) {
	hk := hotkey.NewFake()
	idle := make(chan struct{}, 1)
	idle <- struct{}{}

	in := strings.NewReader("PRESS\nSLEEP 1\nbogus\n\nRELEASE\nWAIT\nQUIT\nPRESS\n")
	if code := driveTest(in, hk, hotkey.KeyRightAlt, idle); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	var got []bool
	for len(hk.Events()) > 0 {
		ev := <-hk.Events()
		if ev.Key != hotkey.KeyRightAlt {
			t.Errorf("key = %d", ev.Key)
		}
		got = append(got, ev.Pressed)
	}
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("events = %v, want [press release]", got)
	}
}

func TestOverlayConfigHeadless(t *testing.T) {
	cfg := config.Default()
	if oc := overlayConfig(cfg, true); oc.Flight != cfg.Overlay.Flight.Duration {
		t.Errorf("visible flight = %v", oc.Flight)
	}
	if oc := overlayConfig(cfg, false); oc.Flight != 0 {
		t.Errorf("headless flight = %v, want 0", oc.Flight)
	}
}

func TestNewAppRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Provider = "carrier-pigeon"
	if _, err := newApp(cfg, hotkey.KeyRightAlt, hotkey.NewFake(), nil, nil, nil, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewAppListensOnGivenKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	rec := audio.NewRecorder(tone(), nil, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	hk := hotkey.NewFake()
	a, err := newApp(cfg, hotkey.KeyCapsLock, hk, session.FromRecorder(rec), nil, nil, &printInjector{out: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	states := make(chan session.State, 8)
	a.orch.OnChange = func(st session.Status) { states <- st.State }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.run(ctx)
	}()

	hk.SimPress(hotkey.KeyRightAlt)
	hk.SimPress(hotkey.KeyCapsLock)
	select {
	case st := <-states:
		if st != session.StateRecording {
			t.Errorf("state = %v, want recording", st)
		}
	case <-time.After(2 * time.Second):
		t.Error("press of the configured key not handled")
	}
	cancel()
	<-done
}

func TestCheckHealthWarmsHostedClient(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
	}))
	defer srv.Close()

	a := &app{client: transcriber.NewGroq(transcriber.Options{URL: srv.URL})}
	a.checkHealth(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for heads.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if heads.Load() == 0 {
		t.Error("hosted client was not warmed")
	}
}
