package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"justspeak/audio"
	"justspeak/beep"
	"justspeak/config"
	"justspeak/cursor"
	"justspeak/doctor"
	"justspeak/encoder"
	"justspeak/hotkey"
	"justspeak/log"
	"justspeak/overlay"
	"justspeak/paste"
	"justspeak/session"
	"justspeak/transcriber"
)

var version = "dev"

const healthTimeout = 2 * time.Second

var (
	tuiMu      sync.Mutex
	tuiProgram *tea.Program
	guiMode    bool
)

type flags struct {
	config    *string
	url       *string
	provider  *string
	format    *string
	key       *string
	device    *string
	setup     *bool
	noOverlay *bool
	tui       *bool
	beep      *bool
	logPath   *string
	doctor    *bool
	version   *bool
	test      *string
	verbose   *bool
}

func parseFlags() flags {
	f := flags{
		config:    flag.String("config", "", "config file (default: $XDG_CONFIG_HOME/justspeak/config.toml)"),
		url:       flag.String("url", "", "speech server base URL"),
		provider:  flag.String("provider", "", "transcription provider: nemospeech, groq or openai"),
		format:    flag.String("format", "", "upload format: wav or flac"),
		key:       flag.String("key", "", "push-to-talk key name or evdev code (e.g. rightalt, f9, 100)"),
		device:    flag.String("device", "", "use named microphone device"),
		setup:     flag.Bool("setup", false, "select microphone device interactively"),
		noOverlay: flag.Bool("no-overlay", false, "disable the on-screen overlay"),
		tui:       flag.Bool("tui", true, "run with terminal UI"),
		beep:      flag.Bool("beep", true, "play start/end cues"),
		logPath:   flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)"),
		doctor:    flag.Bool("doctor", false, "run preflight diagnostics and exit"),
		version:   flag.Bool("version", false, "print version and exit"),
		test:      flag.String("test", "", "test mode: replay WAV file, driven by stdin commands"),
		verbose:   flag.Bool("verbose", false, "debug logging"),
	}
	flag.Parse()
	return f
}

// apply copies explicitly set flags over the loaded config.
func (f flags) apply(cfg *config.Config) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "url":
			cfg.Server.URL = *f.url
		case "provider":
			cfg.Server.Provider = *f.provider
		case "format":
			cfg.Server.Format = *f.format
		case "key":
			cfg.Hotkey.Key = *f.key
		case "device":
			cfg.Audio.Device = *f.device
		case "no-overlay":
			cfg.Overlay.Enabled = !*f.noOverlay
		case "beep":
			cfg.Audio.Beep = *f.beep
		}
	})
}

func initCrashLog() {
	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(crashFile, debug.CrashOptions{})
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func run() {
	f := parseFlags()

	if *f.version {
		fmt.Printf("justspeak %s\n", version)
		return
	}

	logPath, err := log.ResolveDir(*f.logPath)
	if err != nil {
		fatalf("failed to resolve log directory: %v", err)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()
	log.SetVerbose(*f.verbose)

	cfg, err := config.Load(*f.config)
	if err != nil {
		fatalf("%v", err)
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fatalf("%v", err)
	}

	if *f.doctor {
		os.Exit(doctor.Run(cfg))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	if *f.test != "" {
		os.Exit(runTestMode(cfg, *f.test))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	audioCtx := guiAudioCtx
	if audioCtx == nil {
		audioCtx, err = audio.NewContext()
		if err != nil {
			fatalf("initializing audio: %v", err)
		}
	}
	defer audioCtx.Close()

	var dev *audio.DeviceInfo
	if *f.setup {
		dev, err = audio.SelectDevice(audioCtx)
		if errors.Is(err, audio.ErrSelectionCancelled) {
			return
		}
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Using %s (set [audio] device in %s to keep it)\n", dev.Name, config.DefaultPath())
	} else {
		dev, err = audio.FindDevice(audioCtx, cfg.Audio.Device)
		if err != nil {
			fatalf("%v", err)
		}
	}
	rec := audio.NewRecorder(audioCtx, dev, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})

	key, err := hotkey.ParseKey(cfg.Hotkey.Key)
	if err != nil {
		fatalf("%v", err)
	}
	hk := hotkey.New(key)
	if err := hk.Register(); err != nil {
		fatalf("registering hotkey: %v", err)
	}
	defer hk.Unregister()

	if guiMode {
		if w, h := guiScreenSize(); w > 0 && h > 0 {
			cfg.Overlay.ScreenWidth, cfg.Overlay.ScreenHeight = float64(w), float64(h)
		}
	}

	useTUI := *f.tui && !guiMode
	var renderer overlay.Renderer
	switch {
	case !cfg.Overlay.Enabled:
	case guiMode:
		renderer = guiRenderer()
	case useTUI:
		renderer = tuiRenderer{}
	}

	a, err := newApp(cfg, key, hk, session.FromRecorder(rec), renderer, beep.New(cfg.Audio.Beep), paste.New())
	if err != nil {
		fatalf("%v", err)
	}
	if err := paste.Init(); err != nil {
		log.Warnf("paste keystroke init failed: %v", err)
	}
	a.checkHealth(ctx)

	log.SessionStart(a.client.Name(), cfg.Server.URL, cfg.Hotkey.Key)
	defer func() { log.SessionEnd(a.orch.Completed()) }()

	if !useTUI {
		fmt.Printf("justspeak %s: hold %s to dictate (%s)\n", version, cfg.Hotkey.Key, modeLineText(cfg))
		if err := a.run(ctx); err != nil {
			log.Errorf("session loop: %v", err)
		}
		return
	}

	rec.OnLevel(func(rms float64) { tuiSend(LevelMsg{Level: rms}) })
	a.orch.OnChange = func(st session.Status) { tuiSend(StatusMsg(st)) }

	p := NewTUIProgram()
	tuiMu.Lock()
	tuiProgram = p
	tuiMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.run(ctx); err != nil {
			log.Errorf("session loop: %v", err)
		}
		p.Quit()
	}()

	p.Send(ModeLineMsg{Text: modeLineText(cfg)})
	p.Send(DeviceLineMsg{Text: deviceLineText(rec.DeviceName())})
	if _, err := p.Run(); err != nil {
		log.Errorf("tui: %v", err)
	}
	cancel()
	<-done

	tuiMu.Lock()
	tuiProgram = nil
	tuiMu.Unlock()
}

// app wires the collaborators around one orchestrator.
type app struct {
	orch   *session.Orchestrator
	runner *overlay.Runner
	client transcriber.Client
}

func newApp(cfg config.Config, key uint16, keys session.KeySource, src session.AudioSource, r overlay.Renderer, cues session.Cues, inj session.Injector) (*app, error) {
	// an empty format lets each provider pick its own default
	client, err := transcriber.New(cfg.Server.Provider, transcriber.Options{
		URL:      cfg.Server.URL,
		APIKey:   cfg.Server.APIKey,
		Format:   encoder.Format(cfg.Server.Format),
		Language: cfg.Server.Language,
	})
	if err != nil {
		return nil, err
	}

	oc := overlayConfig(cfg, r != nil)
	loc := cursor.New(oc.Cursor)
	runner := overlay.NewRunner(oc, r, loc.Position)

	sc := session.DefaultConfig()
	sc.Key = key
	sc.MinDuration = cfg.Session.MinDuration.Duration
	sc.MaxDuration = cfg.Session.MaxDuration.Duration
	sc.Interval = cfg.Session.Interval.Duration
	sc.MinSnapshot = cfg.Session.MinSnapshot.Duration
	sc.RequestTimeout = cfg.Server.Timeout.Duration
	sc.FlyoutWatchdog = oc.Flight + time.Second

	orch := session.New(sc, session.Deps{
		Keys:        keys,
		Audio:       src,
		Transcriber: client,
		Injector:    inj,
		Locator:     loc,
		Overlay:     runner,
		Cues:        cues,
	})
	return &app{orch: orch, runner: runner, client: client}, nil
}

// overlayConfig maps the config file onto the engine. Without a renderer the
// fly-out completes immediately.
func overlayConfig(cfg config.Config, visible bool) overlay.Config {
	oc := overlay.DefaultConfig()
	oc.ScreenWidth = cfg.Overlay.ScreenWidth
	oc.ScreenHeight = cfg.Overlay.ScreenHeight
	oc.Reveal = cfg.Overlay.Reveal.Duration
	oc.Stagger = cfg.Overlay.Stagger.Duration
	oc.Flight = cfg.Overlay.Flight.Duration
	oc.Cursor = overlay.Point{X: cfg.Overlay.FallbackX, Y: cfg.Overlay.FallbackY}
	if !visible {
		oc.Flight = 0
	}
	return oc
}

func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.runner.Run(ctx)
	}()
	err := a.orch.Run(ctx)
	cancel()
	wg.Wait()
	return err
}

// checkHealth warns when the local speech server is not ready. Hosted
// providers are only warmed in the background.
func (a *app) checkHealth(ctx context.Context) {
	if w, ok := a.client.(transcriber.Warmer); ok {
		go func() {
			log.Debugf("%s connection warmed, tls %s", a.client.Name(), w.Warm())
		}()
		return
	}
	nemo, ok := a.client.(*transcriber.Nemo)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	h, err := nemo.Health(ctx)
	if err != nil {
		log.Warnf("speech server %s not ready: %v", nemo.URL(), err)
		fmt.Fprintf(os.Stderr, "Warning: speech server %s not ready: %v\n", nemo.URL(), err)
		return
	}
	log.Infof("speech server %s ready, model %s", nemo.URL(), h.Model)
}

func modeLineText(cfg config.Config) string {
	format := cfg.Server.Format
	if format == "" {
		format = "auto"
	}
	return fmt.Sprintf("[%s | %s | %s]", cfg.Server.Provider, format, cfg.Server.URL)
}

func deviceLineText(name string) string {
	line := "mic: " + name
	if audio.IsBluetooth(name) {
		line += " (⚠ bluetooth, lower audio quality)"
	}
	return line
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}
