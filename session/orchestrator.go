package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"justspeak/audio"
	"justspeak/hotkey"
	"justspeak/log"
	"justspeak/overlay"
	"justspeak/paste"
	"justspeak/transcriber"
)

type Config struct {
	Key            uint16
	SampleRate     int
	MinDuration    time.Duration
	MaxDuration    time.Duration
	Interval       time.Duration
	MinSnapshot    time.Duration
	RequestTimeout time.Duration

	// FlyoutWatchdog bounds the wait for the overlay's fly-out completion.
	FlyoutWatchdog time.Duration
}

func DefaultConfig() Config {
	return Config{
		Key:            hotkey.KeyRightAlt,
		SampleRate:     16000,
		MinDuration:    300 * time.Millisecond,
		MaxDuration:    30 * time.Second,
		Interval:       time.Second,
		MinSnapshot:    500 * time.Millisecond,
		RequestTimeout: 10 * time.Second,
		FlyoutWatchdog: overlay.DefaultConfig().Flight + time.Second,
	}
}

type Deps struct {
	Keys        KeySource
	Audio       AudioSource
	Transcriber Transcriber
	Injector    Injector
	Locator     Locator
	Overlay     Overlay
	Cues        Cues
}

type tickEvent struct{ session xid.ID }

type deadlineEvent struct{ session xid.ID }

type watchdogEvent struct{ session xid.ID }

type resultEvent struct {
	session xid.ID
	id      uint64
	final   bool
	text    string
	err     error
}

type targetEvent struct {
	session xid.ID
	pos     overlay.Point
	class   paste.WindowClass
}

type injectedEvent struct {
	session xid.ID
	err     error
}

// Orchestrator owns the active Session. All state changes happen on the
// goroutine running Run; collaborators report back through events.
type Orchestrator struct {
	cfg         Config
	keys        KeySource
	audio       AudioSource
	transcriber Transcriber
	injector    Injector
	locator     Locator
	overlay     Overlay
	cues        Cues

	// OnChange is called from the Run goroutine after every transition.
	OnChange func(Status)

	ctx    context.Context
	events chan any
	now    func() time.Time

	sess     *Session
	tick     *time.Timer
	deadline *time.Timer
	watchdog *time.Timer
	finished int
}

func New(cfg Config, d Deps) *Orchestrator {
	cues := d.Cues
	if cues == nil {
		cues = nopCues{}
	}
	return &Orchestrator{
		cfg:         cfg,
		keys:        d.Keys,
		audio:       d.Audio,
		transcriber: d.Transcriber,
		injector:    d.Injector,
		locator:     d.Locator,
		overlay:     d.Overlay,
		cues:        cues,
		ctx:         context.Background(),
		events:      make(chan any, 64),
		now:         time.Now,
	}
}

// State is only meaningful from the Run goroutine or after Run returns.
func (o *Orchestrator) State() State {
	if o.sess == nil {
		return StateIdle
	}
	return o.sess.State
}

// Text is the best-known transcript of the active session.
func (o *Orchestrator) Text() string {
	if o.sess == nil {
		return ""
	}
	return o.sess.Text
}

// Completed counts sessions that reached injection.
func (o *Orchestrator) Completed() int { return o.finished }

// Run processes key, overlay and internal events until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.ctx = ctx
	keys := o.keys.Events()
	overlayEvents := o.overlay.Events()

	for {
		select {
		case <-ctx.Done():
			o.shutdown()
			return nil
		case ev, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			o.handle(ev)
		case ev := <-overlayEvents:
			o.handle(ev)
		case ev := <-o.events:
			o.handle(ev)
		}
	}
}

func (o *Orchestrator) post(ev any) {
	select {
	case o.events <- ev:
	case <-o.ctx.Done():
	}
}

func (o *Orchestrator) current(id xid.ID) bool {
	return o.sess != nil && o.sess.ID == id
}

func (o *Orchestrator) handle(ev any) {
	switch ev := ev.(type) {
	case hotkey.Event:
		if ev.Key != o.cfg.Key {
			return
		}
		t := ev.Time
		if t.IsZero() {
			t = o.now()
		}
		if ev.Pressed {
			o.onPress(t)
		} else {
			o.onRelease(t)
		}
	case overlay.Event:
		o.onOverlay(ev)
	case tickEvent:
		if o.current(ev.session) {
			o.onTick()
		}
	case deadlineEvent:
		if o.current(ev.session) && o.sess.State == StateRecording {
			log.Infof("max duration %s reached", o.cfg.MaxDuration)
			o.finish(o.now(), "max_duration")
		}
	case resultEvent:
		if o.current(ev.session) {
			o.onResult(ev)
		}
	case targetEvent:
		if o.current(ev.session) {
			o.onTarget(ev)
		}
	case watchdogEvent:
		if o.current(ev.session) {
			o.onWatchdog()
		}
	case injectedEvent:
		if o.current(ev.session) {
			o.onInjected(ev.err)
		}
	}
}

func (o *Orchestrator) onPress(t time.Time) {
	if o.sess != nil {
		log.Debugf("press ignored while %s", o.sess.State)
		return
	}

	rec, err := o.audio.Start()
	if err != nil {
		log.Errorf("audio start: %v", err)
		o.overlay.ShowError(errorMessage(err))
		o.cues.Error()
		o.notify(Status{State: StateIdle, Err: err})
		return
	}

	s := newSession(t, rec)
	o.sess = s
	log.RecordingStart(s.ID.String())

	o.overlay.ShowRecording()
	o.cues.Start()
	o.scheduleTick()
	o.deadline = time.AfterFunc(o.cfg.MaxDuration, func() { o.post(deadlineEvent{s.ID}) })
	o.notify(o.status())
}

func (o *Orchestrator) onRelease(t time.Time) {
	if o.sess == nil || o.sess.State != StateRecording {
		return
	}
	o.finish(t, "release")
}

func (o *Orchestrator) scheduleTick() {
	id := o.sess.ID
	if o.tick != nil {
		o.tick.Stop()
	}
	o.tick = time.AfterFunc(o.cfg.Interval, func() { o.post(tickEvent{id}) })
}

func (o *Orchestrator) onTick() {
	s := o.sess
	if s.State != StateRecording {
		return
	}
	samples := s.recording.Snapshot()
	if d := audio.SamplesDuration(len(samples), o.cfg.SampleRate); d < o.cfg.MinSnapshot {
		log.Debugf("snapshot %s too short, skipping", d)
	} else {
		o.dispatch(s, s.next(), samples, false)
	}
	o.scheduleTick()
}

// finish ends capture. Presses shorter than MinDuration are discarded
// without a request.
func (o *Orchestrator) finish(t time.Time, reason string) {
	s := o.sess
	o.stopTimers()

	held := t.Sub(s.StartedAt)
	samples := s.recording.Stop()
	s.recording = nil
	log.RecordingStop(s.ID.String(), reason, held, len(samples))

	if held < o.cfg.MinDuration {
		log.Debugf("press of %s below minimum %s, discarded", held, o.cfg.MinDuration)
		o.overlay.Hide()
		o.reset(nil)
		return
	}

	o.cues.End()
	o.setState(StateTranscribing)
	// keep the last partial on screen while the final request runs
	o.overlay.UpdateText(s.Text)
	o.dispatch(s, s.next(), samples, true)
}

func (o *Orchestrator) dispatch(s *Session, id uint64, samples []int16, final bool) {
	sid := s.ID
	log.Debugf("request %d dispatched (final=%t, %d samples)", id, final, len(samples))
	go func() {
		ctx, cancel := context.WithTimeout(o.ctx, o.cfg.RequestTimeout)
		defer cancel()
		text, err := o.transcribe(ctx, samples, final)
		o.post(resultEvent{session: sid, id: id, final: final, text: text, err: err})
	}()
}

// transcribe bounds a request by ctx even if the client ignores it.
func (o *Orchestrator) transcribe(ctx context.Context, samples []int16, final bool) (string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := o.transcriber.Transcribe(ctx, samples, final)
		ch <- result{text, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && !errors.Is(r.err, transcriber.ErrTimeout) {
			r.err = fmt.Errorf("%w: %v", transcriber.ErrTimeout, r.err)
		}
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("no response after %s: %w", o.cfg.RequestTimeout, transcriber.ErrTimeout)
		}
		return "", ctx.Err()
	}
}

func (o *Orchestrator) onResult(ev resultEvent) {
	s := o.sess
	if s.State != StateRecording && s.State != StateTranscribing {
		return
	}
	if !s.accept(ev.id) {
		log.Debugf("response %d dropped, already have %d", ev.id, s.highestSeen)
		return
	}
	s.highestSeen = ev.id

	if ev.final {
		o.onFinal(ev)
		return
	}
	if ev.err != nil {
		log.Debugf("partial %d failed: %v", ev.id, ev.err)
		return
	}
	if ev.text == "" {
		log.Debugf("partial %d empty, keeping previous text", ev.id)
		return
	}
	s.Text = ev.text
	o.overlay.UpdateText(ev.text)
	o.notify(o.status())
}

func (o *Orchestrator) onFinal(ev resultEvent) {
	s := o.sess
	text := ev.text
	if ev.err != nil {
		log.Warnf("final transcription failed, using last partial: %v", ev.err)
		text = s.Text
	}

	if text == "" {
		if ev.err != nil {
			o.overlay.ShowError(errorMessage(ev.err))
			o.cues.Error()
		} else {
			log.Debugf("nothing transcribed")
			o.overlay.Hide()
		}
		o.reset(ev.err)
		return
	}

	s.Text = text
	s.finalText = text
	log.TranscriptionText(text)
	o.setState(StatePasting)

	sid := s.ID
	go func() {
		pos := o.locator.Position(o.ctx)
		class := o.locator.ActiveWindow(o.ctx)
		o.post(targetEvent{session: sid, pos: pos, class: class})
	}()
}

func (o *Orchestrator) onTarget(ev targetEvent) {
	s := o.sess
	if s.State != StatePasting {
		return
	}
	s.class = ev.class
	o.overlay.BeginFlyout(s.finalText, ev.pos)
	sid := s.ID
	o.watchdog = time.AfterFunc(o.cfg.FlyoutWatchdog, func() { o.post(watchdogEvent{sid}) })
}

func (o *Orchestrator) onOverlay(ev overlay.Event) {
	s := o.sess
	if s == nil || s.State != StatePasting {
		return
	}
	switch ev {
	case overlay.FlyoutDone:
		o.flownOut()
	case overlay.Hidden:
		if s.flownOut {
			s.hidden = true
			o.maybeIdle()
		}
	}
}

func (o *Orchestrator) onWatchdog() {
	s := o.sess
	if s.State != StatePasting || s.flownOut {
		return
	}
	log.Warnf("fly-out did not report completion within %s", o.cfg.FlyoutWatchdog)
	o.overlay.Hide()
	s.hidden = true
	o.flownOut()
}

func (o *Orchestrator) flownOut() {
	s := o.sess
	if s.flownOut {
		return
	}
	s.flownOut = true
	if o.watchdog != nil {
		o.watchdog.Stop()
		o.watchdog = nil
	}

	sid, text, class := s.ID, s.finalText, s.class
	go func() {
		err := o.injector.Inject(o.ctx, text, class)
		o.post(injectedEvent{session: sid, err: err})
	}()
}

func (o *Orchestrator) onInjected(err error) {
	s := o.sess
	s.injected = true
	if err != nil {
		log.Errorf("inject: %v", err)
		s.err = err
		o.overlay.ShowError(errorMessage(err))
		o.cues.Error()
	} else {
		o.finished++
	}
	o.maybeIdle()
}

func (o *Orchestrator) maybeIdle() {
	s := o.sess
	if s.injected && s.hidden {
		o.reset(s.err)
	}
}

func (o *Orchestrator) setState(to State) {
	s := o.sess
	log.StateChange(s.ID.String(), s.State.String(), to.String())
	s.State = to
	o.notify(o.status())
}

func (o *Orchestrator) stopTimers() {
	for _, t := range []*time.Timer{o.tick, o.deadline, o.watchdog} {
		if t != nil {
			t.Stop()
		}
	}
	o.tick, o.deadline, o.watchdog = nil, nil, nil
}

// reset releases anything the session still holds and returns to Idle.
func (o *Orchestrator) reset(err error) {
	o.stopTimers()
	s := o.sess
	if s == nil {
		return
	}
	if s.recording != nil {
		s.recording.Stop()
		s.recording = nil
	}
	log.StateChange(s.ID.String(), s.State.String(), StateIdle.String())
	o.sess = nil
	o.notify(Status{State: StateIdle, SessionID: s.ID.String(), Text: s.Text, Err: err})
}

func (o *Orchestrator) shutdown() {
	if o.sess != nil {
		log.Debugf("shutdown with session in %s", o.sess.State)
	}
	o.reset(context.Canceled)
}

func (o *Orchestrator) status() Status {
	s := o.sess
	if s == nil {
		return Status{State: StateIdle}
	}
	return Status{State: s.State, SessionID: s.ID.String(), Text: s.Text}
}

func (o *Orchestrator) notify(st Status) {
	if o.OnChange != nil {
		o.OnChange(st)
	}
}

// errorMessage is the short text shown in the overlay for a failure.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "microphone unavailable"
	case errors.Is(err, audio.ErrBusy):
		return "microphone busy"
	case errors.Is(err, transcriber.ErrTimeout):
		return "transcription timed out"
	case errors.Is(err, transcriber.ErrServiceUnavailable):
		return "speech server unavailable"
	case errors.Is(err, transcriber.ErrMalformed):
		return "bad response from speech server"
	case errors.Is(err, transcriber.ErrEmptyAudio):
		return "no audio captured"
	case errors.Is(err, paste.ErrInjectionFailed):
		return "paste failed, text is on the clipboard"
	}
	return err.Error()
}
