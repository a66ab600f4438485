// Package session runs the assistant's conversation loop: capture an
// utterance, classify it, route it and speak the answer.
//
// Control words (stop, resume, exit) act on the speech engine directly and
// never reach the router. Answers are spoken without waiting for playback to
// finish, so the user can interrupt mid-answer.
package session

import (
	"context"
	"errors"
	"io"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"riya/internal/capture"
	"riya/internal/intent"
	"riya/internal/router"
	"riya/internal/transcript"
)

type State int

const (
	Idle State = iota
	Listening
	Dispatching
	Speaking
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Dispatching:
		return "dispatching"
	case Speaking:
		return "speaking"
	default:
		return "idle"
	}
}

type Capturer interface {
	CaptureOnce(ctx context.Context, timeout, phraseLimit time.Duration) (capture.Utterance, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) intent.Intent
}

type Router interface {
	Route(ctx context.Context, in intent.Intent, text string) router.Result
}

// Speaker is the speech engine.
type Speaker interface {
	Speak(ctx context.Context, text string) error
	Interrupt()
	Resume(ctx context.Context) error
	Speaking() bool
}

// History persists conversation entries.
type History interface {
	Append(role, content string) (transcript.Entry, error)
}

// Sink mirrors conversation entries to a chat window.
type Sink interface {
	Broadcast(e transcript.Entry)
}

type Notifier interface {
	Chime(ctx context.Context)
	Desktop(ctx context.Context, msg string)
}

// Deps are the session's collaborators. History, Sink and Notifier may be
// nil.
type Deps struct {
	Capture    Capturer
	Classifier Classifier
	Router     Router
	Speaker    Speaker
	History    History
	Sink       Sink
	Notifier   Notifier
}

type Config struct {
	User        string        // how the user is addressed
	Onset       time.Duration // wait for speech to start
	PhraseLimit time.Duration // longest phrase recorded
	LongAnswer  int           // answers this long with many sentences are summarized aloud; 0 disables
	MicEnabled  bool
	Greet       bool
}

type Session struct {
	deps Deps
	cfg  Config

	mu            sync.Mutex
	state         State
	last          string // text of the preceding spoken utterance
	cancelRun     context.CancelFunc
	cancelCapture context.CancelFunc

	mic    atomic.Bool
	inputs chan string
	wake   chan struct{}

	backoff time.Duration
	now     func() time.Time
}

func New(deps Deps, cfg Config) *Session {
	if cfg.User == "" {
		cfg.User = "Sir"
	}
	if cfg.Onset <= 0 {
		cfg.Onset = 5 * time.Second
	}
	if cfg.PhraseLimit <= 0 {
		cfg.PhraseLimit = 10 * time.Second
	}
	s := &Session{
		deps:    deps,
		cfg:     cfg,
		inputs:  make(chan string, 8),
		wake:    make(chan struct{}, 1),
		backoff: 500 * time.Millisecond,
		now:     time.Now,
	}
	s.mic.Store(cfg.MicEnabled)
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	if prev != st {
		log.Debug("Session state", "from", prev.String(), "to", st.String())
	}
}

// Run listens until an exit word is heard, Control(Exit) is called, the
// audio source is exhausted or ctx is done. Capture and collaborator
// failures are logged and the loop carries on.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelRun = cancel
	s.mu.Unlock()
	defer s.setState(Idle)

	s.setState(Listening)
	if s.cfg.Greet {
		s.greet(ctx)
	}
	if s.mic.Load() {
		s.announceListening(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-s.inputs:
			if s.handle(ctx, text, false) {
				return nil
			}
			continue
		default:
		}

		if !s.mic.Load() {
			select {
			case <-ctx.Done():
				return nil
			case text := <-s.inputs:
				if s.handle(ctx, text, false) {
					return nil
				}
			case <-s.wake:
				if s.mic.Load() {
					s.announceListening(ctx)
				}
			}
			continue
		}

		u, err := s.captureOnce(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, errPreempted):
			continue
		case errors.Is(err, io.EOF):
			log.Info("Audio source exhausted")
			s.drain(ctx)
			return nil
		case err != nil:
			log.Error("Capture failed", "err", err)
			s.sleep(ctx, s.backoff)
			continue
		case u.Empty():
			continue
		}

		if s.HandleUtterance(ctx, u.Text) {
			return nil
		}
	}
}

var errPreempted = errors.New("capture preempted")

func (s *Session) captureOnce(ctx context.Context) (capture.Utterance, error) {
	cctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelCapture = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.cancelCapture = nil
		s.mu.Unlock()
		cancel()
	}()

	u, err := s.deps.Capture.CaptureOnce(cctx, s.cfg.Onset, s.cfg.PhraseLimit)
	if err != nil && ctx.Err() == nil && cctx.Err() != nil {
		return u, errPreempted
	}
	return u, err
}

// preempt cuts a running capture short so queued input is handled promptly.
func (s *Session) preempt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelCapture != nil {
		s.cancelCapture()
	}
}

// HandleUtterance processes one recognized utterance and reports whether
// the session should end. An utterance equal to the preceding one is
// dropped.
func (s *Session) HandleUtterance(ctx context.Context, text string) bool {
	return s.handle(ctx, text, true)
}

func (s *Session) handle(ctx context.Context, text string, spoken bool) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if spoken {
		s.mu.Lock()
		dup := text == s.last
		s.last = text
		s.mu.Unlock()
		if dup {
			log.Debug("Dropping duplicate utterance", "text", text)
			return false
		}
	}

	log.Info("Heard", "text", text, "typed", !spoken)
	in := s.deps.Classifier.Classify(ctx, text)

	if in == intent.Control {
		action := intent.ControlActionOf(text)
		s.Control(ctx, action)
		return action == intent.Exit
	}

	s.setState(Dispatching)
	s.record(transcript.RoleUser, text)
	res := s.deps.Router.Route(ctx, in, text)
	s.record(transcript.RoleAssistant, res.Answer)

	s.setState(Speaking)
	if err := s.deps.Speaker.Speak(ctx, s.speakable(res.Answer)); err != nil {
		log.Error("Failed to speak answer", "err", err)
	}
	s.setState(Listening)
	return false
}

// Control applies a playback command. Exit also ends Run.
func (s *Session) Control(ctx context.Context, action intent.ControlAction) {
	log.Info("Control", "action", action.String())
	switch action {
	case intent.Exit:
		s.deps.Speaker.Interrupt()
		s.mu.Lock()
		cancel := s.cancelRun
		s.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	case intent.Stop:
		s.deps.Speaker.Interrupt()
	case intent.Resume:
		if err := s.deps.Speaker.Resume(ctx); err != nil {
			log.Error("Failed to resume", "err", err)
		}
	}
}

// Submit queues typed text. It is handled like speech but never treated
// as a duplicate.
func (s *Session) Submit(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	select {
	case s.inputs <- text:
	default:
		log.Warn("Input queue full, dropping", "text", text)
		return
	}
	s.preempt()
}

// SetMic turns listening on or off.
func (s *Session) SetMic(on bool) {
	if s.mic.Swap(on) == on {
		return
	}
	log.Info("Microphone toggled", "on", on)
	if !on {
		s.preempt()
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) Mic() bool { return s.mic.Load() }

func (s *Session) record(role, content string) {
	e := transcript.Entry{Role: role, Content: content, TS: s.now()}
	if s.deps.History != nil {
		saved, err := s.deps.History.Append(role, content)
		if err != nil {
			log.Warn("Failed to save transcript", "err", err)
		} else {
			e = saved
		}
	}
	if s.deps.Sink != nil {
		s.deps.Sink.Broadcast(e)
	}
}

func (s *Session) announceListening(ctx context.Context) {
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Chime(ctx)
	s.deps.Notifier.Desktop(ctx, "Listening...")
}

func (s *Session) greet(ctx context.Context) {
	msg := Greeting(s.now(), s.cfg.User)
	s.record(transcript.RoleAssistant, msg)
	if err := s.deps.Speaker.Speak(ctx, msg); err != nil {
		log.Warn("Failed to speak greeting", "err", err)
	}
}

// drain waits for the current answer to finish playing.
func (s *Session) drain(ctx context.Context) {
	for s.deps.Speaker.Speaking() {
		if !s.sleep(ctx, 50*time.Millisecond) {
			return
		}
	}
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
