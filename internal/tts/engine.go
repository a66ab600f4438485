package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"
)

const defaultResumeNotice = "Nothing to resume."

// Output is the audio device. Play starts rendering clip and returns a
// channel that receives exactly one value when rendering ends: nil on
// natural completion, the context error when ctx was cancelled, or a device
// error. Implementations check ctx at every buffer boundary and must stop
// producing audio once it is cancelled.
type Output interface {
	Play(ctx context.Context, clip *Clip) (<-chan error, error)
}

// Ducker lowers other applications' audio while the assistant speaks.
type Ducker interface {
	DuckOthers(ctx context.Context, factor float64, d time.Duration) error
	UnduckOthers(ctx context.Context, d time.Duration) error
}

// PlaybackState is a snapshot of what the engine played last.
type PlaybackState struct {
	CancelRequested            bool
	LastSpokenText             string
	LastPlaybackWasInterrupted bool
	ActiveSequenceID           uint64
}

type Config struct {
	Voice        Voice
	ResumeNotice string // spoken by Resume when there is nothing to replay

	Ducker     Ducker // optional
	DuckFactor float64
	DuckFade   time.Duration
}

// Engine plays at most one clip at a time. Each Speak interrupts the
// previous request; the playback actor it spawns holds the output device
// until its clip ends or its token is cancelled.
type Engine struct {
	synth Synthesizer
	out   Output
	cfg   Config

	mu       sync.Mutex
	state    PlaybackState
	inFlight bool               // the active sequence is synthesizing or playing
	notice   bool               // the active sequence is a notice, not an answer
	cancel   context.CancelFunc // cancels the active sequence's token

	device chan struct{} // one slot, held by the playback actor for its lifetime
	actors sync.WaitGroup
}

func NewEngine(synth Synthesizer, out Output, cfg Config) *Engine {
	if cfg.ResumeNotice == "" {
		cfg.ResumeNotice = defaultResumeNotice
	}
	if cfg.DuckFactor <= 0 {
		cfg.DuckFactor = 0.3
	}
	if cfg.DuckFade <= 0 {
		cfg.DuckFade = 150 * time.Millisecond
	}
	return &Engine{synth: synth, out: out, cfg: cfg, device: make(chan struct{}, 1)}
}

// Speak interrupts whatever is playing and starts speaking text. It returns
// once the device has started, without waiting for playback to finish.
// Blank text is a no-op. A synthesis failure is returned and leaves the
// playback state as it was.
func (e *Engine) Speak(ctx context.Context, text string) error {
	return e.speak(ctx, text, false)
}

// Interrupt stops the current playback. Safe to call when idle.
func (e *Engine) Interrupt() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.CancelRequested = true
	if !e.inFlight {
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	if !e.notice {
		e.state.LastPlaybackWasInterrupted = true
	}
	log.Debug("Playback interrupted", "seq", e.state.ActiveSequenceID)
}

// Resume replays the last answer if it was cut off, otherwise speaks a short
// notice. Answers that finished naturally are never replayed.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	e.state.CancelRequested = false
	text := e.state.LastSpokenText
	replay := e.state.LastPlaybackWasInterrupted && text != ""
	e.mu.Unlock()

	if replay {
		log.Debug("Resuming last answer", "chars", len(text))
		return e.speak(ctx, text, false)
	}
	return e.speak(ctx, e.cfg.ResumeNotice, true)
}

// PlayCue plays a short prerecorded clip, such as a chime, and waits for it
// to end. It waits for the device to be free instead of cutting off speech
// and leaves the playback state untouched.
func (e *Engine) PlayCue(ctx context.Context, clip *Clip) error {
	select {
	case e.device <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.device }()

	done, err := e.out.Play(ctx, clip)
	if err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

// State returns a snapshot of the playback state.
func (e *Engine) State() PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Speaking reports whether a request is synthesizing or playing.
func (e *Engine) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Close interrupts playback and waits for the playback actor to exit.
func (e *Engine) Close() {
	e.Interrupt()
	e.actors.Wait()
}

type request struct {
	seq    uint64
	notice bool
	tok    context.Context
	cancel context.CancelFunc

	prevText        string
	prevInterrupted bool
}

func (e *Engine) speak(ctx context.Context, text string, notice bool) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	spoken := CleanForSpeech(text)
	if spoken == "" {
		return nil
	}

	req := e.submit(text, notice)

	synthCtx, cancelSynth := context.WithCancel(ctx)
	stop := context.AfterFunc(req.tok, cancelSynth)
	clip, err := e.synth.Synthesize(synthCtx, spoken, e.cfg.Voice)
	stop()
	cancelSynth()

	if err != nil {
		interrupted := req.tok.Err() != nil
		e.abandon(req, interrupted)
		req.cancel()
		if interrupted {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrSynthesis, err)
	}

	started := make(chan error, 1)
	e.actors.Add(1)
	go e.play(req, clip, started)

	select {
	case err := <-started:
		if err != nil {
			return fmt.Errorf("play: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit interrupts the in-flight request and records a new one.
func (e *Engine) submit(text string, notice bool) *request {
	e.mu.Lock()
	defer e.mu.Unlock()

	cuttingAnswer := e.inFlight && !e.notice
	if e.inFlight && e.cancel != nil {
		e.cancel()
	}

	tok, cancel := context.WithCancel(context.Background())
	req := &request{
		notice:          notice,
		tok:             tok,
		cancel:          cancel,
		prevText:        e.state.LastSpokenText,
		prevInterrupted: e.state.LastPlaybackWasInterrupted || cuttingAnswer,
	}

	e.state.ActiveSequenceID++
	req.seq = e.state.ActiveSequenceID
	e.state.CancelRequested = false

	if notice {
		if cuttingAnswer {
			e.state.LastPlaybackWasInterrupted = true
		}
	} else {
		e.state.LastSpokenText = text
		e.state.LastPlaybackWasInterrupted = false
	}

	e.inFlight = true
	e.notice = notice
	e.cancel = cancel

	return req
}

// abandon settles a request whose synthesis did not produce audio.
func (e *Engine) abandon(req *request, interrupted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.seq != e.state.ActiveSequenceID {
		return
	}
	e.inFlight = false
	e.cancel = nil
	if req.notice {
		return
	}
	if interrupted {
		e.state.LastPlaybackWasInterrupted = true
		return
	}
	e.state.LastSpokenText = req.prevText
	e.state.LastPlaybackWasInterrupted = req.prevInterrupted
}

// finish records how the actor for req ended. Stale actors write nothing.
func (e *Engine) finish(req *request, interrupted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.seq != e.state.ActiveSequenceID {
		return
	}
	e.inFlight = false
	e.cancel = nil
	if !req.notice {
		e.state.LastPlaybackWasInterrupted = interrupted
	}
}

// play is the playback actor.
func (e *Engine) play(req *request, clip *Clip, started chan<- error) {
	defer e.actors.Done()
	defer req.cancel()

	e.device <- struct{}{}
	defer func() { <-e.device }()

	if req.tok.Err() != nil {
		started <- nil
		e.finish(req, true)
		return
	}

	if e.cfg.Ducker != nil {
		if err := e.cfg.Ducker.DuckOthers(req.tok, e.cfg.DuckFactor, e.cfg.DuckFade); err != nil {
			log.Debug("Duck failed", "err", err)
		}
		defer func() {
			if err := e.cfg.Ducker.UnduckOthers(context.Background(), e.cfg.DuckFade); err != nil {
				log.Debug("Unduck failed", "err", err)
			}
		}()
	}

	done, err := e.out.Play(req.tok, clip)
	if err != nil {
		started <- err
		// Nothing was heard; let Resume deliver it.
		e.finish(req, true)
		return
	}
	started <- nil

	err = <-done
	interrupted := req.tok.Err() != nil
	if err != nil && !interrupted && !errors.Is(err, context.Canceled) {
		log.Error("Playback failed", "seq", req.seq, "err", err)
		interrupted = true
	}

	log.Debug("Playback ended", "seq", req.seq, "interrupted", interrupted)
	e.finish(req, interrupted)
}
