// Package tts speaks text aloud.
//
// Synthesizers turn text into an encoded audio Clip; the Engine owns the
// output device and plays clips on a background actor that can be
// interrupted and resumed.
package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
)

// ErrSynthesis wraps every synthesizer failure surfaced by Speak.
var ErrSynthesis = errors.New("synthesis failed")

// Voice carries provider-neutral voice parameters.
type Voice struct {
	Name  string // provider voice id, e.g. "en-US-JennyNeural"
	Rate  string // relative rate, e.g. "-15%"
	Pitch string // relative pitch, e.g. "-2Hz"
	Lang  string // fallback language for voices chosen by language
}

// Clip is encoded audio ready for the output device.
type Clip struct {
	Data   []byte
	Format string // "mp3" or "wav"
}

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error)
}

// Chain tries each synthesizer in order and returns the first clip.
type Chain []Synthesizer

func (c Chain) Name() string { return "chain" }

func (c Chain) Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error) {
	if len(c) == 0 {
		return nil, errors.New("no synthesizers configured")
	}

	var errs []error
	for _, s := range c {
		clip, err := s.Synthesize(ctx, text, voice)
		if err == nil {
			return clip, nil
		}
		log.Warn("Synthesizer failed", "name", s.Name(), "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
