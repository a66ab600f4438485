// Package capture turns microphone audio into normalized utterances.
//
// A Capture records one phrase through a Recorder, transcribes it and runs the
// result through translation and Normalize. Silence and unintelligible audio
// produce an empty Utterance rather than an error.
package capture

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"riya/pkg/stt"
)

// ErrTranscriptionUnavailable wraps failures of the transcription service.
// Callers log it and keep listening.
var ErrTranscriptionUnavailable = errors.New("transcription unavailable")

// Recorder yields the PCM of a single phrase (mono, 16 kHz, float32).
// An empty slice with a nil error means no speech started before onset.
// io.EOF signals that the source is exhausted.
type Recorder interface {
	Record(ctx context.Context, onset, phraseLimit time.Duration) ([]float32, error)
}

// Calibrator is implemented by recorders that can adapt to ambient noise.
type Calibrator interface {
	Calibrate(ctx context.Context, d time.Duration) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (stt.Result, error)
}

type Translator interface {
	Translate(ctx context.Context, text, lang string) (string, error)
}

// Utterance is one normalized unit of recognized speech.
type Utterance struct {
	Raw      string
	Text     string
	Language string
	At       time.Time
}

// Empty reports whether nothing was recognized.
func (u Utterance) Empty() bool { return u.Text == "" }

type Capture struct {
	rec        Recorder
	tr         Transcriber
	translator Translator
	lang       language.Tag
	now        func() time.Time
}

// New builds a Capture. translator may be nil, in which case transcripts are
// kept in their detected language. workingLang is a BCP 47 tag ("en").
func New(rec Recorder, tr Transcriber, translator Translator, workingLang string) *Capture {
	tag, err := language.Parse(workingLang)
	if err != nil {
		tag = language.English
	}

	return &Capture{
		rec:        rec,
		tr:         tr,
		translator: translator,
		lang:       tag,
		now:        time.Now,
	}
}

// Calibrate lets the recorder measure ambient noise when it supports it.
func (c *Capture) Calibrate(ctx context.Context, d time.Duration) error {
	cal, ok := c.rec.(Calibrator)
	if !ok {
		return nil
	}
	return cal.Calibrate(ctx, d)
}

// CaptureOnce waits up to timeout for speech to start and records at most
// phraseLimit of audio.
func (c *Capture) CaptureOnce(ctx context.Context, timeout, phraseLimit time.Duration) (Utterance, error) {
	pcm, err := c.rec.Record(ctx, timeout, phraseLimit)
	if err != nil {
		return Utterance{}, err
	}
	if len(pcm) == 0 {
		return Utterance{}, nil
	}

	res, err := c.tr.Transcribe(ctx, pcm)
	switch {
	case errors.Is(err, stt.ErrUnintelligible):
		log.Debug("Unintelligible audio", "samples", len(pcm))
		return Utterance{}, nil
	case err != nil:
		return Utterance{}, fmt.Errorf("%w: %w", ErrTranscriptionUnavailable, err)
	}

	raw := strings.TrimSpace(res.Text)
	if raw == "" {
		return Utterance{}, nil
	}

	text := c.translate(ctx, raw, res.Language)
	text = Normalize(text)
	if text == "" {
		return Utterance{}, nil
	}

	return Utterance{
		Raw:      raw,
		Text:     text,
		Language: res.Language,
		At:       c.now(),
	}, nil
}

func (c *Capture) translate(ctx context.Context, text, detected string) string {
	if c.translator == nil || c.sameLanguage(detected) {
		return text
	}

	out, err := c.translator.Translate(ctx, text, c.lang.String())
	if err != nil {
		log.Warn("Translation failed, keeping original", "lang", detected, "err", err)
		return text
	}
	if strings.TrimSpace(out) == "" {
		return text
	}
	return out
}

// sameLanguage treats unknown detections as the working language.
func (c *Capture) sameLanguage(detected string) bool {
	if detected == "" || detected == "auto" {
		return true
	}
	tag, err := language.Parse(detected)
	if err != nil {
		return true
	}
	want, _ := c.lang.Base()
	got, conf := tag.Base()
	if conf == language.No {
		return true
	}
	return want == got
}
