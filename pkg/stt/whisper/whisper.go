// Package whisper runs local transcription on a whisper.cpp model.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"riya/pkg/stt"
)

type Options struct {
	Language      string        // e.g. "auto", "en", "ru"
	TranslateToEn bool          // if true, translate non-EN -> EN
	Threads       int           // <=0 => NumCPU()
	InitialPrompt string        // optional system/prefix prompt
	BeamSize      int           // 0 = default (greedy); >0 enables beam search
	SplitOnWord   bool          // split on word boundaries
	Temperature   float32       // 0 = default
	Duration      time.Duration // max duration (optional)
}

// Transcriber runs a whisper.cpp model. Model contexts are created per call
// but processing is serialized to bound memory use.
type Transcriber struct {
	mu    sync.Mutex
	model whispercpp.Model // interface, not pointer
	opt   Options
}

func NewTranscriber(modelPath string, opt Options) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whispercpp.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m, opt: opt}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe uses the options given at construction.
func (t *Transcriber) Transcribe(ctx context.Context, pcm16k []float32) (stt.Result, error) {
	return t.TranscribePCM(ctx, pcm16k, t.opt)
}

// pcm16k must be mono @ 16 kHz, float32 in [-1, 1]
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (stt.Result, error) {
	if t.model == nil {
		return stt.Result{}, fmt.Errorf("%w: nil model", stt.ErrUnavailable)
	}
	if len(pcm16k) == 0 {
		return stt.Result{}, stt.ErrUnintelligible
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("%w: new context: %w", stt.ErrUnavailable, err)
	}

	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return stt.Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	if opt.Duration > 0 {
		wctx.SetDuration(opt.Duration)
	}

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.SplitOnWord {
		wctx.SetSplitOnWord(true)
	}
	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("%w: process: %w", stt.ErrUnavailable, err)
	}

	var segs []stt.Segment
	for {
		select {
		case <-ctx.Done():
			return stt.Result{}, ctx.Err()
		default:
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, stt.Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	text := stt.JoinSegments(segs)
	if text == "" {
		return stt.Result{Language: lang}, stt.ErrUnintelligible
	}

	return stt.Result{
		Text:     text,
		Segments: segs,
		Language: lang,
	}, nil
}
