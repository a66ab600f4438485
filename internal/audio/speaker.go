package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"

	"riya/internal/tts"
)

// Speaker plays clips on the default output device. Cancellation is observed
// once per device buffer, so a short buffer keeps interrupts snappy.
type Speaker struct {
	rate beep.SampleRate
}

var (
	speakerInit sync.Once
	speakerErr  error
)

// NewSpeaker initializes the process-wide output device.
func NewSpeaker(rate int, buffer time.Duration) (*Speaker, error) {
	if rate <= 0 {
		rate = 44100
	}
	if buffer <= 0 {
		buffer = 20 * time.Millisecond
	}
	sr := beep.SampleRate(rate)

	speakerInit.Do(func() {
		speakerErr = speaker.Init(sr, sr.N(buffer))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("speaker init: %w", speakerErr)
	}
	return &Speaker{rate: sr}, nil
}

func (s *Speaker) Play(ctx context.Context, clip *tts.Clip) (<-chan error, error) {
	stream, format, err := decodeClip(clip)
	if err != nil {
		return nil, err
	}

	var src beep.Streamer = stream
	if format.SampleRate != s.rate {
		src = beep.Resample(4, format.SampleRate, s.rate, stream)
	}

	done := make(chan error, 1)
	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			stream.Close()
			done <- err
		})
	}

	guarded := &ctxStreamer{ctx: ctx, s: src}
	speaker.Play(beep.Seq(guarded, beep.Callback(func() {
		if err := ctx.Err(); err != nil {
			finish(err)
			return
		}
		finish(src.Err())
	})))

	return done, nil
}

func decodeClip(clip *tts.Clip) (beep.StreamSeekCloser, beep.Format, error) {
	if clip == nil || len(clip.Data) == 0 {
		return nil, beep.Format{}, fmt.Errorf("empty clip")
	}

	r := bytes.NewReader(clip.Data)
	switch clip.Format {
	case "wav":
		s, f, err := wav.Decode(r)
		if err != nil {
			return nil, f, fmt.Errorf("decode wav: %w", err)
		}
		return s, f, nil
	case "mp3", "":
		s, f, err := mp3.Decode(io.NopCloser(r))
		if err != nil {
			return nil, f, fmt.Errorf("decode mp3: %w", err)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported clip format %q", clip.Format)
	}
}

// ctxStreamer ends the stream at the first buffer after ctx is cancelled.
type ctxStreamer struct {
	ctx context.Context
	s   beep.Streamer
}

func (c *ctxStreamer) Stream(samples [][2]float64) (int, bool) {
	if c.ctx.Err() != nil {
		return 0, false
	}
	return c.s.Stream(samples)
}

func (c *ctxStreamer) Err() error { return c.s.Err() }
