package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"riya/pkg/audioconv"
)

const (
	sampleRate = audioconv.TargetRate
	frameSize  = 320 // 20ms
	frameDur   = time.Duration(frameSize) * time.Second / sampleRate

	defaultThreshold = 0.015
	minThreshold     = 0.005
	ambientRatio     = 1.5
	pauseDur         = 800 * time.Millisecond
)

// Recorder captures one phrase at a time from the default input device.
type Recorder struct {
	mu        sync.Mutex
	threshold float64
}

func NewRecorder() *Recorder { return &Recorder{threshold: defaultThreshold} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Threshold is the RMS level above which a frame counts as speech.
func (r *Recorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Calibrate samples ambient noise for d and raises the speech threshold
// above it.
func (r *Recorder) Calibrate(ctx context.Context, d time.Duration) error {
	var (
		sum    float64
		frames int
	)
	limit := int(d / frameDur)
	err := r.stream(ctx, func(frame []float32) bool {
		sum += audioconv.RMS(frame)
		frames++
		return frames >= limit
	})
	if err != nil {
		return err
	}
	if frames == 0 {
		return nil
	}

	th := max(sum/float64(frames)*ambientRatio, minThreshold)

	r.mu.Lock()
	r.threshold = th
	r.mu.Unlock()

	log.Debug("Calibrated microphone", "threshold", th, "frames", frames)
	return nil
}

// Record waits up to onset for speech to start, then records until a pause.
// phraseLimit bounds the whole call, waiting included. It returns an empty
// slice when nobody spoke.
func (r *Recorder) Record(ctx context.Context, onset, phraseLimit time.Duration) ([]float32, error) {
	det := newPhraseDetector(r.Threshold(), onset, phraseLimit)
	if err := r.stream(ctx, det.feed); err != nil {
		return nil, err
	}
	return det.pcm, nil
}

// stream reads frames until fn returns true or ctx is cancelled.
func (r *Recorder) stream(ctx context.Context, fn func([]float32) bool) error {
	buf := make([]float32, frameSize)

	s, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer s.Close()

	if err := s.Start(); err != nil {
		return fmt.Errorf("start input: %w", err)
	}
	defer s.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				continue
			}
			return fmt.Errorf("read input: %w", err)
		}
		if fn(buf) {
			return nil
		}
	}
}

// phraseDetector segments a frame stream into a single phrase.
type phraseDetector struct {
	threshold   float64
	onsetFrames int
	limitFrames int
	pauseFrames int

	waited   int
	speaking bool
	silent   int
	frames   int
	pcm      []float32
}

func newPhraseDetector(threshold float64, onset, limit time.Duration) *phraseDetector {
	if onset <= 0 {
		onset = 5 * time.Second
	}
	if limit <= 0 {
		limit = 10 * time.Second
	}
	return &phraseDetector{
		threshold:   threshold,
		onsetFrames: int(onset / frameDur),
		limitFrames: int(limit / frameDur),
		pauseFrames: int(pauseDur / frameDur),
	}
}

// feed consumes one frame and reports whether the phrase is complete.
func (d *phraseDetector) feed(frame []float32) bool {
	loud := audioconv.RMS(frame) > d.threshold

	if !d.speaking {
		if !loud {
			d.waited++
			return d.waited >= d.onsetFrames || d.waited >= d.limitFrames
		}
		d.speaking = true
	}

	d.pcm = append(d.pcm, frame...)
	d.frames++

	if loud {
		d.silent = 0
	} else {
		d.silent++
		if d.silent >= d.pauseFrames {
			return true
		}
	}
	return d.waited+d.frames >= d.limitFrames
}
