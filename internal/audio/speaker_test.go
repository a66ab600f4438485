package audio

import (
	"context"
	"testing"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riya/internal/tts"
)

type countingStreamer struct {
	calls int
}

func (c *countingStreamer) Stream(samples [][2]float64) (int, bool) {
	c.calls++
	return len(samples), true
}

func (c *countingStreamer) Err() error { return nil }

func TestCtxStreamer_StopsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inner := &countingStreamer{}
	s := &ctxStreamer{ctx: ctx, s: inner}

	buf := make([][2]float64, 512)
	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 512, n)

	cancel()
	n, ok = s.Stream(buf)
	assert.False(t, ok)
	assert.Zero(t, n)
	assert.Equal(t, 1, inner.calls)
}

func TestDecodeClip_Rejects(t *testing.T) {
	_, _, err := decodeClip(nil)
	require.Error(t, err)

	_, _, err = decodeClip(&tts.Clip{Data: []byte("x"), Format: "flac"})
	require.Error(t, err)

	_, _, err = decodeClip(&tts.Clip{Data: []byte("not a wav"), Format: "wav"})
	require.Error(t, err)
}

var _ beep.Streamer = (*ctxStreamer)(nil)
