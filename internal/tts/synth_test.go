package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanForSpeech(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello world", "Hello world"},
		{"Sunny ☀️ today", "Sunny today"},
		{"🚀🚀 Launch", "Launch"},
		{"Weather ⛅ in Paris", "Weather in Paris"},
		{"🙂", ""},
		{"  padded  ", "padded"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CleanForSpeech(tc.in), "input %q", tc.in)
	}
}

func TestRateToSpeed(t *testing.T) {
	assert.InDelta(t, 0.85, rateToSpeed("-15%"), 1e-9)
	assert.InDelta(t, 1.2, rateToSpeed("+20%"), 1e-9)
	assert.InDelta(t, 0.25, rateToSpeed("-99%"), 1e-9)
	assert.Zero(t, rateToSpeed(""))
	assert.Zero(t, rateToSpeed("fast"))
}

func TestEdgeArgs(t *testing.T) {
	args := edgeArgs("hi there", Voice{Name: "en-IN-NeerjaNeural", Rate: "-15%", Pitch: "-2Hz"}, "/tmp/x.mp3")
	assert.Equal(t, []string{
		"--voice", "en-IN-NeerjaNeural",
		"--rate=-15%",
		"--pitch=-2Hz",
		"--text=hi there",
		"--write-media", "/tmp/x.mp3",
	}, args)

	args = edgeArgs("-5 degrees outside", Voice{}, "/tmp/y.mp3")
	assert.Equal(t, []string{"--voice", "en-US-JennyNeural", "--text=-5 degrees outside", "--write-media", "/tmp/y.mp3"}, args)
}

func TestEspeakArgs(t *testing.T) {
	args := espeakArgs("-dash first", Voice{Rate: "+20%"}, "/tmp/x.wav")
	assert.Equal(t, []string{"-v", "en", "-s", "210", "-w", "/tmp/x.wav", "--", "-dash first"}, args)
}

func TestOpenAISynthesize(t *testing.T) {
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("ID3fake"))
	}))
	defer srv.Close()

	client := openai.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	p := NewOpenAI(client, "", "shimmer")

	clip, err := p.Synthesize(context.Background(), "Hello.", Voice{Rate: "-10%"})
	require.NoError(t, err)
	assert.Equal(t, "mp3", clip.Format)
	assert.Equal(t, "ID3fake", string(clip.Data))
	assert.Equal(t, "gpt-4o-mini-tts", got.Model)
	assert.Equal(t, "shimmer", got.Voice)
	assert.Equal(t, "Hello.", got.Input)
	assert.InDelta(t, 0.9, got.Speed, 1e-9)
}

func TestOpenAISynthesize_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad voice"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("k"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := NewOpenAI(client, "", "").Synthesize(context.Background(), "Hello.", Voice{})
	require.Error(t, err)
}
