package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"
)

// OpenAI synthesizes through the audio/speech endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAI(client openai.Client, model, voice string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	if voice == "" {
		voice = "nova"
	}
	return &OpenAI{client: client, model: model, voice: voice}
}

func (p *OpenAI) Name() string { return "openai" }

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

func (p *OpenAI) Synthesize(ctx context.Context, text string, voice Voice) (*Clip, error) {
	body := speechRequest{
		Model:          p.model,
		Input:          text,
		Voice:          p.voice,
		ResponseFormat: "mp3",
		Speed:          rateToSpeed(voice.Rate),
	}

	var res *http.Response
	if err := p.client.Post(ctx, "audio/speech", body, &res); err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer res.Body.Close()

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai speech: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: empty body")
	}

	return &Clip{Data: audio, Format: "mp3"}, nil
}
