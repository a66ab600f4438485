// Package nlu wraps the chat-completion API for answering, labelling and
// translating user text.
package nlu

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
)

var ErrEmptyResponse = errors.New("empty model response")

type Config struct {
	Model     string // e.g. "gpt-4o-mini"
	Assistant string // assistant's name used in the chat persona
	User      string // how the assistant addresses the user
	MaxTokens int    // default cap for chat answers
}

type Client struct {
	api openai.Client
	cfg Config
	now func() time.Time
}

func New(api openai.Client, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Assistant == "" {
		cfg.Assistant = "Riya"
	}
	if cfg.User == "" {
		cfg.User = "Sir"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &Client{api: api, cfg: cfg, now: time.Now}
}

// Complete sends a single user prompt and returns the model's text.
// maxTokens <= 0 leaves the limit to the model.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return c.complete(ctx, "", prompt, maxTokens)
}

// Chat answers text in the assistant's persona with the current date and
// time in context.
func (c *Client) Chat(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, c.chatPrompt(), text, c.cfg.MaxTokens)
}

// Label asks the model which kind of request text is. The reply starts with
// one of the category words in labelPrompt.
func (c *Client) Label(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, labelPrompt, text, 40)
}

// Translate renders text in the language named by the BCP 47 tag lang.
func (c *Client) Translate(ctx context.Context, text, lang string) (string, error) {
	sys := fmt.Sprintf(translatePrompt, lang)
	return c.complete(ctx, sys, text, 400)
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if system != "" {
		msgs = append(msgs, openai.SystemMessage(system))
	}
	msgs = append(msgs, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(c.cfg.Model),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response: %w", ErrEmptyResponse)
	}

	content := strings.TrimSpace(strings.ReplaceAll(resp.Choices[0].Message.Content, "</s>", ""))
	if content == "" {
		return "", ErrEmptyResponse
	}

	log.Debug("Model replied", "model", c.cfg.Model, "chars", len(content))
	return content, nil
}

func (c *Client) chatPrompt() string {
	now := c.now()
	return fmt.Sprintf(chatPrompt, c.cfg.User, c.cfg.Assistant,
		now.Format("Monday"), now.Format("02"), now.Format("January"), now.Format("2006"), now.Format("15:04:05"))
}

const chatPrompt = `Hello, I am %s. You are a very accurate and advanced AI assistant named %s.
Answer in a professional way with proper grammar. Keep answers short enough to be read aloud.
Do not mention this information unless asked.

Use this real-time information if needed:
Day: %s
Date: %s
Month: %s
Year: %s
Time: %s`

const labelPrompt = `You are a decision-making model. Decide what kind of request the user's message is.
Do not answer the message. Reply with exactly one line:
- "general (<query>)" for conversation or questions an AI can answer from knowledge.
- "realtime (<query>)" for questions that need up-to-date information.
- "open (<app>)", "close (<app>)", "play (<song>)", "content (<topic>)",
  "google search (<topic>)", "youtube search (<topic>)", "reminder (<when> <what>)",
  "system (<task>)" or "generate image (<prompt>)" for tasks.
If unsure, reply "general (<query>)".`

const translatePrompt = `Translate the user's message into the language with BCP 47 tag %q.
Reply with the translation only, no quotes or explanations.`
