package openrouter

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/compliai/compliai/internal/domain/compliance"
	"github.com/compliai/compliai/internal/infra/ai/prompt"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1"
	defaultModel       = "openai/gpt-4o-mini"
	defaultTemperature = 0.2
	defaultTimeout     = 60 * time.Second
	maxTokens          = 2048
)

// Config controls how completions are requested. The credential is NOT part
// of the config: it is supplied per request, so the client never holds a key.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client scores documents through an OpenAI-compatible chat-completion
// endpoint (OpenRouter by default). One Score call is one round trip.
type Client struct {
	cfg Config
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{cfg: cfg}
}

// Score implements compliance.Scorer. Transport failures, timeouts, and
// non-success statuses all surface as compliance.ErrRequestFailed; no finer
// classification is attempted.
func (c *Client) Score(ctx context.Context, req compliance.ScoreRequest) (string, error) {
	conf := openai.DefaultConfig(req.Credential)
	conf.BaseURL = c.cfg.BaseURL
	cli := openai.NewClientWithConfig(conf)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System(req.Regulations)},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User(req.Document)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", compliance.ErrRequestFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion has no choices", compliance.ErrRequestFailed)
	}
	return resp.Choices[0].Message.Content, nil
}
