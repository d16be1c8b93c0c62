package aivalidate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"facturas/internal/logger"
)

// OpenAIConfig configures the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string  // gpt-4o-mini, gpt-4o
	Temperature float32 // low values keep the JSON stable
	MaxRetries  int
	MaxTokens   int
}

// OpenAIGenerator implements Generator with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIGenerator creates a generator from cfg.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
	}
	return NewOpenAIGeneratorWithClient(openai.NewClient(cfg.APIKey), cfg), nil
}

// NewOpenAIGeneratorWithClient creates a generator with an explicit client.
func NewOpenAIGeneratorWithClient(client *openai.Client, cfg OpenAIConfig) *OpenAIGenerator {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1500
	}
	return &OpenAIGenerator{
		client: client,
		config: cfg,
		log:    logger.WithComponent("openai"),
	}
}

// Generate sends prompt with the validation system prompt, retrying failed requests.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	const op = "Generate"

	g.log.Debug().
		Int("prompt_length", len(prompt)).
		Str("model", g.config.Model).
		Float32("temperature", g.config.Temperature).
		Msg("Sending completion request to ChatGPT")

	var lastErr error
	for attempt := 1; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}

		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       g.config.Model,
			Temperature: g.config.Temperature,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens: g.config.MaxTokens,
		})
		if err != nil {
			lastErr = err
			g.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", g.config.MaxRetries).
				Msg("ChatGPT request failed, retrying")
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.New("no response choices from ChatGPT")
			continue
		}

		content := resp.Choices[0].Message.Content
		g.log.Debug().
			Int("response_length", len(content)).
			Int("total_tokens", resp.Usage.TotalTokens).
			Msg("Received ChatGPT response")
		return content, nil
	}

	return "", fmt.Errorf("%s: failed after %d attempts: %w", op, g.config.MaxRetries, lastErr)
}
