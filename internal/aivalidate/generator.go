package aivalidate

import (
	"context"
	"fmt"
	"strings"
)

// Provider names accepted by NewGenerator.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// GeneratorConfig selects and configures the text-generation provider.
type GeneratorConfig struct {
	Provider    string
	Temperature float32
	MaxRetries  int

	OpenAIAPIKey string
	OpenAIModel  string

	GeminiAPIKey string
	GeminiModel  string
}

// NewGenerator builds the generator for cfg.Provider. ProviderNone returns
// nil, which makes every validation fall back to heuristic data.
func NewGenerator(ctx context.Context, cfg GeneratorConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		gen, err := NewOpenAIGenerator(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			MaxRetries:  cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderGemini:
		gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
