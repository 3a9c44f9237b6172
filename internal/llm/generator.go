package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Generator is the narrow text-completion interface the AI engine consumes.
// Implementations send a system prompt plus a user prompt and return the raw
// assistant text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error)
}

// ChatGenerator adapts an Eino chat model to the Generator interface.
type ChatGenerator struct {
	chatModel model.BaseChatModel
}

// NewChatGenerator builds a Generator backed by the provider named in cfg.
// It returns (nil, nil) when no credential is configured so callers can fall
// back to heuristic behavior instead of failing.
func NewChatGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.APIKey == "" && cfg.Provider != ProviderOllama {
		return nil, nil
	}
	cm, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &ChatGenerator{chatModel: cm}, nil
}

// Generate sends the prompts to the underlying chat model and returns the
// assistant message content.
func (g *ChatGenerator) Generate(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}

	resp, err := g.chatModel.Generate(ctx, messages,
		model.WithMaxTokens(maxTokens),
		model.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("llm generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("llm generate: empty response")
	}
	return resp.Content, nil
}
