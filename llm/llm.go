// Package llm wraps the chat-completion providers the agents talk to.
package llm

import (
	"context"
	"fmt"

	"travelplanner/backend"
	"travelplanner/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider completes a conversation given a system prompt.
type Provider interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// New builds the provider selected in cfg.
func New(ctx context.Context, cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(backend.NewBackendClient(cfg.BaseURL, cfg.Timeout), cfg.APIKey, cfg.Model, cfg.Temperature), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
