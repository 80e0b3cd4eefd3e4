package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"travelplanner/backend"
)

// OpenAI talks to an OpenAI-compatible /v1/chat/completions endpoint.
type OpenAI struct {
	client      *backend.Client
	apiKey      string
	model       string
	temperature float64
}

// NewOpenAI creates a provider that sends requests through client.
func NewOpenAI(client *backend.Client, apiKey, model string, temperature float64) *OpenAI {
	return &OpenAI{client: client, apiKey: apiKey, model: model, temperature: temperature}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete prepends system as a system message and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	msgs := make([]Message, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, messages...)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+o.apiKey)

	var resp chatResponse
	err := o.client.DoJSON(ctx, http.MethodPost, "/v1/chat/completions", headers, nil, chatRequest{
		Model:       o.model,
		Messages:    msgs,
		Temperature: o.temperature,
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai chat completion: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
