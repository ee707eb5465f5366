package studyquiz

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultModelBaseURL is Gemini's OpenAI-compatible endpoint.
const DefaultModelBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// DefaultModelName is the model used when none is configured
const DefaultModelName = "gemini-2.5-flash"

// Model sends one prompt to a generative language model and returns the text
// of its reply.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts a plain function to the Model interface
type ModelFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f
func (f ModelFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// OpenAIModel talks to any OpenAI-compatible chat completions API
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIModel creates a model client. An empty base URL means the Gemini
// endpoint and an empty model name means DefaultModelName.
func NewOpenAIModel(cfg ModelConfig) *OpenAIModel {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = DefaultModelBaseURL
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	name := cfg.Name
	if name == "" {
		name = DefaultModelName
	}

	return &OpenAIModel{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       name,
		temperature: cfg.Temperature,
	}
}

// Complete sends the prompt as a single user message
func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: m.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: m.temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", m.model, err)
	}

	VerboseLog("Received response from %s with %d choices", m.model, len(resp.Choices))

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", m.model)
	}

	return resp.Choices[0].Message.Content, nil
}
