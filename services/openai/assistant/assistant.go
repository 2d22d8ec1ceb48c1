// Package assistant implements the Assistant interface using OpenAI chat
// completions.
package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"personakit/core"
)

// Config holds the configuration for the OpenAI assistant.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:       openai.GPT3Dot5Turbo,
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

// Service calls OpenAI chat completions, non-streaming.
type Service struct {
	client *openai.Client
	config Config
}

func New(config Config) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT3Dot5Turbo
	}
	return &Service{
		client: openai.NewClient(config.APIKey),
		config: config,
	}, nil
}

// Respond sends the prior context and the new message to the model and
// returns the generated reply.
func (s *Service) Respond(ctx context.Context, message string, history []core.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    convertRole(turn.Role),
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrAssistantUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", core.ErrAssistantUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func convertRole(role core.Role) string {
	switch role {
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
