// Package assistant implements the Assistant interface using Google's Gemini
// API.
package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"personakit/core"
)

// Config holds the configuration for the Gemini assistant.
type Config struct {
	APIKey string
	Model  string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Model: "gemini-2.0-flash"}
}

// Service calls Gemini's GenerateContent with the prior turns as history.
type Service struct {
	client *genai.Client
	config Config
}

func New(ctx context.Context, config Config) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrAssistantUnavailable, err)
	}

	return &Service{client: client, config: config}, nil
}

func (s *Service) Respond(ctx context.Context, message string, history []core.Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		contents = append(contents, genai.NewContentFromText(turn.Content, convertRole(turn.Role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	res, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrAssistantUnavailable, err)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate", core.ErrAssistantUnavailable)
	}
	return res.Candidates[0].Content.Parts[0].Text, nil
}

func convertRole(role core.Role) genai.Role {
	if role == core.RoleAssistant {
		return genai.RoleModel
	}
	return genai.RoleUser
}
