package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SAP-F-2025/studyroom-service/internal/config"
)

const (
	SystemPrompt = "You are a helpful study assistant."
	DefaultModel = openai.GPT3Dot5Turbo
)

var (
	ErrNotConfigured = errors.New("assistant: no API key configured")
	ErrEmptyReply    = errors.New("assistant: completion returned no choices")
)

// Client answers a single study question
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient calls the chat completions API
type OpenAIClient struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

func NewOpenAIClient(cfg config.AssistantConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		api:    openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger.With("component", "assistant", "model", model),
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			c.logger.Warn("Completion rejected", "status", apiErr.HTTPStatusCode, "type", apiErr.Type)
		}
		return "", fmt.Errorf("create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	c.logger.Debug("Completion finished", "total_tokens", resp.Usage.TotalTokens)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Unavailable is used when no API key is configured
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// New returns an OpenAI client, or Unavailable when the key is missing
func New(cfg config.AssistantConfig, logger *slog.Logger) Client {
	client, err := NewOpenAIClient(cfg, logger)
	if err != nil {
		logger.Warn("AI assistant disabled", "reason", err)
		return Unavailable{}
	}
	return client
}
