package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SAP-F-2025/studyroom-service/internal/assistant"
	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
)

type assistantService struct {
	client  assistant.Client
	logger  *slog.Logger
	timeout time.Duration
}

func NewAssistantService(deps Dependencies, config ServiceManagerConfig) AssistantService {
	return &assistantService{
		client:  deps.Assistant,
		logger:  deps.Logger.With("service", "assistant"),
		timeout: config.AssistantTimeout,
	}
}

func (s *assistantService) Ask(ctx context.Context, identity auth.Identity, message string) (*models.AssistantReply, error) {
	prompt := strings.TrimSpace(message)
	if prompt == "" {
		return nil, ErrMessageEmpty
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.client.Complete(ctx, prompt)
	if err != nil {
		if !errors.Is(err, assistant.ErrNotConfigured) {
			s.logger.Error("Assistant request failed", "error", err, "user_id", identity.UserID)
		}
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}

	return &models.AssistantReply{Response: reply}, nil
}
