package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

type chatService struct {
	repo      repositories.Repository
	cache     *cache.CacheManager
	logger    *slog.Logger
	validator *validator.Validator
	hub       RoomHub
	now       func() time.Time
}

func NewChatService(deps Dependencies) ChatService {
	return &chatService{
		repo:      deps.Repo,
		cache:     deps.Cache,
		logger:    deps.Logger.With("service", "chat"),
		validator: deps.Validator,
		hub:       deps.Hub,
		now:       time.Now,
	}
}

func (s *chatService) Join(ctx context.Context, client *realtime.Client, roomID uint) error {
	if err := s.requireRoom(ctx, roomID); err != nil {
		return err
	}

	if err := s.hub.Join(client, roomID); err != nil {
		return err
	}

	identity := client.Identity()
	payload, err := realtime.NewChatEvent(roomID, realtime.SystemUser, realtime.JoinNotice(identity.Username))
	if err != nil {
		return err
	}
	if _, err := s.hub.Broadcast(roomID, payload); err != nil {
		return err
	}

	s.logger.Debug("Joined room", "room_id", roomID, "user_id", identity.UserID)
	return nil
}

func (s *chatService) Leave(_ context.Context, client *realtime.Client, roomID uint) error {
	return s.hub.Leave(client, roomID)
}

func (s *chatService) Send(ctx context.Context, identity auth.Identity, roomID uint, text string, origin MessageOrigin) (*models.ChatLine, error) {
	req := validator.ChatMessageRequest{Room: roomID, Text: strings.TrimSpace(text)}
	if req.Text == "" {
		return nil, ErrMessageEmpty
	}
	if errs := s.validator.Validate(&req); errs != nil {
		return nil, errs
	}

	if err := s.requireRoom(ctx, roomID); err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:    roomID,
		UserID:    identity.UserID,
		Content:   req.Text,
		Timestamp: s.now().UTC(),
	}
	if origin != (MessageOrigin{}) {
		meta, err := json.Marshal(origin)
		if err != nil {
			return nil, fmt.Errorf("failed to encode message origin: %w", err)
		}
		message.Metadata = datatypes.JSON(meta)
	}
	if err := s.repo.Message().Create(ctx, nil, message); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	cache.SafeDelete(ctx, s.cache.Stats, roomMessageCountKey(roomID))

	payload, err := realtime.NewChatEvent(roomID, identity.Username, message.Content)
	if err != nil {
		return nil, err
	}
	delivered, err := s.hub.Broadcast(roomID, payload)
	if err != nil {
		// stored but not relayed; history still has it
		s.logger.Warn("Failed to relay chat message", "error", err, "room_id", roomID, "message_id", message.ID)
	}

	s.logger.Debug("Chat message relayed", "room_id", roomID, "message_id", message.ID, "recipients", delivered)

	return &models.ChatLine{
		ID:        message.ID,
		RoomID:    roomID,
		UserID:    identity.UserID,
		Username:  identity.Username,
		Content:   message.Content,
		Timestamp: message.Timestamp,
	}, nil
}

func (s *chatService) requireRoom(ctx context.Context, roomID uint) error {
	exists, err := s.repo.StudyRoom().Exists(ctx, nil, roomID)
	if err != nil {
		return fmt.Errorf("failed to check room: %w", err)
	}
	if !exists {
		return ErrRoomNotFound
	}
	return nil
}
