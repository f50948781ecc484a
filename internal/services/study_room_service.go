package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/export"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

const (
	siteStatsKey    = "site"
	historyPageSize = 500
)

func roomMessageCountKey(roomID uint) string {
	return fmt.Sprintf("room:%d:messages", roomID)
}

type studyRoomService struct {
	repo        repositories.Repository
	cache       *cache.CacheManager
	logger      *slog.Logger
	validator   *validator.Validator
	hub         RoomHub
	transcripts *export.TranscriptWriter
	config      ServiceManagerConfig
}

func NewStudyRoomService(deps Dependencies, config ServiceManagerConfig) StudyRoomService {
	return &studyRoomService{
		repo:        deps.Repo,
		cache:       deps.Cache,
		logger:      deps.Logger.With("service", "study_room"),
		validator:   deps.Validator,
		hub:         deps.Hub,
		transcripts: deps.Transcripts,
		config:      config,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *studyRoomService) List(ctx context.Context, filters repositories.RoomFilters) ([]models.RoomSummary, error) {
	rooms, err := s.repo.StudyRoom().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}

func (s *studyRoomService) Create(ctx context.Context, identity auth.Identity, req *RoomRequest) (*models.RoomSummary, error) {
	if errs := s.validator.GetBusinessValidator().ValidateRoom(req); errs != nil {
		return nil, errs
	}

	room := &models.StudyRoom{
		Name:        req.Name,
		Description: req.Description,
		HostID:      identity.UserID,
		IsActive:    true,
	}
	if err := s.repo.StudyRoom().Create(ctx, nil, room); err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	cache.SafeDelete(ctx, s.cache.Stats, siteStatsKey)
	s.logger.Info("Study room created", "room_id", room.ID, "host_id", identity.UserID)

	return s.summary(ctx, room.ID)
}

func (s *studyRoomService) Get(ctx context.Context, identity auth.Identity, roomID uint) (*models.RoomDetail, error) {
	room, err := s.summary(ctx, roomID)
	if err != nil {
		return nil, err
	}

	var count int64
	err = s.cache.Stats.CacheOrExecute(ctx, roomMessageCountKey(roomID), &count, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Message().CountByRoom(ctx, nil, roomID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	return &models.RoomDetail{
		Room:         *room,
		MessageCount: count,
		Subscribers:  s.hub.Subscribers(roomID),
		IsHost:       room.HostID == identity.UserID,
	}, nil
}

// ===== HOST ONLY =====

func (s *studyRoomService) GetForEdit(ctx context.Context, identity auth.Identity, roomID uint) (*models.RoomSummary, error) {
	if _, err := s.hostedRoom(ctx, identity, roomID, "edit"); err != nil {
		return nil, err
	}
	return s.summary(ctx, roomID)
}

func (s *studyRoomService) Update(ctx context.Context, identity auth.Identity, roomID uint, req *RoomRequest) (*models.RoomSummary, error) {
	room, err := s.hostedRoom(ctx, identity, roomID, "edit")
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateRoom(req); errs != nil {
		return nil, errs
	}

	room.Name = req.Name
	room.Description = req.Description
	if err := s.repo.StudyRoom().Update(ctx, nil, room); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	s.logger.Info("Study room updated", "room_id", roomID, "host_id", identity.UserID)
	return s.summary(ctx, roomID)
}

// Delete removes the room together with its whole chat history
func (s *studyRoomService) Delete(ctx context.Context, identity auth.Identity, roomID uint) error {
	if _, err := s.hostedRoom(ctx, identity, roomID, "delete"); err != nil {
		return err
	}

	if err := s.repo.StudyRoom().DeleteWithMessages(ctx, nil, roomID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("failed to delete room: %w", err)
	}

	cache.SafeDelete(ctx, s.cache.Stats, siteStatsKey, roomMessageCountKey(roomID))
	s.logger.Info("Study room deleted", "room_id", roomID, "host_id", identity.UserID)
	return nil
}

func (s *studyRoomService) hostedRoom(ctx context.Context, identity auth.Identity, roomID uint, action string) (*models.StudyRoom, error) {
	room, err := s.repo.StudyRoom().GetByID(ctx, nil, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	if !room.IsHostedBy(identity.UserID) {
		s.logger.Warn("Rejected room change by non-host", "room_id", roomID, "user_id", identity.UserID, "action", action)
		return nil, NewPermissionError(identity.UserID, roomID, "room", action, "not the host")
	}
	return room, nil
}

// ===== HISTORY =====

func (s *studyRoomService) ChatHistory(ctx context.Context, roomID uint, query HistoryQuery) (*models.ChatHistory, error) {
	room, err := s.summary(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if query == (HistoryQuery{}) {
		lines, err := s.allMessages(ctx, roomID)
		if err != nil {
			return nil, err
		}
		return &models.ChatHistory{Room: *room, Messages: lines}, nil
	}

	limit := query.Limit
	if limit <= 0 || limit > s.config.HistoryLimit {
		limit = s.config.HistoryLimit
	}
	// without an after cursor the page ends at the newest message
	tail := query.AfterID == 0

	lines, err := s.repo.Message().ListByRoom(ctx, nil, roomID, repositories.MessageFilters{
		AfterID:  query.AfterID,
		BeforeID: query.BeforeID,
		Tail:     tail,
		Limit:    limit + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}

	hasMore := len(lines) > limit
	if hasMore {
		if tail {
			lines = lines[1:]
		} else {
			lines = lines[:limit]
		}
	}

	return &models.ChatHistory{Room: *room, Messages: lines, HasMore: hasMore}, nil
}

// allMessages walks the whole room history in keyset pages
func (s *studyRoomService) allMessages(ctx context.Context, roomID uint) ([]models.ChatLine, error) {
	lines := make([]models.ChatLine, 0)
	var after uint
	for {
		page, err := s.repo.Message().ListByRoom(ctx, nil, roomID, repositories.MessageFilters{
			AfterID: after,
			Limit:   historyPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load chat history: %w", err)
		}
		lines = append(lines, page...)
		if len(page) < historyPageSize {
			return lines, nil
		}
		after = page[len(page)-1].ID
	}
}

func (s *studyRoomService) ExportTranscript(ctx context.Context, roomID uint) (*Transcript, error) {
	room, err := s.summary(ctx, roomID)
	if err != nil {
		return nil, err
	}

	lines, err := s.allMessages(ctx, roomID)
	if err != nil {
		return nil, err
	}

	data, err := s.transcripts.Write(*room, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to render transcript: %w", err)
	}

	return &Transcript{
		FileName:    s.transcripts.FileName(*room),
		ContentType: export.ContentTypeXLSX,
		Data:        data,
	}, nil
}

// Stats returns the home page counters, cached briefly
func (s *studyRoomService) Stats(ctx context.Context) (*models.SiteStats, error) {
	var stats models.SiteStats
	err := s.cache.Stats.CacheOrExecute(ctx, siteStatsKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		users, err := s.repo.User().Count(ctx, nil)
		if err != nil {
			return nil, err
		}
		rooms, err := s.repo.StudyRoom().Count(ctx, nil, true)
		if err != nil {
			return nil, err
		}
		return models.SiteStats{Users: users, Rooms: rooms}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}
	return &stats, nil
}

func (s *studyRoomService) summary(ctx context.Context, roomID uint) (*models.RoomSummary, error) {
	room, err := s.repo.StudyRoom().GetSummary(ctx, nil, roomID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	return room, nil
}
