package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

const roomSummaryColumns = "r.id, r.name, r.description, r.host_id, u.username AS host_username, r.created_at, r.is_active"

type StudyRoomPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewStudyRoomPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.StudyRoomRepository {
	return &StudyRoomPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (s *StudyRoomPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *StudyRoomPostgreSQL) summaryQuery(ctx context.Context, tx *gorm.DB) *gorm.DB {
	return s.getDB(tx).WithContext(ctx).
		Table("study_rooms AS r").
		Select(roomSummaryColumns).
		Joins("JOIN users u ON u.id = r.host_id")
}

// Create inserts a room and invalidates cached listings
func (s *StudyRoomPostgreSQL) Create(ctx context.Context, tx *gorm.DB, room *models.StudyRoom) error {
	if err := s.getDB(tx).WithContext(ctx).Omit("Host", "Messages").Create(room).Error; err != nil {
		return handleDBError(err, "create room")
	}

	cache.SafeInvalidatePattern(ctx, s.cacheManager.Room, "list:*")
	return nil
}

func (s *StudyRoomPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudyRoom, error) {
	var room models.StudyRoom
	if err := s.getDB(tx).WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, handleDBError(err, fmt.Sprintf("get room %d", id))
	}
	return &room, nil
}

// GetSummary returns the room joined with its host, cached outside transactions
func (s *StudyRoomPostgreSQL) GetSummary(ctx context.Context, tx *gorm.DB, id uint) (*models.RoomSummary, error) {
	fetch := func() (interface{}, error) {
		var summary models.RoomSummary
		result := s.summaryQuery(ctx, tx).Where("r.id = ?", id).Limit(1).Scan(&summary)
		if result.Error != nil {
			return nil, handleDBError(result.Error, fmt.Sprintf("get room %d", id))
		}
		if result.RowsAffected == 0 {
			return nil, fmt.Errorf("get room %d failed: %w", id, repositories.ErrNotFound)
		}
		return &summary, nil
	}

	if tx != nil {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.(*models.RoomSummary), nil
	}

	var summary models.RoomSummary
	if err := s.cacheManager.Room.CacheOrExecute(ctx, cache.RoomKey(id), &summary, cache.RoomCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &summary, nil
}

// List returns rooms newest first
func (s *StudyRoomPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.RoomFilters) ([]models.RoomSummary, error) {
	fetch := func() (interface{}, error) {
		query := s.summaryQuery(ctx, tx)
		if filters.HostID != nil {
			query = query.Where("r.host_id = ?", *filters.HostID)
		}
		if filters.ActiveOnly {
			query = query.Where("r.is_active = ?", true)
		}
		if search := strings.TrimSpace(filters.Search); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			query = query.Where("LOWER(r.name) LIKE ? OR LOWER(r.description) LIKE ?", like, like)
		}
		query = applyPagination(query.Order("r.created_at DESC, r.id DESC"), filters.Limit, filters.Offset)

		rooms := make([]models.RoomSummary, 0)
		if err := query.Scan(&rooms).Error; err != nil {
			return nil, handleDBError(err, "list rooms")
		}
		return rooms, nil
	}

	if tx != nil || filters.Search != "" {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		return v.([]models.RoomSummary), nil
	}

	var rooms []models.RoomSummary
	if err := s.cacheManager.Room.CacheOrExecute(ctx, listKey(filters), &rooms, cache.RoomCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return rooms, nil
}

// Update saves the editable room fields
func (s *StudyRoomPostgreSQL) Update(ctx context.Context, tx *gorm.DB, room *models.StudyRoom) error {
	result := s.getDB(tx).WithContext(ctx).
		Model(&models.StudyRoom{}).
		Where("id = ?", room.ID).
		Updates(map[string]interface{}{
			"name":        room.Name,
			"description": room.Description,
			"is_active":   room.IsActive,
		})
	if result.Error != nil {
		return handleDBError(result.Error, "update room")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update room %d failed: %w", room.ID, repositories.ErrNotFound)
	}

	cache.InvalidateRoomCache(ctx, s.cacheManager, room.ID)
	return nil
}

func (s *StudyRoomPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := s.getDB(tx).WithContext(ctx).Model(&models.StudyRoom{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, handleDBError(err, "check room")
	}
	return count > 0, nil
}

func (s *StudyRoomPostgreSQL) Count(ctx context.Context, tx *gorm.DB, activeOnly bool) (int64, error) {
	query := s.getDB(tx).WithContext(ctx).Model(&models.StudyRoom{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count rooms")
	}
	return count, nil
}

// DeleteWithMessages removes the messages of a room before the room itself.
// Runs in its own transaction unless the caller passes one.
func (s *StudyRoomPostgreSQL) DeleteWithMessages(ctx context.Context, tx *gorm.DB, id uint) error {
	del := func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("room_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return handleDBError(err, "delete room messages")
		}

		result := tx.WithContext(ctx).Delete(&models.StudyRoom{}, id)
		if result.Error != nil {
			return handleDBError(result.Error, "delete room")
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("delete room %d failed: %w", id, repositories.ErrNotFound)
		}
		return nil
	}

	var err error
	if tx != nil {
		err = del(tx)
	} else {
		err = s.db.WithContext(ctx).Transaction(del)
	}
	if err != nil {
		return err
	}

	cache.InvalidateRoomCache(ctx, s.cacheManager, id)
	return nil
}

func listKey(f repositories.RoomFilters) string {
	host := "any"
	if f.HostID != nil {
		host = fmt.Sprintf("%d", *f.HostID)
	}
	return fmt.Sprintf("list:%s:%t:%d:%d", host, f.ActiveOnly, f.Limit, f.Offset)
}
