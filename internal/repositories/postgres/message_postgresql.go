package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

// historyCursor resolves a message id of the room to its position in history order
const historyCursor = "(SELECT c.timestamp, c.id FROM messages c WHERE c.id = ? AND c.room_id = ?)"

type MessagePostgreSQL struct {
	db *gorm.DB
}

func NewMessagePostgreSQL(db *gorm.DB) repositories.MessageRepository {
	return &MessagePostgreSQL{db: db}
}

func (m *MessagePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

// Create persists one chat message
func (m *MessagePostgreSQL) Create(ctx context.Context, tx *gorm.DB, message *models.Message) error {
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}
	if err := m.getDB(tx).WithContext(ctx).Omit("User").Create(message).Error; err != nil {
		return handleDBError(err, "create message")
	}
	return nil
}

// ListByRoom returns the room history oldest first
func (m *MessagePostgreSQL) ListByRoom(ctx context.Context, tx *gorm.DB, roomID uint, filters repositories.MessageFilters) ([]models.ChatLine, error) {
	query := m.getDB(tx).WithContext(ctx).
		Table("messages AS m").
		Select("m.id, m.room_id, m.user_id, u.username, m.content, m.timestamp").
		Joins("JOIN users u ON u.id = m.user_id").
		Where("m.room_id = ?", roomID)
	if filters.AfterID != 0 {
		query = query.Where("(m.timestamp, m.id) > "+historyCursor, filters.AfterID, roomID)
	}
	if filters.BeforeID != 0 {
		query = query.Where("(m.timestamp, m.id) < "+historyCursor, filters.BeforeID, roomID)
	}
	order := "m.timestamp ASC, m.id ASC"
	if filters.Tail {
		order = "m.timestamp DESC, m.id DESC"
	}
	query = applyPagination(query.Order(order), filters.Limit, filters.Offset)

	lines := make([]models.ChatLine, 0)
	if err := query.Scan(&lines).Error; err != nil {
		return nil, handleDBError(err, fmt.Sprintf("list messages of room %d", roomID))
	}
	if filters.Tail {
		slices.Reverse(lines)
	}
	return lines, nil
}

func (m *MessagePostgreSQL) CountByRoom(ctx context.Context, tx *gorm.DB, roomID uint) (int64, error) {
	var count int64
	if err := m.getDB(tx).WithContext(ctx).Model(&models.Message{}).Where("room_id = ?", roomID).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count messages")
	}
	return count, nil
}
