package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
)

// ===== FILTERS =====

type RoomFilters struct {
	HostID     *uint  `json:"host_id"`
	ActiveOnly bool   `json:"active_only"`
	Search     string `json:"search"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

// MessageFilters selects part of a room history. AfterID and BeforeID are
// message ids of the same room used as keyset cursors in history order.
type MessageFilters struct {
	AfterID  uint `json:"after_id"`
	BeforeID uint `json:"before_id"`
	// Tail selects the newest Limit messages, still returned oldest first
	Tail   bool `json:"tail"`
	Limit  int  `json:"limit"`
	Offset int  `json:"offset"`
}

// ===== REPOSITORIES =====

// UserRepository persists registered accounts
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)

	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	// ExistsByUsername ignores the user with excludeID, zero excludes nobody
	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string, excludeID uint) (bool, error)
}

// StudyRoomRepository persists rooms. Reads return RoomSummary joined with the host.
type StudyRoomRepository interface {
	Create(ctx context.Context, tx *gorm.DB, room *models.StudyRoom) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.StudyRoom, error)
	GetSummary(ctx context.Context, tx *gorm.DB, id uint) (*models.RoomSummary, error)
	List(ctx context.Context, tx *gorm.DB, filters RoomFilters) ([]models.RoomSummary, error)
	Update(ctx context.Context, tx *gorm.DB, room *models.StudyRoom) error
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	Count(ctx context.Context, tx *gorm.DB, activeOnly bool) (int64, error)

	// DeleteWithMessages removes the room and every message posted in it
	DeleteWithMessages(ctx context.Context, tx *gorm.DB, id uint) error
}

// MessageRepository persists chat history
type MessageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, message *models.Message) error
	ListByRoom(ctx context.Context, tx *gorm.DB, roomID uint, filters MessageFilters) ([]models.ChatLine, error)
	CountByRoom(ctx context.Context, tx *gorm.DB, roomID uint) (int64, error)
}

// EmailDeliveryRepository records outbound mail and its outcome
type EmailDeliveryRepository interface {
	Create(ctx context.Context, tx *gorm.DB, delivery *models.EmailDelivery) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.EmailDelivery, error)
	// RecordAttempt increments the attempt counter and stores the outcome
	RecordAttempt(ctx context.Context, tx *gorm.DB, id uint, status models.DeliveryStatus, lastErr error) error
	// MarkFailed gives up on a delivery without counting another attempt
	MarkFailed(ctx context.Context, tx *gorm.DB, id uint, lastErr error) error
	ListByStatus(ctx context.Context, tx *gorm.DB, status models.DeliveryStatus, limit int) ([]*models.EmailDelivery, error)
}

// ===== EXTERNAL IDENTITY =====

// ExternalIdentity is a user asserted by the single sign-on provider
type ExternalIdentity struct {
	Subject     string `json:"subject"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

// IdentityProvider resolves single sign-on logins
type IdentityProvider interface {
	SigninURL(redirectURL string) string
	Exchange(ctx context.Context, code, state string) (*ExternalIdentity, error)
}
