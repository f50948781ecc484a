package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/studyroom-service/internal/cache"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

// Create inserts a new account. Unique email or username violations surface as ErrDuplicate.
func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if user.ImageFile == "" {
		user.ImageFile = models.DefaultProfileImage
	}
	if err := u.getDB(tx).WithContext(ctx).Create(user).Error; err != nil {
		return handleDBError(err, "create user")
	}
	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, handleDBError(err, fmt.Sprintf("get user %d", id))
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, handleDBError(err, "get user by email")
	}
	return &user, nil
}

// Update saves profile fields. Cached rooms embed the host username, so they are dropped.
func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	err := u.getDB(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"username":   user.Username,
			"email":      user.Email,
			"bio":        user.Bio,
			"image_file": user.ImageFile,
		}).Error
	if err != nil {
		return handleDBError(err, "update user")
	}

	cache.InvalidateAllRooms(ctx, u.cacheManager)
	cache.SafeDelete(ctx, u.cacheManager.User, cache.IdentityKey(user.ID))
	return nil
}

func (u *UserPostgreSQL) UpdatePassword(ctx context.Context, tx *gorm.DB, id uint, passwordHash string) error {
	result := u.getDB(tx).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return handleDBError(result.Error, "update password")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("update password failed: %w", repositories.ErrNotFound)
	}
	return nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, handleDBError(err, "check email")
	}
	return count > 0, nil
}

func (u *UserPostgreSQL) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string, excludeID uint) (bool, error) {
	query := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, handleDBError(err, "check username")
	}
	return count > 0, nil
}

func (u *UserPostgreSQL) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := u.getDB(tx).WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, handleDBError(err, "count users")
	}
	return count, nil
}
