// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/pkg"
)

// NewTestDB opens a migrated in-memory SQLite database with foreign keys enforced
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database instance: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := pkg.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// SeedUser inserts a user with a placeholder hash
func SeedUser(t *testing.T, db *gorm.DB, username, email string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		ImageFile:    models.DefaultProfileImage,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// SeedRoom inserts a room hosted by hostID
func SeedRoom(t *testing.T, db *gorm.DB, name string, hostID uint) *models.StudyRoom {
	t.Helper()

	room := &models.StudyRoom{Name: name, HostID: hostID, IsActive: true}
	if err := db.Omit("Host", "Messages").Create(room).Error; err != nil {
		t.Fatalf("failed to seed room: %v", err)
	}
	return room
}
