package models

import (
	"time"
)

const DefaultProfileImage = "default.jpg"

type User struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	Username     string  `json:"username" gorm:"uniqueIndex;not null;size:25"`
	Email        string  `json:"email" gorm:"uniqueIndex;not null;size:120"`
	PasswordHash string  `json:"-" gorm:"not null;size:128"`
	Bio          *string `json:"bio" gorm:"type:text"`
	ImageFile    string  `json:"image_file" gorm:"size:120;default:default.jpg"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ProfileImage returns the stored image file name, falling back to the placeholder
func (u *User) ProfileImage() string {
	if u.ImageFile == "" {
		return DefaultProfileImage
	}
	return u.ImageFile
}
