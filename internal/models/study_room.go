package models

import (
	"time"
)

type StudyRoom struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"not null;size:100"`
	Description *string   `json:"description" gorm:"type:text"`
	HostID      uint      `json:"host_id" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`

	// Declared for the foreign key constraints only. Reads go through explicit joins.
	Host     *User     `json:"-" gorm:"foreignKey:HostID;constraint:OnDelete:RESTRICT"`
	Messages []Message `json:"-" gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (StudyRoom) TableName() string {
	return "study_rooms"
}

// IsHostedBy reports whether userID owns the room
func (r *StudyRoom) IsHostedBy(userID uint) bool {
	return r != nil && r.HostID == userID
}

// RoomSummary is the room read model joined with its host
type RoomSummary struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description"`
	HostID       uint      `json:"host_id"`
	HostUsername string    `json:"host_username"`
	CreatedAt    time.Time `json:"created_at"`
	IsActive     bool      `json:"is_active"`
}
