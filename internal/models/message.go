package models

import (
	"time"

	"gorm.io/datatypes"
)

type Message struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	RoomID    uint           `json:"room_id" gorm:"not null;index:idx_messages_room_ts,priority:1"`
	UserID    uint           `json:"user_id" gorm:"not null;index"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	Timestamp time.Time      `json:"timestamp" gorm:"not null;index:idx_messages_room_ts,priority:2"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"` // client address, transport

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Message) TableName() string {
	return "messages"
}

// ChatLine is a persisted message joined with its sender
type ChatLine struct {
	ID        uint      `json:"id"`
	RoomID    uint      `json:"room_id"`
	UserID    uint      `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
