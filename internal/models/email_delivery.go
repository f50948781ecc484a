package models

import (
	"time"

	"gorm.io/datatypes"
)

type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

type EmailKind string

const (
	EmailPasswordReset EmailKind = "password_reset"
)

// EmailDelivery tracks one outbound e-mail from enqueue to its final outcome
type EmailDelivery struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Recipient string         `json:"recipient" gorm:"not null;size:120;index"`
	Kind      EmailKind      `json:"kind" gorm:"not null;size:50"`
	Status    DeliveryStatus `json:"status" gorm:"not null;size:20;default:queued;index"`
	Attempts  int            `json:"attempts" gorm:"not null;default:0"`
	LastError *string        `json:"last_error" gorm:"type:text"`
	Payload   datatypes.JSON `json:"payload"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmailDelivery) TableName() string {
	return "email_deliveries"
}
