package models

import (
	"time"
)

// ===== FLASH CATEGORIES =====

const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
	FlashInfo    = "info"
	FlashWarning = "warning"
)

// ===== READ MODELS =====

type Profile struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Bio       *string   `json:"bio"`
	ImageFile string    `json:"image_file"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomDetail struct {
	Room         RoomSummary `json:"room"`
	MessageCount int64       `json:"message_count"`
	Subscribers  int         `json:"subscribers"`
	IsHost       bool        `json:"is_host"`
}

type ChatHistory struct {
	Room     RoomSummary `json:"room"`
	Messages []ChatLine  `json:"messages"`
	// HasMore is set when a paged request stopped short of the end of the history
	HasMore bool `json:"has_more"`
}

// SiteStats are the counters shown on the home page
type SiteStats struct {
	Users int64 `json:"users"`
	Rooms int64 `json:"rooms"`
}

type AssistantReply struct {
	Response string `json:"response"`
}

// FormField describes one input of a form endpoint
type FormField struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Rules    []string `json:"rules,omitempty"`
}

type FormDescriptor struct {
	Form   string      `json:"form"`
	Submit string      `json:"submit"`
	Fields []FormField `json:"fields"`
}

// ===== RESPONSES =====

type ErrorResponse struct {
	Message  string      `json:"message"`
	Category string      `json:"category,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
	Details  interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message  string      `json:"message,omitempty"`
	Category string      `json:"category,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}
