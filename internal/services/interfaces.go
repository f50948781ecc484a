package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/studyroom-service/internal/auth"
	"github.com/SAP-F-2025/studyroom-service/internal/models"
	"github.com/SAP-F-2025/studyroom-service/internal/realtime"
	"github.com/SAP-F-2025/studyroom-service/internal/repositories"
	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type ForgotPasswordRequest = validator.ForgotPasswordRequest
type ResetPasswordRequest = validator.ResetPasswordRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type RoomRequest = validator.RoomRequest

// AuthResult is returned by every successful sign-in
type AuthResult struct {
	Identity  auth.Identity `json:"identity"`
	SessionID string        `json:"-"`
	ExpiresIn time.Duration `json:"-"`
}

// Upload is a file submitted with a form
type Upload struct {
	Filename string
	Content  io.Reader
}

// HistoryQuery pages through a room chat. The zero value selects the whole
// history; AfterID continues after a known message and BeforeID pages back.
type HistoryQuery struct {
	AfterID  uint
	BeforeID uint
	Limit    int
}

// MessageOrigin records where a chat message was sent from. It is stored
// with the message and never relayed to other members.
type MessageOrigin struct {
	ClientAddr string `json:"client_addr,omitempty"`
	Transport  string `json:"transport,omitempty"`
}

// Transcript is an exported room history
type Transcript struct {
	FileName    string
	ContentType string
	Data        []byte
}

// RoomHub is the part of the realtime hub the services rely on
type RoomHub interface {
	Join(c *realtime.Client, roomID uint) error
	Leave(c *realtime.Client, roomID uint) error
	Broadcast(roomID uint, payload []byte) (int, error)
	Subscribers(roomID uint) int
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error

	// Password reset. RequestPasswordReset never reveals whether the address is registered.
	RequestPasswordReset(ctx context.Context, req *ForgotPasswordRequest) error
	VerifyResetToken(ctx context.Context, token string) (*models.User, error)
	ResetPassword(ctx context.Context, token string, req *ResetPasswordRequest) error

	// Authenticate resolves a session id to the identity of its user
	Authenticate(ctx context.Context, sessionID string) (*auth.Identity, error)

	// Single sign-on
	SSOEnabled() bool
	SSOSigninURL() string
	LoginWithSSO(ctx context.Context, code, state string) (*AuthResult, error)
}

type ProfileService interface {
	Get(ctx context.Context, userID uint) (*models.Profile, error)
	// Update edits username and bio, replacing the picture when one is uploaded
	Update(ctx context.Context, userID uint, req *ProfileUpdateRequest, picture *Upload) (*models.Profile, error)
}

type StudyRoomService interface {
	List(ctx context.Context, filters repositories.RoomFilters) ([]models.RoomSummary, error)
	Create(ctx context.Context, identity auth.Identity, req *RoomRequest) (*models.RoomSummary, error)
	Get(ctx context.Context, identity auth.Identity, roomID uint) (*models.RoomDetail, error)

	// Host only
	GetForEdit(ctx context.Context, identity auth.Identity, roomID uint) (*models.RoomSummary, error)
	Update(ctx context.Context, identity auth.Identity, roomID uint, req *RoomRequest) (*models.RoomSummary, error)
	Delete(ctx context.Context, identity auth.Identity, roomID uint) error

	ChatHistory(ctx context.Context, roomID uint, query HistoryQuery) (*models.ChatHistory, error)
	ExportTranscript(ctx context.Context, roomID uint) (*Transcript, error)
	Stats(ctx context.Context) (*models.SiteStats, error)
}

type ChatService interface {
	// Join subscribes the client and announces it to the room
	Join(ctx context.Context, client *realtime.Client, roomID uint) error
	Leave(ctx context.Context, client *realtime.Client, roomID uint) error
	// Send persists exactly one message and relays it once to the room
	Send(ctx context.Context, identity auth.Identity, roomID uint, text string, origin MessageOrigin) (*models.ChatLine, error)
}

type AssistantService interface {
	Ask(ctx context.Context, identity auth.Identity, message string) (*models.AssistantReply, error)
}

// ServiceManager owns the lifecycle of every service
type ServiceManager interface {
	Auth() AuthService
	Profile() ProfileService
	StudyRoom() StudyRoomService
	Chat() ChatService
	Assistant() AssistantService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
	IsInitialized() bool
}
