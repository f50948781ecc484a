package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/studyroom-service/internal/validator"
)

var (
	// Authentication
	ErrUnauthorized       = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrSSODisabled        = errors.New("single sign-on is not configured")
	ErrSSOFailed          = errors.New("single sign-on failed")

	// Users
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")

	// Rooms and chat
	ErrRoomNotFound = errors.New("study room not found")
	ErrMessageEmpty = errors.New("message is required")

	// Assistant
	ErrAssistantUnavailable = errors.New("assistant unavailable")
)

// ValidationErrors is returned when a form fails field validation
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when an authenticated user acts on a resource they do not own
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
