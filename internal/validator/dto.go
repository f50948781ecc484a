package validator

// RegisterRequest represents the registration form
type RegisterRequest struct {
	Username        string `form:"username" json:"username" validate:"required,min=3,max=25,username"`
	Email           string `form:"email" json:"email" validate:"required,email,max=120"`
	Password        string `form:"password" json:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
}

// LoginRequest represents the login form
type LoginRequest struct {
	Email    string `form:"email" json:"email" validate:"required"`
	Password string `form:"password" json:"password" validate:"required"`
}

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `form:"email" json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password with a reset token
type ResetPasswordRequest struct {
	Password        string `form:"password" json:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password" validate:"required,eqfield=Password"`
}

// ProfileUpdateRequest edits the current user's profile. The picture arrives
// as a multipart file; PictureName carries its original file name for validation.
type ProfileUpdateRequest struct {
	Username    string  `form:"username" json:"username" validate:"required,min=2,max=25,username"`
	Bio         *string `form:"bio" json:"bio" validate:"omitempty,max=500"`
	PictureName string  `form:"-" json:"-" validate:"omitempty,image_ext"`
}

// RoomRequest creates or edits a study room
type RoomRequest struct {
	Name        string  `form:"name" json:"name" validate:"required,max=100,room_name"`
	Description *string `form:"description" json:"description" validate:"omitempty,max=5000"`
}

// AssistantRequest is the AI assistant form
type AssistantRequest struct {
	Message string `form:"message" json:"message"`
}

// ChatMessageRequest is the payload of a socket "message" event
type ChatMessageRequest struct {
	Room uint   `json:"room" validate:"required"`
	Text string `json:"text" validate:"required,max=2000"`
}
