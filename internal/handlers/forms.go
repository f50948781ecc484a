package handlers

import "github.com/SAP-F-2025/studyroom-service/internal/models"

// Descriptors returned by GET on the form endpoints
var (
	registerForm = models.FormDescriptor{
		Form:   "register",
		Submit: "Sign Up",
		Fields: []models.FormField{
			{Name: "username", Type: "text", Required: true, Rules: []string{"min=3", "max=25"}},
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true, Rules: []string{"min=6"}},
			{Name: "confirm_password", Type: "password", Required: true, Rules: []string{"eqfield=password"}},
		},
	}

	loginForm = models.FormDescriptor{
		Form:   "login",
		Submit: "Login",
		Fields: []models.FormField{
			{Name: "email", Type: "email", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	}

	forgotPasswordForm = models.FormDescriptor{
		Form:   "forgot_password",
		Submit: "Request Password Reset",
		Fields: []models.FormField{
			{Name: "email", Type: "email", Required: true},
		},
	}

	resetPasswordForm = models.FormDescriptor{
		Form:   "reset_password",
		Submit: "Reset Password",
		Fields: []models.FormField{
			{Name: "password", Type: "password", Required: true, Rules: []string{"min=6"}},
			{Name: "confirm_password", Type: "password", Required: true, Rules: []string{"eqfield=password"}},
		},
	}

	profileForm = models.FormDescriptor{
		Form:   "profile",
		Submit: "Update",
		Fields: []models.FormField{
			{Name: "username", Type: "text", Required: true, Rules: []string{"min=2", "max=25"}},
			{Name: "bio", Type: "textarea", Rules: []string{"max=500"}},
			{Name: "picture", Type: "file", Rules: []string{"jpg", "jpeg", "png"}},
		},
	}

	roomForm = models.FormDescriptor{
		Form:   "room",
		Submit: "Save",
		Fields: []models.FormField{
			{Name: "name", Type: "text", Required: true, Rules: []string{"max=100"}},
			{Name: "description", Type: "textarea"},
		},
	}

	assistantForm = models.FormDescriptor{
		Form:   "assistant",
		Submit: "Ask",
		Fields: []models.FormField{
			{Name: "message", Type: "textarea", Required: true},
		},
	}
)
