package handlers

// User facing notice texts
const (
	msgEmailTaken           = "An account with this email already exists."
	msgUsernameTaken        = "That username is taken. Please choose a different one."
	msgRegistered           = "Registration successful! You are now logged in."
	msgLoggedIn             = "Login successful"
	msgInvalidCredentials   = "Invalid email or password"
	msgLoggedOut            = "You have been logged out"
	msgLoginRequired        = "Please log in to access this page."
	msgResetSent            = "If your email is registered, a reset link has been sent."
	msgInvalidToken         = "That is an invalid or expired token."
	msgPasswordUpdated      = "Your password has been updated. You can now log in."
	msgProfileUpdated       = "Your profile has been updated."
	msgUserNotFound         = "User not found."
	msgRoomCreated          = "Study room created!"
	msgRoomUpdated          = "Room updated sucessfully"
	msgRoomDeleted          = "Room deleted successfully."
	msgRoomNotFound         = "Study room not found."
	msgNoEditPermission     = "You don't have permission to edit this room"
	msgNoDeletePermission   = "You don't have permission to delete this room."
	msgMessageRequired      = "⚠️ Message is required."
	msgAssistantUnavailable = "The study assistant is not available right now. Please try again later."
	msgSSODisabled          = "Single sign-on is not enabled."
	msgSSOFailed            = "Single sign-on failed. Please try again."
	msgInternal             = "Something went wrong. Please try again."
	msgWelcome              = "Welcome, %s! You are logged in."
)
