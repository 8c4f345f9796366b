// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

// # Input Constraints

const (
	MaxNameLength     = 25
	MaxEmailLength    = 50
	MaxUsernameLength = 125

	MinPasswordLength = 8

	// MinLoginLength applies to the username-or-email login identifier.
	MinLoginLength = 4
)

// # Client Messages

const (
	MessageRegistered = "Registered Successfully"
	MessageLoggedIn   = "Logged in Successfully"
	MessageLoggedOut  = "Logged out successfully"

	messageInvalidCredentials = "Invalid Email/Username or Password"
	messageEmailTaken         = "Email already exists"
	messageUsernameTaken      = "Username already exists"
	messageInvalidRefresh     = "Invalid refresh token"
	messageInvalidAccess      = "Invalid or expired token"
	messageMissingToken       = "Refresh token is required"
	messageOAuthNoEmail       = "Provider account has no email address"
	messagePasswordTooLong    = "Maximum 72 bytes"
)

// # Event Names

// Operation labels reported to the [EventRecorder].
const (
	OperationRegister = "register"
	OperationLogin    = "login"
	OperationRefresh  = "refresh"
	OperationLogout   = "logout"
	OperationOAuth    = "oauth"
)
