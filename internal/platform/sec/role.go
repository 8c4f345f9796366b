// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Default role for standard registered users
	RoleUser UserRole = "user"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of the required set.
// An empty set places no restriction and always matches.
func (r UserRole) In(required ...UserRole) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if r == role {
			return true
		}
	}
	return false
}

// # Principal

// Principal is the identity resolved from a verified access token.
// It lives only for the duration of a request.
type Principal struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
}
