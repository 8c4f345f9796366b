// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the user identity and session management layer.

It defines the account entity and the rules for registration, credential
login, social sign-in, token refresh and logout.

# Architecture

Entities defined here carry no transport concerns. Each account holds at most
one live refresh token; issuing a new one overwrites the previous session.
*/
package auth

import (
	"time"

	"github.com/taibuivan/mockexam/internal/platform/sec"
)

// DefaultProfilePicURL is shown until the user or a provider sets an avatar.
const DefaultProfilePicURL = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_1280.png"

// # Domain Entities

// User represents a registered account of the MockExam platform.
type User struct {
	ID            string            `bson:"_id"`
	FirstName     string            `bson:"first_name"`
	LastName      string            `bson:"last_name"`
	Username      string            `bson:"username"`
	Email         string            `bson:"email"`
	PasswordHash  string            `bson:"password_hash,omitempty"` // Empty for OAuth-only accounts.
	ProfilePicURL string            `bson:"profile_pic_url,omitempty"`
	Bio           string            `bson:"bio,omitempty"`
	DateOfBirth   *time.Time        `bson:"date_of_birth,omitempty"`
	Role          sec.UserRole      `bson:"role"`
	ProviderIDs   map[string]string `bson:"provider_ids,omitempty"`
	RefreshToken  string            `bson:"refresh_token,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
}

// Principal returns the identity embedded into tokens issued for the user.
func (u *User) Principal() sec.Principal {
	return sec.Principal{ID: u.ID, Role: u.Role}
}

// UserView is the sanitized projection of a [User] returned to clients.
type UserView struct {
	ID            string       `json:"id"`
	FirstName     string       `json:"firstName"`
	LastName      string       `json:"lastName"`
	Username      string       `json:"username"`
	Email         string       `json:"email"`
	ProfilePicURL string       `json:"profilePicUrl"`
	Bio           string       `json:"bio"`
	DateOfBirth   *time.Time   `json:"dateOfBirth,omitempty"`
	Role          sec.UserRole `json:"role"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// View strips credentials and session state from the account.
func (u *User) View() UserView {
	picture := u.ProfilePicURL
	if picture == "" {
		picture = DefaultProfilePicURL
	}

	return UserView{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Username:      u.Username,
		Email:         u.Email,
		ProfilePicURL: picture,
		Bio:           u.Bio,
		DateOfBirth:   u.DateOfBirth,
		Role:          u.Role,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// OAuthProfileUpdate carries the provider values merged into an existing account.
// Empty strings leave the stored value untouched.
type OAuthProfileUpdate struct {
	FirstName     string
	LastName      string
	ProfilePicURL string
	Provider      string
	ProviderID    string
}

// # Field Identifiers

// JSON field names used by validation and the HTTP payloads.
const (
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldUsernameOrEmail = "usernameOrEmail"
	FieldToken           = "token"
	FieldRefreshToken    = "refreshToken"
	FieldAccessToken     = "access_token"
	FieldRefreshTokenAlt = "refresh_token"
	FieldUser            = "user"
	FieldMessage         = "message"
)
