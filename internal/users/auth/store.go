// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
)

// # User Data Access

// UserRepository defines the data access contract for user accounts.
//
// Lookups that miss return an apperr NotFound. Storage failures return an
// apperr Internal.
type UserRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByEmail returns the account with the given email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*User, error)

	/*
		FindByUsernameOrEmail returns the account whose username or email
		equals value exactly.

		Parameters:
		  - context: context.Context
		  - value: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByUsernameOrEmail(context context.Context, value string) (*User, error)

	/*
		FindByProviderID returns the account linked to a provider identity.

		Parameters:
		  - context: context.Context
		  - provider: string (e.g. "google")
		  - providerID: string

		Returns:
		  - *User: Hydrated entity
		  - error: NotFound or database retrieval failures
	*/
	FindByProviderID(context context.Context, provider, providerID string) (*User, error)

	/*
		Create persists a brand-new user account to the storage.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: Conflict on duplicate email or username, or persistence failures
	*/
	Create(context context.Context, user *User) error

	/*
		UpdateOAuthProfile merges provider values into an account and links
		the provider identity.

		Parameters:
		  - context: context.Context
		  - id: string
		  - update: OAuthProfileUpdate

		Returns:
		  - *User: The account after the update
		  - error: NotFound or persistence failures
	*/
	UpdateOAuthProfile(context context.Context, id string, update OAuthProfileUpdate) (*User, error)

	/*
		SetRefreshToken overwrites the stored refresh token unconditionally.

		Parameters:
		  - context: context.Context
		  - id: string
		  - token: string

		Returns:
		  - error: NotFound or persistence failures
	*/
	SetRefreshToken(context context.Context, id, token string) error

	/*
		SwapRefreshToken replaces the stored refresh token only while it still
		equals current. An empty next clears the session.

		Parameters:
		  - context: context.Context
		  - id: string
		  - current: string (the token the caller presented)
		  - next: string

		Returns:
		  - bool: false when the stored token no longer equals current
		  - error: Persistence failures
	*/
	SwapRefreshToken(context context.Context, id, current, next string) (bool, error)
}
