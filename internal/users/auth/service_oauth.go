// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/internal/users/oauth"
	"github.com/taibuivan/mockexam/pkg/slice"
	"github.com/taibuivan/mockexam/pkg/uuid"
)

// # Social Sign-In

/*
SignInWithOAuth finds or provisions the account of a provider identity.

Description: The provider id is matched first, then the email and username.
A matched account receives the provider's name and avatar and gets the
provider id linked. An unmatched identity needs an email to create an
account. Repeated sign-ins with the same identity converge on one record.

Parameters:
  - context: context.Context
  - profile: oauth.Profile

Returns:
  - *LoginResult: Token pair and the sanitized account
  - err: BadRequest when a new account would have no email
*/
func (service *Service) SignInWithOAuth(context context.Context, profile oauth.Profile) (result *LoginResult, err error) {
	defer func() { service.record(OperationOAuth, err) }()

	logger := ctxutil.GetLogger(context).With(slog.String("provider", profile.Provider))

	user, err := service.resolveOAuthUser(context, profile)
	if err != nil {
		return nil, err
	}

	created := false
	if user == nil {
		user, created, err = service.createOAuthUser(context, profile)
		if err != nil {
			return nil, err
		}
	}

	if created {
		logger.InfoContext(context, "auth_oauth_account_created", slog.String("user_id", user.ID))
	} else {
		user, err = service.userRepository.UpdateOAuthProfile(context, user.ID, OAuthProfileUpdate{
			FirstName:     profile.FirstName,
			LastName:      profile.LastName,
			ProfilePicURL: profile.PictureURL,
			Provider:      profile.Provider,
			ProviderID:    profile.ProviderID,
		})
		if err != nil {
			return nil, fmt.Errorf("auth_service_oauth_update_failed: %w", err)
		}
	}

	result, err = service.startSession(context, user)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(context, "auth_oauth_succeeded", slog.String("user_id", user.ID))
	return result, nil
}

// resolveOAuthUser returns the matching account or nil when none exists.
func (service *Service) resolveOAuthUser(context context.Context, profile oauth.Profile) (*User, error) {
	if profile.Provider != "" && profile.ProviderID != "" {
		user, err := service.userRepository.FindByProviderID(context, profile.Provider, profile.ProviderID)
		if err == nil {
			return user, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("auth_service_oauth_lookup_failed: %w", err)
		}
	}

	identifiers := slice.Unique(slice.Filter([]string{profile.Email, profile.Username}, slice.NonEmpty))
	for _, identifier := range identifiers {
		user, err := service.userRepository.FindByUsernameOrEmail(context, identifier)
		if err == nil {
			return user, nil
		}
		if !apperr.IsNotFound(err) {
			return nil, fmt.Errorf("auth_service_oauth_lookup_failed: %w", err)
		}
	}

	return nil, nil
}

// createOAuthUser provisions a password-less account. When a concurrent
// sign-in created the same account first, that account is returned with
// created set to false.
func (service *Service) createOAuthUser(context context.Context, profile oauth.Profile) (*User, bool, error) {
	if profile.Email == "" {
		return nil, false, apperr.BadRequest(messageOAuthNoEmail)
	}

	username := profile.Username
	if username == "" {
		username = profile.Email
	}

	user := &User{
		ID:            uuid.New(),
		FirstName:     profile.FirstName,
		LastName:      profile.LastName,
		Username:      username,
		Email:         profile.Email,
		ProfilePicURL: profile.PictureURL,
		Role:          sec.RoleUser,
	}
	if profile.Provider != "" && profile.ProviderID != "" {
		user.ProviderIDs = map[string]string{profile.Provider: profile.ProviderID}
	}

	err := service.userRepository.Create(context, user)
	if err == nil {
		return user, true, nil
	}

	if apperr.HasCode(err, apperr.CodeConflict) {
		existing, lookupErr := service.resolveOAuthUser(context, profile)
		if lookupErr == nil && existing != nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("auth_service_oauth_create_failed: %w", err)
}
