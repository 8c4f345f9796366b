// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/internal/users/auth"
	"github.com/taibuivan/mockexam/internal/users/oauth"
)

var googleProfile = oauth.Profile{
	Provider:   oauth.ProviderGoogle,
	ProviderID: "google-123",
	Email:      "grace@example.com",
	Username:   "grace@example.com",
	FirstName:  "Grace",
	LastName:   "Hopper",
	PictureURL: "https://example.com/grace.png",
}

/*
TestService_SignInWithOAuth_Creates provisions a password-less account.
*/
func TestService_SignInWithOAuth_Creates(t *testing.T) {
	f := newFixture(t, false)

	result, err := f.service.SignInWithOAuth(context.Background(), googleProfile)
	require.NoError(t, err)

	assert.Equal(t, auth.MessageLoggedIn, result.Message)
	assert.Equal(t, "grace@example.com", result.User.Username)
	assert.Equal(t, "https://example.com/grace.png", result.User.ProfilePicURL)

	stored := f.repo.stored(result.User.ID)
	require.NotNil(t, stored)
	assert.Empty(t, stored.PasswordHash)
	assert.Equal(t, sec.RoleUser, stored.Role)
	assert.Equal(t, "google-123", stored.ProviderIDs[oauth.ProviderGoogle])
	assert.Equal(t, result.RefreshToken, stored.RefreshToken)

	_, err = f.service.Refresh(context.Background(), result.RefreshToken)
	assert.NoError(t, err)
}

/*
TestService_SignInWithOAuth_Converges keeps one record across repeated sign-ins.
*/
func TestService_SignInWithOAuth_Converges(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	first, err := f.service.SignInWithOAuth(ctx, googleProfile)
	require.NoError(t, err)

	// The provider id wins even after the email changed upstream.
	renamed := googleProfile
	renamed.Email = "grace.hopper@example.com"
	renamed.Username = renamed.Email
	renamed.LastName = "Murray Hopper"

	second, err := f.service.SignInWithOAuth(ctx, renamed)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, "Murray Hopper", second.User.LastName)
	assert.Equal(t, "grace@example.com", second.User.Email)
	assert.Equal(t, second.RefreshToken, f.repo.stored(first.User.ID).RefreshToken)
}

/*
TestService_SignInWithOAuth_LinksLocalAccount merges into a password account by email.
*/
func TestService_SignInWithOAuth_LinksLocalAccount(t *testing.T) {
	f := newFixture(t, false)
	_, userID := f.register(t)

	profile := oauth.Profile{
		Provider:   oauth.ProviderFacebook,
		ProviderID: "fb-9",
		Email:      ada.Email,
		Username:   ada.Email,
		PictureURL: "https://example.com/ada.png",
	}

	result, err := f.service.SignInWithOAuth(context.Background(), profile)
	require.NoError(t, err)
	assert.Equal(t, userID, result.User.ID)

	stored := f.repo.stored(userID)
	assert.Equal(t, "fb-9", stored.ProviderIDs[oauth.ProviderFacebook])
	assert.Equal(t, "https://example.com/ada.png", stored.ProfilePicURL)

	// Empty provider names leave the local profile alone and the password keeps working.
	assert.Equal(t, ada.FirstName, stored.FirstName)
	_, err = f.service.Login(context.Background(), auth.LoginInput{UsernameOrEmail: ada.Username, Password: ada.Password})
	assert.NoError(t, err)
}

/*
TestService_SignInWithOAuth_RequiresEmail refuses to create an account without email.
*/
func TestService_SignInWithOAuth_RequiresEmail(t *testing.T) {
	f := newFixture(t, false)

	profile := oauth.Profile{Provider: oauth.ProviderFacebook, ProviderID: "fb-1", FirstName: "No", LastName: "Email"}

	result, err := f.service.SignInWithOAuth(context.Background(), profile)
	assert.Nil(t, result)
	assert.True(t, apperr.HasCode(err, apperr.CodeBadRequest))
	assert.Equal(t, 0, f.repo.count())
	assert.Equal(t, []string{"oauth:rejected"}, f.events.snapshot())
}
