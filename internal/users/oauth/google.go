// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/endpoints"
)

// GoogleUserInfoURL is the OpenID Connect profile endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// Google signs users in with their Google account.
type Google struct {
	client *client
}

// NewGoogle builds the Google provider.
func NewGoogle(credentials Credentials, options ...Option) *Google {
	return &Google{
		client: newClient(credentials, endpoints.Google, []string{"openid", "email", "profile"}, GoogleUserInfoURL, options),
	}
}

// Name implements [Provider].
func (g *Google) Name() string { return ProviderGoogle }

// AuthCodeURL implements [Provider].
func (g *Google) AuthCodeURL(state string) string {
	return g.client.authCodeURL(state)
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// Exchange implements [Provider].
//
// An unverified Google email is dropped so it cannot be used to match an
// existing local account.
func (g *Google) Exchange(ctx context.Context, code string) (*Profile, error) {
	var info googleUserInfo
	token, err := g.client.fetchProfile(ctx, code, &info)
	if err != nil {
		return nil, err
	}

	if info.Subject == "" {
		return nil, fmt.Errorf("%w: google profile without subject", ErrExchangeFailed)
	}

	email := info.Email
	if !info.EmailVerified {
		email = ""
	}

	return &Profile{
		Provider:    ProviderGoogle,
		ProviderID:  info.Subject,
		Email:       email,
		Username:    email,
		FirstName:   info.GivenName,
		LastName:    info.FamilyName,
		PictureURL:  info.Picture,
		AccessToken: token.AccessToken,
	}, nil
}
