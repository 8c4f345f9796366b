// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package oauth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/endpoints"
)

// FacebookUserInfoURL is the Graph API profile endpoint with the fields we read.
const FacebookUserInfoURL = "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture.type(large)"

// Facebook signs users in with their Facebook account.
type Facebook struct {
	client *client
}

// NewFacebook builds the Facebook provider.
func NewFacebook(credentials Credentials, options ...Option) *Facebook {
	return &Facebook{
		client: newClient(credentials, endpoints.Facebook, []string{"email", "public_profile"}, FacebookUserInfoURL, options),
	}
}

// Name implements [Provider].
func (f *Facebook) Name() string { return ProviderFacebook }

// AuthCodeURL implements [Provider].
func (f *Facebook) AuthCodeURL(state string) string {
	return f.client.authCodeURL(state)
}

type facebookUserInfo struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Exchange implements [Provider].
//
// Facebook accounts may have no email. The profile is still returned; the
// provisioner decides whether it can be used.
func (f *Facebook) Exchange(ctx context.Context, code string) (*Profile, error) {
	var info facebookUserInfo
	token, err := f.client.fetchProfile(ctx, code, &info)
	if err != nil {
		return nil, err
	}

	if info.ID == "" {
		return nil, fmt.Errorf("%w: facebook profile without id", ErrExchangeFailed)
	}

	return &Profile{
		Provider:    ProviderFacebook,
		ProviderID:  info.ID,
		Email:       info.Email,
		Username:    info.Email,
		FirstName:   info.FirstName,
		LastName:    info.LastName,
		PictureURL:  info.Picture.Data.URL,
		AccessToken: token.AccessToken,
	}, nil
}
