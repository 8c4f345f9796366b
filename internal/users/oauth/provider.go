// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package oauth implements the third-party identity providers used for social sign-in.

Each provider turns an authorization code into a provider-neutral [Profile].
The provisioning logic in the auth package only ever sees that value type, so
adding a provider never touches account rules.

# Flow

 1. GET /auth/{provider}: a single-use state is stored and the browser is sent to [Provider.AuthCodeURL].
 2. GET /auth/{provider}/callback: the state is consumed, then [Provider.Exchange] returns a [Profile].
*/
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Provider names. They double as the key under which provider ids are stored.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// ErrExchangeFailed covers every failure between the callback and a usable profile.
var ErrExchangeFailed = errors.New("oauth: code exchange failed")

// # Domain Types

// Profile is an identity already authenticated by a provider.
type Profile struct {
	Provider   string
	ProviderID string
	Email      string
	Username   string
	FirstName  string
	LastName   string
	PictureURL string

	// AccessToken is the provider token. It is never persisted.
	AccessToken string
}

// Provider exchanges an authorization code for a [Profile].
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, error)
}

// Credentials are the client id, secret and callback URL of one provider.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// # Options

// Option customises a provider client. Used by tests to point at fake endpoints.
type Option func(*client)

// WithEndpoint overrides the authorization and token URLs.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(c *client) { c.config.Endpoint = endpoint }
}

// WithUserInfoURL overrides the profile URL.
func WithUserInfoURL(userInfoURL string) Option {
	return func(c *client) { c.userInfoURL = userInfoURL }
}

// WithHTTPClient sets the client used for the token and profile calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) { c.httpClient = httpClient }
}

// # Shared Client

const (
	httpTimeout     = 10 * time.Second
	maxProfileBytes = 1 << 20
)

// client holds what every provider needs: the oauth2 config and a profile endpoint.
type client struct {
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func newClient(credentials Credentials, endpoint oauth2.Endpoint, scopes []string, userInfoURL string, options []Option) *client {
	c := &client{
		config: &oauth2.Config{
			ClientID:     credentials.ClientID,
			ClientSecret: credentials.ClientSecret,
			RedirectURL:  credentials.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: httpTimeout},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *client) authCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// fetchProfile exchanges code and decodes the profile JSON into target.
func (c *client) fetchProfile(ctx context.Context, code string, target any) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing code", ErrExchangeFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	response, err := c.config.Client(ctx, token).Get(c.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("%w: profile request: %v", ErrExchangeFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile request returned %d", ErrExchangeFailed, response.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(response.Body, maxProfileBytes)).Decode(target); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrExchangeFailed, err)
	}

	return token, nil
}

// # Registry

// Registry holds the enabled providers by name.
type Registry map[string]Provider

// NewRegistry indexes the given providers, skipping nil entries.
func NewRegistry(providers ...Provider) Registry {
	registry := make(Registry, len(providers))
	for _, provider := range providers {
		if provider != nil {
			registry[provider.Name()] = provider
		}
	}
	return registry
}

// Lookup returns the named provider, or false when it is disabled.
func (r Registry) Lookup(name string) (Provider, bool) {
	provider, ok := r[name]
	return provider, ok
}
