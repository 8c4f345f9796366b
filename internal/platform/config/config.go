// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values. A local '.env' file is
read first through 'joho/godotenv' so developers can run the API without exporting
every variable; values already present in the process environment always win.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Mongo, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// # Configuration Schema

// Config holds all runtime configuration for the MockExam API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"PORT"         envDefault:"4000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Document store (MongoDB)
	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"mock-exam-db"`

	// Key-Value Cache (Redis), holds OAuth state nonces
	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Token signing. Access and refresh tokens use independent secrets.
	AccessTokenSecret  string        `env:"SECRET_KEY,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_EXPIRE"  envDefault:"1h"`
	RefreshTokenSecret string        `env:"REFRESH_SECRET,required"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_EXPIRE" envDefault:"168h"`
	TokenIssuer        string        `env:"TOKEN_ISSUER"   envDefault:"mockexam-api"`

	// RotateRefreshTokens replaces the refresh token on every successful refresh.
	RotateRefreshTokens bool `env:"REFRESH_ROTATE" envDefault:"false"`

	// Google OAuth
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	// Facebook OAuth
	FacebookAppID       string `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret   string `env:"FACEBOOK_APP_SECRET"`
	FacebookRedirectURL string `env:"FACEBOOK_REDIRECT_URL"`

	// FrontendURL is the web client origin, used for social redirects and CORS.
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

// OAuthClient is the credential triple of one identity provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether every credential of the provider is set.
func (c OAuthClient) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

// # Configuration Loading

// Load reads the optional '.env' file (path from ENV_FILE) and parses
// environment variables into a validated [Config] struct.
func Load() (*Config, error) {

	// Optional dotenv file. A missing file is not an error.
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: failed to read %s: %w", envFile, err)
	}

	return Parse()
}

// Parse maps the current process environment into a [Config] without
// touching the filesystem.
func Parse() (*Config, error) {
	cfg := &Config{}

	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.AccessTokenSecret == "" || c.RefreshTokenSecret == "":
		return errors.New("config: token secrets must not be empty")
	case c.AccessTokenSecret == c.RefreshTokenSecret:
		return errors.New("config: SECRET_KEY and REFRESH_SECRET must differ")
	case c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0:
		return errors.New("config: token lifetimes must be positive")
	case c.AccessTokenTTL >= c.RefreshTokenTTL:
		return errors.New("config: ACCESS_EXPIRE must be shorter than REFRESH_EXPIRE")
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigin returns the single browser origin allowed outside development.
func (c *Config) AllowedOrigin() string {
	return c.FrontendURL
}

// Google returns the Google OAuth client credentials.
func (c *Config) Google() OAuthClient {
	return OAuthClient{
		ClientID:     c.GoogleClientID,
		ClientSecret: c.GoogleClientSecret,
		RedirectURL:  c.GoogleRedirectURL,
	}
}

// Facebook returns the Facebook OAuth client credentials.
func (c *Config) Facebook() OAuthClient {
	return OAuthClient{
		ClientID:     c.FacebookAppID,
		ClientSecret: c.FacebookAppSecret,
		RedirectURL:  c.FacebookRedirectURL,
	}
}
