// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the auth package's TokenIssuer interface.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/mockexam/pkg/uuid"
)

// ClaimsVersion is the only claim layout this build understands.
const ClaimsVersion = 1

// Token types. Both share one claim layout and differ by secret and lifetime.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken covers every verification failure: malformed input, bad
// signature, unexpected algorithm, expiry and claim validation.
var ErrInvalidToken = errors.New("sec: invalid token")

// Claims represents the payload embedded inside access and refresh tokens.
//
// Only identity (UserID, Role) is embedded. Profile fields never enter a token.
type Claims struct {
	jwt.RegisteredClaims

	// Custom application claims are abbreviated to keep the JWT payload small.
	UserID  string   `json:"uid"`
	Role    UserRole `json:"rol"`
	Type    string   `json:"typ"`
	Version int      `json:"ver"`
}

// Validate implements [jwt.ClaimsValidator]. It runs after the standard
// registered-claim checks.
func (c *Claims) Validate() error {
	switch {
	case c.Version != ClaimsVersion:
		return fmt.Errorf("unsupported claims version %d", c.Version)
	case c.UserID == "" || c.Subject != c.UserID:
		return errors.New("subject mismatch")
	case !c.Role.Valid():
		return fmt.Errorf("unknown role %q", c.Role)
	case c.Type != TokenTypeAccess && c.Type != TokenTypeRefresh:
		return fmt.Errorf("unknown token type %q", c.Type)
	}
	return nil
}

// Principal returns the request identity carried by the claims.
func (c *Claims) Principal() Principal {
	return Principal{ID: c.UserID, Role: c.Role}
}

// # Codec Primitives

// Sign builds a claim set for principal and signs it with HS256.
func Sign(principal Principal, tokenType, issuer string, secret []byte, timeToLive time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New(),
			Subject:   principal.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(timeToLive)),
		},
		UserID:  principal.ID,
		Role:    principal.Role,
		Type:    tokenType,
		Version: ClaimsVersion,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks signature, expiry, issuer and token type, then returns the claims.
func Verify(tokenString, tokenType, issuer string, secret []byte, now time.Time) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Type != tokenType {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, tokenType)
	}

	return claims, nil
}

// # Token Service

// TokenConfig holds the independent secrets and lifetimes of both token kinds.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	Issuer        string
}

// TokenPair is an access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenService issues and verifies access and refresh tokens.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new TokenService after checking the configuration.
func NewTokenService(config TokenConfig) (*TokenService, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("auth: token secrets must not be empty")
	}
	if config.AccessSecret == config.RefreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("auth: token lifetimes must be positive")
	}

	return &TokenService{config: config, now: time.Now}, nil
}

// WithClock returns a copy of the service that reads time from now.
func (service *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *service
	clone.now = now
	return &clone
}

// AccessTTL returns the configured access-token lifetime.
func (service *TokenService) AccessTTL() time.Duration {
	return service.config.AccessTTL
}

// RefreshTTL returns the configured refresh-token lifetime.
func (service *TokenService) RefreshTTL() time.Duration {
	return service.config.RefreshTTL
}

// IssueAccess creates a short-lived access token for principal.
func (service *TokenService) IssueAccess(principal Principal) (string, error) {
	return Sign(principal, TokenTypeAccess, service.config.Issuer,
		[]byte(service.config.AccessSecret), service.config.AccessTTL, service.now())
}

// IssueRefresh creates a long-lived refresh token for principal.
func (service *TokenService) IssueRefresh(principal Principal) (string, error) {
	return Sign(principal, TokenTypeRefresh, service.config.Issuer,
		[]byte(service.config.RefreshSecret), service.config.RefreshTTL, service.now())
}

// IssuePair creates an access and a refresh token for principal.
func (service *TokenService) IssuePair(principal Principal) (TokenPair, error) {
	accessToken, err := service.IssueAccess(principal)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := service.IssueRefresh(principal)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess validates an access token against the access secret.
func (service *TokenService) VerifyAccess(tokenString string) (*Claims, error) {
	return Verify(tokenString, TokenTypeAccess, service.config.Issuer,
		[]byte(service.config.AccessSecret), service.now())
}

// VerifyRefresh validates a refresh token against the refresh secret.
func (service *TokenService) VerifyRefresh(tokenString string) (*Claims, error) {
	return Verify(tokenString, TokenTypeRefresh, service.config.Issuer,
		[]byte(service.config.RefreshSecret), service.now())
}

// VerifyToken checks an access token. It satisfies middleware.TokenVerifier.
func (service *TokenService) VerifyToken(tokenString string) (*Claims, error) {
	return service.VerifyAccess(tokenString)
}
