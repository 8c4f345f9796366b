// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
	"github.com/taibuivan/mockexam/internal/platform/metrics"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/pkg/uuid"
)

// # Contracts & Types

// TokenIssuer defines the contract for minting and checking security tokens.
// It is satisfied by [sec.TokenService].
type TokenIssuer interface {
	IssuePair(principal sec.Principal) (sec.TokenPair, error)
	IssueAccess(principal sec.Principal) (string, error)
	IssueRefresh(principal sec.Principal) (string, error)
	VerifyAccess(token string) (*sec.Claims, error)
	VerifyRefresh(token string) (*sec.Claims, error)
}

// EventRecorder counts authentication outcomes. It is satisfied by [metrics.Registry].
type EventRecorder interface {
	RecordAuthEvent(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthEvent(string, string) {}

// Options tunes the session policy of a [Service].
type Options struct {
	// RotateRefreshTokens replaces the refresh token on every refresh.
	RotateRefreshTokens bool

	// Recorder receives one event per operation. Nil disables recording.
	Recorder EventRecorder
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, token
// issuance or refresh-token storage must be reviewed with the same care.
type Service struct {
	userRepository UserRepository
	tokenIssuer    TokenIssuer
	options        Options
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(userRepo UserRepository, tokens TokenIssuer, options Options) *Service {
	if options.Recorder == nil {
		options.Recorder = nopRecorder{}
	}
	return &Service{
		userRepository: userRepo,
		tokenIssuer:    tokens,
		options:        options,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Username  string
	Password  string
}

// RegisterResult is returned after a successful registration.
type RegisterResult struct {
	Message      string
	AccessToken  string
	RefreshToken string
}

/*
Register validates uniqueness, hashes, and persists a brand new user account.

Description: The token pair is minted before the insert so the account is
written together with its first session in one document.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *RegisterResult: Message and token pair
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (result *RegisterResult, err error) {
	defer func() { service.record(OperationRegister, err) }()

	// Verify email uniqueness. Return a client-safe Conflict err.
	if err := service.ensureFree(context, service.userRepository.FindByEmail, input.Email, messageEmailTaken); err != nil {
		return nil, err
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	if err := service.ensureFree(context, service.userRepository.FindByUsername, input.Username, messageUsernameTaken); err != nil {
		return nil, err
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := sec.HashPassword(input.Password)
	if errors.Is(err, sec.ErrPasswordTooLong) {
		return nil, apperr.ValidationError("Validation failed", apperr.FieldError{Field: FieldPassword, Message: messagePasswordTooLong})
	}
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
	}

	pair, err := service.tokenIssuer.IssuePair(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_failed: %w", err)
	}
	user.RefreshToken = pair.RefreshToken

	// Persist the user. A concurrent registration surfaces here as Conflict.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_register_succeeded", slog.String("user_id", user.ID))

	return &RegisterResult{
		Message:      MessageRegistered,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// ensureFree returns a Conflict when lookup finds an account for value.
func (service *Service) ensureFree(context context.Context, lookup func(context.Context, string) (*User, error), value, message string) error {
	_, err := lookup(context, value)
	switch {
	case err == nil:
		return apperr.Conflict(message)
	case apperr.IsNotFound(err):
		return nil
	default:
		return fmt.Errorf("auth_service_lookup_failed: %w", err)
	}
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	UsernameOrEmail string
	Password        string
}

// LoginResult represents a successfully established user session.
type LoginResult struct {
	Message      string
	AccessToken  string
	RefreshToken string
	User         UserView
}

/*
Login validates user credentials and issues security tokens.

Description: Resolves the account by username or email, checks the password
and overwrites any previous session with a fresh refresh token.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Token pair and the sanitized account
  - err: NotFound for an unknown identifier, BadRequest for a wrong password
*/
func (service *Service) Login(context context.Context, input LoginInput) (result *LoginResult, err error) {
	defer func() { service.record(OperationLogin, err) }()

	user, err := service.userRepository.FindByUsernameOrEmail(context, input.UsernameOrEmail)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// OAuth-only accounts have no hash and never match.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		ctxutil.GetLogger(context).WarnContext(context, "auth_login_rejected", slog.String("user_id", user.ID))
		return nil, apperr.BadRequest(messageInvalidCredentials)
	}

	result, err = service.startSession(context, user)
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_login_succeeded", slog.String("user_id", user.ID))
	return result, nil
}

// startSession issues a pair for user and overwrites its stored refresh token.
func (service *Service) startSession(context context.Context, user *User) (*LoginResult, error) {
	pair, err := service.tokenIssuer.IssuePair(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	if err := service.userRepository.SetRefreshToken(context, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("auth_service_store_refresh_failed: %w", err)
	}
	user.RefreshToken = pair.RefreshToken

	return &LoginResult{
		Message:      MessageLoggedIn,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.View(),
	}, nil
}

/*
GetMe returns the account of the authenticated principal.

Parameters:
  - context: context.Context
  - principal: sec.Principal

Returns:
  - UserView: Sanitized account
  - err: NotFound when the account was removed after the token was issued
*/
func (service *Service) GetMe(context context.Context, principal sec.Principal) (UserView, error) {
	user, err := service.userRepository.FindByID(context, principal.ID)
	if err != nil {
		if apperr.IsNotFound(err) {
			return UserView{}, err
		}
		return UserView{}, fmt.Errorf("auth_service_me_failed: %w", err)
	}
	return user.View(), nil
}

// # Session Termination

/*
Logout terminates the session bound to a refresh token.

Description: The stored token is cleared only while it still equals the
presented one, so logging out with a superseded token never ends the newer
session. Repeating a logout succeeds.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: BadRequest when empty, Unauthorized when the token does not verify
*/
func (service *Service) Logout(context context.Context, refreshToken string) (err error) {
	defer func() { service.record(OperationLogout, err) }()

	if refreshToken == "" {
		return apperr.BadRequest(messageMissingToken)
	}

	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil {
		return apperr.Unauthorized(messageInvalidRefresh).WithCause(err)
	}

	cleared, err := service.userRepository.SwapRefreshToken(context, claims.UserID, refreshToken, "")
	if err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_logout_succeeded",
		slog.String("user_id", claims.UserID),
		slog.Bool("session_cleared", cleared),
	)
	return nil
}

/*
VerifyToken decodes an access token without consulting the store.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *sec.Claims: Verified claims
  - err: Unauthorized on any verification failure
*/
func (service *Service) VerifyToken(context context.Context, token string) (*sec.Claims, error) {
	if token == "" {
		return nil, apperr.Unauthorized(messageInvalidAccess)
	}

	claims, err := service.tokenIssuer.VerifyAccess(token)
	if err != nil {
		ctxutil.GetLogger(context).DebugContext(context, "auth_verify_rejected", slog.String("error", err.Error()))
		return nil, apperr.Unauthorized(messageInvalidAccess).WithCause(err)
	}
	return claims, nil
}

// # Instrumentation

// record classifies err into an outcome for the [EventRecorder].
func (service *Service) record(operation string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		if appError := apperr.As(err); appError != nil && appError.HTTPStatus < 500 {
			outcome = metrics.OutcomeRejected
		}
	}
	service.options.Recorder.RecordAuthEvent(operation, outcome)
}
