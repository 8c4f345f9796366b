// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
)

// # Session Refresh

// RefreshResult holds the tokens produced by a refresh. RefreshToken is empty
// unless rotation is enabled.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

/*
Refresh exchanges a refresh token for a new access token.

Description: The token must verify and must equal the one stored on the
account. The new access token is built from the stored record, so a role
change takes effect on the next refresh. With rotation enabled the stored
token is swapped atomically; of several concurrent refreshes with the same
token exactly one succeeds.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *RefreshResult: New access token (and refresh token when rotating)
  - err: BadRequest when empty, Unauthorized for any rejected token
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (result *RefreshResult, err error) {
	defer func() { service.record(OperationRefresh, err) }()

	if refreshToken == "" {
		return nil, apperr.BadRequest(messageMissingToken)
	}

	logger := ctxutil.GetLogger(context)

	// 1. Signature, expiry and token type
	claims, err := service.tokenIssuer.VerifyRefresh(refreshToken)
	if err != nil {
		logger.WarnContext(context, "auth_refresh_rejected", slog.String("reason", "invalid_token"))
		return nil, apperr.Unauthorized(messageInvalidRefresh).WithCause(err)
	}

	// 2. The token must still be the live session of its subject
	user, err := service.userRepository.FindByID(context, claims.UserID)
	if err != nil {
		if apperr.IsNotFound(err) {
			logger.WarnContext(context, "auth_refresh_rejected", slog.String("reason", "unknown_subject"))
			return nil, apperr.Unauthorized(messageInvalidRefresh)
		}
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(user.RefreshToken), []byte(refreshToken)) != 1 {
		logger.WarnContext(context, "auth_refresh_rejected",
			slog.String("reason", "superseded_session"),
			slog.String("user_id", user.ID),
		)
		return nil, apperr.Unauthorized(messageInvalidRefresh)
	}

	// 3. Identity comes from the record, not from the presented claims
	accessToken, err := service.tokenIssuer.IssueAccess(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	result = &RefreshResult{AccessToken: accessToken}
	if !service.options.RotateRefreshTokens {
		logger.InfoContext(context, "auth_refresh_succeeded", slog.String("user_id", user.ID))
		return result, nil
	}

	// 4. Rotation: only the caller whose swap matches keeps a session
	nextToken, err := service.tokenIssuer.IssueRefresh(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("auth_service_issue_failed: %w", err)
	}

	swapped, err := service.userRepository.SwapRefreshToken(context, user.ID, refreshToken, nextToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_rotate_failed: %w", err)
	}
	if !swapped {
		logger.WarnContext(context, "auth_refresh_rejected",
			slog.String("reason", "rotation_lost"),
			slog.String("user_id", user.ID),
		)
		return nil, apperr.Unauthorized(messageInvalidRefresh)
	}

	result.RefreshToken = nextToken
	logger.InfoContext(context, "auth_refresh_succeeded", slog.String("user_id", user.ID), slog.Bool("rotated", true))
	return result, nil
}
