// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/constants"
	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mockexam/internal/platform/request"
	"github.com/taibuivan/mockexam/internal/platform/respond"
	"github.com/taibuivan/mockexam/internal/users/oauth"
)

const (
	paramProvider = "provider"
	paramCode     = "code"
	paramState    = "state"
	paramError    = "error"
)

/*
OAuthStart redirects the browser to the provider consent screen.

GET /api/auth/{provider}

Response:
  - 302: Provider authorization URL carrying a single-use state, mirrored
    in the oauth_state cookie
  - 404: Provider unknown or not configured
*/
func (handler *Handler) oauthStart(writer http.ResponseWriter, request *http.Request) {
	provider, ok := handler.provider(writer, request)
	if !ok {
		return
	}

	state, err := handler.config.States.Issue(request.Context(), provider.Name())
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	handler.setCookie(writer, constants.OAuthStateCookieName, state, constants.OAuthStateTTL)
	http.Redirect(writer, request, provider.AuthCodeURL(state), http.StatusFound)
}

/*
OAuthCallback completes a social sign-in and hands the session to the web client.

GET /api/auth/{provider}/callback?code=&state=

Response:
  - 302: FRONTEND_URL/auth/social?token=&refreshToken=&user=
  - 400: Provider returned an error or the account has no email
  - 401: Invalid state, missing state cookie or failed code exchange
  - 404: Provider unknown or not configured
*/
func (handler *Handler) oauthCallback(writer http.ResponseWriter, request *http.Request) {
	provider, ok := handler.provider(writer, request)
	if !ok {
		return
	}

	query := request.URL.Query()
	logger := ctxutil.GetLogger(request.Context()).With(slog.String("provider", provider.Name()))

	// 1. Anti-forgery state: it must match the browser cookie and the stored value,
	// and is consumed even when the provider reports an error
	state := query.Get(paramState)
	browserState := requestutil.Cookie(request, constants.OAuthStateCookieName)
	handler.setCookie(writer, constants.OAuthStateCookieName, "", -1)

	if browserState == "" || subtle.ConstantTimeCompare([]byte(browserState), []byte(state)) != 1 {
		logger.WarnContext(request.Context(), "auth_oauth_state_rejected", slog.Bool("cookie_present", browserState != ""))
		respond.Error(writer, request, apperr.Unauthorized("Invalid or expired sign-in state"))
		return
	}

	if err := handler.config.States.Consume(request.Context(), provider.Name(), state); err != nil {
		if errors.Is(err, oauth.ErrInvalidState) {
			logger.WarnContext(request.Context(), "auth_oauth_state_rejected")
			respond.Error(writer, request, apperr.Unauthorized("Invalid or expired sign-in state"))
			return
		}
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	if providerError := query.Get(paramError); providerError != "" {
		respond.Error(writer, request, apperr.BadRequest(fmt.Sprintf("Sign-in was not completed: %s", providerError)))
		return
	}

	// 2. Code exchange and profile fetch
	profile, err := provider.Exchange(request.Context(), query.Get(paramCode))
	if err != nil {
		logger.WarnContext(request.Context(), "auth_oauth_exchange_failed", slog.String("error", err.Error()))
		respond.Error(writer, request, apperr.Unauthorized("Social sign-in failed").WithCause(err))
		return
	}

	// 3. Account provisioning
	result, err := handler.authService.SignInWithOAuth(request.Context(), *profile)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	target, err := handler.socialRedirect(result)
	if err != nil {
		respond.Error(writer, request, apperr.Internal(err))
		return
	}

	handler.setSessionCookies(writer, result.AccessToken, result.RefreshToken)
	http.Redirect(writer, request, target, http.StatusFound)
}

// provider resolves the {provider} URL parameter against the enabled providers.
func (handler *Handler) provider(writer http.ResponseWriter, request *http.Request) (oauth.Provider, bool) {
	provider, ok := handler.config.Providers.Lookup(chi.URLParam(request, paramProvider))
	if !ok || handler.config.States == nil {
		respond.Error(writer, request, apperr.NotFound("Provider"))
		return nil, false
	}
	return provider, true
}

// socialRedirect builds the web client URL that receives the session.
func (handler *Handler) socialRedirect(result *LoginResult) (string, error) {
	target, err := url.Parse(handler.config.FrontendURL)
	if err != nil {
		return "", fmt.Errorf("auth: invalid frontend url: %w", err)
	}

	user, err := json.Marshal(result.User)
	if err != nil {
		return "", fmt.Errorf("auth: encode user: %w", err)
	}

	target.Path = strings.TrimRight(target.Path, "/") + constants.SocialCallbackPath
	target.RawQuery = url.Values{
		FieldToken:        {result.AccessToken},
		FieldRefreshToken: {result.RefreshToken},
		FieldUser:         {string(user)},
	}.Encode()

	return target.String(), nil
}
