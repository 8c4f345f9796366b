// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/taibuivan/mockexam/internal/platform/apperr"
	"github.com/taibuivan/mockexam/internal/platform/constants"
	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/mockexam/internal/platform/request"
	"github.com/taibuivan/mockexam/internal/platform/respond"
	"github.com/taibuivan/mockexam/internal/platform/sec"
)

// TokenVerifier checks an access token and returns its claims.
// It is satisfied by [sec.TokenService].
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.Claims, error)
}

// Authenticate extracts and verifies the access token of a request.
//
// # Flow
//  1. Read 'Authorization: Bearer <token>', falling back to the access_token cookie.
//  2. If neither is present, the request proceeds as anonymous.
//  3. If present, verify the JWT via [TokenVerifier]. A rejected token leaves
//     the request anonymous. A malformed header stops with 401.
//  4. Inject the [sec.Principal] and a user-scoped logger into the request context.
//
// # Parameters
//   - verifier: The TokenVerifier instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Token Lookup ───────────────────────────────────────────────
			tokenStr, wellFormed := requestutil.BearerToken(request)
			if !wellFormed {
				respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
				return
			}
			fromCookie := false
			if tokenStr == "" {
				tokenStr = requestutil.Cookie(request, constants.AccessTokenCookieName)
				fromCookie = tokenStr != ""
			}

			// ── 2. Anonymous Access ───────────────────────────────────────────
			if tokenStr == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 3. Token Verification ─────────────────────────────────────────
			claims, err := verifier.VerifyToken(tokenStr)
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "access_token_rejected",
					slog.String("reason", err.Error()),
					slog.Bool("from_cookie", fromCookie))

				// Public routes still serve a stale token; RequireAuth answers 401.
				next.ServeHTTP(writer, request)
				return
			}

			// ── 4. Context Injection ──────────────────────────────────────────
			principal := claims.Principal()
			ctx := ctxutil.WithPrincipal(request.Context(), principal)
			ctx = ctxutil.WithLogger(ctx, ctxutil.GetLogger(ctx).With(slog.String("user_id", principal.ID)))

			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if _, ok := ctxutil.GetPrincipal(request.Context()); !ok {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRoles blocks requests whose principal holds none of the listed roles.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. It implies
// [RequireAuth]. An empty role list admits any authenticated principal.
//
// # Flow
//  1. Check that a [sec.Principal] exists in context.
//  2. Check the principal's role against the required set.
//  3. If it is not a member, abort with HTTP 401 Unauthorized.
func RequireRoles(roles ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal, ok := ctxutil.GetPrincipal(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if !ok {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !principal.Role.In(roles...) {
				respond.Error(writer, request, apperr.Unauthorized("Insufficient role"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
