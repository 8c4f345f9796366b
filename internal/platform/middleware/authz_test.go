// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mockexam/internal/platform/ctxutil"
	"github.com/taibuivan/mockexam/internal/platform/middleware"
	"github.com/taibuivan/mockexam/internal/platform/sec"
)

// stubVerifier accepts a fixed set of tokens.
type stubVerifier map[string]sec.Principal

func (s stubVerifier) VerifyToken(token string) (*sec.Claims, error) {
	principal, ok := s[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &sec.Claims{UserID: principal.ID, Role: principal.Role}, nil
}

var verifier = stubVerifier{
	"user-token":  {ID: "u1", Role: sec.RoleUser},
	"admin-token": {ID: "a1", Role: sec.RoleAdmin},
}

// echoPrincipal writes the principal id, or "anonymous".
var echoPrincipal = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	principal, ok := ctxutil.GetPrincipal(request.Context())
	if !ok {
		_, _ = writer.Write([]byte("anonymous"))
		return
	}
	_, _ = writer.Write([]byte(principal.ID))
})

/*
TestAuthenticate covers header, cookie, anonymous and rejected requests.
*/
func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{"anonymous", "", "", http.StatusOK, "anonymous"},
		{"bearer header", "Bearer user-token", "", http.StatusOK, "u1"},
		{"cookie fallback", "", "admin-token", http.StatusOK, "a1"},
		{"header wins over cookie", "Bearer user-token", "admin-token", http.StatusOK, "u1"},
		{"invalid token is anonymous", "Bearer forged", "", http.StatusOK, "anonymous"},
		{"invalid cookie is ignored", "", "forged", http.StatusOK, "anonymous"},
		{"malformed header", "Token user-token", "", http.StatusUnauthorized, ""},
	}

	handler := middleware.Authenticate(verifier)(echoPrincipal)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				request.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}

			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, recorder.Body.String())
			}
		})
	}
}

/*
TestRequireAuth rejects anonymous requests and rejected tokens.
*/
func TestRequireAuth(t *testing.T) {
	handler := middleware.Authenticate(verifier)(middleware.RequireAuth(echoPrincipal))

	anonymous := httptest.NewRecorder()
	handler.ServeHTTP(anonymous, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, anonymous.Code)

	stale := httptest.NewRequest(http.MethodGet, "/", nil)
	stale.Header.Set("Authorization", "Bearer forged")
	rejected := httptest.NewRecorder()
	handler.ServeHTTP(rejected, stale)
	assert.Equal(t, http.StatusUnauthorized, rejected.Code)

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer user-token")
	authed := httptest.NewRecorder()
	handler.ServeHTTP(authed, request)
	assert.Equal(t, http.StatusOK, authed.Code)
}

/*
TestRequireRoles checks set membership and the empty-set pass-through.
*/
func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name   string
		roles  []sec.UserRole
		token  string
		status int
	}{
		{"empty set admits user", nil, "user-token", http.StatusOK},
		{"admin route admits admin", []sec.UserRole{sec.RoleAdmin}, "admin-token", http.StatusOK},
		{"admin route rejects user", []sec.UserRole{sec.RoleAdmin}, "user-token", http.StatusUnauthorized},
		{"multi-role set", []sec.UserRole{sec.RoleAdmin, sec.RoleUser}, "user-token", http.StatusOK},
		{"anonymous rejected", []sec.UserRole{sec.RoleUser}, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.Authenticate(verifier)(middleware.RequireRoles(tt.roles...)(echoPrincipal))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				request.Header.Set("Authorization", "Bearer "+tt.token)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.status, recorder.Code)
		})
	}
}
