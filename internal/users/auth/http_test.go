// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mockexam/internal/platform/middleware"
	"github.com/taibuivan/mockexam/internal/users/auth"
)

const registerBody = `{"firstName":"Ada","lastName":"Lovelace","email":"ada@example.com","username":"ada","password":"correct-horse"}`

func newRouter(f *fixture, config auth.HandlerConfig) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Authenticate(f.tokens))
	router.Mount("/api/auth", auth.NewHandler(f.service, config).Routes())
	return router
}

func do(t *testing.T, handler http.Handler, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(request)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

func decode(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

/*
TestHandler_Register returns the token pair with 201.
*/
func TestHandler_Register(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})

	recorder := do(t, router, http.MethodPost, "/api/auth/register", registerBody)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	payload := decode(t, recorder)
	assert.Equal(t, "Registered Successfully", payload["message"])
	assert.NotEmpty(t, payload["access_token"])
	assert.NotEmpty(t, payload["refreshToken"])

	conflict := do(t, router, http.MethodPost, "/api/auth/register", registerBody)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

/*
TestHandler_Register_Validation reports every invalid field.
*/
func TestHandler_Register_Validation(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing first name", body: `{"lastName":"L","email":"a@b.co","username":"abc","password":"12345678"}`, field: "firstName"},
		{name: "long last name", body: `{"firstName":"F","lastName":"` + strings.Repeat("x", 26) + `","email":"a@b.co","username":"abc","password":"12345678"}`, field: "lastName"},
		{name: "bad email", body: `{"firstName":"F","lastName":"L","email":"not-an-email","username":"abc","password":"12345678"}`, field: "email"},
		{name: "bad username", body: `{"firstName":"F","lastName":"L","email":"a@b.co","username":"has space","password":"12345678"}`, field: "username"},
		{name: "short password", body: `{"firstName":"F","lastName":"L","email":"a@b.co","username":"abc","password":"short"}`, field: "password"},
		{name: "long password", body: `{"firstName":"F","lastName":"L","email":"a@b.co","username":"abc","password":"` + strings.Repeat("p", 73) + `"}`, field: "password"},
		{name: "password long once normalised", body: `{"firstName":"F","lastName":"L","email":"a@b.co","username":"abc","password":"` + strings.Repeat("\u0344", 36) + `"}`, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, router, http.MethodPost, "/api/auth/register", tt.body)
			require.Equal(t, http.StatusBadRequest, recorder.Code)

			payload := decode(t, recorder)
			assert.Equal(t, "VALIDATION_ERROR", payload["code"])
			assert.Contains(t, recorder.Body.String(), `"field":"`+tt.field+`"`)
		})
	}

	malformed := do(t, router, http.MethodPost, "/api/auth/register", `{"firstName":`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
}

/*
TestHandler_Login sets HTTP-only session cookies.
*/
func TestHandler_Login(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{SecureCookies: true})
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/auth/register", registerBody).Code)

	recorder := do(t, router, http.MethodPost, "/api/auth/login", `{"usernameOrEmail":"ada@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	payload := decode(t, recorder)
	assert.Equal(t, "Logged in Successfully", payload["message"])
	user, ok := payload["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ada", user["username"])
	assert.NotContains(t, recorder.Body.String(), "password")

	access := cookieNamed(recorder, "access_token")
	require.NotNil(t, access)
	assert.Equal(t, payload["access_token"], access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, 3600, access.MaxAge)

	refresh := cookieNamed(recorder, "refresh_token")
	require.NotNil(t, refresh)
	assert.Equal(t, payload["refresh_token"], refresh.Value)
	assert.Equal(t, 86400, refresh.MaxAge)
}

/*
TestHandler_Login_Rejects maps unknown accounts and wrong passwords.
*/
func TestHandler_Login_Rejects(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/auth/register", registerBody).Code)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "unknown", body: `{"usernameOrEmail":"nobody","password":"correct-horse"}`, status: http.StatusNotFound},
		{name: "wrong password", body: `{"usernameOrEmail":"ada","password":"wrong-horse"}`, status: http.StatusBadRequest},
		{name: "short identifier", body: `{"usernameOrEmail":"ad","password":"correct-horse"}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := do(t, router, http.MethodPost, "/api/auth/login", tt.body)
			assert.Equal(t, tt.status, recorder.Code)
			assert.Nil(t, cookieNamed(recorder, "access_token"))
		})
	}
}

/*
TestHandler_RefreshAndLogout drives a session from the cookie jar only.
*/
func TestHandler_RefreshAndLogout(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/auth/register", registerBody).Code)

	login := do(t, router, http.MethodPost, "/api/auth/login", `{"usernameOrEmail":"ada","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, login.Code)
	refreshCookie := cookieNamed(login, "refresh_token")
	withCookie := func(request *http.Request) { request.AddCookie(refreshCookie) }

	// Cookie and body both work, on both paths.
	for _, path := range []string{"/api/auth/refresh", "/api/auth/refresh-token"} {
		recorder := do(t, router, http.MethodPost, path, "", withCookie)
		require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
		assert.NotEmpty(t, decode(t, recorder)["access_token"])
		assert.NotNil(t, cookieNamed(recorder, "access_token"))
	}
	byBody := do(t, router, http.MethodPost, "/api/auth/refresh", `{"token":"`+refreshCookie.Value+`"}`)
	require.Equal(t, http.StatusOK, byBody.Code)
	assert.NotContains(t, decode(t, byBody), "refresh_token")

	logout := do(t, router, http.MethodPost, "/api/auth/logout", "", withCookie)
	require.Equal(t, http.StatusOK, logout.Code)
	assert.Equal(t, "Logged out successfully", decode(t, logout)["message"])
	for _, name := range []string{"access_token", "refresh_token"} {
		cleared := cookieNamed(logout, name)
		require.NotNil(t, cleared, name)
		assert.Empty(t, cleared.Value)
		assert.Negative(t, cleared.MaxAge)
	}

	after := do(t, router, http.MethodPost, "/api/auth/refresh", "", withCookie)
	assert.Equal(t, http.StatusUnauthorized, after.Code)

	again := do(t, router, http.MethodPost, "/api/auth/logout", `{"refreshToken":"`+refreshCookie.Value+`"}`)
	assert.Equal(t, http.StatusOK, again.Code)
}

/*
TestHandler_Refresh_Rotation returns and stores the replacement token.
*/
func TestHandler_Refresh_Rotation(t *testing.T) {
	f := newFixture(t, true)
	router := newRouter(f, auth.HandlerConfig{})
	registered := decode(t, do(t, router, http.MethodPost, "/api/auth/register", registerBody))

	recorder := do(t, router, http.MethodPost, "/api/auth/refresh", `{"token":"`+registered["refreshToken"].(string)+`"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	payload := decode(t, recorder)
	require.NotEmpty(t, payload["refresh_token"])
	assert.Equal(t, payload["refresh_token"], cookieNamed(recorder, "refresh_token").Value)
}

/*
TestHandler_MissingToken rejects refresh and logout without any token.
*/
func TestHandler_MissingToken(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})

	for _, path := range []string{"/api/auth/refresh", "/api/auth/logout"} {
		assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, path, "").Code, path)
		assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodPost, path, `{"token":`).Code, path)
	}
}

/*
TestHandler_Me requires a valid access token.
*/
func TestHandler_Me(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})
	registered := decode(t, do(t, router, http.MethodPost, "/api/auth/register", registerBody))
	accessToken := registered["access_token"].(string)

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/api/auth/me", "").Code)

	forged := do(t, router, http.MethodGet, "/api/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer forged")
	})
	assert.Equal(t, http.StatusUnauthorized, forged.Code)

	recorder := do(t, router, http.MethodGet, "/api/auth/me", "", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+accessToken)
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "ada@example.com", decode(t, recorder)["email"])
}

/*
TestHandler_Verify decodes a token from the query string.
*/
func TestHandler_Verify(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})
	registered := decode(t, do(t, router, http.MethodPost, "/api/auth/register", registerBody))

	recorder := do(t, router, http.MethodGet, "/api/auth/verify?token="+registered["access_token"].(string), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	payload := decode(t, recorder)
	assert.Equal(t, "user", payload["rol"])
	assert.Equal(t, "access", payload["typ"])

	assert.Equal(t, http.StatusUnauthorized, do(t, router, http.MethodGet, "/api/auth/verify?token=nope", "").Code)
}

/*
TestHandler_Refresh_ExpiredBearer refreshes while the client still sends its expired access token.
*/
func TestHandler_Refresh_ExpiredBearer(t *testing.T) {
	f := newFixture(t, false)
	router := newRouter(f, auth.HandlerConfig{})
	registered := decode(t, do(t, router, http.MethodPost, "/api/auth/register", registerBody))

	f.clock = epoch.Add(2 * time.Hour)
	withExpired := func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+registered["access_token"].(string))
	}

	recorder := do(t, router, http.MethodPost, "/api/auth/refresh", `{"token":"`+registered["refreshToken"].(string)+`"}`, withExpired)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	assert.NotEmpty(t, decode(t, recorder)["access_token"])

	me := do(t, router, http.MethodGet, "/api/auth/me", "", withExpired)
	assert.Equal(t, http.StatusUnauthorized, me.Code)
}
