// Copyright (c) 2026 MockExam. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/mockexam/internal/platform/constants"
	"github.com/taibuivan/mockexam/internal/platform/middleware"
	requestutil "github.com/taibuivan/mockexam/internal/platform/request"
	"github.com/taibuivan/mockexam/internal/platform/respond"
	"github.com/taibuivan/mockexam/internal/platform/sec"
	"github.com/taibuivan/mockexam/internal/platform/validate"
	"github.com/taibuivan/mockexam/internal/users/oauth"
)

// # Definitions & Constructors

// HandlerConfig holds the transport settings of the auth endpoints.
type HandlerConfig struct {
	// SecureCookies marks session cookies Secure. Enabled in production.
	SecureCookies bool

	// FrontendURL is the web client origin that receives social sign-in results.
	FrontendURL string

	// Providers lists the enabled OAuth providers. Empty disables social sign-in.
	Providers oauth.Registry

	// States issues and consumes OAuth redirect states.
	States oauth.StateStore
}

// Handler implements authentication-related HTTP endpoints.
//
// # Scope
//
// This handler is the only place that reads or writes session cookies. The
// service deals in token strings only.
type Handler struct {
	authService *Service
	config      HandlerConfig
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service, config HandlerConfig) *Handler {
	return &Handler{authService: service, config: config}
}

// Routes returns a [chi.Router] configured with authentication-specific routes.
//
// # Endpoints
//   - POST /register        : Creates a new account.
//   - POST /login           : Authenticates and sets session cookies.
//   - GET  /verify          : Decodes an access token.
//   - POST /refresh         : Issues a new access token (alias /refresh-token).
//   - POST /logout          : Ends the session of a refresh token.
//   - GET  /me              : Returns the authenticated account.
//   - GET  /{provider}      : Starts a social sign-in.
//   - GET  /{provider}/callback : Completes a social sign-in.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Get("/verify", handler.verify)
	router.Post("/refresh", handler.refresh)
	router.Post("/refresh-token", handler.refresh)
	router.Post("/logout", handler.logout)

	// Social sign-in
	router.Get("/{provider}", handler.oauthStart)
	router.Get("/{provider}/callback", handler.oauthCallback)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.me)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type loginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// tokenRequest accepts the refresh token under either name the web client sends.
type tokenRequest struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func (input tokenRequest) value() string {
	if input.Token != "" {
		return input.Token
	}
	return input.RefreshToken
}

/*
Register handles the creation of a new user account.

POST /api/auth/register

Request:
  - Body: registerRequest (FirstName, LastName, Email, Username, Password)

Response:
  - 201: {message, access_token, refreshToken}
  - 400: Validation failure
  - 409: Email or Username already exists
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldFirstName, input.FirstName).
		MaxLen(FieldFirstName, input.FirstName, MaxNameLength).
		Required(FieldLastName, input.LastName).
		MaxLen(FieldLastName, input.LastName, MaxNameLength).
		Required(FieldEmail, input.Email).
		MaxLen(FieldEmail, input.Email, MaxEmailLength).
		Email(FieldEmail, input.Email).
		Required(FieldUsername, input.Username).
		MaxLen(FieldUsername, input.Username, MaxUsernameLength).
		Username(FieldUsername, input.Username).
		Required(FieldPassword, input.Password).
		MinLen(FieldPassword, input.Password, MinPasswordLength).
		MaxBytes(FieldPassword, sec.NormalizePassword(input.Password), sec.MaxPasswordBytes)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, map[string]string{
		FieldMessage:      result.Message,
		FieldAccessToken:  result.AccessToken,
		FieldRefreshToken: result.RefreshToken,
	})
}

/*
Login authenticates a user and establishes a session.

POST /api/auth/login

Request:
  - Body: loginRequest (UsernameOrEmail, Password)

Response:
  - 200: {message, access_token, refresh_token, user} plus session cookies
  - 400: Validation failure or wrong password
  - 404: Unknown username or email
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest

	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, validate.ErrInvalidJSON)
		return
	}

	validator := &validate.Validator{}
	validator.Required(FieldUsernameOrEmail, input.UsernameOrEmail).
		MinLen(FieldUsernameOrEmail, input.UsernameOrEmail, MinLoginLength).
		Required(FieldPassword, input.Password)

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		UsernameOrEmail: input.UsernameOrEmail,
		Password:        input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, result.AccessToken, result.RefreshToken)

	respond.JSON(writer, http.StatusOK, loginResponse(result))
}

func loginResponse(result *LoginResult) map[string]any {
	return map[string]any{
		FieldMessage:         result.Message,
		FieldAccessToken:     result.AccessToken,
		FieldRefreshTokenAlt: result.RefreshToken,
		FieldUser:            result.User,
	}
}

/*
Verify decodes an access token passed as a query parameter.

GET /api/auth/verify?token=

Response:
  - 200: Token claims
  - 401: Invalid or expired token
*/
func (handler *Handler) verify(writer http.ResponseWriter, request *http.Request) {
	claims, err := handler.authService.VerifyToken(request.Context(), request.URL.Query().Get(FieldToken))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, claims)
}

/*
Refresh issues a new access token using a valid refresh token.

POST /api/auth/refresh

Request:
  - Body: tokenRequest (optional, the refresh_token cookie is used otherwise)

Response:
  - 200: {access_token} plus refresh_token when rotation is enabled
  - 400: Missing token
  - 401: Invalid or superseded refresh token
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token, ok := handler.refreshTokenFrom(writer, request)
	if !ok {
		return
	}

	result, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setCookie(writer, constants.AccessTokenCookieName, result.AccessToken, constants.AccessTokenCookieMaxAge)

	payload := map[string]string{FieldAccessToken: result.AccessToken}
	if result.RefreshToken != "" {
		handler.setCookie(writer, constants.RefreshTokenCookieName, result.RefreshToken, constants.RefreshTokenCookieMaxAge)
		payload[FieldRefreshTokenAlt] = result.RefreshToken
	}

	respond.JSON(writer, http.StatusOK, payload)
}

/*
Logout terminates the session of a refresh token.

POST /api/auth/logout

Description: Session cookies are cleared whatever the outcome so the browser
never keeps a token the server no longer honours.

Request:
  - Body: tokenRequest (optional, the refresh_token cookie is used otherwise)

Response:
  - 200: {message}
  - 400: Missing token
  - 401: Invalid refresh token
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	token, ok := handler.refreshTokenFrom(writer, request)
	if !ok {
		return
	}

	handler.clearSessionCookies(writer)

	if err := handler.authService.Logout(request.Context(), token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, map[string]string{FieldMessage: MessageLoggedOut})
}

/*
Me returns the account of the authenticated caller.

GET /api/auth/me

Response:
  - 200: UserView
  - 401: No valid access token
  - 404: Account no longer exists
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	view, err := handler.authService.GetMe(request.Context(), principal)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusOK, view)
}

// # Cookie Helpers

// refreshTokenFrom reads the token from the body, falling back to the cookie.
// It writes the error response itself and returns false on malformed JSON.
func (handler *Handler) refreshTokenFrom(writer http.ResponseWriter, request *http.Request) (string, bool) {
	var input tokenRequest
	if err := requestutil.DecodeOptionalJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return "", false
	}

	if token := input.value(); token != "" {
		return token, true
	}
	return requestutil.Cookie(request, constants.RefreshTokenCookieName), true
}

func (handler *Handler) setSessionCookies(writer http.ResponseWriter, accessToken, refreshToken string) {
	handler.setCookie(writer, constants.AccessTokenCookieName, accessToken, constants.AccessTokenCookieMaxAge)
	handler.setCookie(writer, constants.RefreshTokenCookieName, refreshToken, constants.RefreshTokenCookieMaxAge)
}

func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	handler.setCookie(writer, constants.AccessTokenCookieName, "", -1)
	handler.setCookie(writer, constants.RefreshTokenCookieName, "", -1)
}

// setCookie writes an HTTP-only cookie. A negative maxAge deletes it.
func (handler *Handler) setCookie(writer http.ResponseWriter, name, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   handler.config.SecureCookies,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(maxAge / time.Second)
	}
	http.SetCookie(writer, cookie)
}
