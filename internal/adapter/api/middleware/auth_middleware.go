package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/usecase"
	"carmarket/pkg/errors"
	"carmarket/pkg/response"
)

// UserIDHeader carries the resolved caller id when a trusted gateway
// authenticates in front of the service.
const UserIDHeader = "X-User-ID"

type AuthMiddleware struct {
	verifier   usecase.TokenVerifier
	userRepo   repository.UserRepository
	headerMode bool
}

// NewAuthMiddleware builds the guard. With headerMode the caller id is taken
// from UserIDHeader and verifier may be nil.
func NewAuthMiddleware(verifier usecase.TokenVerifier, userRepo repository.UserRepository, headerMode bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:   verifier,
		userRepo:   userRepo,
		headerMode: headerMode,
	}
}

// Authenticate requires a valid credential that maps to an existing user.
// It sets "uid" and "user" on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := m.resolveUID(c)
		if err != nil {
			return response.Error(c, err)
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			if errors.IsNotFound(err) {
				return response.Error(c, errors.Unauthorized("User record not found", err))
			}
			return response.Error(c, err)
		}

		c.Set("uid", uid)
		c.Set("user", user)
		return next(c)
	}
}

// IdentityOnly requires a valid credential but no user record. Used by sync,
// which creates the record.
func (m *AuthMiddleware) IdentityOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := m.resolveUID(c)
		if err != nil {
			return response.Error(c, err)
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// OptionalAuth resolves the caller when a credential is present and
// continues anonymously otherwise.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, err := m.resolveUID(c)
		if err != nil {
			return next(c)
		}

		if user, err := m.userRepo.GetByID(c.Request().Context(), uid); err == nil {
			c.Set("uid", uid)
			c.Set("user", user)
		}
		return next(c)
	}
}

func (m *AuthMiddleware) resolveUID(c echo.Context) (string, error) {
	if m.headerMode {
		uid := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
		if uid == "" {
			return "", errors.Unauthorized(UserIDHeader+" header is required", nil)
		}
		return uid, nil
	}

	token, err := bearerToken(c)
	if err != nil {
		return "", err
	}

	uid, err := m.verifier.VerifyToken(c.Request().Context(), token)
	if err != nil || uid == "" {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}
	return uid, nil
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter that browsers use for websocket upgrades.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", errors.Unauthorized("Authorization header is required", nil)
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.Unauthorized("Invalid authorization format", nil)
	}
	return parts[1], nil
}

// CurrentUser returns the user set by Authenticate or OptionalAuth.
func CurrentUser(c echo.Context) *entity.User {
	user, _ := c.Get("user").(*entity.User)
	return user
}
