package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/adapter/repository/memory"
	"carmarket/internal/domain/entity"
	"carmarket/internal/infrastructure/jwtauth"
	"carmarket/internal/infrastructure/ratelimit"
)

func whoAmI(c echo.Context) error {
	uid, _ := c.Get("uid").(string)
	return c.String(http.StatusOK, uid)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateWithBearerToken(t *testing.T) {
	users := memory.NewUserRepository(memory.NewStore())
	require.NoError(t, users.Create(context.Background(), &entity.User{ID: "u1", Email: "u1@example.com", Role: entity.RoleUser}))

	verifier := jwtauth.NewVerifier("test-secret", time.Hour)
	auth := NewAuthMiddleware(verifier, users, false)

	e := echo.New()
	e.GET("/me", whoAmI, auth.Authenticate)
	e.POST("/sync", whoAmI, auth.IdentityOnly)
	e.GET("/public", whoAmI, auth.OptionalAuth)

	token, _, err := verifier.IssueToken("u1")
	require.NoError(t, err)
	strangerToken, _, err := verifier.IssueToken("stranger")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	// Websocket clients pass the token in the query.
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+strangerToken)
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer "+strangerToken)
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stranger", rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAdminOnly(t *testing.T) {
	users := memory.NewUserRepository(memory.NewStore())
	require.NoError(t, users.Create(context.Background(), &entity.User{ID: "admin", Email: "a@example.com", Role: entity.RoleAdmin}))
	require.NoError(t, users.Create(context.Background(), &entity.User{ID: "user", Email: "u@example.com", Role: entity.RoleUser}))

	auth := NewAuthMiddleware(nil, users, true)
	e := echo.New()
	e.GET("/admin", whoAmI, auth.Authenticate, NewAdminMiddleware().AdminOnly)

	for uid, want := range map[string]int{
		"admin": http.StatusOK,
		"user":  http.StatusForbidden,
		"":      http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if uid != "" {
			req.Header.Set(UserIDHeader, uid)
		}
		assert.Equal(t, want, serve(e, req).Code, "uid %q", uid)
	}
}

func TestRateLimitSetsRetryAfter(t *testing.T) {
	limiter := ratelimit.NewRateLimiterWithLimits(map[string]ratelimit.Limit{
		ratelimit.ActionHTTPRequest: {Burst: 2, Interval: time.Hour},
	})

	e := echo.New()
	e.Use(RateLimit(limiter, ratelimit.ActionHTTPRequest))
	e.GET("/", whoAmI)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
