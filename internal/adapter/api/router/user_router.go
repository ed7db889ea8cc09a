package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()

	users := e.Group("/v1/users")

	// The user record may not exist yet.
	users.POST("/sync", userHandler.SyncUser, authMiddleware.IdentityOnly)

	users.GET("/me", userHandler.GetProfile, authMiddleware.Authenticate)
	users.PUT("/me", userHandler.UpdateProfile, authMiddleware.Authenticate)
}
