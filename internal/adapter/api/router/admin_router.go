package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

func SetupAdminRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	adminHandler := handler.GetAdminHandler()

	admin := e.Group("/v1/admin")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.PATCH("/cars/:id/status", adminHandler.UpdateCarStatus)
	admin.PATCH("/users/:id/block", adminHandler.BlockUser)
}
