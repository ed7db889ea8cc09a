package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the REST chat routes. Realtime traffic goes through /ws.
func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	chats := e.Group("/v1/chat")
	chats.Use(authMiddleware.Authenticate)

	chats.POST("/create", chatHandler.CreateChat)
	chats.GET("", chatHandler.GetUserChats)
	chats.GET("/:id", chatHandler.GetChatByID)
	chats.PUT("/:id/read", chatHandler.MarkChatAsRead)

	chats.GET("/:id/messages", chatHandler.GetChatMessages)
	chats.POST("/:id/messages", chatHandler.SendMessage)
}
