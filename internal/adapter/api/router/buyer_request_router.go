package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

func SetupBuyerRequestRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	requestHandler := handler.GetBuyerRequestHandler()

	requests := e.Group("/v1/buyer-requests")

	// Public
	requests.GET("", requestHandler.ListRequests)

	requests.POST("", requestHandler.CreateRequest, authMiddleware.Authenticate)
	requests.GET("/mine", requestHandler.ListMyRequests, authMiddleware.Authenticate)

	requests.GET("/:id", requestHandler.GetRequest)
	requests.PUT("/:id", requestHandler.UpdateRequest, authMiddleware.Authenticate)
	requests.DELETE("/:id", requestHandler.DeleteRequest, authMiddleware.Authenticate)
	requests.GET("/:id/offers", requestHandler.ListOffers, authMiddleware.Authenticate)
}
