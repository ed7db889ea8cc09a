package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

func SetupSellerOfferRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	offerHandler := handler.GetSellerOfferHandler()

	offers := e.Group("/v1/seller-offers")
	offers.Use(authMiddleware.Authenticate)

	offers.POST("", offerHandler.CreateOffer)
	offers.GET("/mine", offerHandler.ListMyOffers)
	offers.GET("/:id", offerHandler.GetOffer)
	offers.PATCH("/:id/accept", offerHandler.AcceptOffer)
	offers.PATCH("/:id/reject", offerHandler.RejectOffer)
	offers.DELETE("/:id", offerHandler.DeleteOffer)
}
