package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/handler"
	"carmarket/internal/adapter/api/middleware"
)

func SetupCarRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	carHandler := handler.GetCarHandler()

	cars := e.Group("/v1/cars")

	cars.POST("", carHandler.CreateCar, authMiddleware.Authenticate)
	cars.GET("/mine", carHandler.ListMyCars, authMiddleware.Authenticate)
	cars.GET("/:id", carHandler.GetCar, authMiddleware.OptionalAuth)
}
