package router

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	SetupUserRouter(e, authMiddleware)
	SetupCarRouter(e, authMiddleware)
	SetupBuyerRequestRouter(e, authMiddleware)
	SetupSellerOfferRouter(e, authMiddleware)
	SetupChatRouter(e, authMiddleware)
	SetupAdminRouter(e, authMiddleware, adminMiddleware)
	SetupHealthRouter(e)
}
