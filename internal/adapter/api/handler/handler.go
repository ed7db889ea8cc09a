package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
)

var (
	buyerRequestHandler *BuyerRequestHandler
	sellerOfferHandler  *SellerOfferHandler
	chatHandler         *ChatHandler
	userHandler         *UserHandler
	carHandler          *CarHandler
	adminHandler        *AdminHandler
)

func Setup(
	negotiationUseCase *usecase.NegotiationUseCase,
	chatUseCase *usecase.ChatUseCase,
	userUseCase *usecase.UserUseCase,
	carUseCase *usecase.CarUseCase,
) {
	buyerRequestHandler = NewBuyerRequestHandler(negotiationUseCase)
	sellerOfferHandler = NewSellerOfferHandler(negotiationUseCase)
	chatHandler = NewChatHandler(chatUseCase)
	userHandler = NewUserHandler(userUseCase)
	carHandler = NewCarHandler(carUseCase)
	adminHandler = NewAdminHandler(carUseCase, userUseCase)
}

func GetBuyerRequestHandler() *BuyerRequestHandler {
	return buyerRequestHandler
}

func GetSellerOfferHandler() *SellerOfferHandler {
	return sellerOfferHandler
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

func GetCarHandler() *CarHandler {
	return carHandler
}

func GetAdminHandler() *AdminHandler {
	return adminHandler
}

// bindAndValidate binds the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return c.Validate(req)
}
