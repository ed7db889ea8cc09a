package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
	"carmarket/pkg/response"
)

type AdminHandler struct {
	carUseCase  *usecase.CarUseCase
	userUseCase *usecase.UserUseCase
}

func NewAdminHandler(carUseCase *usecase.CarUseCase, userUseCase *usecase.UserUseCase) *AdminHandler {
	return &AdminHandler{
		carUseCase:  carUseCase,
		userUseCase: userUseCase,
	}
}

type updateCarStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Approved Rejected"`
}

type blockUserRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// UpdateCarStatus moderates a car listing; the owner is notified.
func (h *AdminHandler) UpdateCarStatus(c echo.Context) error {
	var req updateCarStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	car, err := h.carUseCase.UpdateStatus(c.Request().Context(), c.Param("id"), req.Status)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, car)
}

func (h *AdminHandler) BlockUser(c echo.Context) error {
	var req blockUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	adminID := c.Get("uid").(string)

	user, err := h.userUseCase.SetBlocked(c.Request().Context(), adminID, c.Param("id"), *req.Blocked)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
