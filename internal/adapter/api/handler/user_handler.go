package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/domain/entity"
	"carmarket/internal/usecase"
	"carmarket/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type syncUserRequest struct {
	Email       string           `json:"email" validate:"required_without=Phone,omitempty,email"`
	Phone       string           `json:"phone" validate:"required_without=Email,omitempty,e164"`
	DisplayName string           `json:"display_name" validate:"omitempty,max=100"`
	SellerType  string           `json:"seller_type" validate:"omitempty,oneof=private company"`
	Brands      []string         `json:"brands" validate:"omitempty,max=50,dive,required"`
	Location    *entity.GeoPoint `json:"location" validate:"omitempty"`
}

type updateProfileRequest struct {
	DisplayName *string          `json:"display_name" validate:"omitempty,max=100"`
	Phone       *string          `json:"phone" validate:"omitempty,e164"`
	SellerType  *string          `json:"seller_type" validate:"omitempty,oneof=private company"`
	Brands      []string         `json:"brands" validate:"omitempty,max=50,dive,required"`
	Location    *entity.GeoPoint `json:"location" validate:"omitempty"`
}

// SyncUser creates the caller's user record after the first sign in.
func (h *UserHandler) SyncUser(c echo.Context) error {
	var req syncUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	user, created, err := h.userUseCase.SyncUser(c.Request().Context(), uid, usecase.SyncUserInput{
		Email:       req.Email,
		Phone:       req.Phone,
		DisplayName: req.DisplayName,
		SellerType:  req.SellerType,
		Brands:      req.Brands,
		Location:    req.Location,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, user)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetProfile(c echo.Context) error {
	uid := c.Get("uid").(string)

	user, err := h.userUseCase.GetProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), uid, usecase.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		SellerType:  req.SellerType,
		Brands:      req.Brands,
		Location:    req.Location,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
