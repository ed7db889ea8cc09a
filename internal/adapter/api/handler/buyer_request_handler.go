package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/usecase"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type BuyerRequestHandler struct {
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewBuyerRequestHandler(negotiationUseCase *usecase.NegotiationUseCase) *BuyerRequestHandler {
	return &BuyerRequestHandler{
		negotiationUseCase: negotiationUseCase,
	}
}

type createBuyerRequestRequest struct {
	Title              string           `json:"title" validate:"required,max=200"`
	Description        string           `json:"description" validate:"required,max=5000"`
	Make               string           `json:"make" validate:"omitempty,max=100"`
	Model              string           `json:"model" validate:"omitempty,max=100"`
	Type               string           `json:"type" validate:"omitempty,max=100"`
	BudgetMin          float64          `json:"budget_min" validate:"gte=0"`
	BudgetMax          float64          `json:"budget_max" validate:"required,gt=0"`
	PreferredCondition string           `json:"preferred_condition" validate:"omitempty,max=100"`
	Location           *entity.GeoPoint `json:"location" validate:"omitempty"`
	ExpiryDate         *time.Time       `json:"expiry_date"`
}

type updateBuyerRequestRequest struct {
	Title              *string          `json:"title" validate:"omitempty,min=1,max=200"`
	Description        *string          `json:"description" validate:"omitempty,min=1,max=5000"`
	Make               *string          `json:"make" validate:"omitempty,max=100"`
	Model              *string          `json:"model" validate:"omitempty,max=100"`
	Type               *string          `json:"type" validate:"omitempty,max=100"`
	BudgetMin          *float64         `json:"budget_min" validate:"omitempty,gte=0"`
	BudgetMax          *float64         `json:"budget_max" validate:"omitempty,gt=0"`
	PreferredCondition *string          `json:"preferred_condition" validate:"omitempty,max=100"`
	Location           *entity.GeoPoint `json:"location" validate:"omitempty"`
	ExpiryDate         *time.Time       `json:"expiry_date"`
}

func (h *BuyerRequestHandler) CreateRequest(c echo.Context) error {
	var req createBuyerRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	request, err := h.negotiationUseCase.CreateRequest(c.Request().Context(), uid, usecase.CreateRequestInput{
		Title:              req.Title,
		Description:        req.Description,
		Make:               req.Make,
		Model:              req.Model,
		Type:               req.Type,
		BudgetMin:          req.BudgetMin,
		BudgetMax:          req.BudgetMax,
		PreferredCondition: req.PreferredCondition,
		Location:           req.Location,
		ExpiryDate:         req.ExpiryDate,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, request)
}

// ListRequests lists Active requests, optionally filtered by make and model.
func (h *BuyerRequestHandler) ListRequests(c echo.Context) error {
	pagination := utils.GetPaginationParams(c)
	filter := repository.BuyerRequestFilter{
		Make:  c.QueryParam("make"),
		Model: c.QueryParam("model"),
	}

	requests, total, err := h.negotiationUseCase.ListOpenRequests(c.Request().Context(), filter, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, requests, total, pagination.Page, pagination.PageSize)
}

func (h *BuyerRequestHandler) ListMyRequests(c echo.Context) error {
	uid := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	requests, total, err := h.negotiationUseCase.ListMyRequests(c.Request().Context(), uid, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, requests, total, pagination.Page, pagination.PageSize)
}

func (h *BuyerRequestHandler) GetRequest(c echo.Context) error {
	request, err := h.negotiationUseCase.GetRequest(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, request)
}

func (h *BuyerRequestHandler) UpdateRequest(c echo.Context) error {
	var req updateBuyerRequestRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	request, err := h.negotiationUseCase.UpdateRequest(c.Request().Context(), uid, c.Param("id"), usecase.UpdateRequestInput{
		Title:              req.Title,
		Description:        req.Description,
		Make:               req.Make,
		Model:              req.Model,
		Type:               req.Type,
		BudgetMin:          req.BudgetMin,
		BudgetMax:          req.BudgetMax,
		PreferredCondition: req.PreferredCondition,
		Location:           req.Location,
		ExpiryDate:         req.ExpiryDate,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, request)
}

// DeleteRequest cancels the request. The record is kept.
func (h *BuyerRequestHandler) DeleteRequest(c echo.Context) error {
	uid := c.Get("uid").(string)

	request, err := h.negotiationUseCase.DeleteRequest(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, request)
}

func (h *BuyerRequestHandler) ListOffers(c echo.Context) error {
	uid := c.Get("uid").(string)

	offers, err := h.negotiationUseCase.ListOffersForRequest(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offers)
}
