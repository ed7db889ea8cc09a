package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"carmarket/internal/usecase"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type SellerOfferHandler struct {
	negotiationUseCase *usecase.NegotiationUseCase
}

func NewSellerOfferHandler(negotiationUseCase *usecase.NegotiationUseCase) *SellerOfferHandler {
	return &SellerOfferHandler{
		negotiationUseCase: negotiationUseCase,
	}
}

type createSellerOfferRequest struct {
	RequestID    string     `json:"request_id" validate:"required"`
	CarID        string     `json:"car_id"`
	Price        float64    `json:"price" validate:"required,gt=0"`
	Title        string     `json:"title" validate:"omitempty,max=200"`
	Description  string     `json:"description" validate:"omitempty,max=5000"`
	CustomImages []string   `json:"custom_images" validate:"required_without=CarID,max=10,dive,url"`
	ExpiryDate   *time.Time `json:"expiry_date"`
}

func (h *SellerOfferHandler) CreateOffer(c echo.Context) error {
	var req createSellerOfferRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	offer, err := h.negotiationUseCase.CreateOffer(c.Request().Context(), uid, usecase.CreateOfferInput{
		RequestID:    req.RequestID,
		CarID:        req.CarID,
		Price:        req.Price,
		Title:        req.Title,
		Description:  req.Description,
		CustomImages: req.CustomImages,
		ExpiryDate:   req.ExpiryDate,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, offer)
}

func (h *SellerOfferHandler) ListMyOffers(c echo.Context) error {
	uid := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	offers, total, err := h.negotiationUseCase.ListMyOffers(c.Request().Context(), uid, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, offers, total, pagination.Page, pagination.PageSize)
}

func (h *SellerOfferHandler) GetOffer(c echo.Context) error {
	uid := c.Get("uid").(string)

	offer, err := h.negotiationUseCase.GetOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

func (h *SellerOfferHandler) AcceptOffer(c echo.Context) error {
	uid := c.Get("uid").(string)

	result, err := h.negotiationUseCase.AcceptOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}

func (h *SellerOfferHandler) RejectOffer(c echo.Context) error {
	uid := c.Get("uid").(string)

	offer, err := h.negotiationUseCase.RejectOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}

// DeleteOffer withdraws the caller's pending offer. The record is kept.
func (h *SellerOfferHandler) DeleteOffer(c echo.Context) error {
	uid := c.Get("uid").(string)

	offer, err := h.negotiationUseCase.DeleteOffer(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, offer)
}
