package handler

import (
	"github.com/labstack/echo/v4"

	"carmarket/internal/adapter/api/middleware"
	"carmarket/internal/domain/entity"
	"carmarket/internal/usecase"
	"carmarket/pkg/response"
	"carmarket/pkg/utils"
)

type CarHandler struct {
	carUseCase *usecase.CarUseCase
}

func NewCarHandler(carUseCase *usecase.CarUseCase) *CarHandler {
	return &CarHandler{
		carUseCase: carUseCase,
	}
}

type financialRequest struct {
	PriceNet       float64  `json:"price_net" validate:"gte=0"`
	SellOptions    []string `json:"sell_options"`
	InvoiceOptions []string `json:"invoice_options"`
	SellerType     string   `json:"seller_type" validate:"omitempty,oneof=private company"`
}

type createCarRequest struct {
	Make         string           `json:"make" validate:"required,max=100"`
	Model        string           `json:"model" validate:"required,max=100"`
	Trim         string           `json:"trim" validate:"omitempty,max=100"`
	Year         int              `json:"year" validate:"required,gte=1900,lte=2100"`
	Mileage      int              `json:"mileage" validate:"gte=0"`
	FuelType     string           `json:"fuel_type" validate:"omitempty,max=50"`
	Transmission string           `json:"transmission" validate:"omitempty,max=50"`
	Description  string           `json:"description" validate:"omitempty,max=5000"`
	Images       []string         `json:"images" validate:"required,min=1,max=10,dive,url"`
	Financial    financialRequest `json:"financial"`
	Location     *entity.GeoPoint `json:"location" validate:"omitempty"`
}

func (h *CarHandler) CreateCar(c echo.Context) error {
	var req createCarRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	car, err := h.carUseCase.CreateCar(c.Request().Context(), uid, usecase.CreateCarInput{
		Make:         req.Make,
		Model:        req.Model,
		Trim:         req.Trim,
		Year:         req.Year,
		Mileage:      req.Mileage,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Description:  req.Description,
		Images:       req.Images,
		Financial: entity.Financial{
			PriceNet:       req.Financial.PriceNet,
			SellOptions:    req.Financial.SellOptions,
			InvoiceOptions: req.Financial.InvoiceOptions,
			SellerType:     req.Financial.SellerType,
		},
		Location: req.Location,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, car)
}

func (h *CarHandler) GetCar(c echo.Context) error {
	car, err := h.carUseCase.GetCar(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, car)
}

func (h *CarHandler) ListMyCars(c echo.Context) error {
	uid := c.Get("uid").(string)
	pagination := utils.GetPaginationParams(c)

	cars, total, err := h.carUseCase.ListMyCars(c.Request().Context(), uid, pagination.PageSize, pagination.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, cars, total, pagination.Page, pagination.PageSize)
}
