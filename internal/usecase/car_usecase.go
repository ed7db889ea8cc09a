package usecase

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

const (
	minCarImages = 1
	maxCarImages = 10
)

type CarUseCase struct {
	carRepo  repository.CarRepository
	userRepo repository.UserRepository
	events   *Dispatcher
	now      func() time.Time
}

func NewCarUseCase(carRepo repository.CarRepository, userRepo repository.UserRepository, events *Dispatcher) *CarUseCase {
	return &CarUseCase{
		carRepo:  carRepo,
		userRepo: userRepo,
		events:   events,
		now:      time.Now,
	}
}

type CreateCarInput struct {
	Make         string
	Model        string
	Trim         string
	Year         int
	Mileage      int
	FuelType     string
	Transmission string
	Description  string
	Images       []string
	Financial    entity.Financial
	Location     *entity.GeoPoint
}

type CarStatusPayload struct {
	CarID  string `json:"car_id"`
	Status string `json:"status"`
}

func (uc *CarUseCase) CreateCar(ctx context.Context, ownerID string, input CreateCarInput) (*entity.Car, error) {
	if strings.TrimSpace(input.Make) == "" || strings.TrimSpace(input.Model) == "" {
		return nil, errors.Validation("make and model are required")
	}
	if len(input.Images) < minCarImages || len(input.Images) > maxCarImages {
		return nil, errors.Validation("A car needs between 1 and 10 images")
	}

	owner, err := loadCaller(ctx, uc.userRepo, ownerID)
	if err != nil {
		return nil, err
	}
	if err := AssertNotBlocked(owner); err != nil {
		return nil, err
	}

	financial := input.Financial
	if financial.SellerType == "" {
		financial.SellerType = owner.SellerType
	}

	now := uc.now()
	car := &entity.Car{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Make:         strings.TrimSpace(input.Make),
		Model:        strings.TrimSpace(input.Model),
		Trim:         input.Trim,
		Year:         input.Year,
		Mileage:      input.Mileage,
		FuelType:     input.FuelType,
		Transmission: input.Transmission,
		Description:  input.Description,
		Images:       input.Images,
		Financial:    financial,
		Status:       entity.CarStatusPending,
		Location:     input.Location,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.carRepo.Create(ctx, car); err != nil {
		log.Printf("CreateCar Error: owner %s: %v", ownerID, err)
		return nil, err
	}
	return car, nil
}

// GetCar hides cars under moderation from everyone but the owner and admins.
func (uc *CarUseCase) GetCar(ctx context.Context, viewer *entity.User, carID string) (*entity.Car, error) {
	car, err := uc.carRepo.GetByID(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Status != entity.CarStatusApproved {
		if viewer == nil {
			return nil, errors.NotFound("Car", nil)
		}
		if err := AssertOwnerOrAdmin(car.OwnerID, viewer); err != nil {
			return nil, errors.NotFound("Car", nil)
		}
	}
	return car, nil
}

func (uc *CarUseCase) ListMyCars(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Car, int64, error) {
	return uc.carRepo.ListByOwner(ctx, ownerID, limit, offset)
}

// UpdateStatus moderates a car and tells its owner.
func (uc *CarUseCase) UpdateStatus(ctx context.Context, carID, status string) (*entity.Car, error) {
	switch status {
	case entity.CarStatusPending, entity.CarStatusApproved, entity.CarStatusRejected:
	default:
		return nil, errors.Validation("status must be Pending, Approved or Rejected")
	}

	car, err := uc.carRepo.UpdateStatus(ctx, carID, status)
	if err != nil {
		return nil, err
	}

	payload := CarStatusPayload{CarID: car.ID, Status: car.Status}
	uc.events.Notify(car.OwnerID, EventCarStatusUpdate, payload)
	uc.events.Publish(ctx, RoutingCarStatusUpdated, payload)
	return car, nil
}
