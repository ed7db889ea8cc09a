package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmarket/internal/adapter/repository/memory"
	"carmarket/internal/domain/entity"
	"carmarket/internal/mocks"
	"carmarket/pkg/errors"
)

func TestCarLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	owner := &entity.User{ID: "owner", Email: "owner@example.com", Role: entity.RoleUser, SellerType: entity.SellerTypeCompany, Brands: []string{"Audi"}}
	admin := &entity.User{ID: "admin", Email: "admin@example.com", Role: entity.RoleAdmin, SellerType: entity.SellerTypePrivate}
	stranger := &entity.User{ID: "stranger", Email: "s@example.com", Role: entity.RoleUser, SellerType: entity.SellerTypePrivate}
	for _, u := range []*entity.User{owner, admin, stranger} {
		require.NoError(t, users.Create(ctx, u))
	}

	notifier := &mocks.NotifierMock{}
	publisher := &mocks.PublisherMock{}
	uc := NewCarUseCase(memory.NewCarRepository(store), users, NewDispatcher(notifier, publisher, "carmarket-test"))

	_, err := uc.CreateCar(ctx, "owner", CreateCarInput{Make: "Audi", Model: "A4"})
	assertCode(t, err, errors.CodeValidation)

	car, err := uc.CreateCar(ctx, "owner", CreateCarInput{
		Make:   "Audi",
		Model:  "A4",
		Year:   2019,
		Images: []string{"https://img.example.com/a4.jpg"},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.CarStatusPending, car.Status)
	assert.Equal(t, entity.SellerTypeCompany, car.Financial.SellerType)

	_, err = uc.GetCar(ctx, stranger, car.ID)
	assertCode(t, err, errors.CodeNotFound)
	_, err = uc.GetCar(ctx, owner, car.ID)
	require.NoError(t, err)

	_, err = uc.UpdateStatus(ctx, car.ID, "Sold")
	assertCode(t, err, errors.CodeValidation)

	notifier.On("Notify", "owner", EventCarStatusUpdate, CarStatusPayload{CarID: car.ID, Status: entity.CarStatusApproved}).Return().Once()
	publisher.On("Publish", mock.Anything, RoutingCarStatusUpdated, mock.Anything).Return(nil).Once()

	approved, err := uc.UpdateStatus(ctx, car.ID, entity.CarStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, entity.CarStatusApproved, approved.Status)
	notifier.AssertExpectations(t)
	publisher.AssertExpectations(t)

	visible, err := uc.GetCar(ctx, stranger, car.ID)
	require.NoError(t, err)
	assert.Equal(t, car.ID, visible.ID)

	cars, total, err := uc.ListMyCars(ctx, "owner", 10, 0)
	require.NoError(t, err)
	assert.Len(t, cars, 1)
	assert.Equal(t, int64(1), total)
}
