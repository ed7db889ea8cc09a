package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type carRepository struct {
	store *Store
}

func NewCarRepository(store *Store) repository.CarRepository {
	return &carRepository{store: store}
}

func (r *carRepository) Create(ctx context.Context, car *entity.Car) error {
	if car.ID == "" {
		car.ID = uuid.New().String()
	}

	now := time.Now()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.cars[car.ID] = cloneCar(car)
	return nil
}

func (r *carRepository) GetByID(ctx context.Context, id string) (*entity.Car, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	car, ok := r.store.cars[id]
	if !ok {
		return nil, errors.NotFound("Car", nil)
	}
	return cloneCar(car), nil
}

func (r *carRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Car, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var cars []*entity.Car
	for _, car := range r.store.cars {
		if car.OwnerID == ownerID {
			cars = append(cars, cloneCar(car))
		}
	}
	newestFirst(cars, func(c *entity.Car) time.Time { return c.CreatedAt })

	return paginate(cars, limit, offset), int64(len(cars)), nil
}

func (r *carRepository) UpdateStatus(ctx context.Context, id, status string) (*entity.Car, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	car, ok := r.store.cars[id]
	if !ok {
		return nil, errors.NotFound("Car", nil)
	}

	car.Status = status
	car.UpdatedAt = time.Now()
	return cloneCar(car), nil
}
