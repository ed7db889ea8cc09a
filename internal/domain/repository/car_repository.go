package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type CarRepository interface {
	Create(ctx context.Context, car *entity.Car) error
	GetByID(ctx context.Context, id string) (*entity.Car, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Car, int64, error)
	UpdateStatus(ctx context.Context, id, status string) (*entity.Car, error)
}
