package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}
