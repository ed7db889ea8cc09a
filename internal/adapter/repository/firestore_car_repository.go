package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type firestoreCarRepository struct {
	client *firestore.Client
}

func NewFirestoreCarRepository(client *firestore.Client) repository.CarRepository {
	return &firestoreCarRepository{
		client: client,
	}
}

func (r *firestoreCarRepository) Create(ctx context.Context, car *entity.Car) error {
	if car.ID == "" {
		car.ID = uuid.New().String()
	}

	now := time.Now()
	car.CreatedAt = now
	car.UpdatedAt = now

	_, err := r.client.Collection(colCars).Doc(car.ID).Set(ctx, car)
	if err != nil {
		return errors.Internal("Failed to create car", err)
	}
	return nil
}

func (r *firestoreCarRepository) GetByID(ctx context.Context, id string) (*entity.Car, error) {
	doc, err := r.client.Collection(colCars).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Car", err)
		}
		return nil, errors.Internal("Failed to get car", err)
	}

	var car entity.Car
	if err := doc.DataTo(&car); err != nil {
		return nil, errors.Internal("Failed to parse car data", err)
	}
	return &car, nil
}

func (r *firestoreCarRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Car, int64, error) {
	query := r.client.Collection(colCars).Where("ownerId", "==", ownerID).OrderBy("createdAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to list cars", err)
	}

	cars, err := decodeAll[entity.Car](window(docs, limit, offset))
	if err != nil {
		return nil, 0, errors.Internal("Failed to parse car data", err)
	}
	return cars, int64(len(docs)), nil
}

func (r *firestoreCarRepository) UpdateStatus(ctx context.Context, id, status string) (*entity.Car, error) {
	_, err := r.client.Collection(colCars).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Car", err)
		}
		return nil, errors.Internal("Failed to update car status", err)
	}
	return r.GetByID(ctx, id)
}
