package repository

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type mongoCarRepository struct {
	cars *mongo.Collection
}

func NewMongoCarRepository(db *mongo.Database) repository.CarRepository {
	return &mongoCarRepository{
		cars: db.Collection(colCars),
	}
}

func (r *mongoCarRepository) Create(ctx context.Context, car *entity.Car) error {
	if car.ID == "" {
		car.ID = uuid.New().String()
	}

	now := time.Now()
	car.CreatedAt = now
	car.UpdatedAt = now

	if _, err := r.cars.InsertOne(ctx, car); err != nil {
		return errors.Internal("Failed to create car", err)
	}
	return nil
}

func (r *mongoCarRepository) GetByID(ctx context.Context, id string) (*entity.Car, error) {
	car, err := findByID[entity.Car](ctx, r.cars, id, "Car")
	if err != nil {
		return nil, txError("get car", err)
	}
	return car, nil
}

func (r *mongoCarRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Car, int64, error) {
	cars, total, err := findPage[entity.Car](ctx, r.cars, bson.M{"ownerId": ownerID}, "createdAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list cars", err)
	}
	return cars, total, nil
}

func (r *mongoCarRepository) UpdateStatus(ctx context.Context, id, status string) (*entity.Car, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var car entity.Car
	err := r.cars.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now(),
	}}, opts).Decode(&car)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFound("Car", err)
		}
		return nil, errors.Internal("Failed to update car status", err)
	}
	return &car, nil
}
