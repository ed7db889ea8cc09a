package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type mongoUserRepository struct {
	users *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) repository.UserRepository {
	return &mongoUserRepository{
		users: db.Collection(colUsers),
	}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *entity.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Conflict("user already exists")
		}
		return errors.Internal("Failed to create user", err)
	}
	return nil
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := findByID[entity.User](ctx, r.users, id, "User")
	if err != nil {
		return nil, txError("get user", err)
	}
	return user, nil
}

func (r *mongoUserRepository) Update(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = time.Now()

	res, err := r.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"email":       user.Email,
		"phone":       user.Phone,
		"displayName": user.DisplayName,
		"sellerType":  user.SellerType,
		"brands":      user.Brands,
		"location":    user.Location,
		"updatedAt":   user.UpdatedAt,
	}})
	if err != nil {
		return errors.Internal("Failed to update user", err)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("User", nil)
	}
	return nil
}

func (r *mongoUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	res, err := r.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"blocked":   blocked,
		"updatedAt": time.Now(),
	}})
	if err != nil {
		return errors.Internal("Failed to update user", err)
	}
	if res.MatchedCount == 0 {
		return errors.NotFound("User", nil)
	}
	return nil
}
