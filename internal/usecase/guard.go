package usecase

import (
	"context"
	"log"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

func AssertNotBlocked(user *entity.User) error {
	if user.Blocked {
		return errors.Forbidden("User is blocked", nil)
	}
	return nil
}

func AssertOwnerOrAdmin(ownerID string, user *entity.User) error {
	if user.ID == ownerID || user.IsAdmin() {
		return nil
	}
	return errors.Forbidden("You do not have permission to access this resource", nil)
}

// loadCaller fetches the acting user. A caller without a user record is
// treated as unauthenticated.
func loadCaller(ctx context.Context, userRepo repository.UserRepository, userID string) (*entity.User, error) {
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.Unauthorized("User record not found", err)
		}
		return nil, err
	}
	return user, nil
}

// activeCaller loads the acting user and rejects blocked accounts.
func activeCaller(ctx context.Context, userRepo repository.UserRepository, userID string) (*entity.User, error) {
	user, err := loadCaller(ctx, userRepo, userID)
	if err != nil {
		return nil, err
	}
	if err := AssertNotBlocked(user); err != nil {
		log.Printf("Blocked user %s attempted a mutation", userID)
		return nil, err
	}
	return user, nil
}
