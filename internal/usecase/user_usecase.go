package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		now:      time.Now,
	}
}

type SyncUserInput struct {
	Email       string
	Phone       string
	DisplayName string
	SellerType  string
	Brands      []string
	Location    *entity.GeoPoint
}

type UpdateProfileInput struct {
	DisplayName *string
	Phone       *string
	SellerType  *string
	Brands      []string
	Location    *entity.GeoPoint
}

// SyncUser creates the user record of an identity on first sign in and
// returns the stored one afterwards. The bool reports creation.
func (uc *UserUseCase) SyncUser(ctx context.Context, uid string, input SyncUserInput) (*entity.User, bool, error) {
	if err := validateUserID(uid); err != nil {
		return nil, false, err
	}

	existing, err := uc.userRepo.GetByID(ctx, uid)
	if err == nil {
		return existing, false, nil
	}
	if !errors.IsNotFound(err) {
		return nil, false, err
	}

	sellerType := input.SellerType
	if sellerType == "" {
		sellerType = entity.SellerTypePrivate
	}

	now := uc.now()
	user := &entity.User{
		ID:          uid,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:       strings.TrimSpace(input.Phone),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        entity.RoleUser,
		SellerType:  sellerType,
		Brands:      input.Brands,
		Location:    input.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validateUser(user); err != nil {
		return nil, false, err
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent sync of the same identity.
		if errors.IsConflict(err) {
			stored, getErr := uc.userRepo.GetByID(ctx, uid)
			if getErr == nil {
				return stored, false, nil
			}
		}
		return nil, false, err
	}
	return user, true, nil
}

func (uc *UserUseCase) GetProfile(ctx context.Context, uid string) (*entity.User, error) {
	return uc.userRepo.GetByID(ctx, uid)
}

func (uc *UserUseCase) UpdateProfile(ctx context.Context, uid string, input UpdateProfileInput) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.SellerType != nil {
		user.SellerType = *input.SellerType
	}
	if input.Brands != nil {
		user.Brands = input.Brands
	}
	if input.Location != nil {
		user.Location = input.Location
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}

	user.UpdatedAt = uc.now()
	if err := uc.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetBlocked is an admin operation.
func (uc *UserUseCase) SetBlocked(ctx context.Context, adminID, userID string, blocked bool) (*entity.User, error) {
	if adminID == userID {
		return nil, errors.Validation("Admins cannot block themselves")
	}
	if err := uc.userRepo.SetBlocked(ctx, userID, blocked); err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, userID)
}

func validateUser(user *entity.User) error {
	if user.Email == "" && user.Phone == "" {
		return errors.Validation("Either email or phone is required")
	}
	switch user.SellerType {
	case entity.SellerTypePrivate:
	case entity.SellerTypeCompany:
		if len(user.Brands) == 0 {
			return errors.Validation("Company sellers must list at least one brand")
		}
	default:
		return errors.Validation("seller_type must be private or company")
	}
	return nil
}

const maxUserIDLength = 128

// validateUserID keeps ids usable as document keys and as map keys inside
// chat documents, where '.' and '$' would be read as path operators.
func validateUserID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return errors.Validation("user id is required")
	}
	if len(uid) > maxUserIDLength {
		return errors.Validation(fmt.Sprintf("user id must be at most %d characters", maxUserIDLength))
	}
	if strings.ContainsAny(uid, ".$/") {
		return errors.Validation("user id must not contain '.', '$' or '/'")
	}
	return nil
}
