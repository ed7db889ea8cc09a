package repository

import (
	"context"
	"time"

	"carmarket/internal/domain/entity"
)

type BuyerRequestFilter struct {
	Make  string
	Model string
}

type BuyerRequestRepository interface {
	Create(ctx context.Context, request *entity.BuyerRequest) error
	GetByID(ctx context.Context, id string) (*entity.BuyerRequest, error)
	ListActive(ctx context.Context, filter BuyerRequestFilter, limit, offset int) ([]*entity.BuyerRequest, int64, error)
	ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.BuyerRequest, int64, error)

	// Update writes the editable fields while the request is still Active.
	// Returns a Conflict error when the request left Active.
	Update(ctx context.Context, request *entity.BuyerRequest) error

	// Cancel moves an Active request to Cancelled and rejects its pending
	// offers in one unit of work. Returns the rejected offers.
	Cancel(ctx context.Context, id string, now time.Time) (*entity.BuyerRequest, []*entity.SellerOffer, error)

	// ListExpired returns Active requests whose expiry date is not after now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.BuyerRequest, error)

	// Expire moves an overdue Active request to Expired together with its
	// pending offers. Returns the expired offers.
	Expire(ctx context.Context, id string, now time.Time) ([]*entity.SellerOffer, error)
}
