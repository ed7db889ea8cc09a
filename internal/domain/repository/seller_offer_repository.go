package repository

import (
	"context"
	"time"

	"carmarket/internal/domain/entity"
)

// AcceptResult is the outcome of the accept cascade.
type AcceptResult struct {
	Offer   *entity.SellerOffer
	Request *entity.BuyerRequest
	Outbid  []*entity.SellerOffer
}

type SellerOfferRepository interface {
	// Create stores a Pending offer. It fails with Conflict when the parent
	// request is not open or the seller already holds a live offer on it.
	Create(ctx context.Context, offer *entity.SellerOffer) error
	GetByID(ctx context.Context, id string) (*entity.SellerOffer, error)
	ListByRequest(ctx context.Context, requestID string) ([]*entity.SellerOffer, error)
	ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.SellerOffer, int64, error)
	FindLive(ctx context.Context, requestID, sellerID string) (*entity.SellerOffer, error)

	// Accept runs the accept cascade atomically: request Active->Fulfilled,
	// offer Pending->Accepted, every other pending sibling->Rejected (outbid).
	Accept(ctx context.Context, offerID string, now time.Time) (*AcceptResult, error)

	// Reject moves a Pending offer to Rejected with the given reason.
	Reject(ctx context.Context, offerID, reason string, now time.Time) (*entity.SellerOffer, error)

	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.SellerOffer, error)
	Expire(ctx context.Context, offerID string, now time.Time) (*entity.SellerOffer, error)
}
