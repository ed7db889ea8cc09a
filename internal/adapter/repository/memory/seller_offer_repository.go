package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type sellerOfferRepository struct {
	store *Store
}

func NewSellerOfferRepository(store *Store) repository.SellerOfferRepository {
	return &sellerOfferRepository{store: store}
}

func (r *sellerOfferRepository) Create(ctx context.Context, offer *entity.SellerOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	offer.UpdatedAt = offer.CreatedAt

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.requests[offer.RequestID]
	if !ok {
		return errors.NotFound("Buyer request", nil)
	}
	if !request.IsOpen(offer.CreatedAt) {
		return repository.ErrRequestNotOpen()
	}

	key := entity.SlotKey(offer.RequestID, offer.SellerID)
	if _, taken := r.store.slots[key]; taken {
		return repository.ErrDuplicateOffer()
	}

	offer.Status = entity.OfferStatusPending
	offer.ActiveSlot = true

	r.store.offers[offer.ID] = cloneOffer(offer)
	r.store.slots[key] = offer.ID
	request.OfferCount++
	request.UpdatedAt = offer.CreatedAt
	return nil
}

func (r *sellerOfferRepository) GetByID(ctx context.Context, id string) (*entity.SellerOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	offer, ok := r.store.offers[id]
	if !ok {
		return nil, errors.NotFound("Seller offer", nil)
	}
	return cloneOffer(offer), nil
}

func (r *sellerOfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.SellerOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	offers := []*entity.SellerOffer{}
	for _, offer := range r.store.offers {
		if offer.RequestID == requestID {
			offers = append(offers, cloneOffer(offer))
		}
	}
	newestFirst(offers, func(o *entity.SellerOffer) time.Time { return o.CreatedAt })
	return offers, nil
}

func (r *sellerOfferRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.SellerOffer, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var offers []*entity.SellerOffer
	for _, offer := range r.store.offers {
		if offer.SellerID == sellerID {
			offers = append(offers, cloneOffer(offer))
		}
	}
	newestFirst(offers, func(o *entity.SellerOffer) time.Time { return o.CreatedAt })

	return paginate(offers, limit, offset), int64(len(offers)), nil
}

func (r *sellerOfferRepository) FindLive(ctx context.Context, requestID, sellerID string) (*entity.SellerOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.slots[entity.SlotKey(requestID, sellerID)]
	if !ok {
		return nil, errors.NotFound("Seller offer", nil)
	}
	return cloneOffer(r.store.offers[id]), nil
}

func (r *sellerOfferRepository) Accept(ctx context.Context, offerID string, now time.Time) (*repository.AcceptResult, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	offer, ok := r.store.offers[offerID]
	if !ok {
		return nil, errors.NotFound("Seller offer", nil)
	}
	request, ok := r.store.requests[offer.RequestID]
	if !ok {
		return nil, errors.NotFound("Buyer request", nil)
	}
	if !offer.IsPending() {
		return nil, repository.ErrOfferNotPending()
	}
	if request.Status != entity.RequestStatusActive {
		return nil, repository.ErrRequestNotOpen()
	}

	request.Status = entity.RequestStatusFulfilled
	request.AcceptedOfferID = offer.ID
	request.UpdatedAt = now

	offer.Status = entity.OfferStatusAccepted
	offer.StatusReason = ""
	offer.UpdatedAt = now

	var outbid []*entity.SellerOffer
	for _, sibling := range r.store.offers {
		if sibling.RequestID != request.ID || sibling.ID == offer.ID || !sibling.IsPending() {
			continue
		}
		r.store.closeOffer(sibling, entity.OfferStatusRejected, entity.ReasonOutbid, now)
		outbid = append(outbid, cloneOffer(sibling))
	}

	return &repository.AcceptResult{
		Offer:   cloneOffer(offer),
		Request: cloneRequest(request),
		Outbid:  outbid,
	}, nil
}

func (r *sellerOfferRepository) Reject(ctx context.Context, offerID, reason string, now time.Time) (*entity.SellerOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	offer, ok := r.store.offers[offerID]
	if !ok {
		return nil, errors.NotFound("Seller offer", nil)
	}
	if !offer.IsPending() {
		return nil, repository.ErrOfferNotPending()
	}

	r.store.closeOffer(offer, entity.OfferStatusRejected, reason, now)
	return cloneOffer(offer), nil
}

func (r *sellerOfferRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.SellerOffer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var offers []*entity.SellerOffer
	for _, offer := range r.store.offers {
		if offer.IsPending() && overdue(offer.ExpiryDate, now) {
			offers = append(offers, cloneOffer(offer))
		}
	}
	return paginate(offers, limit, 0), nil
}

func (r *sellerOfferRepository) Expire(ctx context.Context, offerID string, now time.Time) (*entity.SellerOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	offer, ok := r.store.offers[offerID]
	if !ok {
		return nil, errors.NotFound("Seller offer", nil)
	}
	if !offer.IsPending() || !overdue(offer.ExpiryDate, now) {
		return nil, repository.ErrOfferNotPending()
	}

	r.store.closeOffer(offer, entity.OfferStatusExpired, entity.ReasonExpired, now)
	return cloneOffer(offer), nil
}
