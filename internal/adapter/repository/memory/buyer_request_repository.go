package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type buyerRequestRepository struct {
	store *Store
}

func NewBuyerRequestRepository(store *Store) repository.BuyerRequestRepository {
	return &buyerRequestRepository{store: store}
}

func (r *buyerRequestRepository) Create(ctx context.Context, request *entity.BuyerRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.UpdatedAt = request.CreatedAt

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.requests[request.ID] = cloneRequest(request)
	return nil
}

func (r *buyerRequestRepository) GetByID(ctx context.Context, id string) (*entity.BuyerRequest, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	request, ok := r.store.requests[id]
	if !ok {
		return nil, errors.NotFound("Buyer request", nil)
	}
	return cloneRequest(request), nil
}

func (r *buyerRequestRepository) ListActive(ctx context.Context, filter repository.BuyerRequestFilter, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var requests []*entity.BuyerRequest
	for _, request := range r.store.requests {
		if request.Status != entity.RequestStatusActive {
			continue
		}
		if filter.Make != "" && request.Make != filter.Make {
			continue
		}
		if filter.Model != "" && request.Model != filter.Model {
			continue
		}
		requests = append(requests, cloneRequest(request))
	}
	newestFirst(requests, func(br *entity.BuyerRequest) time.Time { return br.CreatedAt })

	return paginate(requests, limit, offset), int64(len(requests)), nil
}

func (r *buyerRequestRepository) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var requests []*entity.BuyerRequest
	for _, request := range r.store.requests {
		if request.BuyerID == buyerID {
			requests = append(requests, cloneRequest(request))
		}
	}
	newestFirst(requests, func(br *entity.BuyerRequest) time.Time { return br.CreatedAt })

	return paginate(requests, limit, offset), int64(len(requests)), nil
}

func (r *buyerRequestRepository) Update(ctx context.Context, request *entity.BuyerRequest) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.requests[request.ID]
	if !ok {
		return errors.NotFound("Buyer request", nil)
	}
	if existing.Status != entity.RequestStatusActive {
		return repository.ErrRequestNotOpen()
	}

	existing.Title = request.Title
	existing.Description = request.Description
	existing.Make = request.Make
	existing.Model = request.Model
	existing.Type = request.Type
	existing.BudgetMin = request.BudgetMin
	existing.BudgetMax = request.BudgetMax
	existing.PreferredCondition = request.PreferredCondition
	existing.Location = cloneGeo(request.Location)
	existing.ExpiryDate = request.ExpiryDate
	existing.UpdatedAt = time.Now()

	*request = *cloneRequest(existing)
	return nil
}

func (r *buyerRequestRepository) Cancel(ctx context.Context, id string, now time.Time) (*entity.BuyerRequest, []*entity.SellerOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.requests[id]
	if !ok {
		return nil, nil, errors.NotFound("Buyer request", nil)
	}
	if request.Status == entity.RequestStatusFulfilled || request.AcceptedOfferID != "" {
		return nil, nil, repository.ErrNegotiationFulfilled()
	}
	if request.Status != entity.RequestStatusActive {
		return nil, nil, repository.ErrRequestNotOpen()
	}

	request.Status = entity.RequestStatusCancelled
	request.UpdatedAt = now

	rejected := r.store.closePendingOffers(id, entity.OfferStatusRejected, entity.ReasonRequestCancelled, now)
	return cloneRequest(request), rejected, nil
}

func (r *buyerRequestRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.BuyerRequest, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var requests []*entity.BuyerRequest
	for _, request := range r.store.requests {
		if request.Status == entity.RequestStatusActive && overdue(request.ExpiryDate, now) {
			requests = append(requests, cloneRequest(request))
		}
	}
	return paginate(requests, limit, 0), nil
}

func (r *buyerRequestRepository) Expire(ctx context.Context, id string, now time.Time) ([]*entity.SellerOffer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	request, ok := r.store.requests[id]
	if !ok {
		return nil, errors.NotFound("Buyer request", nil)
	}
	if request.Status != entity.RequestStatusActive || !overdue(request.ExpiryDate, now) {
		return nil, repository.ErrRequestNotOpen()
	}

	request.Status = entity.RequestStatusExpired
	request.UpdatedAt = now

	return r.store.closePendingOffers(id, entity.OfferStatusExpired, entity.ReasonExpired, now), nil
}

// closePendingOffers moves every pending offer of the request to status and
// frees their slots. Caller holds the write lock.
func (s *Store) closePendingOffers(requestID, status, reason string, now time.Time) []*entity.SellerOffer {
	var closed []*entity.SellerOffer
	for _, offer := range s.offers {
		if offer.RequestID != requestID || !offer.IsPending() {
			continue
		}
		s.closeOffer(offer, status, reason, now)
		closed = append(closed, cloneOffer(offer))
	}
	return closed
}

// closeOffer ends a pending offer. Caller holds the write lock.
func (s *Store) closeOffer(offer *entity.SellerOffer, status, reason string, now time.Time) {
	offer.Status = status
	offer.StatusReason = reason
	offer.ActiveSlot = false
	offer.UpdatedAt = now
	delete(s.slots, entity.SlotKey(offer.RequestID, offer.SellerID))
}

func overdue(expiry, now time.Time) bool {
	return !expiry.IsZero() && !now.Before(expiry)
}
