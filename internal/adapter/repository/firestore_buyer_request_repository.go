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

type firestoreBuyerRequestRepository struct {
	client *firestore.Client
}

func NewFirestoreBuyerRequestRepository(client *firestore.Client) repository.BuyerRequestRepository {
	return &firestoreBuyerRequestRepository{
		client: client,
	}
}

func (r *firestoreBuyerRequestRepository) Create(ctx context.Context, request *entity.BuyerRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.UpdatedAt = request.CreatedAt

	_, err := r.client.Collection(colBuyerRequests).Doc(request.ID).Set(ctx, request)
	if err != nil {
		return errors.Internal("Failed to create buyer request", err)
	}
	return nil
}

func (r *firestoreBuyerRequestRepository) GetByID(ctx context.Context, id string) (*entity.BuyerRequest, error) {
	doc, err := r.client.Collection(colBuyerRequests).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Buyer request", err)
		}
		return nil, errors.Internal("Failed to get buyer request", err)
	}

	var request entity.BuyerRequest
	if err := doc.DataTo(&request); err != nil {
		return nil, errors.Internal("Failed to parse buyer request data", err)
	}
	return &request, nil
}

func (r *firestoreBuyerRequestRepository) ListActive(ctx context.Context, filter repository.BuyerRequestFilter, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	query := r.client.Collection(colBuyerRequests).Where("status", "==", entity.RequestStatusActive)
	if filter.Make != "" {
		query = query.Where("make", "==", filter.Make)
	}
	if filter.Model != "" {
		query = query.Where("model", "==", filter.Model)
	}

	return r.list(ctx, query.OrderBy("createdAt", firestore.Desc), limit, offset)
}

func (r *firestoreBuyerRequestRepository) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	query := r.client.Collection(colBuyerRequests).Where("buyerId", "==", buyerID).OrderBy("createdAt", firestore.Desc)
	return r.list(ctx, query, limit, offset)
}

func (r *firestoreBuyerRequestRepository) list(ctx context.Context, query firestore.Query, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to list buyer requests", err)
	}

	requests, err := decodeAll[entity.BuyerRequest](window(docs, limit, offset))
	if err != nil {
		return nil, 0, errors.Internal("Failed to parse buyer request data", err)
	}
	return requests, int64(len(docs)), nil
}

func (r *firestoreBuyerRequestRepository) Update(ctx context.Context, request *entity.BuyerRequest) error {
	ref := r.client.Collection(colBuyerRequests).Doc(request.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := getRequest(tx, ref)
		if err != nil {
			return err
		}
		if current.Status != entity.RequestStatusActive {
			return repository.ErrRequestNotOpen()
		}

		request.UpdatedAt = time.Now()
		if err := tx.Update(ref, []firestore.Update{
			{Path: "title", Value: request.Title},
			{Path: "description", Value: request.Description},
			{Path: "make", Value: request.Make},
			{Path: "model", Value: request.Model},
			{Path: "type", Value: request.Type},
			{Path: "budgetMin", Value: request.BudgetMin},
			{Path: "budgetMax", Value: request.BudgetMax},
			{Path: "preferredCondition", Value: request.PreferredCondition},
			{Path: "location", Value: request.Location},
			{Path: "expiryDate", Value: request.ExpiryDate},
			{Path: "updatedAt", Value: request.UpdatedAt},
		}); err != nil {
			return err
		}

		request.BuyerID = current.BuyerID
		request.Status = current.Status
		request.OfferCount = current.OfferCount
		request.CreatedAt = current.CreatedAt
		return nil
	})
	if err != nil {
		return txError("update buyer request", err)
	}
	return nil
}

func (r *firestoreBuyerRequestRepository) Cancel(ctx context.Context, id string, now time.Time) (*entity.BuyerRequest, []*entity.SellerOffer, error) {
	ref := r.client.Collection(colBuyerRequests).Doc(id)

	var (
		cancelled *entity.BuyerRequest
		rejected  []*entity.SellerOffer
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		request, err := getRequest(tx, ref)
		if err != nil {
			return err
		}
		pending, err := r.pendingOffers(tx, id)
		if err != nil {
			return err
		}

		if request.Status == entity.RequestStatusFulfilled || request.AcceptedOfferID != "" {
			return repository.ErrNegotiationFulfilled()
		}
		if request.Status != entity.RequestStatusActive {
			return repository.ErrRequestNotOpen()
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: entity.RequestStatusCancelled},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		request.Status = entity.RequestStatusCancelled
		request.UpdatedAt = now
		cancelled = request

		rejected, err = closeOffers(tx, r.client, pending, entity.OfferStatusRejected, entity.ReasonRequestCancelled, now)
		return err
	})
	if err != nil {
		return nil, nil, txError("cancel buyer request", err)
	}
	return cancelled, rejected, nil
}

func (r *firestoreBuyerRequestRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.BuyerRequest, error) {
	query := r.client.Collection(colBuyerRequests).
		Where("status", "==", entity.RequestStatusActive).
		Where("expiryDate", "<=", now)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list expired buyer requests", err)
	}

	requests, err := decodeAll[entity.BuyerRequest](docs)
	if err != nil {
		return nil, errors.Internal("Failed to parse buyer request data", err)
	}
	return requests, nil
}

func (r *firestoreBuyerRequestRepository) Expire(ctx context.Context, id string, now time.Time) ([]*entity.SellerOffer, error) {
	ref := r.client.Collection(colBuyerRequests).Doc(id)

	var expired []*entity.SellerOffer
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		request, err := getRequest(tx, ref)
		if err != nil {
			return err
		}
		pending, err := r.pendingOffers(tx, id)
		if err != nil {
			return err
		}

		if request.Status != entity.RequestStatusActive || request.ExpiryDate.After(now) {
			return repository.ErrRequestNotOpen()
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: entity.RequestStatusExpired},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}

		expired, err = closeOffers(tx, r.client, pending, entity.OfferStatusExpired, entity.ReasonExpired, now)
		return err
	})
	if err != nil {
		return nil, txError("expire buyer request", err)
	}
	return expired, nil
}

func (r *firestoreBuyerRequestRepository) pendingOffers(tx *firestore.Transaction, requestID string) ([]*firestore.DocumentSnapshot, error) {
	query := r.client.Collection(colSellerOffers).
		Where("requestId", "==", requestID).
		Where("status", "==", entity.OfferStatusPending)
	return tx.Documents(query).GetAll()
}

func getRequest(tx *firestore.Transaction, ref *firestore.DocumentRef) (*entity.BuyerRequest, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Buyer request", err)
		}
		return nil, err
	}

	var request entity.BuyerRequest
	if err := doc.DataTo(&request); err != nil {
		return nil, err
	}
	return &request, nil
}

// closeOffers ends the given pending offers inside tx and frees their slots.
// All reads of the transaction must happen before it is called.
func closeOffers(tx *firestore.Transaction, client *firestore.Client, docs []*firestore.DocumentSnapshot, status, reason string, now time.Time) ([]*entity.SellerOffer, error) {
	closed := make([]*entity.SellerOffer, 0, len(docs))
	for _, doc := range docs {
		var offer entity.SellerOffer
		if err := doc.DataTo(&offer); err != nil {
			return nil, err
		}

		if err := tx.Update(doc.Ref, []firestore.Update{
			{Path: "status", Value: status},
			{Path: "statusReason", Value: reason},
			{Path: "activeSlot", Value: false},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return nil, err
		}
		if err := tx.Delete(client.Collection(colOfferSlots).Doc(entity.SlotKey(offer.RequestID, offer.SellerID))); err != nil {
			return nil, err
		}

		offer.Status = status
		offer.StatusReason = reason
		offer.ActiveSlot = false
		offer.UpdatedAt = now
		closed = append(closed, &offer)
	}
	return closed, nil
}
