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

type firestoreSellerOfferRepository struct {
	client *firestore.Client
}

func NewFirestoreSellerOfferRepository(client *firestore.Client) repository.SellerOfferRepository {
	return &firestoreSellerOfferRepository{
		client: client,
	}
}

// Create reserves the offer slot of (request, seller) and stores the offer in
// one transaction. The request document is written too, so a concurrent
// accept on the same request aborts one of the two transactions.
func (r *firestoreSellerOfferRepository) Create(ctx context.Context, offer *entity.SellerOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	offer.UpdatedAt = offer.CreatedAt
	offer.Status = entity.OfferStatusPending
	offer.ActiveSlot = true

	requestRef := r.client.Collection(colBuyerRequests).Doc(offer.RequestID)
	slotRef := r.client.Collection(colOfferSlots).Doc(entity.SlotKey(offer.RequestID, offer.SellerID))
	offerRef := r.client.Collection(colSellerOffers).Doc(offer.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		request, err := getRequest(tx, requestRef)
		if err != nil {
			return err
		}

		slot, err := tx.Get(slotRef)
		if err != nil && !isNotFound(err) {
			return err
		}

		if !request.IsOpen(offer.CreatedAt) {
			return repository.ErrRequestNotOpen()
		}
		if slot != nil && slot.Exists() {
			return repository.ErrDuplicateOffer()
		}

		if err := tx.Create(slotRef, map[string]interface{}{
			"offerId":   offer.ID,
			"requestId": offer.RequestID,
			"sellerId":  offer.SellerID,
			"createdAt": offer.CreatedAt,
		}); err != nil {
			return err
		}
		if err := tx.Create(offerRef, offer); err != nil {
			return err
		}
		return tx.Update(requestRef, []firestore.Update{
			{Path: "offerCount", Value: firestore.Increment(1)},
			{Path: "updatedAt", Value: offer.CreatedAt},
		})
	})
	if err != nil {
		return txError("create seller offer", err)
	}
	return nil
}

func (r *firestoreSellerOfferRepository) GetByID(ctx context.Context, id string) (*entity.SellerOffer, error) {
	doc, err := r.client.Collection(colSellerOffers).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Seller offer", err)
		}
		return nil, errors.Internal("Failed to get seller offer", err)
	}

	var offer entity.SellerOffer
	if err := doc.DataTo(&offer); err != nil {
		return nil, errors.Internal("Failed to parse seller offer data", err)
	}
	return &offer, nil
}

func (r *firestoreSellerOfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.SellerOffer, error) {
	query := r.client.Collection(colSellerOffers).Where("requestId", "==", requestID).OrderBy("createdAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list seller offers", err)
	}

	offers, err := decodeAll[entity.SellerOffer](docs)
	if err != nil {
		return nil, errors.Internal("Failed to parse seller offer data", err)
	}
	return offers, nil
}

func (r *firestoreSellerOfferRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.SellerOffer, int64, error) {
	query := r.client.Collection(colSellerOffers).Where("sellerId", "==", sellerID).OrderBy("createdAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to list seller offers", err)
	}

	offers, err := decodeAll[entity.SellerOffer](window(docs, limit, offset))
	if err != nil {
		return nil, 0, errors.Internal("Failed to parse seller offer data", err)
	}
	return offers, int64(len(docs)), nil
}

func (r *firestoreSellerOfferRepository) FindLive(ctx context.Context, requestID, sellerID string) (*entity.SellerOffer, error) {
	doc, err := r.client.Collection(colOfferSlots).Doc(entity.SlotKey(requestID, sellerID)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Seller offer", err)
		}
		return nil, errors.Internal("Failed to get offer slot", err)
	}

	offerID, ok := doc.Data()["offerId"].(string)
	if !ok {
		return nil, errors.Internal("Offer slot has no offer id", nil)
	}
	return r.GetByID(ctx, offerID)
}

// Accept performs the accept cascade in a single transaction. The request
// status compare-and-set is the serialisation point between competing accepts.
func (r *firestoreSellerOfferRepository) Accept(ctx context.Context, offerID string, now time.Time) (*repository.AcceptResult, error) {
	offerRef := r.client.Collection(colSellerOffers).Doc(offerID)

	var result *repository.AcceptResult
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		offer, err := getOffer(tx, offerRef)
		if err != nil {
			return err
		}

		requestRef := r.client.Collection(colBuyerRequests).Doc(offer.RequestID)
		request, err := getRequest(tx, requestRef)
		if err != nil {
			return err
		}

		siblings, err := tx.Documents(r.client.Collection(colSellerOffers).
			Where("requestId", "==", offer.RequestID).
			Where("status", "==", entity.OfferStatusPending)).GetAll()
		if err != nil {
			return err
		}

		if !offer.IsPending() {
			return repository.ErrOfferNotPending()
		}
		if request.Status != entity.RequestStatusActive {
			return repository.ErrRequestNotOpen()
		}

		if err := tx.Update(requestRef, []firestore.Update{
			{Path: "status", Value: entity.RequestStatusFulfilled},
			{Path: "acceptedOfferId", Value: offer.ID},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}
		if err := tx.Update(offerRef, []firestore.Update{
			{Path: "status", Value: entity.OfferStatusAccepted},
			{Path: "updatedAt", Value: now},
		}); err != nil {
			return err
		}

		others := make([]*firestore.DocumentSnapshot, 0, len(siblings))
		for _, doc := range siblings {
			if doc.Ref.ID != offer.ID {
				others = append(others, doc)
			}
		}
		outbid, err := closeOffers(tx, r.client, others, entity.OfferStatusRejected, entity.ReasonOutbid, now)
		if err != nil {
			return err
		}

		request.Status = entity.RequestStatusFulfilled
		request.AcceptedOfferID = offer.ID
		request.UpdatedAt = now
		offer.Status = entity.OfferStatusAccepted
		offer.UpdatedAt = now

		result = &repository.AcceptResult{Offer: offer, Request: request, Outbid: outbid}
		return nil
	})
	if err != nil {
		return nil, txError("accept seller offer", err)
	}
	return result, nil
}

func (r *firestoreSellerOfferRepository) Reject(ctx context.Context, offerID, reason string, now time.Time) (*entity.SellerOffer, error) {
	return r.close(ctx, offerID, entity.OfferStatusRejected, reason, now, func(o *entity.SellerOffer) bool {
		return o.IsPending()
	})
}

func (r *firestoreSellerOfferRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.SellerOffer, error) {
	query := r.client.Collection(colSellerOffers).
		Where("status", "==", entity.OfferStatusPending).
		Where("expiryDate", "<=", now)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to list expired seller offers", err)
	}

	offers, err := decodeAll[entity.SellerOffer](docs)
	if err != nil {
		return nil, errors.Internal("Failed to parse seller offer data", err)
	}
	return offers, nil
}

func (r *firestoreSellerOfferRepository) Expire(ctx context.Context, offerID string, now time.Time) (*entity.SellerOffer, error) {
	return r.close(ctx, offerID, entity.OfferStatusExpired, entity.ReasonExpired, now, func(o *entity.SellerOffer) bool {
		return o.IsPending() && !o.ExpiryDate.After(now)
	})
}

func (r *firestoreSellerOfferRepository) close(ctx context.Context, offerID, status, reason string, now time.Time, allowed func(*entity.SellerOffer) bool) (*entity.SellerOffer, error) {
	offerRef := r.client.Collection(colSellerOffers).Doc(offerID)

	var closed *entity.SellerOffer
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(offerRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Seller offer", err)
			}
			return err
		}

		var offer entity.SellerOffer
		if err := doc.DataTo(&offer); err != nil {
			return err
		}
		if !allowed(&offer) {
			return repository.ErrOfferNotPending()
		}

		offers, err := closeOffers(tx, r.client, []*firestore.DocumentSnapshot{doc}, status, reason, now)
		if err != nil {
			return err
		}
		closed = offers[0]
		return nil
	})
	if err != nil {
		return nil, txError("close seller offer", err)
	}
	return closed, nil
}

func getOffer(tx *firestore.Transaction, ref *firestore.DocumentRef) (*entity.SellerOffer, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Seller offer", err)
		}
		return nil, err
	}

	var offer entity.SellerOffer
	if err := doc.DataTo(&offer); err != nil {
		return nil, err
	}
	return &offer, nil
}
