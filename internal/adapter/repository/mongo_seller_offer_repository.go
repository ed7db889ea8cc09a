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

type mongoSellerOfferRepository struct {
	db       *mongo.Database
	requests *mongo.Collection
	offers   *mongo.Collection
}

func NewMongoSellerOfferRepository(db *mongo.Database) repository.SellerOfferRepository {
	return &mongoSellerOfferRepository{
		db:       db,
		requests: db.Collection(colBuyerRequests),
		offers:   db.Collection(colSellerOffers),
	}
}

// Create relies on the partial unique index over (requestId, sellerId) for
// offers with activeSlot set. The request document is bumped inside the same
// transaction so an accept running concurrently conflicts with it.
func (r *mongoSellerOfferRepository) Create(ctx context.Context, offer *entity.SellerOffer) error {
	if offer.ID == "" {
		offer.ID = uuid.New().String()
	}
	if offer.CreatedAt.IsZero() {
		offer.CreatedAt = time.Now()
	}
	offer.UpdatedAt = offer.CreatedAt
	offer.Status = entity.OfferStatusPending
	offer.ActiveSlot = true

	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		request, err := findByID[entity.BuyerRequest](ctx, r.requests, offer.RequestID, "Buyer request")
		if err != nil {
			return err
		}
		if !request.IsOpen(offer.CreatedAt) {
			return repository.ErrRequestNotOpen()
		}

		res, err := r.requests.UpdateOne(ctx,
			bson.M{"_id": request.ID, "status": entity.RequestStatusActive},
			bson.M{
				"$inc": bson.M{"offerCount": 1},
				"$set": bson.M{"updatedAt": offer.CreatedAt},
			},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrRequestNotOpen()
		}

		if _, err := r.offers.InsertOne(ctx, offer); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrDuplicateOffer()
			}
			return err
		}
		return nil
	})
	if err != nil {
		return txError("create seller offer", err)
	}
	return nil
}

func (r *mongoSellerOfferRepository) GetByID(ctx context.Context, id string) (*entity.SellerOffer, error) {
	offer, err := findByID[entity.SellerOffer](ctx, r.offers, id, "Seller offer")
	if err != nil {
		return nil, txError("get seller offer", err)
	}
	return offer, nil
}

func (r *mongoSellerOfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*entity.SellerOffer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	offers, err := findAll[entity.SellerOffer](ctx, r.offers, bson.M{"requestId": requestID}, opts)
	if err != nil {
		return nil, errors.Internal("Failed to list seller offers", err)
	}
	return offers, nil
}

func (r *mongoSellerOfferRepository) ListBySeller(ctx context.Context, sellerID string, limit, offset int) ([]*entity.SellerOffer, int64, error) {
	offers, total, err := findPage[entity.SellerOffer](ctx, r.offers, bson.M{"sellerId": sellerID}, "createdAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list seller offers", err)
	}
	return offers, total, nil
}

func (r *mongoSellerOfferRepository) FindLive(ctx context.Context, requestID, sellerID string) (*entity.SellerOffer, error) {
	var offer entity.SellerOffer
	err := r.offers.FindOne(ctx, bson.M{
		"requestId":  requestID,
		"sellerId":   sellerID,
		"activeSlot": true,
	}).Decode(&offer)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFound("Seller offer", err)
		}
		return nil, errors.Internal("Failed to get seller offer", err)
	}
	return &offer, nil
}

func (r *mongoSellerOfferRepository) Accept(ctx context.Context, offerID string, now time.Time) (*repository.AcceptResult, error) {
	var result *repository.AcceptResult
	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		offer, err := findByID[entity.SellerOffer](ctx, r.offers, offerID, "Seller offer")
		if err != nil {
			return err
		}
		request, err := findByID[entity.BuyerRequest](ctx, r.requests, offer.RequestID, "Buyer request")
		if err != nil {
			return err
		}
		if !offer.IsPending() {
			return repository.ErrOfferNotPending()
		}

		res, err := r.requests.UpdateOne(ctx,
			bson.M{"_id": request.ID, "status": entity.RequestStatusActive},
			bson.M{"$set": bson.M{
				"status":          entity.RequestStatusFulfilled,
				"acceptedOfferId": offer.ID,
				"updatedAt":       now,
			}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrRequestNotOpen()
		}

		res, err = r.offers.UpdateOne(ctx,
			bson.M{"_id": offer.ID, "status": entity.OfferStatusPending},
			bson.M{"$set": bson.M{"status": entity.OfferStatusAccepted, "updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrOfferNotPending()
		}

		outbid, err := closePendingOffers(ctx, r.offers,
			bson.M{"requestId": request.ID, "_id": bson.M{"$ne": offer.ID}},
			entity.OfferStatusRejected, entity.ReasonOutbid, now)
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

func (r *mongoSellerOfferRepository) Reject(ctx context.Context, offerID, reason string, now time.Time) (*entity.SellerOffer, error) {
	return r.close(ctx, bson.M{"_id": offerID, "status": entity.OfferStatusPending}, entity.OfferStatusRejected, reason, now)
}

func (r *mongoSellerOfferRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.SellerOffer, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	offers, err := findAll[entity.SellerOffer](ctx, r.offers, bson.M{
		"status":     entity.OfferStatusPending,
		"expiryDate": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, errors.Internal("Failed to list expired seller offers", err)
	}
	return offers, nil
}

func (r *mongoSellerOfferRepository) Expire(ctx context.Context, offerID string, now time.Time) (*entity.SellerOffer, error) {
	filter := bson.M{
		"_id":        offerID,
		"status":     entity.OfferStatusPending,
		"expiryDate": bson.M{"$lte": now},
	}
	return r.close(ctx, filter, entity.OfferStatusExpired, entity.ReasonExpired, now)
}

// close is a single document compare-and-set on the offer status.
func (r *mongoSellerOfferRepository) close(ctx context.Context, filter bson.M, status, reason string, now time.Time) (*entity.SellerOffer, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var offer entity.SellerOffer
	err := r.offers.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{
		"status":       status,
		"statusReason": reason,
		"activeSlot":   false,
		"updatedAt":    now,
	}}, opts).Decode(&offer)
	if err == nil {
		return &offer, nil
	}
	if !stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Internal("Failed to update seller offer", err)
	}

	if _, err := r.GetByID(ctx, filter["_id"].(string)); err != nil {
		return nil, err
	}
	return nil, repository.ErrOfferNotPending()
}
