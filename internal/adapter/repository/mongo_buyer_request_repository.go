package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type mongoBuyerRequestRepository struct {
	db       *mongo.Database
	requests *mongo.Collection
	offers   *mongo.Collection
}

func NewMongoBuyerRequestRepository(db *mongo.Database) repository.BuyerRequestRepository {
	return &mongoBuyerRequestRepository{
		db:       db,
		requests: db.Collection(colBuyerRequests),
		offers:   db.Collection(colSellerOffers),
	}
}

func (r *mongoBuyerRequestRepository) Create(ctx context.Context, request *entity.BuyerRequest) error {
	if request.ID == "" {
		request.ID = uuid.New().String()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now()
	}
	request.UpdatedAt = request.CreatedAt

	if _, err := r.requests.InsertOne(ctx, request); err != nil {
		return errors.Internal("Failed to create buyer request", err)
	}
	return nil
}

func (r *mongoBuyerRequestRepository) GetByID(ctx context.Context, id string) (*entity.BuyerRequest, error) {
	request, err := findByID[entity.BuyerRequest](ctx, r.requests, id, "Buyer request")
	if err != nil {
		return nil, txError("get buyer request", err)
	}
	return request, nil
}

func (r *mongoBuyerRequestRepository) ListActive(ctx context.Context, filter repository.BuyerRequestFilter, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	query := bson.M{"status": entity.RequestStatusActive}
	if filter.Make != "" {
		query["make"] = filter.Make
	}
	if filter.Model != "" {
		query["model"] = filter.Model
	}

	requests, total, err := findPage[entity.BuyerRequest](ctx, r.requests, query, "createdAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list buyer requests", err)
	}
	return requests, total, nil
}

func (r *mongoBuyerRequestRepository) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]*entity.BuyerRequest, int64, error) {
	requests, total, err := findPage[entity.BuyerRequest](ctx, r.requests, bson.M{"buyerId": buyerID}, "createdAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list buyer requests", err)
	}
	return requests, total, nil
}

func (r *mongoBuyerRequestRepository) Update(ctx context.Context, request *entity.BuyerRequest) error {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated entity.BuyerRequest
	err := r.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": request.ID, "status": entity.RequestStatusActive},
		bson.M{"$set": bson.M{
			"title":              request.Title,
			"description":        request.Description,
			"make":               request.Make,
			"model":              request.Model,
			"type":               request.Type,
			"budgetMin":          request.BudgetMin,
			"budgetMax":          request.BudgetMax,
			"preferredCondition": request.PreferredCondition,
			"location":           request.Location,
			"expiryDate":         request.ExpiryDate,
			"updatedAt":          time.Now(),
		}},
		opts,
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		if _, err := r.GetByID(ctx, request.ID); err != nil {
			return err
		}
		return repository.ErrRequestNotOpen()
	}
	if err != nil {
		return errors.Internal("Failed to update buyer request", err)
	}

	*request = updated
	return nil
}

func (r *mongoBuyerRequestRepository) Cancel(ctx context.Context, id string, now time.Time) (*entity.BuyerRequest, []*entity.SellerOffer, error) {
	var (
		cancelled *entity.BuyerRequest
		rejected  []*entity.SellerOffer
	)
	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		request, err := findByID[entity.BuyerRequest](ctx, r.requests, id, "Buyer request")
		if err != nil {
			return err
		}
		if request.Status == entity.RequestStatusFulfilled || request.AcceptedOfferID != "" {
			return repository.ErrNegotiationFulfilled()
		}

		res, err := r.requests.UpdateOne(ctx,
			bson.M{"_id": id, "status": entity.RequestStatusActive},
			bson.M{"$set": bson.M{"status": entity.RequestStatusCancelled, "updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrRequestNotOpen()
		}
		request.Status = entity.RequestStatusCancelled
		request.UpdatedAt = now
		cancelled = request

		rejected, err = closePendingOffers(ctx, r.offers, bson.M{"requestId": id}, entity.OfferStatusRejected, entity.ReasonRequestCancelled, now)
		return err
	})
	if err != nil {
		return nil, nil, txError("cancel buyer request", err)
	}
	return cancelled, rejected, nil
}

func (r *mongoBuyerRequestRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*entity.BuyerRequest, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	requests, err := findAll[entity.BuyerRequest](ctx, r.requests, bson.M{
		"status":     entity.RequestStatusActive,
		"expiryDate": bson.M{"$lte": now},
	}, opts)
	if err != nil {
		return nil, errors.Internal("Failed to list expired buyer requests", err)
	}
	return requests, nil
}

func (r *mongoBuyerRequestRepository) Expire(ctx context.Context, id string, now time.Time) ([]*entity.SellerOffer, error) {
	var expired []*entity.SellerOffer
	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		res, err := r.requests.UpdateOne(ctx,
			bson.M{"_id": id, "status": entity.RequestStatusActive, "expiryDate": bson.M{"$lte": now}},
			bson.M{"$set": bson.M{"status": entity.RequestStatusExpired, "updatedAt": now}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return repository.ErrRequestNotOpen()
		}

		expired, err = closePendingOffers(ctx, r.offers, bson.M{"requestId": id}, entity.OfferStatusExpired, entity.ReasonExpired, now)
		return err
	})
	if err != nil {
		return nil, txError("expire buyer request", err)
	}
	return expired, nil
}
