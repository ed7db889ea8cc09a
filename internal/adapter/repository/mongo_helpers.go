package repository

import (
	"context"
	stderrors "errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"carmarket/internal/domain/entity"
	"carmarket/pkg/errors"
)

// withTransaction runs fn inside a session transaction. Errors returned by fn
// abort the transaction and are handed back unchanged.
func withTransaction(ctx context.Context, db *mongo.Database, fn func(ctx context.Context) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func findByID[T any](ctx context.Context, col *mongo.Collection, id, resource string) (*T, error) {
	var item T
	err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.NotFound(resource, err)
		}
		return nil, err
	}
	return &item, nil
}

func findAll[T any](ctx context.Context, col *mongo.Collection, filter any, opts ...options.Lister[options.FindOptions]) ([]*T, error) {
	cursor, err := col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := []*T{}
	for cursor.Next(ctx) {
		var item T
		if err := cursor.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, cursor.Err()
}

// findPage returns one page of filter ordered by sortField descending, plus the total count.
func findPage[T any](ctx context.Context, col *mongo.Collection, filter bson.M, sortField string, limit, offset int) ([]*T, int64, error) {
	total, err := col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	items, err := findAll[T](ctx, col, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// closePendingOffers ends every offer matching filter that is still Pending
// and frees its slot. Must run inside a transaction.
func closePendingOffers(ctx context.Context, offers *mongo.Collection, filter bson.M, status, reason string, now time.Time) ([]*entity.SellerOffer, error) {
	filter["status"] = entity.OfferStatusPending

	closed, err := findAll[entity.SellerOffer](ctx, offers, filter)
	if err != nil {
		return nil, err
	}
	if len(closed) == 0 {
		return closed, nil
	}

	_, err = offers.UpdateMany(ctx, filter, bson.M{"$set": bson.M{
		"status":       status,
		"statusReason": reason,
		"activeSlot":   false,
		"updatedAt":    now,
	}})
	if err != nil {
		return nil, err
	}

	for _, offer := range closed {
		offer.Status = status
		offer.StatusReason = reason
		offer.ActiveSlot = false
		offer.UpdatedAt = now
	}
	return closed, nil
}
