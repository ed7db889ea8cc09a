package mongodb

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Connect opens a client and pings the primary. Transactions need a replica
// set or sharded cluster deployment.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Printf("Connected to MongoDB")
	return client, nil
}

// EnsureIndexes creates the indexes the store constraints depend on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"seller_offers": {
			{
				// One live offer per seller and request.
				Keys: bson.D{{Key: "requestId", Value: 1}, {Key: "sellerId", Value: 1}},
				Options: options.Index().
					SetName("uniq_live_offer_per_seller").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"activeSlot": true}),
			},
			{Keys: bson.D{{Key: "requestId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "sellerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiryDate", Value: 1}}},
		},
		"buyer_requests": {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "buyerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiryDate", Value: 1}}},
		},
		"chats": {
			{
				Keys:    bson.D{{Key: "participantKey", Value: 1}, {Key: "carId", Value: 1}},
				Options: options.Index().SetName("uniq_chat_per_car_pair").SetUnique(true),
			},
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		"messages": {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"cars": {
			{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", collection, err)
		}
	}
	return nil
}
