package repository

import (
	stderrors "errors"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"carmarket/pkg/errors"
)

const (
	colUsers         = "users"
	colCars          = "cars"
	colBuyerRequests = "buyer_requests"
	colSellerOffers  = "seller_offers"
	colOfferSlots    = "offer_slots"
	colChats         = "chats"
	colMessages      = "messages"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// txError keeps AppErrors raised inside a transaction and wraps anything else.
func txError(op string, err error) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	log.Printf("%s Error: %v", op, err)
	return errors.Internal("Failed to "+op, err)
}

// window slices already fetched documents, the way the chat listing pages in memory.
func window(docs []*firestore.DocumentSnapshot, limit, offset int) []*firestore.DocumentSnapshot {
	if offset >= len(docs) {
		return nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

func decodeAll[T any](docs []*firestore.DocumentSnapshot) ([]*T, error) {
	items := make([]*T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.DataTo(&item); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, nil
}
