// Package repositorytest holds the behaviour every negotiation store must
// share, so the in-memory, Firestore and MongoDB stores run the same checks.
package repositorytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type Stores struct {
	Requests repository.BuyerRequestRepository
	Offers   repository.SellerOfferRepository
	Chats    repository.ChatRepository
}

// Factory returns empty stores. It is called once per subtest.
type Factory func(t *testing.T) Stores

// Run exercises the state machine guarantees of a store implementation.
func Run(t *testing.T, newStores Factory) {
	cases := []struct {
		name string
		fn   func(t *testing.T, s Stores)
	}{
		{"OfferSlotIsExclusivePerSeller", offerSlotIsExclusivePerSeller},
		{"AcceptCascadeRejectsSiblings", acceptCascadeRejectsSiblings},
		{"ConcurrentAcceptHasSingleWinner", concurrentAcceptHasSingleWinner},
		{"CancelRejectsPendingOffers", cancelRejectsPendingOffers},
		{"CancelFulfilledRequestConflicts", cancelFulfilledRequestConflicts},
		{"UpdateWritesEditableFields", updateWritesEditableFields},
		{"ExpireOverdueRequest", expireOverdueRequest},
		{"ChatMessagesAndUnreadCounts", chatMessagesAndUnreadCounts},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStores(t))
		})
	}
}

// Stored timestamps lose precision in some backends.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func activeRequest(t *testing.T, s Stores, at time.Time) *entity.BuyerRequest {
	t.Helper()
	request := &entity.BuyerRequest{
		BuyerID:    "buyer",
		Title:      "Looking for a wagon",
		BudgetMax:  20000,
		Status:     entity.RequestStatusActive,
		ExpiryDate: at.Add(30 * 24 * time.Hour),
		CreatedAt:  at,
	}
	require.NoError(t, s.Requests.Create(context.Background(), request))
	return request
}

func pendingOffer(t *testing.T, s Stores, requestID, sellerID string, at time.Time) *entity.SellerOffer {
	t.Helper()
	offer := &entity.SellerOffer{
		RequestID:  requestID,
		SellerID:   sellerID,
		Price:      18000,
		ExpiryDate: at.Add(7 * 24 * time.Hour),
		CreatedAt:  at,
	}
	require.NoError(t, s.Offers.Create(context.Background(), offer))
	return offer
}

func offerSlotIsExclusivePerSeller(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)

	first := pendingOffer(t, s, request.ID, "seller", at)

	err := s.Offers.Create(ctx, &entity.SellerOffer{RequestID: request.ID, SellerID: "seller", Price: 1, CreatedAt: at})
	assert.True(t, errors.IsConflict(err), "got %v", err)

	_, err = s.Offers.Reject(ctx, first.ID, entity.ReasonWithdrawnBySeller, at)
	require.NoError(t, err)

	// Slot is free again once the first offer left Pending.
	pendingOffer(t, s, request.ID, "seller", at)

	stored, err := s.Requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.OfferCount)
}

func acceptCascadeRejectsSiblings(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)

	winner := pendingOffer(t, s, request.ID, "s1", at)
	loser := pendingOffer(t, s, request.ID, "s2", at)

	result, err := s.Offers.Accept(ctx, winner.ID, at)
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusAccepted, result.Offer.Status)
	assert.Equal(t, entity.RequestStatusFulfilled, result.Request.Status)
	assert.Equal(t, winner.ID, result.Request.AcceptedOfferID)
	require.Len(t, result.Outbid, 1)
	assert.Equal(t, loser.ID, result.Outbid[0].ID)

	stored, err := s.Offers.GetByID(ctx, loser.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, stored.Status)
	assert.Equal(t, entity.ReasonOutbid, stored.StatusReason)

	storedRequest, err := s.Requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusFulfilled, storedRequest.Status)
	assert.Equal(t, winner.ID, storedRequest.AcceptedOfferID)

	_, err = s.Offers.Accept(ctx, loser.ID, at)
	assert.True(t, errors.IsConflict(err), "got %v", err)

	err = s.Offers.Create(ctx, &entity.SellerOffer{RequestID: request.ID, SellerID: "s3", Price: 1, CreatedAt: at})
	assert.True(t, errors.IsConflict(err), "got %v", err)
}

func concurrentAcceptHasSingleWinner(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)

	var ids []string
	for _, seller := range []string{"s1", "s2", "s3", "s4"} {
		ids = append(ids, pendingOffer(t, s, request.ID, seller, at).ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.Offers.Accept(ctx, id, at)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				accepted++
			} else if errors.IsConflict(err) {
				conflicts++
			} else {
				t.Errorf("accept %s: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 3, conflicts)

	offers, err := s.Offers.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	won := 0
	for _, offer := range offers {
		if offer.Status == entity.OfferStatusAccepted {
			won++
		} else {
			assert.Equal(t, entity.OfferStatusRejected, offer.Status)
		}
	}
	assert.Equal(t, 1, won)
}

func cancelRejectsPendingOffers(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)
	offer := pendingOffer(t, s, request.ID, "s1", at)

	cancelled, rejected, err := s.Requests.Cancel(ctx, request.ID, at)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCancelled, cancelled.Status)
	require.Len(t, rejected, 1)
	assert.Equal(t, offer.ID, rejected[0].ID)
	assert.Equal(t, entity.ReasonRequestCancelled, rejected[0].StatusReason)

	stored, err := s.Offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, stored.Status)

	_, _, err = s.Requests.Cancel(ctx, request.ID, at)
	assert.True(t, errors.IsConflict(err), "got %v", err)
}

func cancelFulfilledRequestConflicts(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)
	offer := pendingOffer(t, s, request.ID, "s1", at)

	_, err := s.Offers.Accept(ctx, offer.ID, at)
	require.NoError(t, err)

	_, _, err = s.Requests.Cancel(ctx, request.ID, at)
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))
	assert.Contains(t, err.Error(), repository.MsgNegotiationFulfilled)
}

func updateWritesEditableFields(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)

	request.Title = "Estate car"
	request.BudgetMax = 25000
	request.ExpiryDate = at.Add(72 * time.Hour)
	request.UpdatedAt = at
	require.NoError(t, s.Requests.Update(ctx, request))

	stored, err := s.Requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, "Estate car", stored.Title)
	assert.Equal(t, 25000.0, stored.BudgetMax)
	assert.True(t, request.ExpiryDate.Equal(stored.ExpiryDate), "stored expiry %s", stored.ExpiryDate)

	_, _, err = s.Requests.Cancel(ctx, request.ID, at)
	require.NoError(t, err)
	request.Title = "Too late"
	assert.True(t, errors.IsConflict(s.Requests.Update(ctx, request)))
}

func expireOverdueRequest(t *testing.T, s Stores) {
	ctx := context.Background()
	at := now()
	request := activeRequest(t, s, at)
	pendingOffer(t, s, request.ID, "s1", at)

	later := request.ExpiryDate.Add(time.Minute)
	due, err := s.Requests.ListExpired(ctx, later, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	expired, err := s.Requests.Expire(ctx, request.ID, later)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, entity.OfferStatusExpired, expired[0].Status)

	stored, err := s.Requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, stored.Status)
}

func chatMessagesAndUnreadCounts(t *testing.T, s Stores) {
	ctx := context.Background()

	chat, created, err := s.Chats.GetOrCreate(ctx, entity.NewChat("car-1", "alice", "bob", now()))
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.Chats.GetOrCreate(ctx, entity.NewChat("car-1", "bob", "alice", now()))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chat.ID, again.ID)

	for i := 0; i < 2; i++ {
		_, err = s.Chats.AppendMessage(ctx, &entity.Message{ChatID: chat.ID, SenderID: "alice", Content: "hi", CreatedAt: now()})
		require.NoError(t, err)
	}

	stored, err := s.Chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UnreadCounts["bob"])
	assert.Equal(t, 0, stored.UnreadCounts["alice"])
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "hi", stored.LastMessage.Content)

	require.NoError(t, s.Chats.MarkRead(ctx, chat.ID, "bob"))
	require.NoError(t, s.Chats.MarkRead(ctx, chat.ID, "bob"))

	stored, err = s.Chats.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCounts["bob"])

	messages, total, err := s.Chats.GetMessages(ctx, chat.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, m := range messages {
		assert.Equal(t, []string{"bob"}, m.SeenBy)
	}
}
