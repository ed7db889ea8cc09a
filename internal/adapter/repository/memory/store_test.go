package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/adapter/repository/repositorytest"
	"carmarket/internal/domain/entity"
)

func TestStoreContract(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) repositorytest.Stores {
		store := NewStore()
		return repositorytest.Stores{
			Requests: NewBuyerRequestRepository(store),
			Offers:   NewSellerOfferRepository(store),
			Chats:    NewChatRepository(store),
		}
	})
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	store := NewStore()
	requests := NewBuyerRequestRepository(store)
	ctx := context.Background()

	request := &entity.BuyerRequest{
		BuyerID:    "buyer",
		Title:      "Looking for a wagon",
		Status:     entity.RequestStatusActive,
		ExpiryDate: time.Now().Add(time.Hour),
	}
	require.NoError(t, requests.Create(ctx, request))

	fetched, err := requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	fetched.Status = entity.RequestStatusCancelled

	stored, err := requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusActive, stored.Status)
}
