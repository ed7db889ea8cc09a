package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmarket/internal/adapter/repository/memory"
	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/mocks"
	"carmarket/pkg/errors"
)

type negotiationFixture struct {
	users       repository.UserRepository
	cars        repository.CarRepository
	requests    repository.BuyerRequestRepository
	offers      repository.SellerOfferRepository
	chatRepo    repository.ChatRepository
	notifier    *mocks.NotifierRecorder
	publisher   *mocks.PublisherMock
	chats       *ChatUseCase
	negotiation *NegotiationUseCase
	expiry      *ExpiryUseCase
}

func newNegotiationFixture(t *testing.T) *negotiationFixture {
	t.Helper()

	store := memory.NewStore()
	f := &negotiationFixture{
		users:     memory.NewUserRepository(store),
		cars:      memory.NewCarRepository(store),
		requests:  memory.NewBuyerRequestRepository(store),
		offers:    memory.NewSellerOfferRepository(store),
		chatRepo:  memory.NewChatRepository(store),
		notifier:  &mocks.NotifierRecorder{},
		publisher: &mocks.PublisherMock{},
	}
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	events := NewDispatcher(f.notifier, f.publisher, "carmarket-test")
	f.chats = NewChatUseCase(f.chatRepo, f.users, f.cars, events, nil)
	f.negotiation = NewNegotiationUseCase(f.requests, f.offers, f.users, f.cars, f.chats, events, nil, NegotiationConfig{})
	f.expiry = NewExpiryUseCase(f.requests, f.offers, events)
	return f
}

func (f *negotiationFixture) user(t *testing.T, id string) *entity.User {
	t.Helper()
	user := &entity.User{ID: id, Email: id + "@example.com", Role: entity.RoleUser, SellerType: entity.SellerTypePrivate}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *negotiationFixture) car(t *testing.T, ownerID string) *entity.Car {
	t.Helper()
	car := &entity.Car{
		ID:      "car-" + ownerID,
		OwnerID: ownerID,
		Make:    "Volvo",
		Model:   "V70",
		Images:  []string{"https://img.example.com/" + ownerID + ".jpg"},
		Status:  entity.CarStatusApproved,
	}
	require.NoError(t, f.cars.Create(context.Background(), car))
	return car
}

func (f *negotiationFixture) request(t *testing.T, buyerID string) *entity.BuyerRequest {
	t.Helper()
	request, err := f.negotiation.CreateRequest(context.Background(), buyerID, CreateRequestInput{
		Title:       "Family wagon",
		Description: "Diesel, under 150k km",
		Make:        "Volvo",
		BudgetMax:   20000,
	})
	require.NoError(t, err)
	return request
}

func (f *negotiationFixture) offer(t *testing.T, sellerID, requestID string, price float64) *entity.SellerOffer {
	t.Helper()
	offer, err := f.negotiation.CreateOffer(context.Background(), sellerID, CreateOfferInput{
		RequestID: requestID,
		CarID:     "car-" + sellerID,
		Price:     price,
	})
	require.NoError(t, err)
	return offer
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, code), "expected %s, got %v", code, err)
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")

	request := f.request(t, "buyer")
	assert.Equal(t, entity.RequestStatusActive, request.Status)
	assert.WithinDuration(t, time.Now().Add(DefaultRequestExpiry), request.ExpiryDate, time.Minute)
	f.publisher.AssertCalled(t, "Publish", mock.Anything, RoutingRequestCreated, mock.Anything)

	tests := []struct {
		name    string
		buyerID string
		input   CreateRequestInput
		code    string
	}{
		{"missing title", "buyer", CreateRequestInput{Description: "d", BudgetMax: 10}, errors.CodeValidation},
		{"missing description", "buyer", CreateRequestInput{Title: "t", BudgetMax: 10}, errors.CodeValidation},
		{"missing budget", "buyer", CreateRequestInput{Title: "t", Description: "d"}, errors.CodeValidation},
		{"inverted budget", "buyer", CreateRequestInput{Title: "t", Description: "d", BudgetMin: 20, BudgetMax: 10}, errors.CodeValidation},
		{"unknown buyer", "ghost", CreateRequestInput{Title: "t", Description: "d", BudgetMax: 10}, errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.negotiation.CreateRequest(ctx, tt.buyerID, tt.input)
			assertCode(t, err, tt.code)
		})
	}

	t.Run("blocked buyer", func(t *testing.T) {
		f.user(t, "blocked")
		require.NoError(t, f.users.SetBlocked(ctx, "blocked", true))

		_, err := f.negotiation.CreateRequest(ctx, "blocked", CreateRequestInput{Title: "t", Description: "d", BudgetMax: 10})
		assertCode(t, err, errors.CodeValidation)
	})
}

func TestCreateOfferPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.user(t, "other")
	f.car(t, "seller")
	f.car(t, "other")
	request := f.request(t, "buyer")

	t.Run("seller without user record", func(t *testing.T) {
		_, err := f.negotiation.CreateOffer(ctx, "ghost", CreateOfferInput{RequestID: request.ID, Price: 100})
		assertCode(t, err, errors.CodeUnauthorized)
	})

	t.Run("blocked seller", func(t *testing.T) {
		f.user(t, "blocked")
		require.NoError(t, f.users.SetBlocked(ctx, "blocked", true))

		_, err := f.negotiation.CreateOffer(ctx, "blocked", CreateOfferInput{RequestID: request.ID, Price: 100})
		assertCode(t, err, errors.CodeForbidden)
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.negotiation.CreateOffer(ctx, "seller", CreateOfferInput{RequestID: "missing", Price: 100})
		assertCode(t, err, errors.CodeNotFound)
	})

	t.Run("car owned by someone else", func(t *testing.T) {
		_, err := f.negotiation.CreateOffer(ctx, "seller", CreateOfferInput{RequestID: request.ID, CarID: "car-other", Price: 100})
		assertCode(t, err, errors.CodeForbidden)
	})

	t.Run("images copied from car", func(t *testing.T) {
		offer := f.offer(t, "seller", request.ID, 18000)
		assert.Equal(t, entity.OfferStatusPending, offer.Status)
		assert.False(t, offer.IsCustomOffer)
		assert.Equal(t, []string{"https://img.example.com/seller.jpg"}, offer.Images)
		assert.WithinDuration(t, time.Now().Add(DefaultOfferExpiry), offer.ExpiryDate, time.Minute)

		stored, err := f.requests.GetByID(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.OfferCount)
	})

	t.Run("custom offer", func(t *testing.T) {
		offer, err := f.negotiation.CreateOffer(ctx, "other", CreateOfferInput{
			RequestID:    request.ID,
			Price:        17500,
			CustomImages: []string{"https://img.example.com/custom.jpg"},
		})
		require.NoError(t, err)
		assert.True(t, offer.IsCustomOffer)
		assert.Empty(t, offer.CarID)
		assert.Equal(t, []string{"https://img.example.com/custom.jpg"}, offer.Images)
	})

	t.Run("request past expiry", func(t *testing.T) {
		f.user(t, "late")
		f.negotiation.now = func() time.Time { return time.Now().Add(DefaultRequestExpiry + time.Hour) }
		defer func() { f.negotiation.now = time.Now }()

		_, err := f.negotiation.CreateOffer(ctx, "late", CreateOfferInput{RequestID: request.ID, Price: 100})
		assertCode(t, err, errors.CodeConflict)
	})
}

func TestAcceptOfferRejectsCompetingOffers(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller-1")
	f.user(t, "seller-2")
	f.car(t, "seller-1")
	f.car(t, "seller-2")

	request := f.request(t, "buyer")
	first := f.offer(t, "seller-1", request.ID, 19000)
	second := f.offer(t, "seller-2", request.ID, 18500)

	output, err := f.negotiation.AcceptOffer(ctx, "buyer", first.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.OfferStatusAccepted, output.Offer.Status)
	assert.Equal(t, entity.RequestStatusFulfilled, output.Request.Status)
	assert.Equal(t, first.ID, output.Request.AcceptedOfferID)
	require.NotNil(t, output.Chat)
	assert.Equal(t, "car-seller-1", output.Chat.CarID)
	assert.ElementsMatch(t, []string{"buyer", "seller-1"}, output.Chat.Participants)
	assert.Equal(t, map[string]int{"buyer": 0, "seller-1": 0}, output.Chat.UnreadCounts)

	loser, err := f.offers.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, loser.Status)
	assert.Equal(t, entity.ReasonOutbid, loser.StatusReason)

	offers, err := f.offers.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	accepted := 0
	for _, offer := range offers {
		if offer.Status == entity.OfferStatusAccepted {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted)

	winnerEvents := f.notifier.For("seller-1")
	require.Len(t, winnerEvents, 1)
	assert.Equal(t, EventOfferAccepted, winnerEvents[0].Event)

	loserEvents := f.notifier.For("seller-2")
	require.Len(t, loserEvents, 1)
	assert.Equal(t, EventOfferRejected, loserEvents[0].Event)
	assert.Equal(t, entity.ReasonOutbid, loserEvents[0].Payload.(OfferRejectedPayload).Reason)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, RoutingOfferAccepted, mock.Anything)
	f.publisher.AssertCalled(t, "Publish", mock.Anything, RoutingChatCreated, mock.Anything)

	// The losing offer is closed for everyone, including its own seller.
	_, err = f.negotiation.AcceptOffer(ctx, "buyer", second.ID)
	assertCode(t, err, errors.CodeConflict)
	_, err = f.negotiation.RejectOffer(ctx, "buyer", second.ID)
	assertCode(t, err, errors.CodeConflict)
	_, err = f.negotiation.DeleteOffer(ctx, "seller-2", second.ID)
	assertCode(t, err, errors.CodeConflict)

	// Authorisation is checked before state, so a seller trying to accept
	// their own closed offer is refused rather than told it is closed.
	_, err = f.negotiation.AcceptOffer(ctx, "seller-2", second.ID)
	assertCode(t, err, errors.CodeForbidden)
}

func TestCreateOfferRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.car(t, "seller")
	request := f.request(t, "buyer")

	first := f.offer(t, "seller", request.ID, 19000)

	_, err := f.negotiation.CreateOffer(ctx, "seller", CreateOfferInput{RequestID: request.ID, CarID: "car-seller", Price: 18000})
	assertCode(t, err, errors.CodeConflict)
	assert.Contains(t, err.Error(), repository.MsgDuplicateOffer)

	// A withdrawn offer frees the slot.
	_, err = f.negotiation.DeleteOffer(ctx, "seller", first.ID)
	require.NoError(t, err)

	second := f.offer(t, "seller", request.ID, 18000)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDeleteRequestAfterAcceptConflicts(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.car(t, "seller")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	_, err := f.negotiation.AcceptOffer(ctx, "buyer", offer.ID)
	require.NoError(t, err)

	_, err = f.negotiation.DeleteRequest(ctx, "buyer", request.ID)
	assertCode(t, err, errors.CodeConflict)
	assert.Contains(t, err.Error(), repository.MsgNegotiationFulfilled)

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusFulfilled, stored.Status)
}

func TestCreateOfferOnFulfilledRequestConflicts(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.user(t, "latecomer")
	f.car(t, "seller")
	f.car(t, "latecomer")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	_, err := f.negotiation.AcceptOffer(ctx, "buyer", offer.ID)
	require.NoError(t, err)

	for _, caller := range []string{"latecomer", "buyer"} {
		_, err := f.negotiation.CreateOffer(ctx, caller, CreateOfferInput{RequestID: request.ID, Price: 15000})
		assertCode(t, err, errors.CodeConflict)
	}
}

func TestConcurrentAcceptOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	request := f.request(t, "buyer")

	sellers := []string{"s1", "s2", "s3", "s4"}
	offerIDs := make([]string, 0, len(sellers))
	for _, seller := range sellers {
		f.user(t, seller)
		f.car(t, seller)
		offerIDs = append(offerIDs, f.offer(t, seller, request.ID, 10000).ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for _, id := range offerIDs {
		wg.Add(1)
		go func(offerID string) {
			defer wg.Done()
			_, err := f.negotiation.AcceptOffer(ctx, "buyer", offerID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.IsConflict(err) {
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, len(sellers)-1, conflicts)

	offers, err := f.offers.ListByRequest(ctx, request.ID)
	require.NoError(t, err)
	accepted := 0
	for _, offer := range offers {
		switch offer.Status {
		case entity.OfferStatusAccepted:
			accepted++
		case entity.OfferStatusRejected:
			assert.Equal(t, entity.ReasonOutbid, offer.StatusReason)
		default:
			t.Fatalf("unexpected offer status %s", offer.Status)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestOfferDecisionsRequireRequestOwner(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.user(t, "stranger")
	f.car(t, "seller")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	_, err := f.negotiation.AcceptOffer(ctx, "stranger", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.AcceptOffer(ctx, "seller", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.RejectOffer(ctx, "stranger", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.AcceptOffer(ctx, "buyer", "missing")
	assertCode(t, err, errors.CodeNotFound)

	_, err = f.negotiation.ListOffersForRequest(ctx, "stranger", request.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.GetOffer(ctx, "stranger", offer.ID)
	assertCode(t, err, errors.CodeForbidden)

	visible, err := f.negotiation.GetOffer(ctx, "buyer", offer.ID)
	require.NoError(t, err)
	assert.Equal(t, offer.ID, visible.ID)

	_, err = f.negotiation.DeleteOffer(ctx, "buyer", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
}

func TestRejectOfferHasNoCascade(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller-1")
	f.user(t, "seller-2")
	f.car(t, "seller-1")
	f.car(t, "seller-2")
	request := f.request(t, "buyer")
	first := f.offer(t, "seller-1", request.ID, 19000)
	second := f.offer(t, "seller-2", request.ID, 18000)

	rejected, err := f.negotiation.RejectOffer(ctx, "buyer", first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, rejected.Status)
	assert.Equal(t, entity.ReasonRejectedByBuyer, rejected.StatusReason)

	untouched, err := f.offers.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusPending, untouched.Status)

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusActive, stored.Status)
}

func TestDeleteRequestRejectsPendingOffers(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.car(t, "seller")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	_, err := f.negotiation.DeleteRequest(ctx, "seller", request.ID)
	assertCode(t, err, errors.CodeForbidden)

	cancelled, err := f.negotiation.DeleteRequest(ctx, "buyer", request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCancelled, cancelled.Status)

	stored, err := f.offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusRejected, stored.Status)
	assert.Equal(t, entity.ReasonRequestCancelled, stored.StatusReason)

	_, err = f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{})
	assertCode(t, err, errors.CodeConflict)
}

func TestUpdateRequest(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	request := f.request(t, "buyer")

	budget := 25000.0
	title := "Estate car"
	updated, err := f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{Title: &title, BudgetMax: &budget})
	require.NoError(t, err)
	assert.Equal(t, "Estate car", updated.Title)
	assert.Equal(t, 25000.0, updated.BudgetMax)

	tooLow := -1.0
	_, err = f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{BudgetMax: &tooLow})
	assertCode(t, err, errors.CodeValidation)

	expiry := time.Now().Add(72 * time.Hour).Truncate(time.Second)
	updated, err = f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.True(t, expiry.Equal(updated.ExpiryDate))

	stored, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(stored.ExpiryDate), "stored expiry %s", stored.ExpiryDate)
	assert.Equal(t, "Estate car", stored.Title)

	past := time.Now().Add(-time.Hour)
	_, err = f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{ExpiryDate: &past})
	assertCode(t, err, errors.CodeValidation)

	f.user(t, "intruder")
	_, err = f.negotiation.UpdateRequest(ctx, "intruder", request.ID, UpdateRequestInput{Title: &title})
	assertCode(t, err, errors.CodeForbidden)

	_, err = f.negotiation.UpdateRequest(ctx, "nobody", request.ID, UpdateRequestInput{Title: &title})
	assertCode(t, err, errors.CodeUnauthorized)
}

func TestBlockedUserCannotMutate(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.car(t, "seller")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	require.NoError(t, f.users.SetBlocked(ctx, "buyer", true))

	_, err := f.negotiation.AcceptOffer(ctx, "buyer", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.RejectOffer(ctx, "buyer", offer.ID)
	assertCode(t, err, errors.CodeForbidden)
	_, err = f.negotiation.DeleteRequest(ctx, "buyer", request.ID)
	assertCode(t, err, errors.CodeForbidden)
	title := "Blocked edit"
	_, err = f.negotiation.UpdateRequest(ctx, "buyer", request.ID, UpdateRequestInput{Title: &title})
	assertCode(t, err, errors.CodeForbidden)

	// Nothing moved.
	storedOffer, err := f.offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusPending, storedOffer.Status)
	storedRequest, err := f.requests.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusActive, storedRequest.Status)
	assert.Equal(t, "Family wagon", storedRequest.Title)
	assert.Empty(t, f.notifier.For("seller"))

	require.NoError(t, f.users.SetBlocked(ctx, "buyer", false))
	require.NoError(t, f.users.SetBlocked(ctx, "seller", true))

	_, err = f.negotiation.DeleteOffer(ctx, "seller", offer.ID)
	assertCode(t, err, errors.CodeForbidden)

	output, err := f.negotiation.AcceptOffer(ctx, "buyer", offer.ID)
	require.NoError(t, err)
	require.NotNil(t, output.Chat)

	_, err = f.chats.PostMessage(ctx, output.Chat.ID, "seller", "still there?")
	assertCode(t, err, errors.CodeForbidden)
	assertCode(t, f.chats.MarkRead(ctx, output.Chat.ID, "seller"), errors.CodeForbidden)
	assertCode(t, f.chats.SetTyping(ctx, output.Chat.ID, "seller", true), errors.CodeForbidden)
	_, _, err = f.chats.CreateChat(ctx, "seller", "car-seller", "buyer")
	assertCode(t, err, errors.CodeForbidden)

	messages, total, err := f.chatRepo.GetMessages(ctx, output.Chat.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Zero(t, total)

	_, err = f.chats.PostMessage(ctx, output.Chat.ID, "buyer", "see you tomorrow")
	require.NoError(t, err)
}

func TestAcceptCustomOfferSkipsChat(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	request := f.request(t, "buyer")

	offer, err := f.negotiation.CreateOffer(ctx, "seller", CreateOfferInput{RequestID: request.ID, Price: 12000})
	require.NoError(t, err)

	output, err := f.negotiation.AcceptOffer(ctx, "buyer", offer.ID)
	require.NoError(t, err)
	assert.Nil(t, output.Chat)

	chats, total, err := f.chatRepo.ListByUserID(ctx, "buyer", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, chats)
	assert.Zero(t, total)
}

func TestExpirySweep(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller-1")
	f.user(t, "seller-2")
	f.car(t, "seller-1")
	f.car(t, "seller-2")

	stale := f.request(t, "buyer")
	staleOffer := f.offer(t, "seller-1", stale.ID, 19000)

	soon := time.Now().Add(48 * time.Hour)
	_, err := f.negotiation.CreateRequest(ctx, "buyer", CreateRequestInput{
		Title:       "Compact",
		Description: "City car",
		BudgetMax:   9000,
		ExpiryDate:  &soon,
	})
	require.NoError(t, err)

	f.expiry.now = func() time.Time { return time.Now().Add(DefaultRequestExpiry + time.Hour) }

	result, err := f.expiry.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ExpiredRequests)
	assert.Equal(t, 1, result.ExpiredOffers)

	storedRequest, err := f.requests.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, storedRequest.Status)

	storedOffer, err := f.offers.GetByID(ctx, staleOffer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusExpired, storedOffer.Status)
	assert.Equal(t, entity.ReasonExpired, storedOffer.StatusReason)

	// A second sweep finds nothing left to do.
	result, err = f.expiry.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.ExpiredRequests)
	assert.Zero(t, result.ExpiredOffers)
}

func TestExpirySweepExpiresLoneOffers(t *testing.T) {
	ctx := context.Background()
	f := newNegotiationFixture(t)
	f.user(t, "buyer")
	f.user(t, "seller")
	f.car(t, "seller")
	request := f.request(t, "buyer")
	offer := f.offer(t, "seller", request.ID, 19000)

	f.expiry.now = func() time.Time { return time.Now().Add(DefaultOfferExpiry + time.Hour) }

	result, err := f.expiry.ProcessExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.ExpiredRequests)
	assert.Equal(t, 1, result.ExpiredOffers)

	stored, err := f.offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OfferStatusExpired, stored.Status)

	// The slot is free again.
	f.offer(t, "seller", request.ID, 18000)
}
