package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmarket/internal/adapter/repository/memory"
	"carmarket/internal/domain/entity"
	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/internal/mocks"
	"carmarket/pkg/errors"
)

func newChatUseCase(t *testing.T, limiter *ratelimit.RateLimiter) (*ChatUseCase, *mocks.NotifierMock) {
	t.Helper()

	store := memory.NewStore()
	users := memory.NewUserRepository(store)
	for _, id := range []string{"buyer", "owner", "stranger", "banned"} {
		require.NoError(t, users.Create(context.Background(), &entity.User{ID: id, Email: id + "@example.com", Role: entity.RoleUser}))
	}
	require.NoError(t, users.SetBlocked(context.Background(), "banned", true))

	cars := memory.NewCarRepository(store)
	require.NoError(t, cars.Create(context.Background(), &entity.Car{
		ID:      "car-1",
		OwnerID: "owner",
		Make:    "Skoda",
		Model:   "Octavia",
		Images:  []string{"https://img.example.com/octavia.jpg"},
		Status:  entity.CarStatusApproved,
	}))

	notifier := &mocks.NotifierMock{}
	events := NewDispatcher(notifier, nil, "carmarket-test")
	return NewChatUseCase(memory.NewChatRepository(store), users, cars, events, limiter), notifier
}

func TestGetOrCreateChatIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	uc, _ := newChatUseCase(t, nil)

	first, created, err := uc.GetOrCreateChat(ctx, "car-1", "buyer", "owner")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, map[string]int{"buyer": 0, "owner": 0}, first.UnreadCounts)

	again, created, err := uc.GetOrCreateChat(ctx, "car-1", "buyer", "owner")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	reversed, created, err := uc.GetOrCreateChat(ctx, "car-1", "owner", "buyer")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, reversed.ID)

	chats, total, err := uc.ListMyChats(ctx, "buyer", 10, 0)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
	assert.Equal(t, int64(1), total)
}

func TestGetOrCreateChatValidation(t *testing.T) {
	ctx := context.Background()
	uc, _ := newChatUseCase(t, nil)

	_, _, err := uc.GetOrCreateChat(ctx, "car-1", "owner", "owner")
	assertCode(t, err, errors.CodeValidation)

	_, _, err = uc.GetOrCreateChat(ctx, "car-1", "buyer", "stranger")
	assertCode(t, err, errors.CodeValidation)
	assert.Contains(t, err.Error(), "participant_a buyer")
	assert.Contains(t, err.Error(), "participant_b stranger")

	_, _, err = uc.GetOrCreateChat(ctx, "missing", "buyer", "owner")
	assertCode(t, err, errors.CodeNotFound)
}

func TestPostMessageAndMarkRead(t *testing.T) {
	ctx := context.Background()
	uc, notifier := newChatUseCase(t, nil)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

	chat, _, err := uc.GetOrCreateChat(ctx, "car-1", "buyer", "owner")
	require.NoError(t, err)

	_, err = uc.PostMessage(ctx, chat.ID, "stranger", "hello")
	assertCode(t, err, errors.CodeForbidden)

	_, err = uc.PostMessage(ctx, chat.ID, "buyer", "   ")
	assertCode(t, err, errors.CodeValidation)

	for _, content := range []string{"Is it still available?", "Can I see it on Friday?"} {
		_, err := uc.PostMessage(ctx, chat.ID, "buyer", content)
		require.NoError(t, err)
	}

	stored, err := uc.GetChat(ctx, chat.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.UnreadCounts["owner"])
	assert.Equal(t, 0, stored.UnreadCounts["buyer"])
	require.NotNil(t, stored.LastMessage)
	assert.Equal(t, "Can I see it on Friday?", stored.LastMessage.Content)
	assert.Equal(t, "buyer", stored.LastMessage.SenderID)

	notifier.AssertCalled(t, "Notify", "owner", EventNewMessage, mock.Anything)
	notifier.AssertCalled(t, "Notify", "buyer", EventNewMessage, mock.Anything)

	require.NoError(t, uc.MarkRead(ctx, chat.ID, "owner"))
	require.NoError(t, uc.MarkRead(ctx, chat.ID, "owner"))
	notifier.AssertCalled(t, "Notify", "buyer", EventMessageRead, MessageReadPayload{ChatID: chat.ID, UserID: "owner"})

	stored, err = uc.GetChat(ctx, chat.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadCounts["owner"])

	messages, total, err := uc.GetMessages(ctx, chat.ID, "owner", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, message := range messages {
		assert.Equal(t, []string{"owner"}, message.SeenBy)
	}

	_, _, err = uc.GetMessages(ctx, chat.ID, "stranger", 10, 0)
	assertCode(t, err, errors.CodeForbidden)
}

func TestSetTypingNotifiesOtherParticipant(t *testing.T) {
	ctx := context.Background()
	uc, notifier := newChatUseCase(t, nil)

	chat, _, err := uc.GetOrCreateChat(ctx, "car-1", "buyer", "owner")
	require.NoError(t, err)

	notifier.On("Notify", "owner", EventUserTyping, TypingPayload{ChatID: chat.ID, UserID: "buyer", IsTyping: true}).Return().Once()

	require.NoError(t, uc.SetTyping(ctx, chat.ID, "buyer", true))
	notifier.AssertExpectations(t)
	notifier.AssertNotCalled(t, "Notify", "buyer", EventUserTyping, mock.Anything)
}

func TestCreateChatIsRateLimited(t *testing.T) {
	ctx := context.Background()
	limiter := ratelimit.NewRateLimiterWithLimits(map[string]ratelimit.Limit{
		ratelimit.ActionCreateChat: {Burst: 1, Interval: time.Hour},
	})
	uc, _ := newChatUseCase(t, limiter)

	_, _, err := uc.CreateChat(ctx, "buyer", "car-1", "owner")
	require.NoError(t, err)

	_, _, err = uc.CreateChat(ctx, "buyer", "car-1", "owner")
	assertCode(t, err, errors.CodeTooManyRequests)
}

func TestBlockedParticipantIsReadOnly(t *testing.T) {
	ctx := context.Background()
	uc, notifier := newChatUseCase(t, nil)
	notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return()

	chat, _, err := uc.GetOrCreateChat(ctx, "car-1", "banned", "owner")
	require.NoError(t, err)

	_, err = uc.PostMessage(ctx, chat.ID, "banned", "hello?")
	assertCode(t, err, errors.CodeForbidden)
	assertCode(t, uc.SetTyping(ctx, chat.ID, "banned", true), errors.CodeForbidden)
	assertCode(t, uc.MarkRead(ctx, chat.ID, "banned"), errors.CodeForbidden)
	_, _, err = uc.CreateChat(ctx, "banned", "car-1", "owner")
	assertCode(t, err, errors.CodeForbidden)
	notifier.AssertNotCalled(t, "Notify", "owner", mock.Anything, mock.Anything)

	// Reading stays open.
	_, err = uc.GetChat(ctx, chat.ID, "banned")
	require.NoError(t, err)

	_, err = uc.PostMessage(ctx, chat.ID, "owner", "This account is suspended")
	require.NoError(t, err)

	_, err = uc.PostMessage(ctx, chat.ID, "ghost", "hi")
	assertCode(t, err, errors.CodeUnauthorized)
}
