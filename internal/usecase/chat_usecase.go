package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/ratelimit"
	"carmarket/pkg/errors"
)

const maxMessageLength = 4000

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	carRepo     repository.CarRepository
	events      *Dispatcher
	rateLimiter *ratelimit.RateLimiter
	now         func() time.Time
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	carRepo repository.CarRepository,
	events *Dispatcher,
	rateLimiter *ratelimit.RateLimiter,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		carRepo:     carRepo,
		events:      events,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
}

type NewMessagePayload struct {
	ChatID  string          `json:"chat_id"`
	Message *entity.Message `json:"message"`
}

type TypingPayload struct {
	ChatID   string `json:"chat_id"`
	UserID   string `json:"user_id"`
	IsTyping bool   `json:"is_typing"`
}

type MessageReadPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// GetOrCreateChat returns the chat about carID between a and b, creating it on
// first contact. The argument order of a and b does not matter.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, carID, participantA, participantB string) (chat *entity.Chat, created bool, err error) {
	ctx, span := tracer.Start(ctx, "ChatUseCase.GetOrCreateChat")
	defer func() { finishSpan(span, err) }()

	if participantA == "" || participantB == "" {
		return nil, false, errors.Validation("Both participants are required")
	}
	if participantA == participantB {
		return nil, false, errors.Validation("You cannot create a chat with yourself")
	}

	car, err := uc.carRepo.GetByID(ctx, carID)
	if err != nil {
		return nil, false, err
	}
	if car.OwnerID != participantA && car.OwnerID != participantB {
		log.Printf("GetOrCreateChat Error: car %s is owned by %s, not by %s or %s", carID, car.OwnerID, participantA, participantB)
		return nil, false, errors.Validation(fmt.Sprintf(
			"Car owner must be a participant: neither participant_a %s nor participant_b %s owns car %s",
			participantA, participantB, carID,
		))
	}

	chat, created, err = uc.chatRepo.GetOrCreate(ctx, entity.NewChat(carID, participantA, participantB, uc.now()))
	if err != nil {
		log.Printf("GetOrCreateChat Error: Failed to store chat for car %s: %v", carID, err)
		return nil, false, err
	}

	if created {
		uc.events.Publish(ctx, RoutingChatCreated, map[string]interface{}{
			"chat_id":      chat.ID,
			"car_id":       chat.CarID,
			"participants": chat.Participants,
		})
	}
	return chat, created, nil
}

// CreateChat opens the chat between the caller and recipientID about carID.
func (uc *ChatUseCase) CreateChat(ctx context.Context, userID, carID, recipientID string) (*entity.Chat, bool, error) {
	if err := allow(uc.rateLimiter, userID, ratelimit.ActionCreateChat); err != nil {
		log.Printf("CreateChat Rate Limited: User %s", userID)
		return nil, false, err
	}
	if _, err := activeCaller(ctx, uc.userRepo, userID); err != nil {
		return nil, false, err
	}
	return uc.GetOrCreateChat(ctx, carID, userID, recipientID)
}

func (uc *ChatUseCase) PostMessage(ctx context.Context, chatID, senderID, content string) (message *entity.Message, err error) {
	ctx, span := tracer.Start(ctx, "ChatUseCase.PostMessage")
	defer func() { finishSpan(span, err) }()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.Validation("Message content is required")
	}
	if len(content) > maxMessageLength {
		return nil, errors.Validation(fmt.Sprintf("Message content must be at most %d characters", maxMessageLength))
	}

	if err := allow(uc.rateLimiter, senderID, ratelimit.ActionSendMessage); err != nil {
		log.Printf("PostMessage Rate Limited: User %s", senderID)
		return nil, err
	}
	if _, err := activeCaller(ctx, uc.userRepo, senderID); err != nil {
		return nil, err
	}

	chat, err := uc.participantChat(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}

	message = &entity.Message{
		ID:        uuid.New().String(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Content:   content,
		SeenBy:    []string{},
		CreatedAt: uc.now(),
	}

	chat, err = uc.chatRepo.AppendMessage(ctx, message)
	if err != nil {
		log.Printf("PostMessage Error: Failed to append message to chat %s: %v", chatID, err)
		return nil, err
	}

	payload := NewMessagePayload{ChatID: chat.ID, Message: message}
	for _, participant := range chat.Participants {
		uc.events.Notify(participant, EventNewMessage, payload)
	}
	return message, nil
}

func (uc *ChatUseCase) MarkRead(ctx context.Context, chatID, userID string) error {
	if _, err := activeCaller(ctx, uc.userRepo, userID); err != nil {
		return err
	}
	chat, err := uc.participantChat(ctx, chatID, userID)
	if err != nil {
		return err
	}

	if err := uc.chatRepo.MarkRead(ctx, chatID, userID); err != nil {
		log.Printf("MarkRead Error: chat %s user %s: %v", chatID, userID, err)
		return err
	}

	payload := MessageReadPayload{ChatID: chatID, UserID: userID}
	for _, other := range chat.Others(userID) {
		uc.events.Notify(other, EventMessageRead, payload)
	}
	return nil
}

func (uc *ChatUseCase) SetTyping(ctx context.Context, chatID, userID string, isTyping bool) error {
	if err := allow(uc.rateLimiter, userID, ratelimit.ActionTyping); err != nil {
		return err
	}
	if _, err := activeCaller(ctx, uc.userRepo, userID); err != nil {
		return err
	}

	chat, err := uc.participantChat(ctx, chatID, userID)
	if err != nil {
		return err
	}

	payload := TypingPayload{ChatID: chatID, UserID: userID, IsTyping: isTyping}
	for _, other := range chat.Others(userID) {
		uc.events.Notify(other, EventUserTyping, payload)
	}
	return nil
}

func (uc *ChatUseCase) GetChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	return uc.participantChat(ctx, chatID, userID)
}

func (uc *ChatUseCase) ListMyChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUserID(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) GetMessages(ctx context.Context, chatID, userID string, limit, offset int) ([]*entity.Message, int64, error) {
	if _, err := uc.participantChat(ctx, chatID, userID); err != nil {
		return nil, 0, err
	}
	return uc.chatRepo.GetMessages(ctx, chatID, limit, offset)
}

func (uc *ChatUseCase) participantChat(ctx context.Context, chatID, userID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant in this chat", nil)
	}
	return chat, nil
}

func allow(rl *ratelimit.RateLimiter, userID, action string) error {
	if rl == nil {
		return nil
	}
	if ok, wait := rl.Allow(userID, action); !ok {
		return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %s", wait.Round(time.Second)))
	}
	return nil
}
