package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type mongoChatRepository struct {
	db       *mongo.Database
	chats    *mongo.Collection
	messages *mongo.Collection
}

func NewMongoChatRepository(db *mongo.Database) repository.ChatRepository {
	return &mongoChatRepository{
		db:       db,
		chats:    db.Collection(colChats),
		messages: db.Collection(colMessages),
	}
}

// GetOrCreate inserts the chat and falls back to reading it when the
// deterministic id or the (participantKey, carId) index already holds one.
func (r *mongoChatRepository) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	_, err := r.chats.InsertOne(ctx, chat)
	if err == nil {
		return chat, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, errors.Internal("Failed to create chat", err)
	}

	var existing entity.Chat
	err = r.chats.FindOne(ctx, bson.M{"participantKey": chat.ParticipantKey, "carId": chat.CarID}).Decode(&existing)
	if err != nil {
		return nil, false, errors.Internal("Failed to get chat", err)
	}
	return &existing, false, nil
}

func (r *mongoChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	chat, err := findByID[entity.Chat](ctx, r.chats, id, "Chat")
	if err != nil {
		return nil, txError("get chat", err)
	}
	return chat, nil
}

func (r *mongoChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	chats, total, err := findPage[entity.Chat](ctx, r.chats, bson.M{"participants": userID}, "updatedAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}
	return chats, total, nil
}

func (r *mongoChatRepository) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.SeenBy == nil {
		message.SeenBy = []string{}
	}

	var chat *entity.Chat
	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		current, err := findByID[entity.Chat](ctx, r.chats, message.ChatID, "Chat")
		if err != nil {
			return err
		}

		if _, err := r.messages.InsertOne(ctx, message); err != nil {
			return err
		}

		last := &entity.LastMessage{
			Content:   message.Content,
			SenderID:  message.SenderID,
			CreatedAt: message.CreatedAt,
		}
		inc := bson.M{}
		if current.UnreadCounts == nil {
			current.UnreadCounts = map[string]int{}
		}
		// User ids are checked for '.' and '$' when the account is synced.
		for _, other := range current.Others(message.SenderID) {
			inc["unreadCounts."+other] = 1
			current.UnreadCounts[other]++
		}

		update := bson.M{"$set": bson.M{"lastMessage": last, "updatedAt": message.CreatedAt}}
		if len(inc) > 0 {
			update["$inc"] = inc
		}
		if _, err := r.chats.UpdateOne(ctx, bson.M{"_id": current.ID}, update); err != nil {
			return err
		}

		current.LastMessage = last
		current.UpdatedAt = message.CreatedAt
		chat = current
		return nil
	})
	if err != nil {
		return nil, txError("append message", err)
	}
	return chat, nil
}

func (r *mongoChatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	messages, total, err := findPage[entity.Message](ctx, r.messages, bson.M{"chatId": chatID}, "createdAt", limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch messages", err)
	}
	return messages, total, nil
}

func (r *mongoChatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	err := withTransaction(ctx, r.db, func(ctx context.Context) error {
		res, err := r.chats.UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$set": bson.M{"unreadCounts." + userID: 0}})
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return errors.NotFound("Chat", nil)
		}

		_, err = r.messages.UpdateMany(ctx,
			bson.M{"chatId": chatID, "senderId": bson.M{"$ne": userID}, "seenBy": bson.M{"$ne": userID}},
			bson.M{"$addToSet": bson.M{"seenBy": userID}},
		)
		return err
	})
	if err != nil {
		return txError("mark chat read", err)
	}
	return nil
}
