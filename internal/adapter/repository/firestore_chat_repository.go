package repository

import (
	"context"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// GetOrCreate relies on the deterministic chat id: the transaction either
// reads the existing document or creates it, never both.
func (r *firestoreChatRepository) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	ref := r.client.Collection(colChats).Doc(chat.ID)

	var (
		result  *entity.Chat
		created bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = false

		doc, err := tx.Get(ref)
		if err == nil {
			var existing entity.Chat
			if err := doc.DataTo(&existing); err != nil {
				return err
			}
			result = &existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		if err := tx.Create(ref, chat); err != nil {
			return err
		}
		result = chat
		created = true
		return nil
	})
	if err != nil {
		return nil, false, txError("get or create chat", err)
	}
	return result, created, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection(colChats).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection(colChats).Where("participants", "array-contains", userID).OrderBy("updatedAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}

	chats, err := decodeAll[entity.Chat](window(allDocs, limit, offset))
	if err != nil {
		return nil, 0, errors.Internal("Failed to parse chat data", err)
	}
	return chats, int64(len(allDocs)), nil
}

// AppendMessage stores the message and updates lastMessage and the unread
// counters of the other participants in one transaction.
func (r *firestoreChatRepository) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.SeenBy == nil {
		message.SeenBy = []string{}
	}

	chatRef := r.client.Collection(colChats).Doc(message.ChatID)
	messageRef := chatRef.Collection(colMessages).Doc(message.ID)

	var chat entity.Chat
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(chatRef)
		if err != nil {
			if isNotFound(err) {
				return errors.NotFound("Chat", err)
			}
			return err
		}
		if err := doc.DataTo(&chat); err != nil {
			return err
		}

		if err := tx.Create(messageRef, message); err != nil {
			return err
		}

		last := &entity.LastMessage{
			Content:   message.Content,
			SenderID:  message.SenderID,
			CreatedAt: message.CreatedAt,
		}
		updates := []firestore.Update{
			{Path: "lastMessage", Value: last},
			{Path: "updatedAt", Value: message.CreatedAt},
		}

		if chat.UnreadCounts == nil {
			chat.UnreadCounts = map[string]int{}
		}
		for _, other := range chat.Others(message.SenderID) {
			updates = append(updates, firestore.Update{
				FieldPath: firestore.FieldPath{"unreadCounts", other},
				Value:     firestore.Increment(1),
			})
			chat.UnreadCounts[other]++
		}
		chat.LastMessage = last
		chat.UpdatedAt = message.CreatedAt

		return tx.Update(chatRef, updates)
	})
	if err != nil {
		return nil, txError("append message", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection(colChats).Doc(chatID).Collection(colMessages).OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		log.Printf("Firestore error while counting messages for chat %s: %v", chatID, err)
		return nil, 0, errors.Internal("Failed to count messages for chat", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	messages := []*entity.Message{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			log.Printf("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error parsing message data for chat %s: %v", chatID, err)
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	return messages, total, nil
}

// MarkRead zeroes the reader's counter and adds the reader to seenBy of every
// message from the other side that the reader has not seen yet.
func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	chatRef := r.client.Collection(colChats).Doc(chatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(chatRef); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Chat", err)
			}
			return err
		}

		docs, err := tx.Documents(chatRef.Collection(colMessages).Where("senderId", "!=", userID)).GetAll()
		if err != nil {
			return err
		}

		if err := tx.Update(chatRef, []firestore.Update{
			{FieldPath: firestore.FieldPath{"unreadCounts", userID}, Value: 0},
		}); err != nil {
			return err
		}

		for _, doc := range docs {
			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				return err
			}
			if message.SeenByUser(userID) {
				continue
			}
			if err := tx.Update(doc.Ref, []firestore.Update{
				{Path: "seenBy", Value: firestore.ArrayUnion(userID)},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return txError("mark chat read", err)
	}
	return nil
}
