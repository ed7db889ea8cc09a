package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/pkg/errors"
)

type chatRepository struct {
	store *Store
}

func NewChatRepository(store *Store) repository.ChatRepository {
	return &chatRepository{store: store}
}

func (r *chatRepository) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.chats[chat.ID]; ok {
		return cloneChat(existing), false, nil
	}

	r.store.chats[chat.ID] = cloneChat(chat)
	return cloneChat(chat), true, nil
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	chat, ok := r.store.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return cloneChat(chat), nil
}

func (r *chatRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var chats []*entity.Chat
	for _, chat := range r.store.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, cloneChat(chat))
		}
	}
	newestFirst(chats, func(c *entity.Chat) time.Time { return c.UpdatedAt })

	return paginate(chats, limit, offset), int64(len(chats)), nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.SeenBy == nil {
		message.SeenBy = []string{}
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	chat, ok := r.store.chats[message.ChatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}

	r.store.messages[chat.ID] = append(r.store.messages[chat.ID], cloneMessage(message))

	chat.LastMessage = &entity.LastMessage{
		Content:   message.Content,
		SenderID:  message.SenderID,
		CreatedAt: message.CreatedAt,
	}
	for _, other := range chat.Others(message.SenderID) {
		chat.UnreadCounts[other]++
	}
	chat.UpdatedAt = message.CreatedAt

	return cloneChat(chat), nil
}

func (r *chatRepository) GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	stored := r.store.messages[chatID]
	messages := make([]*entity.Message, 0, len(stored))
	for _, message := range stored {
		messages = append(messages, cloneMessage(message))
	}
	newestFirst(messages, func(m *entity.Message) time.Time { return m.CreatedAt })

	return paginate(messages, limit, offset), int64(len(messages)), nil
}

func (r *chatRepository) MarkRead(ctx context.Context, chatID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	chat, ok := r.store.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}

	chat.UnreadCounts[userID] = 0
	for _, message := range r.store.messages[chatID] {
		if message.SenderID != userID && !message.SeenByUser(userID) {
			message.SeenBy = append(message.SeenBy, userID)
		}
	}
	return nil
}
