package repository

import (
	"context"

	"carmarket/internal/domain/entity"
)

type ChatRepository interface {
	// GetOrCreate returns the chat with chat.ID, storing chat when absent.
	// The bool reports whether it was created by this call.
	GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, bool, error)
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)

	// Message methods
	AppendMessage(ctx context.Context, message *entity.Message) (*entity.Chat, error)
	GetMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
	MarkRead(ctx context.Context, chatID, userID string) error
}
