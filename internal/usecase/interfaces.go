package usecase

import "context"

// TokenVerifier resolves a bearer credential into a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// Notifier delivers a realtime event to the channel of one user.
type Notifier interface {
	Notify(userID, event string, payload interface{})
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}
