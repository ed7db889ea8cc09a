package usecase

import (
	"context"
	"time"

	"carmarket/pkg/logger"
)

// Realtime events pushed to user channels.
const (
	EventOfferAccepted   = "offerAccepted"
	EventOfferRejected   = "offerRejected"
	EventNewMessage      = "newMessage"
	EventCarStatusUpdate = "carStatusUpdate"
	EventUserTyping      = "userTyping"
	EventMessageRead     = "messageRead"
)

// Routing keys of the domain events published to the broker.
const (
	RoutingRequestCreated   = "negotiation.request_created"
	RoutingRequestCancelled = "negotiation.request_cancelled"
	RoutingOfferCreated     = "negotiation.offer_created"
	RoutingOfferAccepted    = "negotiation.offer_accepted"
	RoutingOfferRejected    = "negotiation.offer_rejected"
	RoutingOfferWithdrawn   = "negotiation.offer_withdrawn"
	RoutingExpired          = "negotiation.expired"
	RoutingChatCreated      = "chat.created"
	RoutingCarStatusUpdated = "car.status_updated"
)

const (
	eventSchemaVersion = 1
	publishTimeout     = 5 * time.Second
)

type EventEnvelope struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	OccurredAt    time.Time   `json:"occurred_at"`
	Service       string      `json:"service"`
	Payload       interface{} `json:"payload"`
}

// Dispatcher fans side effects of a use case out to the realtime notifier
// and the event publisher. Both are optional.
type Dispatcher struct {
	notifier  Notifier
	publisher EventPublisher
	service   string
}

func NewDispatcher(notifier Notifier, publisher EventPublisher, service string) *Dispatcher {
	return &Dispatcher{
		notifier:  notifier,
		publisher: publisher,
		service:   service,
	}
}

func (d *Dispatcher) Notify(userID, event string, payload interface{}) {
	if d == nil || d.notifier == nil || userID == "" {
		return
	}
	d.notifier.Notify(userID, event, payload)
}

// Publish never fails the caller; errors are logged.
func (d *Dispatcher) Publish(ctx context.Context, routingKey string, payload interface{}) {
	if d == nil || d.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	envelope := EventEnvelope{
		SchemaVersion: eventSchemaVersion,
		EventType:     routingKey,
		OccurredAt:    time.Now().UTC(),
		Service:       d.service,
		Payload:       payload,
	}
	if err := d.publisher.Publish(ctx, routingKey, envelope); err != nil {
		logger.Warn("Publish Error: routing_key=%s: %v", routingKey, err)
	}
}
