package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	InquiryCreated    = "inquiry.created"
	InquiryReplied    = "inquiry.replied"
	PropertyModerated = "property.moderated"
	UserKYCReviewed   = "user.kyc_reviewed"
)

// Event is the envelope written to the topic.
type Event struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// PublishAsync sends ev without blocking the request; failures are only logged.
func PublishAsync(p Publisher, log *zap.Logger, eventType, key string, payload interface{}) {
	ev := Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Publish(ctx, ev); err != nil {
			log.Warn("failed to publish event", zap.String("type", ev.Type), zap.String("key", ev.Key), zap.Error(err))
		}
	}()
}

// NoopPublisher logs events when no broker is configured.
type NoopPublisher struct {
	log *zap.Logger
}

func NewNoopPublisher(log *zap.Logger) *NoopPublisher {
	return &NoopPublisher{log: log}
}

func (p *NoopPublisher) Publish(_ context.Context, ev Event) error {
	p.log.Debug("event dropped, no broker configured", zap.String("type", ev.Type), zap.String("key", ev.Key))
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
