package events

import (
	"context"
	"time"

	"bloomly/pkg/kafka"
	"bloomly/pkg/logger"
)

const (
	TypeBookingStatusChanged = "booking.status_changed"
	TypeSettlementSettled    = "settlement.settled"
	TypePointsCredited       = "points.credited"
)

type BookingStatusChanged struct {
	BookingID     string    `json:"booking_id"`
	PartnerID     string    `json:"partner_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type SettlementSettled struct {
	SettlementID string    `json:"settlement_id"`
	PartnerID    string    `json:"partner_id"`
	Status       string    `json:"status"`
	Payout       int64     `json:"payout"`
	TransferID   string    `json:"transfer_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type PointsCredited struct {
	TransactionID string    `json:"transaction_id"`
	PartnerID     string    `json:"partner_id"`
	Points        int64     `json:"points"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher fans settlement-engine events out to downstream consumers
// (notifications, analytics). Publishing is best-effort: a publish
// failure is logged and never fails the operation that produced it.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any)
	Close() error
}

type kafkaPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, source string, log *logger.Logger) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		log:      log,
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType, key string, payload any) {
	msg := kafka.NewMessage(eventType, key, payload)
	msg.WithSource(p.source)

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Warn("Failed to publish event",
			"event_type", eventType,
			"event_id", msg.EventID(),
			"key", key,
			"error", err,
		)
		return
	}

	p.log.Debug("Event published",
		"event_type", eventType,
		"event_id", msg.EventID(),
		"key", key,
	)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events. Used when no broker is configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, eventType, key string, payload any) {}

func (NopPublisher) Close() error { return nil }
