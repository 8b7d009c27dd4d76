package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// CompletedPublisher announces a finished checkout to the rest of the
// storefront (fulfilment, email, analytics).
type CompletedPublisher interface {
	PublishCompleted(ctx context.Context, orderID string, session *domain.CheckoutSession) error
}

// KafkaPublisher writes checkout.completed envelopes to the checkout-events
// topic, keyed by order id so one order's events stay on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

type completedEvent struct {
	EventType   string            `json:"event_type"`
	OrderID     string            `json:"order_id"`
	UserID      string            `json:"user_id"`
	Items       []domain.CartItem `json:"items"`
	TotalAmount string            `json:"total_amount"`
	CompletedAt time.Time         `json:"completed_at"`
}

func (p *KafkaPublisher) PublishCompleted(ctx context.Context, orderID string, session *domain.CheckoutSession) error {
	event := completedEvent{
		EventType:   "checkout.completed",
		OrderID:     orderID,
		UserID:      session.CartSnapshot.OwnerID,
		Items:       session.CartSnapshot.Items,
		TotalAmount: session.CartSnapshot.Total().String(),
		CompletedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish checkout event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
