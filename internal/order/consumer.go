package order

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/segmentio/kafka-go"
)

// CartPurger drops a user's persisted cart once their checkout completed.
type CartPurger interface {
	Delete(ctx context.Context, userID string) error
}

// CleanupConsumer consumes checkout.completed events and clears the
// purchased cart from persistence. Runs out of band so a slow or down
// consumer never delays a shopper's checkout.
type CleanupConsumer struct {
	purger CartPurger
	reader *kafka.Reader
}

func NewCleanupConsumer(purger CartPurger, topic string, brokers ...string) *CleanupConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  "cart-cleanup",
		MaxBytes: 10e6, // 10MB
	})
	return &CleanupConsumer{purger: purger, reader: reader}
}

func (c *CleanupConsumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *CleanupConsumer) Close() {
	if err := c.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (c *CleanupConsumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	c.handleEvent(ctx, m.Value)
}

func (c *CleanupConsumer) handleEvent(ctx context.Context, payload []byte) {
	var event completedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("error parsing checkout event: %v", err)
		return
	}

	if event.EventType != "checkout.completed" || event.UserID == "" {
		return
	}

	if err := c.purger.Delete(ctx, event.UserID); err != nil {
		log.Printf("failed to clear cart for user %s after order %s: %v", event.UserID, event.OrderID, err)
		return
	}

	log.Printf("cleared cart for user %s after order %s", event.UserID, event.OrderID)
}
