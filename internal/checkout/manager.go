package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
	"github.com/yakuppgeyikk96/gratia/internal/order"
)

// Manager owns the checkout session lifecycle: creation, forward-only step
// transitions, expiry and the one-time hand-off to order creation.
type Manager struct {
	store     SessionStore
	orders    order.Creator
	publisher order.CompletedPublisher
	lifetime  time.Duration
}

func NewManager(store SessionStore, orders order.Creator, publisher order.CompletedPublisher) *Manager {
	return &Manager{
		store:     store,
		orders:    orders,
		publisher: publisher,
		lifetime:  domain.SessionLifetime,
	}
}

// CreateSession snapshots the cart and opens a session at the shipping step.
// The returned token is the only handle the client gets; it travels as an
// opaque cookie scoped to the checkout path.
func (m *Manager) CreateSession(ctx context.Context, cart *domain.Cart) (*domain.CheckoutSession, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	now := time.Now()
	session := &domain.CheckoutSession{
		Token:        uuid.NewString(),
		CartSnapshot: cart.Clone(),
		CurrentStep:  domain.StepShipping,
		CreatedAt:    now,
		ExpiresAt:    now.Add(m.lifetime),
	}

	if err := m.store.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store checkout session: %w", err)
	}

	return session, nil
}

// GetSession looks up a live session. Expired and unknown tokens are the
// same ErrSessionNotFound.
func (m *Manager) GetSession(ctx context.Context, token string) (*domain.CheckoutSession, error) {
	return m.store.Get(ctx, token)
}

// AdvanceStep moves the session to target, which must be the step
// immediately after the current one. The swap is a compare-and-set against
// the stored step, so of two racing requests only one advances. Each
// successful advance extends the session deadline.
func (m *Manager) AdvanceStep(ctx context.Context, token string, target domain.CheckoutStep) (*domain.CheckoutSession, error) {
	session, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if !domain.CanAdvanceTo(session.CurrentStep, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.CurrentStep, target)
	}

	return m.store.CompareAndSwapStep(ctx, token, session.CurrentStep, target, time.Now().Add(m.lifetime))
}

// Complete performs the terminal transition and hands the frozen cart
// snapshot to order creation. The compare-and-set makes the hand-off
// exactly-once: a concurrent duplicate submit loses the swap and gets
// ErrInvalidTransition instead of a second order.
func (m *Manager) Complete(ctx context.Context, token string, shipping order.ShippingInfo, payment order.PaymentResult) (string, error) {
	session, err := m.AdvanceStep(ctx, token, domain.StepCompleted)
	if err != nil {
		return "", err
	}

	orderID, err := m.orders.CreateOrder(ctx, session.CartSnapshot, shipping, payment)
	if err != nil {
		return "", fmt.Errorf("order creation failed: %w", err)
	}

	if m.publisher != nil {
		if err := m.publisher.PublishCompleted(ctx, orderID, session); err != nil {
			// The order exists; losing the event must not fail the
			// shopper's checkout.
			log.Printf("failed to publish checkout completion for order %s: %v", orderID, err)
		}
	}

	return orderID, nil
}

// IsNotFound reports whether err means the shopper has no usable session.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
