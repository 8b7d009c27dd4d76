package checkout

import (
	"context"
	"time"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// SessionStore persists checkout sessions by token. Implementations must
// treat expired sessions as absent on every read, and must make the step
// swap atomic: of two concurrent advances from the same step, exactly one
// may win.
type SessionStore interface {
	Put(ctx context.Context, session *domain.CheckoutSession) error
	// Get returns ErrSessionNotFound for unknown and expired tokens.
	Get(ctx context.Context, token string) (*domain.CheckoutSession, error)
	// CompareAndSwapStep advances the session from expected to target and
	// moves the deadline to expiresAt, failing with ErrInvalidTransition
	// when the stored step is no longer expected.
	CompareAndSwapStep(ctx context.Context, token string, expected, target domain.CheckoutStep, expiresAt time.Time) (*domain.CheckoutSession, error)
	Delete(ctx context.Context, token string) error
}
