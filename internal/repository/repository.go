package repository

import (
	"context"
	"errors"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict means another writer saved the cart since it was
	// loaded. Callers re-read and retry.
	ErrVersionConflict = errors.New("cart version conflict")
)

// CartRepository is the server-side persistence port for authenticated
// shoppers' carts. Consumers define this interface, not the MongoDB
// implementation.
type CartRepository interface {
	Load(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, userID string, cart *domain.Cart) error
	// SaveCAS writes the cart only if the stored version still equals
	// expectedVersion, bumping the version on success. A cart that does not
	// exist yet is only written when expectedVersion is 0.
	SaveCAS(ctx context.Context, userID string, cart *domain.Cart, expectedVersion int64) error
	Delete(ctx context.Context, userID string) error
}
