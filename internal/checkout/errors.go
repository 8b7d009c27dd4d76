package checkout

import "errors"

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrSessionNotFound covers unknown and expired tokens alike: an
	// expired session must be indistinguishable from one that never
	// existed.
	ErrSessionNotFound = errors.New("checkout session not found")

	ErrInvalidTransition = errors.New("illegal checkout step transition")
)
