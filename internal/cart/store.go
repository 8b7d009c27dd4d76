// Package cart holds the in-memory authoritative cart for one shopper.
// All mutations go through the Store so UI callers never share an ambient
// global cart.
package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yakuppgeyikk96/gratia/internal/catalog"
	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrItemNotFound    = errors.New("item not found in cart")
)

// Store owns the current shopper's cart. Every mutation recomputes the
// derived warnings against the latest known product snapshots, then refreshes
// per-line stock and clamps quantities. Reads return copies so callers cannot
// mutate past the store's lock.
type Store struct {
	mu        sync.Mutex
	cart      *domain.Cart
	warnings  []domain.CartWarning
	snapshots catalog.SnapshotReader
}

func NewStore(snapshots catalog.SnapshotReader) *Store {
	return &Store{
		cart:      domain.NewGuestCart(),
		snapshots: snapshots,
	}
}

// NewStoreFromCart wraps an already-loaded cart, e.g. a user cart fetched
// from persistence.
func NewStoreFromCart(cart *domain.Cart, snapshots catalog.SnapshotReader) *Store {
	return &Store{
		cart:      cart.Clone(),
		snapshots: snapshots,
	}
}

// AddItem merges quantity into the line with the item's key, appending a new
// line when the key is absent. A merge that lands at or below zero removes
// the line, so decrements are expressible and deleting twice is harmless.
func (s *Store) AddItem(ctx context.Context, item domain.CartItem, quantity int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Quantity = quantity
	key := item.Key()

	if idx := s.cart.Find(key); idx >= 0 {
		if s.cart.Items[idx].Quantity+quantity <= 0 {
			s.cart.Remove(key)
			s.refresh(ctx)
			return nil
		}
		s.cart.Upsert(item)
	} else {
		if quantity <= 0 {
			return nil
		}
		item.AddedAt = time.Now()
		s.cart.Upsert(item)
	}

	s.cart.UpdatedAt = time.Now()
	s.refresh(ctx)
	return nil
}

// UpdateQuantity sets the line to an exact quantity. Non-positive requests
// are caller mistakes and rejected; requests above known stock are clamped
// by the refresh pass, surfacing a quantity_capped warning instead of an
// error.
func (s *Store) UpdateQuantity(ctx context.Context, key domain.ItemKey, quantity int32) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.cart.Find(key)
	if idx < 0 {
		return ErrItemNotFound
	}

	s.cart.Items[idx].Quantity = quantity
	s.cart.UpdatedAt = time.Now()
	s.refresh(ctx)
	return nil
}

// RemoveItem deletes the line. Removing an absent key is a no-op.
func (s *Store) RemoveItem(ctx context.Context, key domain.ItemKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Remove(key)
	s.cart.UpdatedAt = time.Now()
	s.refresh(ctx)
}

// ReplaceAll swaps the full item list in one step, merging any duplicate
// keys in the input. Used by the login merge; warnings are recomputed once
// at the end, not per item.
func (s *Store) ReplaceAll(ctx context.Context, items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = nil
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		s.cart.Upsert(item)
	}
	s.cart.UpdatedAt = time.Now()
	s.refresh(ctx)
}

// Clear empties the cart, e.g. after checkout completion.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Items = nil
	s.warnings = nil
	s.cart.UpdatedAt = time.Now()
}

// SetOwner marks the cart as belonging to an authenticated user.
func (s *Store) SetOwner(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart.Owner = domain.OwnerUser
	s.cart.OwnerID = userID
}

// Cart returns a copy of the current cart.
func (s *Store) Cart() *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Warnings returns the warnings computed by the last mutation.
func (s *Store) Warnings() []domain.CartWarning {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CartWarning, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// refresh recomputes warnings against fresh snapshots, then applies the new
// stock figures and clamps quantities. Warnings are computed first so a
// clamped line still reports the shortfall it was clamped for. Caller holds
// the lock.
func (s *Store) refresh(ctx context.Context) {
	keys := make([]domain.ItemKey, 0, len(s.cart.Items))
	for _, item := range s.cart.Items {
		keys = append(keys, item.Key())
	}

	snapshots := s.snapshots.BatchSnapshots(ctx, keys)
	s.warnings = domain.ComputeWarnings(s.cart, snapshots)
	s.cart.RefreshStock(snapshots)
}
