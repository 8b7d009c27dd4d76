// Package cartsync reconciles a guest cart with the server-held user cart at
// the moment of login.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/yakuppgeyikk96/gratia/internal/cart"
	"github.com/yakuppgeyikk96/gratia/internal/catalog"
	"github.com/yakuppgeyikk96/gratia/internal/domain"
	"github.com/yakuppgeyikk96/gratia/internal/repository"
)

// ErrSyncFailed means the merge could not be committed. The guest cart is
// left intact so the caller can retry or keep shopping anonymously.
var ErrSyncFailed = errors.New("cart sync failed")

const maxMergeAttempts = 3

// MergeMarker records that a login event's merge has begun, so a duplicate
// submit of the same login (second tab, double click) cannot double-count
// the guest quantities.
type MergeMarker interface {
	// Begin returns false when this login event was already claimed.
	Begin(ctx context.Context, loginEventID string) (bool, error)
	// Clear releases a claim whose merge did not commit.
	Clear(ctx context.Context, loginEventID string)
}

type Service struct {
	repo      repository.CartRepository
	cache     repository.CartCache
	marker    MergeMarker
	snapshots catalog.SnapshotReader
}

func NewService(repo repository.CartRepository, cache repository.CartCache, marker MergeMarker, snapshots catalog.SnapshotReader) *Service {
	return &Service{repo: repo, cache: cache, marker: marker, snapshots: snapshots}
}

// SyncOnLogin merges the guest cart into the authenticated user's server
// cart: server items first, guest quantities summed into matching keys,
// unmatched guest lines appended. The committed cart is written back into
// the store (which becomes the user's cart) and the guest contents are gone
// only after the server save succeeded.
func (s *Service) SyncOnLogin(ctx context.Context, store *cart.Store, userID, loginEventID string) (*domain.Cart, error) {
	guest := store.Cart()

	// Only a guest cart is merge input. A store already holding a user cart
	// (re-login, or one hydrated from persistence) has nothing anonymous to
	// reconcile; merging it into itself would double every quantity.
	if guest.Owner != domain.OwnerGuest {
		merged, err := s.loadServerCart(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}
		s.adoptMerged(ctx, store, userID, merged)
		return merged, nil
	}

	claimed, err := s.marker.Begin(ctx, loginEventID)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency marker: %v", ErrSyncFailed, err)
	}
	if !claimed {
		// Same login event already merged. Hand back the server cart
		// without touching quantities again.
		log.Printf("duplicate login event %s, skipping merge", loginEventID)
		merged, err := s.loadServerCart(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}
		s.adoptMerged(ctx, store, userID, merged)
		return merged, nil
	}

	for attempt := 0; attempt < maxMergeAttempts; attempt++ {
		server, err := s.loadServerCart(ctx, userID)
		if err != nil {
			s.marker.Clear(ctx, loginEventID)
			return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}

		merged := Merge(guest, server, userID)
		merged.RefreshStock(s.snapshots.BatchSnapshots(ctx, itemKeys(merged)))

		err = s.repo.SaveCAS(ctx, userID, merged, server.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			s.marker.Clear(ctx, loginEventID)
			return nil, fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}

		s.adoptMerged(ctx, store, userID, merged)
		return merged, nil
	}

	s.marker.Clear(ctx, loginEventID)
	return nil, fmt.Errorf("%w: too many concurrent writers", ErrSyncFailed)
}

// Merge applies the login merge policy. Pure: neither input is mutated.
func Merge(guest, server *domain.Cart, userID string) *domain.Cart {
	merged := server.Clone()
	merged.Owner = domain.OwnerUser
	merged.OwnerID = userID

	for _, item := range guest.Items {
		merged.Upsert(item)
	}
	return merged
}

func (s *Service) loadServerCart(ctx context.Context, userID string) (*domain.Cart, error) {
	server, err := s.repo.Load(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewUserCart(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return server, nil
}

// adoptMerged makes the in-memory store hold the committed user cart and
// drops the now-stale cache entry.
func (s *Service) adoptMerged(ctx context.Context, store *cart.Store, userID string, merged *domain.Cart) {
	store.ReplaceAll(ctx, merged.Items)
	store.SetOwner(userID)

	if err := s.cache.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrCacheMiss) {
		log.Printf("cache invalidate after sync failed: %v", err)
	}
}

func itemKeys(c *domain.Cart) []domain.ItemKey {
	keys := make([]domain.ItemKey, 0, len(c.Items))
	for _, item := range c.Items {
		keys = append(keys, item.Key())
	}
	return keys
}
