package http

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/yakuppgeyikk96/gratia/internal/cart"
	"github.com/yakuppgeyikk96/gratia/internal/catalog"
	"github.com/yakuppgeyikk96/gratia/internal/domain"
	"github.com/yakuppgeyikk96/gratia/internal/repository"
)

// A shopper who stops sending requests keeps their in-memory store around
// this long before the sweep reclaims it. Authenticated carts survive the
// eviction through persistence and are re-hydrated on the next request.
const (
	storeIdleTTL       = 24 * time.Hour
	storeSweepInterval = 10 * time.Minute
)

type cartEntry struct {
	store    *cart.Store
	lastSeen time.Time
}

// CartSessions hands each shopper their in-memory cart store. Guest carts
// are born empty; a logged-in shopper's cart is hydrated from the repository
// (through the cache) the first time this instance sees them. Idle stores
// are swept in the background so abandoned shoppers do not pin memory.
type CartSessions struct {
	mu        sync.Mutex
	entries   map[string]*cartEntry
	snapshots catalog.SnapshotReader
	loader    *repository.Loader
	repo      repository.CartRepository

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewCartSessions(snapshots catalog.SnapshotReader, loader *repository.Loader, repo repository.CartRepository) *CartSessions {
	c := &CartSessions{
		entries:     make(map[string]*cartEntry),
		snapshots:   snapshots,
		loader:      loader,
		repo:        repo,
		stopCleanup: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

func (c *CartSessions) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(storeSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *CartSessions) sweep() {
	cutoff := time.Now().Add(-storeIdleTTL)
	c.mu.Lock()
	defer c.mu.Unlock()
	for shopperID, entry := range c.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(c.entries, shopperID)
		}
	}
}

func (c *CartSessions) GetOrCreate(ctx context.Context, shopperID, userID string) *cart.Store {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[shopperID]; ok {
		entry.lastSeen = time.Now()
		return entry.store
	}

	store := c.hydrate(ctx, userID)
	c.entries[shopperID] = &cartEntry{store: store, lastSeen: time.Now()}
	return store
}

func (c *CartSessions) hydrate(ctx context.Context, userID string) *cart.Store {
	if userID == "" || c.loader == nil {
		return cart.NewStore(c.snapshots)
	}

	loaded, err := c.loader.Load(ctx, userID)
	if err != nil {
		log.Printf("failed to load cart for user %s, starting empty: %v", userID, err)
		return cart.NewStore(c.snapshots)
	}
	return cart.NewStoreFromCart(loaded, c.snapshots)
}

// Persist writes an authenticated shopper's cart through to the repository
// and drops the now-stale cache entry, so the cart survives this instance
// and shows up on the user's other devices. Guest carts live only in memory
// until login. Best effort: a failed write is logged and the in-memory cart
// stays authoritative.
func (c *CartSessions) Persist(ctx context.Context, store *cart.Store) {
	if c.repo == nil {
		return
	}

	current := store.Cart()
	if current.Owner != domain.OwnerUser || current.OwnerID == "" {
		return
	}

	if err := c.repo.Save(ctx, current.OwnerID, current); err != nil {
		log.Printf("failed to persist cart for user %s: %v", current.OwnerID, err)
		return
	}
	if c.loader != nil {
		c.loader.Invalidate(current.OwnerID)
	}
}

// Drop forgets a shopper's in-memory store, e.g. after checkout completes.
func (c *CartSessions) Drop(shopperID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, shopperID)
}

// Close stops the background sweep and waits for it to finish.
func (c *CartSessions) Close() error {
	close(c.stopCleanup)
	c.wg.Wait()
	return nil
}
