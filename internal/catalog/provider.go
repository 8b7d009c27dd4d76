package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

const snapshotTTL = 30 * time.Second

type cachedSnapshot struct {
	snapshot  domain.ProductSnapshot
	fetchedAt time.Time
}

// SnapshotProvider fronts the ProductSource with a short-lived in-process
// cache, singleflight deduplication of concurrent fetches for the same key,
// and a circuit breaker. When the source is down, consumers see the key as
// unknown instead of an error.
type SnapshotProvider struct {
	source  ProductSource
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[domain.ProductSnapshot]
	sfg     singleflight.Group

	mu    sync.RWMutex
	cache map[domain.ItemKey]cachedSnapshot
}

func NewSnapshotProvider(source ProductSource, timeout time.Duration) *SnapshotProvider {
	breaker := gobreaker.NewCircuitBreaker[domain.ProductSnapshot](gobreaker.Settings{
		Name:    "product-source",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A miss is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound)
		},
	})

	return &SnapshotProvider{
		source:  source,
		timeout: timeout,
		breaker: breaker,
		cache:   make(map[domain.ItemKey]cachedSnapshot),
	}
}

// Snapshot returns the current view of one product variant.
func (p *SnapshotProvider) Snapshot(ctx context.Context, key domain.ItemKey) (domain.ProductSnapshot, error) {
	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok && time.Since(cached.fetchedAt) < snapshotTTL {
		return cached.snapshot, nil
	}

	v, err, _ := p.sfg.Do(key.String(), func() (interface{}, error) {
		return p.fetch(ctx, key)
	})
	if err != nil {
		return domain.ProductSnapshot{}, err
	}
	return v.(domain.ProductSnapshot), nil
}

func (p *SnapshotProvider) fetch(ctx context.Context, key domain.ItemKey) (domain.ProductSnapshot, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	snap, err := p.breaker.Execute(func() (domain.ProductSnapshot, error) {
		return p.source.GetStockAndPrice(fetchCtx, key.ProductID, key.VariantID)
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return domain.ProductSnapshot{}, err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.ProductSnapshot{}, ErrUpstreamUnavailable
		}
		return domain.ProductSnapshot{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	p.mu.Lock()
	p.cache[key] = cachedSnapshot{snapshot: snap, fetchedAt: time.Now()}
	p.mu.Unlock()

	return snap, nil
}

// BatchSnapshots resolves every key it can; keys the catalog does not know
// or cannot currently serve are left out of the result.
func (p *SnapshotProvider) BatchSnapshots(ctx context.Context, keys []domain.ItemKey) map[domain.ItemKey]domain.ProductSnapshot {
	snapshots := make(map[domain.ItemKey]domain.ProductSnapshot, len(keys))
	for _, key := range keys {
		snap, err := p.Snapshot(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrProductNotFound) {
				log.Printf("snapshot fetch for %s failed: %v", key, err)
			}
			continue
		}
		snapshots[key] = snap
	}
	return snapshots
}
