package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// Loader reads user carts cache-first, deduplicating concurrent misses for
// the same user. A user with no stored cart gets a fresh empty one (version
// 0), so callers never branch on not-found.
type Loader struct {
	repo  CartRepository
	cache CartCache
	sfg   singleflight.Group
}

func NewLoader(repo CartRepository, cache CartCache) *Loader {
	return &Loader{repo: repo, cache: cache}
}

func (l *Loader) Load(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := l.sfg.Do(userID, func() (interface{}, error) {
		cart, err := l.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("cache get error: %v", err) // log cache error but continue
		}

		cart, err = l.repo.Load(ctx, userID)
		if errors.Is(err, ErrCartNotFound) {
			return domain.NewUserCart(userID), nil
		}
		if err != nil {
			return nil, err
		}

		go func() {
			if err := l.cache.Set(context.Background(), userID, cart); err != nil {
				log.Printf("cache set error: %v", err)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// Invalidate drops the cached copy after a write.
func (l *Loader) Invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := l.cache.Delete(ctx, userID); err != nil {
		log.Printf("cache invalidate error: %v", err)
	}
}
