package cartsync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// markerTTL bounds how long a login event stays claimed. A day is far past
// any plausible duplicate submit.
const markerTTL = 24 * time.Hour

// RedisMarker claims login events with SETNX.
type RedisMarker struct {
	client *redis.Client
}

func NewRedisMarker(client *redis.Client) *RedisMarker {
	return &RedisMarker{client: client}
}

func (m *RedisMarker) Begin(ctx context.Context, loginEventID string) (bool, error) {
	ok, err := m.client.SetNX(ctx, markerKey(loginEventID), "1", markerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (m *RedisMarker) Clear(ctx context.Context, loginEventID string) {
	if err := m.client.Del(ctx, markerKey(loginEventID)).Err(); err != nil {
		log.Printf("failed to clear merge marker %s: %v", loginEventID, err)
	}
}

func markerKey(loginEventID string) string {
	return fmt.Sprintf("cartsync:login:%s", loginEventID)
}
