package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// RedisStore keeps checkout sessions in redis with a TTL matching the
// session deadline, so storage expiry and ExpiresAt agree. Step swaps run
// under WATCH so concurrent advances race on the key and only one commits.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, session *domain.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	if err := s.client.Set(ctx, sessionKey(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*domain.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var session domain.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session failed: %w", err)
	}

	if session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (s *RedisStore) CompareAndSwapStep(ctx context.Context, token string, expected, target domain.CheckoutStep, expiresAt time.Time) (*domain.CheckoutSession, error) {
	key := sessionKey(token)
	var updated *domain.CheckoutSession

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get failed: %w", err)
		}

		var session domain.CheckoutSession
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshal session failed: %w", err)
		}
		if session.Expired(time.Now()) {
			return ErrSessionNotFound
		}
		if session.CurrentStep != expected {
			return ErrInvalidTransition
		}

		session.CurrentStep = target
		session.ExpiresAt = expiresAt

		newData, err := json.Marshal(&session)
		if err != nil {
			return fmt.Errorf("marshal session failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, time.Until(expiresAt))
			return nil
		})
		if err != nil {
			return err
		}

		updated = &session
		return nil
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Someone else moved the session between our read and write. For
		// a forward-only machine that means our expected step is gone.
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return fmt.Sprintf("checkout:%s", token)
}
