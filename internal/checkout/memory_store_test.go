package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

func storedSession(token string, expiresAt time.Time) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		Token:        token,
		CartSnapshot: testCart(1),
		CurrentStep:  domain.StepShipping,
		CreatedAt:    time.Now(),
		ExpiresAt:    expiresAt,
	}
}

func TestMemoryStore_PutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	session := storedSession("t1", time.Now().Add(time.Minute))
	require.NoError(t, store.Put(ctx, session))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, got.CurrentStep)
	assert.Equal(t, session.ExpiresAt.Unix(), got.ExpiresAt.Unix())
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storedSession("t1", time.Now().Add(time.Minute))))

	first, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	first.CurrentStep = domain.StepCompleted
	first.CartSnapshot.Items[0].Quantity = 99

	second, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepShipping, second.CurrentStep)
	assert.Equal(t, int32(1), second.CartSnapshot.Items[0].Quantity)
}

func TestMemoryStore_LazyExpiry(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storedSession("gone", time.Now().Add(-time.Second))))

	_, err := store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = store.CompareAndSwapStep(ctx, "gone", domain.StepShipping, domain.StepPayment, time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_CompareAndSwapStep(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storedSession("t1", time.Now().Add(time.Minute))))
	deadline := time.Now().Add(domain.SessionLifetime)

	swapped, err := store.CompareAndSwapStep(ctx, "t1", domain.StepShipping, domain.StepPayment, deadline)
	require.NoError(t, err)
	assert.Equal(t, domain.StepPayment, swapped.CurrentStep)
	assert.Equal(t, deadline.Unix(), swapped.ExpiresAt.Unix())

	// Stale expectation loses.
	_, err = store.CompareAndSwapStep(ctx, "t1", domain.StepShipping, domain.StepPayment, deadline)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, storedSession("t1", time.Now().Add(time.Minute))))
	require.NoError(t, store.Delete(ctx, "t1"))
	require.NoError(t, store.Delete(ctx, "t1"))

	_, err := store.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
