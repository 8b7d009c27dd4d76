package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
	"github.com/yakuppgeyikk96/gratia/internal/repository"
)

type cartRepoMock struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
	saves int
}

func newCartRepoMock() *cartRepoMock {
	return &cartRepoMock{carts: make(map[string]*domain.Cart)}
}

func (r *cartRepoMock) Load(_ context.Context, userID string) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (r *cartRepoMock) Save(_ context.Context, userID string, c *domain.Cart) error {
	r.m.Lock()
	defer r.m.Unlock()
	r.carts[userID] = c.Clone()
	r.saves++
	return nil
}

func (r *cartRepoMock) SaveCAS(_ context.Context, userID string, c *domain.Cart, expectedVersion int64) error {
	return r.Save(context.Background(), userID, c)
}

func (r *cartRepoMock) Delete(_ context.Context, userID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	delete(r.carts, userID)
	return nil
}

func (r *cartRepoMock) saveCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.saves
}

type cartCacheMock struct {
	m       sync.Mutex
	deletes int
}

func (c *cartCacheMock) Get(context.Context, string) (*domain.Cart, error) {
	return nil, repository.ErrCacheMiss
}

func (c *cartCacheMock) Set(context.Context, string, *domain.Cart) error { return nil }

func (c *cartCacheMock) Delete(context.Context, string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.deletes++
	return nil
}

func (c *cartCacheMock) deleteCount() int {
	c.m.Lock()
	defer c.m.Unlock()
	return c.deletes
}

func newTestSessions(t *testing.T, loader *repository.Loader, repo repository.CartRepository) *CartSessions {
	t.Helper()
	sessions := NewCartSessions(testResolver(), loader, repo)
	t.Cleanup(func() { _ = sessions.Close() })
	return sessions
}

func widget(quantity int32) domain.CartItem {
	return domain.CartItem{
		ProductID: 1,
		Quantity:  quantity,
		UnitPrice: decimal.RequireFromString("9.99"),
	}
}

func TestCartSessions_SweepDropsIdleStores(t *testing.T) {
	sessions := newTestSessions(t, nil, nil)
	ctx := context.Background()

	store := sessions.GetOrCreate(ctx, "shopper-1", "")
	require.NoError(t, store.AddItem(ctx, widget(2), 2))

	sessions.mu.Lock()
	sessions.entries["shopper-1"].lastSeen = time.Now().Add(-storeIdleTTL - time.Minute)
	sessions.mu.Unlock()

	sessions.sweep()

	// The shopper comes back after the idle window: they get a fresh store.
	again := sessions.GetOrCreate(ctx, "shopper-1", "")
	assert.NotSame(t, store, again)
	assert.Empty(t, again.Cart().Items)
}

func TestCartSessions_SweepKeepsActiveStores(t *testing.T) {
	sessions := newTestSessions(t, nil, nil)
	ctx := context.Background()

	store := sessions.GetOrCreate(ctx, "shopper-1", "")
	require.NoError(t, store.AddItem(ctx, widget(2), 2))

	sessions.sweep()

	again := sessions.GetOrCreate(ctx, "shopper-1", "")
	assert.Same(t, store, again)
	require.Len(t, again.Cart().Items, 1)
}

func TestCartSessions_GetOrCreateRefreshesIdleClock(t *testing.T) {
	sessions := newTestSessions(t, nil, nil)
	ctx := context.Background()

	store := sessions.GetOrCreate(ctx, "shopper-1", "")

	sessions.mu.Lock()
	sessions.entries["shopper-1"].lastSeen = time.Now().Add(-storeIdleTTL - time.Minute)
	sessions.mu.Unlock()

	// A request just before the sweep keeps the store alive.
	sessions.GetOrCreate(ctx, "shopper-1", "")
	sessions.sweep()

	assert.Same(t, store, sessions.GetOrCreate(ctx, "shopper-1", ""))
}

func TestCartSessions_PersistWritesUserCartThrough(t *testing.T) {
	repo := newCartRepoMock()
	cache := &cartCacheMock{}
	sessions := newTestSessions(t, repository.NewLoader(repo, cache), repo)
	ctx := context.Background()

	store := sessions.GetOrCreate(ctx, "shopper-1", "u1")
	require.NoError(t, store.AddItem(ctx, widget(2), 2))

	sessions.Persist(ctx, store)

	assert.Equal(t, 1, repo.saveCount())
	saved, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, saved.Items, 1)
	assert.Equal(t, int32(2), saved.Items[0].Quantity)
	// The cached copy is stale after the write and gets dropped.
	assert.Equal(t, 1, cache.deleteCount())
}

func TestCartSessions_PersistSkipsGuestCarts(t *testing.T) {
	repo := newCartRepoMock()
	sessions := newTestSessions(t, nil, repo)
	ctx := context.Background()

	store := sessions.GetOrCreate(ctx, "shopper-1", "")
	require.NoError(t, store.AddItem(ctx, widget(2), 2))

	sessions.Persist(ctx, store)

	assert.Equal(t, 0, repo.saveCount())
}

func TestAddItem_AuthenticatedShopperCartSurvivesEviction(t *testing.T) {
	repo := newCartRepoMock()
	cache := &cartCacheMock{}
	sessions := newTestSessions(t, repository.NewLoader(repo, cache), repo)
	handler := NewCartHandler(sessions, testResolver(), 5*time.Second)

	request := shopperRequest("POST", "/api/v1/cart/items", addItemBody(t, 1, 2))
	request = request.WithContext(context.WithValue(request.Context(), "user_id", "u1"))

	recorder := httptest.NewRecorder()
	handler.AddItem(recorder, request)
	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, 1, repo.saveCount())

	// The instance forgets the store; the next request hydrates the same
	// cart back from persistence.
	sessions.Drop("shopper-1")

	recorder = httptest.NewRecorder()
	getRequest := shopperRequest("GET", "/api/v1/cart", nil)
	getRequest = getRequest.WithContext(context.WithValue(getRequest.Context(), "user_id", "u1"))
	handler.GetCart(recorder, getRequest)

	require.Equal(t, http.StatusOK, recorder.Code)
	response := decodeCart(t, recorder)
	require.Len(t, response.Cart.Items, 1)
	assert.Equal(t, int32(2), response.Cart.Items[0].Quantity)
}
