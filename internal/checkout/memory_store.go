package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/yakuppgeyikk96/gratia/internal/domain"
)

// CleanupInterval is how often the background sweep drops expired sessions.
// Expiry itself is enforced lazily on every read; the sweep only reclaims
// memory.
const CleanupInterval = 30 * time.Second

// MemoryStore keeps checkout sessions in process memory. Suitable for a
// single-instance deployment and for tests; multi-instance setups use the
// redis store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.CheckoutSession

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		sessions:    make(map[string]*domain.CheckoutSession),
		stopCleanup: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
		}
	}
}

func (s *MemoryStore) Put(_ context.Context, session *domain.CheckoutSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = cloneSession(session)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*domain.CheckoutSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok || session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *MemoryStore) CompareAndSwapStep(_ context.Context, token string, expected, target domain.CheckoutStep, expiresAt time.Time) (*domain.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || session.Expired(time.Now()) {
		return nil, ErrSessionNotFound
	}
	if session.CurrentStep != expected {
		return nil, ErrInvalidTransition
	}

	session.CurrentStep = target
	session.ExpiresAt = expiresAt
	return cloneSession(session), nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// Close stops the background sweep and waits for it to finish.
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)
	s.wg.Wait()
	return nil
}

func cloneSession(session *domain.CheckoutSession) *domain.CheckoutSession {
	cp := *session
	if session.CartSnapshot != nil {
		cp.CartSnapshot = session.CartSnapshot.Clone()
	}
	return &cp
}
