package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-checkout-service/internal/metrics"
)

// Store keeps open checkout sessions in memory. Sessions never share state; the store
// only owns the id -> session mapping.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Store) Put(session *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	metrics.SessionsActive.Set(float64(len(s.sessions)))
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return session, nil
}

// Delete closes the session before forgetting it so in-flight calls drop their result.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	if ok {
		session.Close()
	}
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reap closes and removes sessions idle for longer than the TTL.
func (s *Store) Reap() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []*Session
	for id, session := range s.sessions {
		if session.LastActive().Before(cutoff) {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, session := range expired {
		session.Close()
	}
	return len(expired)
}

// Run reaps on every tick until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, logger *logging.LoggerV2) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				logger.Debug("Reaped idle checkout sessions", logging.Fields{
					"count":     n,
					"remaining": s.Len(),
				})
			}
		}
	}
}
