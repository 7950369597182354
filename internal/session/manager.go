package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Manager loads and persists sessions around a request
type Manager struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewManager wires a store with the session lifetime
func NewManager(store Store, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: store, ttl: ttl, logger: logger}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Load returns the session for a cookie value. Unknown, expired or unreadable ids
// yield a fresh session; store failures are logged, not returned.
func (m *Manager) Load(ctx context.Context, id string) *Session {
	if id == "" {
		return New()
	}
	s, err := m.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Warn("session load failed", zap.Error(err))
		}
		return New()
	}
	return s
}

// Save persists a modified session and removes the id it was rotated away from
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if !s.Modified() {
		return nil
	}
	if stale := s.StaleID(); stale != "" {
		if err := m.store.Delete(ctx, stale); err != nil {
			m.logger.Warn("stale session delete failed", zap.Error(err))
		}
		s.staleID = ""
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.modified = false
	s.isNew = false
	return nil
}
