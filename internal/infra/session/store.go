// Package session tracks logged-in sessions in process memory. Sessions are
// advisory: authentication itself is stateless JWT, the store exists so a
// logout or account action can observe and revoke activity.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tailor/config"
	"tailor/internal/domain/entity"
)

// Store keeps sessions keyed by session ID with a secondary index per user.
// The clock is injected for tests.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	maxIdle   time.Duration
	sessions  map[string]*entity.Session
	userIndex map[uuid.UUID]map[string]struct{}
	logger    *slog.Logger
}

// NewStore is the constructor for the in-process session store.
func NewStore(cfg *config.Config, logger *slog.Logger) *Store {
	return newStoreWithClock(cfg.Session.MaxIdle, logger, time.Now)
}

func newStoreWithClock(maxIdle time.Duration, logger *slog.Logger, now func() time.Time) *Store {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}

	return &Store{
		now:       now,
		maxIdle:   maxIdle,
		sessions:  make(map[string]*entity.Session),
		userIndex: make(map[uuid.UUID]map[string]struct{}),
		logger:    logger,
	}
}

// Create registers a new session for the user and returns its ID.
func (s *Store) Create(userID uuid.UUID, email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := uuid.NewString()
	s.sessions[id] = &entity.Session{
		ID:           id,
		UserID:       userID,
		Email:        email,
		CreatedAt:    now,
		LastActivity: now,
	}

	index, ok := s.userIndex[userID]
	if !ok {
		index = make(map[string]struct{})
		s.userIndex[userID] = index
	}
	index[id] = struct{}{}

	return id
}

// Get returns a copy of the session, or false when it does not exist or has
// gone idle past the cutoff.
func (s *Store) Get(id string) (entity.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess) {
		return entity.Session{}, false
	}

	return *sess, true
}

// Touch refreshes the session's activity timestamp.
func (s *Store) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.LastActivity = s.now()
	}
}

// Invalidate removes one session.
func (s *Store) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.remove(id)
}

// InvalidateUser removes every session belonging to the user.
func (s *Store) InvalidateUser(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.userIndex[userID] {
		s.remove(id)
	}
}

// Run sweeps idle sessions until the context is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				s.logger.Debug("idle sessions swept", slog.Int("removed", removed))
			}
		}
	}
}

func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			s.remove(id)
			removed++
		}
	}

	return removed
}

// remove must be called with the write lock held.
func (s *Store) remove(id string) {
	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	delete(s.sessions, id)
	if index, ok := s.userIndex[sess.UserID]; ok {
		delete(index, id)
		if len(index) == 0 {
			delete(s.userIndex, sess.UserID)
		}
	}
}

func (s *Store) expired(sess *entity.Session) bool {
	return s.now().Sub(sess.LastActivity) > s.maxIdle
}
