// Package memory provides an in-process implementation of the persistence
// interfaces. It backs local development and tests where no PostgreSQL
// instance is available.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tailor/internal/domain/entity"
	"tailor/internal/domain/repository"
)

// userRepository keeps users in two maps guarded by one mutex: the primary
// keyed by ID and a secondary email index. Create checks and inserts under
// the same lock, which gives the same first-write-wins behavior as the
// unique constraint in the PostgreSQL implementation.
type userRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*entity.User
	byEmail map[string]uuid.UUID
}

// NewUserRepository is the constructor for the in-memory user repository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		byID:    make(map[uuid.UUID]*entity.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (repo *userRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	user, ok := repo.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(user), nil
}

func (repo *userRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	id, ok := repo.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(repo.byID[id]), nil
}

func (repo *userRepository) Create(_ context.Context, user *entity.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	key := normalizeEmail(user.Email)
	if _, taken := repo.byEmail[key]; taken {
		return repository.ErrEmailTaken
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	repo.byID[user.ID] = cloneUser(user)
	repo.byEmail[key] = user.ID

	return nil
}

func (repo *userRepository) Update(_ context.Context, user *entity.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	current, ok := repo.byID[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}

	newKey := normalizeEmail(user.Email)
	oldKey := normalizeEmail(current.Email)
	if newKey != oldKey {
		if owner, taken := repo.byEmail[newKey]; taken && owner != user.ID {
			return repository.ErrEmailTaken
		}
		delete(repo.byEmail, oldKey)
		repo.byEmail[newKey] = user.ID
	}

	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = time.Now().UTC()
	repo.byID[user.ID] = cloneUser(user)

	return nil
}

// normalizeEmail trims whitespace only; the email index is case-sensitive,
// matching the uniqueness rule of the backing store.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// cloneUser copies the stored entity so callers cannot mutate the map
// contents through the returned pointer.
func cloneUser(user *entity.User) *entity.User {
	if user == nil {
		return nil
	}

	cloned := *user
	if user.BaseCVID != nil {
		id := *user.BaseCVID
		cloned.BaseCVID = &id
	}

	return &cloned
}
