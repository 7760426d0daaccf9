package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tailor/internal/domain/entity"
	"tailor/internal/domain/repository"
)

func newUser(email string) *entity.User {
	return &entity.User{
		ID:           uuid.New(),
		Email:        email,
		FullName:     "Test User",
		AuthProvider: entity.ProviderLocal,
		PasswordHash: "hash",
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository()
	user := newUser("user@example.com")

	require.NoError(t, repo.Create(context.Background(), user))
	assert.False(t, user.CreatedAt.IsZero())

	byID, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := repo.FindByEmail(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	// The email index is case-sensitive.
	_, err = repo.FindByEmail(context.Background(), "USER@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	repo := NewUserRepository()

	require.NoError(t, repo.Create(context.Background(), newUser("user@example.com")))
	err := repo.Create(context.Background(), newUser("user@example.com"))
	assert.ErrorIs(t, err, repository.ErrEmailTaken)

	// A different casing is a different identity.
	assert.NoError(t, repo.Create(context.Background(), newUser("User@Example.com")))
}

func TestUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	repo := NewUserRepository()

	const attempts = 32
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.Create(context.Background(), newUser("race@example.com"))
		}()
	}
	wg.Wait()
	close(errs)

	created := 0
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, repository.ErrEmailTaken)
		}
	}
	assert.Equal(t, 1, created, "exactly one concurrent create may succeed")
}

func TestUserRepository_Update(t *testing.T) {
	repo := NewUserRepository()

	first := newUser("first@example.com")
	second := newUser("second@example.com")
	require.NoError(t, repo.Create(context.Background(), first))
	require.NoError(t, repo.Create(context.Background(), second))

	t.Run("rename and re-key email", func(t *testing.T) {
		first.Email = "renamed@example.com"
		first.FullName = "Renamed"
		require.NoError(t, repo.Update(context.Background(), first))

		found, err := repo.FindByEmail(context.Background(), "renamed@example.com")
		require.NoError(t, err)
		assert.Equal(t, "Renamed", found.FullName)

		_, err = repo.FindByEmail(context.Background(), "first@example.com")
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})

	t.Run("email collision", func(t *testing.T) {
		first.Email = "second@example.com"
		err := repo.Update(context.Background(), first)
		assert.ErrorIs(t, err, repository.ErrEmailTaken)
	})

	t.Run("unknown user", func(t *testing.T) {
		err := repo.Update(context.Background(), newUser("ghost@example.com"))
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
	})
}

func TestUserRepository_ReturnsCopies(t *testing.T) {
	repo := NewUserRepository()
	user := newUser("user@example.com")
	require.NoError(t, repo.Create(context.Background(), user))

	found, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	found.FullName = "Mutated"

	again, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", again.FullName, "mutations on returned entities must not leak into the store")
}
