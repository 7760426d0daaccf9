// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"tailor/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific sentinel errors for the user directory.
var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a create or email change collides with
	// an existing account. Implementations must detect the collision
	// atomically (conditional insert / unique constraint), not by a separate
	// lookup, so that concurrent registrations cannot both succeed.
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository defines the standard operations for user persistence.
// The application layer depends on this interface, not the concrete store.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address. The
	// backing store maintains a secondary index on email.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user. Returns ErrEmailTaken when the email is
	// already registered.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies an existing user. Returns ErrUserNotFound when the
	// user no longer exists and ErrEmailTaken when an email change collides
	// with a different account.
	Update(ctx context.Context, user *entity.User) error
}
