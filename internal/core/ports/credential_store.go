package ports

import (
	"context"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// CredentialStore resolves usernames to stored credentials and roles.
//
// FindByUsername returns domain.ErrUserNotFound for an unknown username and an
// error wrapping domain.ErrStoreUnavailable for connectivity faults. It never
// returns a nil user together with a nil error.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create persists a new user. A taken username yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Verify returns nil only when plain matches hash.
	Verify(hash, plain string) error
}
