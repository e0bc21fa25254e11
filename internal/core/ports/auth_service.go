package ports

import (
	"context"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// AuthService is the access gateway: it authenticates callers and authorizes
// them against required roles.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.Identity, error)
	Authorize(identity *domain.Identity, required ...domain.Role) error
	Login(ctx context.Context, username, password string) (string, *domain.Identity, error)
	ParseToken(token string) (*domain.Identity, error)
	RegisterUser(ctx context.Context, username, password string, roles []string) (*domain.User, error)
}
