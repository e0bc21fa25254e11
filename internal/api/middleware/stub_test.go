package middleware

import (
	"context"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

type stubGateway struct {
	users  map[string]string // username -> password
	roles  map[string][]domain.Role
	tokens map[string]*domain.Identity
	err    error
}

func (g *stubGateway) Authenticate(_ context.Context, username, password string) (*domain.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if pw, ok := g.users[username]; !ok || pw != password {
		return nil, domain.ErrAuthenticationFailed
	}
	return &domain.Identity{Username: username, Roles: g.roles[username]}, nil
}

func (g *stubGateway) Authorize(identity *domain.Identity, required ...domain.Role) error {
	if identity == nil {
		return domain.ErrAuthorizationDenied
	}
	if len(required) == 0 || identity.HasRole(domain.RoleAdmin) {
		return nil
	}
	for _, r := range required {
		if identity.HasRole(r) {
			return nil
		}
	}
	return domain.ErrAuthorizationDenied
}

func (g *stubGateway) Login(context.Context, string, string) (string, *domain.Identity, error) {
	return "", nil, domain.ErrAuthenticationFailed
}

func (g *stubGateway) ParseToken(token string) (*domain.Identity, error) {
	if id, ok := g.tokens[token]; ok {
		return id, nil
	}
	return nil, domain.ErrAuthenticationFailed
}

func (g *stubGateway) RegisterUser(context.Context, string, string, []string) (*domain.User, error) {
	return nil, nil
}

type recordingAudit struct {
	events []domain.AuditEvent
}

func (r *recordingAudit) Record(ev domain.AuditEvent) { r.events = append(r.events, ev) }

func newStubGateway() *stubGateway {
	return &stubGateway{
		users: map[string]string{"thibaud": "1234", "lib": "secret"},
		roles: map[string][]domain.Role{
			"thibaud": {domain.RoleMember},
			"lib":     {domain.RoleLibrarian},
		},
		tokens: map[string]*domain.Identity{
			"good-token": {Username: "carol", Roles: []domain.Role{domain.RoleAdmin}},
		},
	}
}
