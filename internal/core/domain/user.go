package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is a named permission grant held by a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleMember    Role = "member"
)

var knownRoles = map[Role]struct{}{
	RoleAdmin:     {},
	RoleLibrarian: {},
	RoleMember:    {},
}

// Authority returns the grant name used in tokens and storage.
func (r Role) Authority() string {
	return string(r)
}

// Valid reports whether r is one of the roles the catalog understands.
func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

// ParseRoles converts raw role names into Roles. Names are trimmed and
// lower-cased; duplicates are collapsed. An empty list or any unknown
// name yields ErrValidationFailed.
func ParseRoles(names []string) ([]Role, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", ErrValidationFailed)
	}
	seen := make(map[Role]struct{}, len(names))
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		r := Role(strings.ToLower(strings.TrimSpace(n)))
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidationFailed, n)
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles, nil
}

// RoleNames is the inverse of ParseRoles.
func RoleNames(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Authority()
	}
	return out
}

// User models an account that may authenticate against the catalog.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller attached to a request.
type Identity struct {
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

// IdentityOf builds the request identity for u.
func IdentityOf(u *User) *Identity {
	roles := make([]Role, len(u.Roles))
	copy(roles, u.Roles)
	return &Identity{Username: u.Username, Roles: roles}
}

// HasRole reports whether the identity holds r.
func (i *Identity) HasRole(r Role) bool {
	if i == nil {
		return false
	}
	for _, held := range i.Roles {
		if held == r {
			return true
		}
	}
	return false
}
