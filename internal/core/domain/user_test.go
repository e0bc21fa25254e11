package domain

import (
	"errors"
	"testing"
)

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{" Librarian", "member", "librarian"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 2 || roles[0] != RoleLibrarian || roles[1] != RoleMember {
		t.Fatalf("unexpected roles: %v", roles)
	}
}

func TestParseRoles_Rejects(t *testing.T) {
	cases := map[string][]string{
		"empty":   nil,
		"unknown": {"member", "aristocrat"},
		"blank":   {"  "},
	}
	for name, in := range cases {
		if _, err := ParseRoles(in); !errors.Is(err, ErrValidationFailed) {
			t.Errorf("%s: expected ErrValidationFailed, got %v", name, err)
		}
	}
}

func TestRole_Authority(t *testing.T) {
	for r := range knownRoles {
		if r.Authority() == "" {
			t.Fatalf("role %q has empty authority", r)
		}
	}
}

func TestIdentityOf_CopiesRoles(t *testing.T) {
	u := &User{Username: "thibaud", Roles: []Role{RoleMember}}
	id := IdentityOf(u)
	u.Roles[0] = RoleAdmin

	if id.Username != "thibaud" {
		t.Fatalf("unexpected username %q", id.Username)
	}
	if id.HasRole(RoleAdmin) || !id.HasRole(RoleMember) {
		t.Fatalf("identity roles must not alias the user: %v", id.Roles)
	}
}

func TestIdentity_HasRole_Nil(t *testing.T) {
	var id *Identity
	if id.HasRole(RoleMember) {
		t.Fatal("nil identity must hold no roles")
	}
}

func TestNotFoundErrors(t *testing.T) {
	if !errors.Is(ErrUserNotFound, ErrNotFound) || !errors.Is(ErrBookNotFound, ErrNotFound) {
		t.Fatal("aggregate not-found errors must match ErrNotFound")
	}
	if errors.Is(ErrUserNotFound, ErrBookNotFound) {
		t.Fatal("user and book not-found errors must be distinct")
	}
	if err := Unavailable("find user", errors.New("dial tcp: refused")); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
